// Package slack implements the notify Adapter for Slack using the Web API.
package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	slackapi "github.com/slack-go/slack"
	"github.com/zulandar/switchboard/internal/notify"
)

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	AuthTestContext(ctx context.Context) (*slackapi.AuthTestResponse, error)
	PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// Adapter implements notify.Adapter for Slack.
type Adapter struct {
	client    slackClient
	botToken  string
	channelID string
	mu        sync.Mutex
	connected bool
	closed    bool
}

// AdapterOpts holds parameters for creating a Slack Adapter.
type AdapterOpts struct {
	BotToken  string // xoxb-... Slack bot token
	ChannelID string // channel to post announcements to
	// For testing: inject a mock client instead of real Slack API.
	Client slackClient
}

// New creates a Slack Adapter.
func New(opts AdapterOpts) (*Adapter, error) {
	if opts.Client == nil && opts.BotToken == "" {
		return nil, fmt.Errorf("slack: bot token is required")
	}
	if opts.ChannelID == "" {
		return nil, fmt.Errorf("slack: channel id is required")
	}

	a := &Adapter{
		botToken:  opts.BotToken,
		channelID: opts.ChannelID,
	}
	if opts.Client != nil {
		a.client = opts.Client
	}
	return a, nil
}

// Connect verifies the token against the Slack API.
func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return fmt.Errorf("slack: adapter already closed")
	}
	if a.connected {
		return nil
	}

	if a.client == nil {
		a.client = slackapi.New(a.botToken)
	}

	if _, err := a.client.AuthTestContext(ctx); err != nil {
		return fmt.Errorf("slack: auth test: %w", err)
	}

	a.connected = true
	return nil
}

// Announce posts the announcement as a Slack attachment.
func (a *Adapter) Announce(ctx context.Context, ann notify.Announcement) error {
	a.mu.Lock()
	if !a.connected {
		a.mu.Unlock()
		return fmt.Errorf("slack: not connected")
	}
	a.mu.Unlock()

	_, _, err := a.client.PostMessageContext(ctx, a.channelID,
		slackapi.MsgOptionAttachments(buildAttachment(ann)))
	if err != nil {
		return fmt.Errorf("slack: announce message %s: %w", ann.MessageID, err)
	}
	return nil
}

// Close marks the adapter closed. The Slack Web API is stateless so there
// is no connection to tear down.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	a.connected = false
	return nil
}

// buildAttachment translates an Announcement into a Slack attachment.
func buildAttachment(ann notify.Announcement) slackapi.Attachment {
	title := "New message"
	if ann.SenderName != "" {
		title = fmt.Sprintf("Message from %s", ann.SenderName)
	}

	att := slackapi.Attachment{
		Title: title,
		Text:  ann.Content,
		Color: notify.ImportanceColor(ann.Importance),
		Ts:    json.Number(fmt.Sprintf("%d", ann.SentAt.Unix())),
	}

	if len(ann.Recipients) > 0 {
		att.Fields = append(att.Fields, slackapi.AttachmentField{
			Title: "To",
			Value: strings.Join(ann.Recipients, ", "),
			Short: true,
		})
	}
	if ann.Importance != nil {
		att.Fields = append(att.Fields, slackapi.AttachmentField{
			Title: "Importance",
			Value: fmt.Sprintf("%d", *ann.Importance),
			Short: true,
		})
	}
	return att
}
