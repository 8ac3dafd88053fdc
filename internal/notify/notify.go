// Package notify announces delivered messages to chat platforms
// (Slack, Discord, etc.).
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Announcement is a delivered message formatted for a chat platform.
type Announcement struct {
	MessageID  string    // switchboard message id
	SenderName string    // resolved sender agent name, empty for system messages
	Content    string    // message body
	Importance *int      // 0-10 priority, nil when unset
	SentAt     time.Time // when the message was sent
	Recipients []string  // recipient agent names
}

// Adapter is the interface that platform-specific implementations must
// satisfy. Each adapter handles connection management and announcement
// delivery for a single chat platform.
type Adapter interface {
	// Connect establishes a connection to the chat platform.
	Connect(ctx context.Context) error

	// Announce posts one announcement to the platform.
	Announce(ctx context.Context, a Announcement) error

	// Close gracefully shuts down the adapter connection.
	Close() error
}

// Fanout delivers each announcement to every configured adapter.
type Fanout struct {
	adapters []Adapter
}

// NewFanout builds a Fanout over the given adapters.
func NewFanout(adapters ...Adapter) *Fanout {
	return &Fanout{adapters: adapters}
}

// Adapters returns the configured adapters.
func (f *Fanout) Adapters() []Adapter { return f.adapters }

// Connect connects every adapter, failing on the first error.
func (f *Fanout) Connect(ctx context.Context) error {
	for _, a := range f.adapters {
		if err := a.Connect(ctx); err != nil {
			return fmt.Errorf("notify: connect: %w", err)
		}
	}
	return nil
}

// Announce posts to every adapter. A failing platform does not block the
// others; all failures are joined into the returned error.
func (f *Fanout) Announce(ctx context.Context, ann Announcement) error {
	var errs []error
	for _, a := range f.adapters {
		if err := a.Announce(ctx, ann); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every adapter, joining any errors.
func (f *Fanout) Close() error {
	var errs []error
	for _, a := range f.adapters {
		if err := a.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ImportanceColor maps an importance level to a sidebar color hint shared
// by the platform adapters.
func ImportanceColor(importance *int) string {
	if importance == nil {
		return "#439fe0" // default blue
	}
	switch {
	case *importance >= 8:
		return "#d00000" // red
	case *importance >= 5:
		return "#e8a317" // amber
	default:
		return "#36a64f" // green
	}
}
