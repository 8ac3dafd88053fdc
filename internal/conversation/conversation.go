// Package conversation manages message groupings and the conversation
// detail aggregate.
package conversation

import (
	"errors"

	"github.com/zulandar/switchboard/internal/errs"
	"github.com/zulandar/switchboard/internal/models"
	"gorm.io/gorm"
)

// Create holds the fields for a new conversation. Everything is optional;
// archived defaults to false.
type Create struct {
	Title       *string
	Description *string
	Archived    bool
	Metadata    models.Document
}

// Update holds the mutable conversation fields. Nil pointers leave the
// corresponding column untouched.
type Update struct {
	Title       *string
	Description *string
	Archived    *bool
	Metadata    models.Document
}

// New creates a conversation and assigns it an id.
func New(gdb *gorm.DB, in Create) (*models.Conversation, error) {
	conv := models.Conversation{
		Title:       in.Title,
		Description: in.Description,
		Archived:    in.Archived,
		Metadata:    in.Metadata,
	}
	if err := gdb.Create(&conv).Error; err != nil {
		return nil, errs.Store("conversation: create", err)
	}
	return &conv, nil
}

// Apply updates an existing conversation in place.
func Apply(gdb *gorm.DB, id string, upd Update) (*models.Conversation, error) {
	var conv models.Conversation
	err := gdb.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&conv, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NotFoundf("conversation: %s", id)
			}
			return errs.Store("conversation: load", err)
		}

		updates := map[string]interface{}{}
		if upd.Title != nil {
			updates["title"] = *upd.Title
		}
		if upd.Description != nil {
			updates["description"] = *upd.Description
		}
		if upd.Archived != nil {
			updates["archived"] = *upd.Archived
		}
		if upd.Metadata != nil {
			updates["metadata"] = upd.Metadata
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&conv).Updates(updates).Error; err != nil {
			return errs.Store("conversation: update", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// Get loads one conversation by id.
func Get(gdb *gorm.DB, id string) (*models.Conversation, error) {
	var conv models.Conversation
	if err := gdb.First(&conv, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFoundf("conversation: %s", id)
		}
		return nil, errs.Store("conversation: load", err)
	}
	return &conv, nil
}

// List returns all conversations, newest first.
func List(gdb *gorm.DB) ([]models.Conversation, error) {
	var convs []models.Conversation
	if err := gdb.Order("created_at DESC").Find(&convs).Error; err != nil {
		return nil, errs.Store("conversation: list", err)
	}
	return convs, nil
}

// Details is the full conversation aggregate: the conversation, its
// messages in thread order, every agent involved, and all recipient and
// metadata rows for those messages.
type Details struct {
	models.Conversation
	Messages      []models.Message              `json:"messages"`
	UniqueAgents  []models.Agent                `json:"unique_agents"`
	Recipients    []models.MessageRecipient     `json:"recipients"`
	MetadataItems []models.AgentMessageMetadata `json:"metadata_items"`
	TotalMessages int                           `json:"total_messages"`
	UnreadCount   int                           `json:"unread_count"`
}

// GetDetails assembles the conversation aggregate. Messages come back
// oldest first to reconstruct thread order. When viewerID is non-empty the
// viewer must be sender or recipient of at least one message in the
// conversation; an empty viewerID keeps the query conversation-scoped for
// trusted internal callers.
func GetDetails(gdb *gorm.DB, id, viewerID string) (*Details, error) {
	conv, err := Get(gdb, id)
	if err != nil {
		return nil, err
	}

	var msgs []models.Message
	if err := gdb.Where("conversation_id = ?", id).Order("sent_at ASC").Find(&msgs).Error; err != nil {
		return nil, errs.Store("conversation: load messages", err)
	}

	ids := make([]string, len(msgs))
	for i, m := range msgs {
		ids[i] = m.ID
	}

	var recipients []models.MessageRecipient
	var metadataItems []models.AgentMessageMetadata
	if len(ids) > 0 {
		if err := gdb.Where("message_id IN ?", ids).Find(&recipients).Error; err != nil {
			return nil, errs.Store("conversation: load recipients", err)
		}
		if err := gdb.Where("message_id IN ?", ids).Order("created_at ASC").Find(&metadataItems).Error; err != nil {
			return nil, errs.Store("conversation: load metadata", err)
		}
	}

	if viewerID != "" && !isParticipant(viewerID, msgs, recipients) {
		return nil, errs.AccessDeniedf("conversation: agent %s is not a participant in %s", viewerID, id)
	}

	agents, err := uniqueAgents(gdb, msgs, recipients)
	if err != nil {
		return nil, err
	}

	unread := 0
	for _, r := range recipients {
		if !r.IsRead {
			unread++
		}
	}

	return &Details{
		Conversation:  *conv,
		Messages:      msgs,
		UniqueAgents:  agents,
		Recipients:    recipients,
		MetadataItems: metadataItems,
		TotalMessages: len(msgs),
		UnreadCount:   unread,
	}, nil
}

// isParticipant reports whether the agent sent or received any of the
// conversation's messages.
func isParticipant(agentID string, msgs []models.Message, recipients []models.MessageRecipient) bool {
	for _, m := range msgs {
		if m.SenderID != nil && *m.SenderID == agentID {
			return true
		}
	}
	for _, r := range recipients {
		if r.RecipientID == agentID {
			return true
		}
	}
	return false
}

// uniqueAgents loads every distinct agent referenced as sender or
// recipient, in first-appearance order.
func uniqueAgents(gdb *gorm.DB, msgs []models.Message, recipients []models.MessageRecipient) ([]models.Agent, error) {
	seen := map[string]bool{}
	var ids []string
	for _, m := range msgs {
		if m.SenderID != nil && !seen[*m.SenderID] {
			seen[*m.SenderID] = true
			ids = append(ids, *m.SenderID)
		}
	}
	for _, r := range recipients {
		if !seen[r.RecipientID] {
			seen[r.RecipientID] = true
			ids = append(ids, r.RecipientID)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	var agents []models.Agent
	if err := gdb.Where("id IN ?", ids).Find(&agents).Error; err != nil {
		return nil, errs.Store("conversation: load agents", err)
	}

	// Restore first-appearance order; Find returns storage order.
	byID := make(map[string]models.Agent, len(agents))
	for _, a := range agents {
		byID[a.ID] = a
	}
	ordered := make([]models.Agent, 0, len(ids))
	for _, id := range ids {
		if a, ok := byID[id]; ok {
			ordered = append(ordered, a)
		}
	}
	return ordered, nil
}
