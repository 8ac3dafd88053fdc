// Package messaging implements message delivery: send, recipient fan-out,
// metadata annotation, and the visibility-checked retrieval queries.
package messaging

import (
	"errors"
	"time"

	"github.com/zulandar/switchboard/internal/errs"
	"github.com/zulandar/switchboard/internal/models"
	"gorm.io/gorm"
)

// MessageCreate holds the fields for a new message. Content is required;
// everything else is optional. ScheduleAt defers visibility of the message
// to recipients until the given time.
type MessageCreate struct {
	SenderID        *string
	ParentMessageID *string
	ConversationID  *string
	Content         string
	MessageType     *string
	Importance      *int
	Status          *string
	Metadata        models.Document
	SentAt          *time.Time
	ScheduleAt      *time.Time
}

// MessageUpdate holds the mutable message fields. Nil pointers leave the
// corresponding column untouched.
type MessageUpdate struct {
	Content         *string
	ParentMessageID *string
	ConversationID  *string
	MessageType     *string
	Importance      *int
	Status          *string
	Metadata        models.Document
}

func validateImportance(importance *int) error {
	if importance != nil && (*importance < 0 || *importance > 10) {
		return errs.Validationf("messaging: importance %d out of range 0-10", *importance)
	}
	return nil
}

// requireAgent fails with a reference error unless the agent row exists.
func requireAgent(tx *gorm.DB, id string) error {
	var count int64
	if err := tx.Model(&models.Agent{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return errs.Store("messaging: check agent", err)
	}
	if count == 0 {
		return errs.Referencef("messaging: agent %s", id)
	}
	return nil
}

// requireMessage fails with a reference error unless the message row exists.
func requireMessage(tx *gorm.DB, id string) error {
	var count int64
	if err := tx.Model(&models.Message{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return errs.Store("messaging: check message", err)
	}
	if count == 0 {
		return errs.Referencef("messaging: message %s", id)
	}
	return nil
}

// requireConversation fails with a reference error unless the conversation
// row exists.
func requireConversation(tx *gorm.DB, id string) error {
	var count int64
	if err := tx.Model(&models.Conversation{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return errs.Store("messaging: check conversation", err)
	}
	if count == 0 {
		return errs.Referencef("messaging: conversation %s", id)
	}
	return nil
}

// CreateMessage records a single send event. Recipients are attached
// afterward via CreateRecipient.
func CreateMessage(gdb *gorm.DB, in MessageCreate) (*models.Message, error) {
	if in.Content == "" {
		return nil, errs.Validationf("messaging: content is required")
	}
	if err := validateImportance(in.Importance); err != nil {
		return nil, err
	}

	msg := models.Message{
		SenderID:        in.SenderID,
		ParentMessageID: in.ParentMessageID,
		ConversationID:  in.ConversationID,
		Content:         in.Content,
		MessageType:     in.MessageType,
		Importance:      in.Importance,
		Status:          in.Status,
		Metadata:        in.Metadata,
	}
	if in.SentAt != nil {
		msg.SentAt = *in.SentAt
	}

	err := gdb.Transaction(func(tx *gorm.DB) error {
		if in.SenderID != nil {
			if err := requireAgent(tx, *in.SenderID); err != nil {
				return err
			}
		}
		if in.ParentMessageID != nil {
			if err := requireMessage(tx, *in.ParentMessageID); err != nil {
				return err
			}
		}
		if in.ConversationID != nil {
			if err := requireConversation(tx, *in.ConversationID); err != nil {
				return err
			}
		}
		if err := tx.Create(&msg).Error; err != nil {
			return errs.Store("messaging: create message", err)
		}
		if in.ScheduleAt != nil {
			timed := models.TimedMessage{MessageID: msg.ID, SendAt: *in.ScheduleAt}
			if err := tx.Create(&timed).Error; err != nil {
				return errs.Store("messaging: schedule message", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// UpdateMessage applies the supplied fields to an existing message.
func UpdateMessage(gdb *gorm.DB, id string, upd MessageUpdate) (*models.Message, error) {
	if upd.Content != nil && *upd.Content == "" {
		return nil, errs.Validationf("messaging: content must not be empty")
	}
	if err := validateImportance(upd.Importance); err != nil {
		return nil, err
	}

	var msg models.Message
	err := gdb.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&msg, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NotFoundf("messaging: message %s", id)
			}
			return errs.Store("messaging: load message", err)
		}

		updates := map[string]interface{}{}
		if upd.Content != nil {
			updates["content"] = *upd.Content
		}
		if upd.ParentMessageID != nil {
			if err := requireMessage(tx, *upd.ParentMessageID); err != nil {
				return err
			}
			updates["parent_message_id"] = *upd.ParentMessageID
		}
		if upd.ConversationID != nil {
			if err := requireConversation(tx, *upd.ConversationID); err != nil {
				return err
			}
			updates["conversation_id"] = *upd.ConversationID
		}
		if upd.MessageType != nil {
			updates["message_type"] = *upd.MessageType
		}
		if upd.Importance != nil {
			updates["importance"] = *upd.Importance
		}
		if upd.Status != nil {
			updates["status"] = *upd.Status
		}
		if upd.Metadata != nil {
			updates["metadata"] = upd.Metadata
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&msg).Updates(updates).Error; err != nil {
			return errs.Store("messaging: update message", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// GetMessage loads one message by id.
func GetMessage(gdb *gorm.DB, id string) (*models.Message, error) {
	var msg models.Message
	if err := gdb.First(&msg, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFoundf("messaging: message %s", id)
		}
		return nil, errs.Store("messaging: load message", err)
	}
	return &msg, nil
}

// CreateRecipient attaches one recipient agent to a message. Re-inserting
// an existing (message, recipient) pair is a conflict; the composite
// primary key makes concurrent duplicate attempts resolve to exactly one
// success.
func CreateRecipient(gdb *gorm.DB, messageID, recipientID string) (*models.MessageRecipient, error) {
	if messageID == "" || recipientID == "" {
		return nil, errs.Validationf("messaging: message_id and recipient_id are required")
	}

	rec := models.MessageRecipient{MessageID: messageID, RecipientID: recipientID}
	err := gdb.Transaction(func(tx *gorm.DB) error {
		if err := requireMessage(tx, messageID); err != nil {
			return err
		}
		if err := requireAgent(tx, recipientID); err != nil {
			return err
		}
		if err := tx.Create(&rec).Error; err != nil {
			return errs.Store("messaging: create recipient", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// RecipientUpdate holds the mutable recipient-link fields.
type RecipientUpdate struct {
	IsRead *bool
	ReadAt *time.Time
}

// UpdateRecipient applies the supplied fields to an existing recipient link.
func UpdateRecipient(gdb *gorm.DB, messageID, recipientID string, upd RecipientUpdate) (*models.MessageRecipient, error) {
	var rec models.MessageRecipient
	err := gdb.Transaction(func(tx *gorm.DB) error {
		err := tx.First(&rec, "message_id = ? AND recipient_id = ?", messageID, recipientID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NotFoundf("messaging: recipient (%s, %s)", messageID, recipientID)
			}
			return errs.Store("messaging: load recipient", err)
		}

		updates := map[string]interface{}{}
		if upd.IsRead != nil {
			updates["is_read"] = *upd.IsRead
		}
		if upd.ReadAt != nil {
			updates["read_at"] = *upd.ReadAt
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&rec).Updates(updates).Error; err != nil {
			return errs.Store("messaging: update recipient", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CreateMetadata adds one key/value annotation to a message. Duplicate keys
// per message are allowed.
func CreateMetadata(gdb *gorm.DB, messageID, key string, value *string) (*models.AgentMessageMetadata, error) {
	if key == "" {
		return nil, errs.Validationf("messaging: key is required")
	}

	meta := models.AgentMessageMetadata{MessageID: messageID, Key: key, Value: value}
	err := gdb.Transaction(func(tx *gorm.DB) error {
		if err := requireMessage(tx, messageID); err != nil {
			return err
		}
		if err := tx.Create(&meta).Error; err != nil {
			return errs.Store("messaging: create metadata", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &meta, nil
}

// MetadataUpdate holds the mutable metadata fields.
type MetadataUpdate struct {
	Key   *string
	Value *string
}

// UpdateMetadata applies the supplied fields to an existing metadata row.
func UpdateMetadata(gdb *gorm.DB, id string, upd MetadataUpdate) (*models.AgentMessageMetadata, error) {
	if upd.Key != nil && *upd.Key == "" {
		return nil, errs.Validationf("messaging: key must not be empty")
	}

	var meta models.AgentMessageMetadata
	err := gdb.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&meta, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NotFoundf("messaging: metadata %s", id)
			}
			return errs.Store("messaging: load metadata", err)
		}

		updates := map[string]interface{}{}
		if upd.Key != nil {
			updates["key"] = *upd.Key
		}
		if upd.Value != nil {
			updates["value"] = *upd.Value
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&meta).Updates(updates).Error; err != nil {
			return errs.Store("messaging: update metadata", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &meta, nil
}
