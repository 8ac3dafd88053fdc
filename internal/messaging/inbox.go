package messaging

import (
	"time"

	"github.com/zulandar/switchboard/internal/errs"
	"github.com/zulandar/switchboard/internal/models"
	"gorm.io/gorm"
)

// releasedFilter excludes messages scheduled for delivery after now. A
// message with no timed_messages row is always released.
const releasedFilter = "NOT EXISTS (SELECT 1 FROM timed_messages tm WHERE tm.message_id = messages.id AND tm.send_at > ?)"

// requireKnownAgent fails with not-found for identity-scoped queries
// against an agent that was never registered.
func requireKnownAgent(gdb *gorm.DB, agentID string) error {
	if agentID == "" {
		return errs.Validationf("messaging: agent_id is required")
	}
	var count int64
	if err := gdb.Model(&models.Agent{}).Where("id = ?", agentID).Count(&count).Error; err != nil {
		return errs.Store("messaging: check agent", err)
	}
	if count == 0 {
		return errs.NotFoundf("messaging: agent %s", agentID)
	}
	return nil
}

// dedupe drops repeated message ids, keeping first occurrence order.
func dedupe(msgs []models.Message) []models.Message {
	seen := make(map[string]bool, len(msgs))
	out := msgs[:0]
	for _, m := range msgs {
		if seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		out = append(out, m)
	}
	return out
}

// ListForAgent returns every released message the agent sent or received,
// most recent first. The single agent id scopes the whole query; there is
// no way to pull another agent's traffic through this operation.
func ListForAgent(gdb *gorm.DB, agentID string) ([]models.Message, error) {
	if err := requireKnownAgent(gdb, agentID); err != nil {
		return nil, err
	}

	var msgs []models.Message
	err := gdb.Model(&models.Message{}).
		Where("sender_id = ? OR EXISTS (SELECT 1 FROM message_recipients mr WHERE mr.message_id = messages.id AND mr.recipient_id = ?)", agentID, agentID).
		Where(releasedFilter, time.Now()).
		Order("sent_at DESC").
		Find(&msgs).Error
	if err != nil {
		return nil, errs.Store("messaging: list for agent", err)
	}
	return dedupe(msgs), nil
}

// ListUnreadForAgent returns released messages the agent received and has
// not read, most recent first. Messages the agent only sent never appear:
// unread applies to the recipient role alone.
func ListUnreadForAgent(gdb *gorm.DB, agentID string) ([]models.Message, error) {
	if err := requireKnownAgent(gdb, agentID); err != nil {
		return nil, err
	}

	var msgs []models.Message
	err := gdb.Model(&models.Message{}).
		Joins("JOIN message_recipients mr ON mr.message_id = messages.id").
		Where("mr.recipient_id = ? AND mr.is_read = ?", agentID, false).
		Where(releasedFilter, time.Now()).
		Order("messages.sent_at DESC").
		Find(&msgs).Error
	if err != nil {
		return nil, errs.Store("messaging: list unread", err)
	}
	return dedupe(msgs), nil
}

// MarkRead flags every unread recipient link of the agent whose message
// was sent at or before the cutoff. Returns the number of rows updated.
// The conditional single-statement update makes the call idempotent and
// safe under concurrent overlapping cutoffs.
func MarkRead(gdb *gorm.DB, agentID string, upTo time.Time) (int64, error) {
	if err := requireKnownAgent(gdb, agentID); err != nil {
		return 0, err
	}

	sub := gdb.Model(&models.Message{}).Select("id").Where("sent_at <= ?", upTo)
	res := gdb.Model(&models.MessageRecipient{}).
		Where("recipient_id = ? AND is_read = ?", agentID, false).
		Where("message_id IN (?)", sub).
		Updates(map[string]interface{}{"is_read": true, "read_at": time.Now()})
	if res.Error != nil {
		return 0, errs.Store("messaging: mark read", res.Error)
	}
	return res.RowsAffected, nil
}

// MetadataBundle is the response of the metadata query: the message, its
// resolved sender, and every metadata row.
type MetadataBundle struct {
	MessageID     string                        `json:"message_id"`
	Message       models.Message                `json:"message"`
	Agent         *models.Agent                 `json:"agent"`
	MetadataItems []models.AgentMessageMetadata `json:"metadata_items"`
}

// MessageMetadata returns all metadata rows for a message plus the sender's
// public fields. The caller must be able to view the owning message.
func MessageMetadata(gdb *gorm.DB, messageID, agentID string) (*MetadataBundle, error) {
	msg, err := GetMessage(gdb, messageID)
	if err != nil {
		return nil, err
	}

	ok, err := CanViewMessage(gdb, agentID, msg)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.AccessDeniedf("messaging: agent %s may not view message %s", agentID, messageID)
	}

	var items []models.AgentMessageMetadata
	if err := gdb.Where("message_id = ?", messageID).Order("created_at ASC").Find(&items).Error; err != nil {
		return nil, errs.Store("messaging: load metadata", err)
	}

	bundle := &MetadataBundle{MessageID: messageID, Message: *msg, MetadataItems: items}
	if msg.SenderID != nil {
		var sender models.Agent
		if err := gdb.First(&sender, "id = ?", *msg.SenderID).Error; err != nil {
			return nil, errs.Store("messaging: load sender", err)
		}
		bundle.Agent = &sender
	}
	return bundle, nil
}
