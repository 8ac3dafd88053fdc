package messaging

import (
	"github.com/zulandar/switchboard/internal/errs"
	"github.com/zulandar/switchboard/internal/models"
	"gorm.io/gorm"
)

// CanViewMessage reports whether the agent may read the message: true iff
// the agent is the sender or holds a recipient link. No other agent may
// view the message through this path.
func CanViewMessage(gdb *gorm.DB, agentID string, msg *models.Message) (bool, error) {
	if msg.SenderID != nil && *msg.SenderID == agentID {
		return true, nil
	}
	var count int64
	err := gdb.Model(&models.MessageRecipient{}).
		Where("message_id = ? AND recipient_id = ?", msg.ID, agentID).
		Count(&count).Error
	if err != nil {
		return false, errs.Store("messaging: check visibility", err)
	}
	return count > 0, nil
}

// CanViewMetadata reports whether the agent may read metadata attached to
// the message. Metadata inherits the owning message's visibility.
func CanViewMetadata(gdb *gorm.DB, agentID, messageID string) (bool, error) {
	msg, err := GetMessage(gdb, messageID)
	if err != nil {
		return false, err
	}
	return CanViewMessage(gdb, agentID, msg)
}
