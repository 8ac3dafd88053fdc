package models

import "time"

// MessageRecipient is the delivery relation between a message and one
// recipient agent, keyed by the (message, recipient) pair. Re-inserting an
// existing pair is a conflict, never an upsert.
type MessageRecipient struct {
	MessageID   string     `gorm:"primaryKey;size:36" json:"message_id"`
	RecipientID string     `gorm:"primaryKey;size:36" json:"recipient_id"`
	IsRead      bool       `gorm:"default:false" json:"is_read"`
	ReadAt      *time.Time `json:"read_at"`

	Message   Message `gorm:"foreignKey:MessageID" json:"-"`
	Recipient Agent   `gorm:"foreignKey:RecipientID" json:"-"`
}
