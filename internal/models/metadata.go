package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AgentMessageMetadata is one key/value annotation on a message. Multiple
// rows per message are allowed, including duplicate keys; rows accumulate
// over a message's life and are never removed.
type AgentMessageMetadata struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	MessageID string    `gorm:"size:36;not null;index" json:"message_id"`
	Key       string    `gorm:"column:key;type:text;not null" json:"key"`
	Value     *string   `gorm:"type:text" json:"value"`
	CreatedAt time.Time `json:"created_at"`

	Message Message `gorm:"foreignKey:MessageID" json:"-"`
}

// TableName pins the uncountable table name; the default pluralizer does
// not handle "metadata".
func (AgentMessageMetadata) TableName() string { return "agent_message_metadata" }

// BeforeCreate assigns a UUID when the caller did not supply one.
func (m *AgentMessageMetadata) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
