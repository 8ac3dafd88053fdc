package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message is a single send event. Sender, parent, and conversation are all
// optional back-references; a message with no conversation is standalone.
// Content, status, and metadata are mutable after creation; everything else
// is fixed at send time.
type Message struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`
	SenderID        *string   `gorm:"size:36;index" json:"sender_id"`
	SentAt          time.Time `gorm:"index" json:"sent_at"`
	ParentMessageID *string   `gorm:"size:36" json:"parent_message_id"`
	ConversationID  *string   `gorm:"size:36;index" json:"conversation_id"`
	Content         string    `gorm:"type:text;not null" json:"content"`
	MessageType     *string   `gorm:"type:text" json:"message_type"`
	Importance      *int      `json:"importance"`
	Status          *string   `gorm:"type:text" json:"status"`
	Metadata        Document  `gorm:"column:metadata;type:json" json:"metadata"`

	Sender        *Agent                 `gorm:"foreignKey:SenderID" json:"-"`
	Parent        *Message               `gorm:"foreignKey:ParentMessageID" json:"-"`
	Conversation  *Conversation          `gorm:"foreignKey:ConversationID" json:"-"`
	Recipients    []MessageRecipient     `gorm:"foreignKey:MessageID" json:"-"`
	MetadataItems []AgentMessageMetadata `gorm:"foreignKey:MessageID" json:"-"`
}

// BeforeCreate assigns a UUID and defaults the sent timestamp.
func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.SentAt.IsZero() {
		m.SentAt = time.Now()
	}
	return nil
}

// TimedMessage holds the scheduled delivery time for a message. A message
// with a row here and a future send_at is invisible to recipient pulls
// until the time passes.
type TimedMessage struct {
	MessageID string    `gorm:"primaryKey;size:36" json:"message_id"`
	SendAt    time.Time `gorm:"not null" json:"send_at"`

	Message Message `gorm:"foreignKey:MessageID" json:"-"`
}
