package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Conversation groups related messages, independent of reply threading.
type Conversation struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Archived    bool      `gorm:"not null;default:false" json:"archived"`
	Title       *string   `gorm:"type:text" json:"title"`
	Description *string   `gorm:"type:text" json:"description"`
	Metadata    Document  `gorm:"column:metadata;type:json" json:"metadata"`

	Messages []Message `gorm:"foreignKey:ConversationID" json:"-"`
}

// BeforeCreate assigns a UUID when the caller did not supply one.
func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
