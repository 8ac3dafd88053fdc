package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Agent is a message participant. Agents are created once and updated in
// place; no operation deletes them.
type Agent struct {
	ID        string  `gorm:"primaryKey;size:36" json:"id"`
	AgentName string  `gorm:"type:text;not null" json:"agent_name"`
	IPAddress *string `gorm:"type:text" json:"ip_address"`
	Port      *int    `json:"port"`
	CreatedAt time.Time `json:"created_at"`

	MessagesSent []Message          `gorm:"foreignKey:SenderID" json:"-"`
	Received     []MessageRecipient `gorm:"foreignKey:RecipientID" json:"-"`
}

// BeforeCreate assigns a UUID when the caller did not supply one.
func (a *Agent) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
