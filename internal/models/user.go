package models

import "time"

// User is a simple reference entity, independent of the messaging graph.
type User struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Email     string    `gorm:"size:100;not null;uniqueIndex" json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
