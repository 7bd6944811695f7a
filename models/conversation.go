package models

import (
	"time"

	"github.com/google/uuid"
)

// Conversation represents a persisted chat transcript for one model
type Conversation struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title     string    `gorm:"not null;default:'New Conversation'" json:"title"`
	Model     string    `gorm:"not null" json:"model"`
	Messages  []Message `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
