package models

import (
	"time"

	"github.com/google/uuid"
)

// Message roles accepted at the API boundary
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message represents a message in a conversation. Images hold raw base64
// payloads without the data-URL prefix, matching what the model receives.
type Message struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID uuid.UUID `gorm:"type:uuid;not null;index" json:"conversation_id"`
	Role           string    `gorm:"not null" json:"role"`
	Content        string    `json:"content"`
	Images         []string  `gorm:"serializer:json" json:"images,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// ValidRole reports whether role is one of the three accepted roles.
func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}
