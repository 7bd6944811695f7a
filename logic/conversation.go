package logic

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Geetanshgarg/ai-chat-interface/models"
)

// ConversationLogic handles conversation CRUD
type ConversationLogic struct {
	convos ConversationStore
}

func NewConversationLogic(convos ConversationStore) *ConversationLogic {
	return &ConversationLogic{convos: convos}
}

// CreateConversation creates a conversation from client-supplied messages
func (l *ConversationLogic) CreateConversation(title, model string, messages []IncomingMessage) (*models.Conversation, error) {
	if model == "" || messages == nil {
		return nil, ErrInvalidMessageFormat
	}
	if title == "" {
		title = fmt.Sprintf("Conversation %s", time.Now().Format("2006-01-02 15:04:05"))
	}

	stored := make([]models.Message, 0, len(messages))
	now := time.Now()
	for _, msg := range messages {
		stored = append(stored, models.Message{
			Role:      msg.Role,
			Content:   msg.Content,
			Images:    msg.Images,
			CreatedAt: now,
		})
	}
	return l.convos.CreateConversation(title, model, stored)
}

// GetConversation fetches one conversation with its messages
func (l *ConversationLogic) GetConversation(id uuid.UUID) (*models.Conversation, error) {
	convo, err := l.convos.GetConversationByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	return convo, nil
}

// UpdateConversation replaces a conversation's messages and/or title
func (l *ConversationLogic) UpdateConversation(id uuid.UUID, title string, messages []IncomingMessage) (*models.Conversation, error) {
	var stored []models.Message
	if messages != nil {
		stored = make([]models.Message, 0, len(messages))
		now := time.Now()
		for _, msg := range messages {
			stored = append(stored, models.Message{
				Role:      msg.Role,
				Content:   msg.Content,
				Images:    msg.Images,
				CreatedAt: now,
			})
		}
	}

	convo, err := l.convos.UpdateConversation(id, title, stored)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	return convo, nil
}

// DeleteConversation removes a conversation
func (l *ConversationLogic) DeleteConversation(id uuid.UUID) error {
	if err := l.convos.DeleteConversation(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrConversationNotFound
		}
		return err
	}
	return nil
}

// ListConversations retrieves all conversations, most recent first
func (l *ConversationLogic) ListConversations() ([]models.Conversation, error) {
	return l.convos.ListConversations()
}
