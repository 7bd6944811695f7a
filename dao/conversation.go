package dao

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Geetanshgarg/ai-chat-interface/models"
)

// ConversationDAO handles conversation-related database operations
type ConversationDAO struct {
	store *Store
}

func NewConversationDAO(store *Store) *ConversationDAO {
	return &ConversationDAO{store: store}
}

// CreateConversation creates a new conversation with its initial messages
func (d *ConversationDAO) CreateConversation(title, model string, messages []models.Message) (*models.Conversation, error) {
	db, err := d.store.DB()
	if err != nil {
		return nil, err
	}

	convo := &models.Conversation{
		ID:       uuid.New(),
		Title:    title,
		Model:    model,
		Messages: messages,
	}
	if err := db.Create(convo).Error; err != nil {
		return nil, err
	}
	return convo, nil
}

// GetConversationByID retrieves a conversation with its messages in
// chronological order. Returns gorm.ErrRecordNotFound if absent.
func (d *ConversationDAO) GetConversationByID(id uuid.UUID) (*models.Conversation, error) {
	db, err := d.store.DB()
	if err != nil {
		return nil, err
	}

	var convo models.Conversation
	err = db.Preload("Messages", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("created_at ASC, id ASC")
	}).First(&convo, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &convo, nil
}

// AppendMessages appends messages to an existing conversation and bumps
// UpdatedAt, in a single transaction. Last write wins if two turns touch
// the same conversation.
func (d *ConversationDAO) AppendMessages(id uuid.UUID, messages []models.Message) error {
	db, err := d.store.DB()
	if err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		var convo models.Conversation
		if err := tx.First(&convo, "id = ?", id).Error; err != nil {
			return err
		}
		for i := range messages {
			messages[i].ConversationID = id
			if err := tx.Create(&messages[i]).Error; err != nil {
				return err
			}
		}
		return tx.Model(&convo).Update("updated_at", time.Now()).Error
	})
}

// UpdateConversation replaces the messages and/or title of a conversation
// and bumps UpdatedAt. A nil messages slice leaves the transcript alone.
func (d *ConversationDAO) UpdateConversation(id uuid.UUID, title string, messages []models.Message) (*models.Conversation, error) {
	db, err := d.store.DB()
	if err != nil {
		return nil, err
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		var convo models.Conversation
		if err := tx.First(&convo, "id = ?", id).Error; err != nil {
			return err
		}
		if messages != nil {
			if err := tx.Where("conversation_id = ?", id).Delete(&models.Message{}).Error; err != nil {
				return err
			}
			for i := range messages {
				messages[i].ID = 0
				messages[i].ConversationID = id
				if err := tx.Create(&messages[i]).Error; err != nil {
					return err
				}
			}
		}
		updates := map[string]interface{}{"updated_at": time.Now()}
		if title != "" {
			updates["title"] = title
		}
		return tx.Model(&convo).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	return d.GetConversationByID(id)
}

// DeleteConversation removes a conversation and its messages.
// Returns gorm.ErrRecordNotFound if the conversation does not exist.
func (d *ConversationDAO) DeleteConversation(id uuid.UUID) error {
	db, err := d.store.DB()
	if err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		var convo models.Conversation
		if err := tx.First(&convo, "id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Where("conversation_id = ?", id).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		return tx.Delete(&convo).Error
	})
}

// ListConversations retrieves all conversations with their messages,
// most recently updated first.
func (d *ConversationDAO) ListConversations() ([]models.Conversation, error) {
	db, err := d.store.DB()
	if err != nil {
		return nil, err
	}

	var convos []models.Conversation
	err = db.Preload("Messages", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("created_at ASC, id ASC")
	}).Order("updated_at DESC").Find(&convos).Error
	if err != nil {
		return nil, err
	}
	return convos, nil
}
