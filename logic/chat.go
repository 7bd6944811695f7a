package logic

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Geetanshgarg/ai-chat-interface/models"
	"github.com/Geetanshgarg/ai-chat-interface/pkg"
)

// StreamDone is the terminal SSE sentinel payload
const StreamDone = "[DONE]"

// ChatProvider is the inference collaborator: a streaming chat completion
// source plus a non-streaming call used for title generation.
type ChatProvider interface {
	StreamChat(ctx context.Context, model string, messages []pkg.ChatMessage, handler func(content string) error) error
	Chat(ctx context.Context, model string, messages []pkg.ChatMessage) (string, error)
}

// ConversationStore is the repository collaborator
type ConversationStore interface {
	CreateConversation(title, model string, messages []models.Message) (*models.Conversation, error)
	GetConversationByID(id uuid.UUID) (*models.Conversation, error)
	AppendMessages(id uuid.UUID, messages []models.Message) error
	UpdateConversation(id uuid.UUID, title string, messages []models.Message) (*models.Conversation, error)
	DeleteConversation(id uuid.UUID) error
	ListConversations() ([]models.Conversation, error)
}

// ChatTurn is one relay request
type ChatTurn struct {
	Messages       []IncomingMessage
	Model          string
	ConversationID string
	Save           bool
}

// SSE frame payloads
type contentFrame struct {
	Content string `json:"content"`
}

type savedFrame struct {
	Content        string `json:"content"`
	ConversationID string `json:"conversationId"`
}

type errorFrame struct {
	Error string `json:"error"`
}

// ChatLogic drives the model-stream-to-SSE relay and its persistence
// side channel
type ChatLogic struct {
	provider ChatProvider
	convos   ConversationStore
	titles   *TitleLogic
}

func NewChatLogic(provider ChatProvider, convos ConversationStore, titles *TitleLogic) *ChatLogic {
	return &ChatLogic{
		provider: provider,
		convos:   convos,
		titles:   titles,
	}
}

// StreamChat validates the turn, relays the provider stream as SSE data
// payloads through emit, and persists the finished exchange when requested.
//
// Each emit call carries one SSE payload (a one-line JSON document, or the
// terminal [DONE] sentinel); the transport wraps it in a data frame and
// flushes. Errors returned from StreamChat occurred before any payload was
// emitted and can still be mapped to an HTTP status; once relaying has
// begun, failures are reported in-band as an error payload instead.
func (l *ChatLogic) StreamChat(ctx context.Context, turn ChatTurn, emit func(payload string) error) error {
	if len(turn.Messages) == 0 || turn.Model == "" {
		return ErrInvalidMessageFormat
	}

	normalized, err := NormalizeMessages(turn.Messages)
	if err != nil {
		return err
	}

	// Relay phase: forward every fragment as it arrives and accumulate
	// the full response for the persistence phase.
	var full strings.Builder
	streamed := false
	err = l.provider.StreamChat(ctx, turn.Model, normalized, func(fragment string) error {
		payload, err := json.Marshal(contentFrame{Content: fragment})
		if err != nil {
			return err
		}
		if err := emit(string(payload)); err != nil {
			return err
		}
		streamed = true
		full.WriteString(fragment)
		return nil
	})
	if err != nil {
		if !streamed {
			return err
		}
		// The client already saw partial output; report in-band and close
		// without the sentinel, like a torn connection would.
		log.Printf("streaming error: %v", err)
		payload, _ := json.Marshal(errorFrame{Error: err.Error()})
		emit(string(payload))
		return nil
	}

	// Persistence phase: best effort, never propagated back through the
	// stream. The transcript the client saw is not invalidated by a
	// storage fault; a failed save simply emits no conversationId frame.
	if turn.Save {
		if convo := l.persistTurn(ctx, turn, normalized, full.String()); convo != nil {
			payload, _ := json.Marshal(savedFrame{ConversationID: convo.ID.String()})
			if err := emit(string(payload)); err != nil {
				return nil
			}
		}
	}

	emit(StreamDone)
	return nil
}

// Tagged result of resolving the optional conversation identifier
type lookupState int

const (
	lookupNotRequested lookupState = iota
	lookupFound
	lookupNotFound
	lookupFailed
)

type conversationLookup struct {
	state lookupState
	convo *models.Conversation
}

func (l *ChatLogic) lookupConversation(id string) conversationLookup {
	if id == "" {
		return conversationLookup{state: lookupNotRequested}
	}

	uid, err := uuid.Parse(id)
	if err != nil {
		return conversationLookup{state: lookupNotFound}
	}

	convo, err := l.convos.GetConversationByID(uid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return conversationLookup{state: lookupNotFound}
		}
		log.Printf("conversation lookup failed: %v", err)
		return conversationLookup{state: lookupFailed}
	}
	return conversationLookup{state: lookupFound, convo: convo}
}

// persistTurn appends the exchange to an existing conversation or creates a
// new one holding just this exchange. Returns nil when nothing durable came
// out of the attempt.
func (l *ChatLogic) persistTurn(ctx context.Context, turn ChatTurn, normalized []pkg.ChatMessage, response string) *models.Conversation {
	now := time.Now()
	trigger := normalized[len(normalized)-1]
	userMsg := models.Message{
		Role:      trigger.Role,
		Content:   trigger.Content,
		Images:    trigger.Images,
		CreatedAt: now,
	}
	assistantMsg := models.Message{
		Role:      models.RoleAssistant,
		Content:   response,
		CreatedAt: now,
	}

	switch lookup := l.lookupConversation(turn.ConversationID); lookup.state {
	case lookupFound:
		if err := l.convos.AppendMessages(lookup.convo.ID, []models.Message{userMsg, assistantMsg}); err != nil {
			log.Printf("failed to append to conversation %s: %v", lookup.convo.ID, err)
			return nil
		}
		return lookup.convo

	case lookupNotRequested, lookupNotFound:
		// A new conversation holds only the triggering exchange, not the
		// truncated history that was sent to the model.
		title := l.titles.GenerateTitle(ctx, trigger.Content, response)
		convo, err := l.convos.CreateConversation(title, turn.Model, []models.Message{userMsg, assistantMsg})
		if err != nil {
			log.Printf("failed to create conversation: %v", err)
			return nil
		}
		return convo

	default:
		return nil
	}
}
