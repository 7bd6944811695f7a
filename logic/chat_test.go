package logic

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Geetanshgarg/ai-chat-interface/models"
	"github.com/Geetanshgarg/ai-chat-interface/pkg"
)

// fakeProvider scripts the inference collaborator
type fakeProvider struct {
	fragments []string
	failAfter int // fail after this many fragments; -1 means never
	titleResp string
	titleErr  error
}

func newFakeProvider(fragments ...string) *fakeProvider {
	return &fakeProvider{fragments: fragments, failAfter: -1, titleResp: "Test Title"}
}

func (p *fakeProvider) StreamChat(ctx context.Context, model string, messages []pkg.ChatMessage, handler func(string) error) error {
	for i, fragment := range p.fragments {
		if p.failAfter >= 0 && i == p.failAfter {
			return errors.New("model exploded")
		}
		if err := handler(fragment); err != nil {
			return err
		}
	}
	if p.failAfter >= 0 && p.failAfter >= len(p.fragments) {
		return errors.New("model exploded")
	}
	return nil
}

func (p *fakeProvider) Chat(ctx context.Context, model string, messages []pkg.ChatMessage) (string, error) {
	return p.titleResp, p.titleErr
}

// fakeStore is an in-memory repository collaborator
type fakeStore struct {
	convos    map[uuid.UUID]*models.Conversation
	createErr error
	appendErr error
	created   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{convos: make(map[uuid.UUID]*models.Conversation)}
}

func (s *fakeStore) CreateConversation(title, model string, messages []models.Message) (*models.Conversation, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	convo := &models.Conversation{
		ID:        uuid.New(),
		Title:     title,
		Model:     model,
		Messages:  messages,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	s.convos[convo.ID] = convo
	s.created++
	return convo, nil
}

func (s *fakeStore) GetConversationByID(id uuid.UUID) (*models.Conversation, error) {
	convo, ok := s.convos[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return convo, nil
}

func (s *fakeStore) AppendMessages(id uuid.UUID, messages []models.Message) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	convo, ok := s.convos[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	convo.Messages = append(convo.Messages, messages...)
	convo.UpdatedAt = time.Now()
	return nil
}

func (s *fakeStore) UpdateConversation(id uuid.UUID, title string, messages []models.Message) (*models.Conversation, error) {
	convo, ok := s.convos[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if title != "" {
		convo.Title = title
	}
	if messages != nil {
		convo.Messages = messages
	}
	convo.UpdatedAt = time.Now()
	return convo, nil
}

func (s *fakeStore) DeleteConversation(id uuid.UUID) error {
	if _, ok := s.convos[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(s.convos, id)
	return nil
}

func (s *fakeStore) ListConversations() ([]models.Conversation, error) {
	var convos []models.Conversation
	for _, convo := range s.convos {
		convos = append(convos, *convo)
	}
	return convos, nil
}

// frameRecorder captures emitted SSE payloads
type frameRecorder struct {
	payloads []string
}

func (r *frameRecorder) emit(payload string) error {
	r.payloads = append(r.payloads, payload)
	return nil
}

func (r *frameRecorder) contents(t *testing.T) []string {
	t.Helper()
	var out []string
	for _, payload := range r.payloads {
		if payload == StreamDone {
			continue
		}
		var frame struct {
			Content        string `json:"content"`
			ConversationID string `json:"conversationId"`
			Error          string `json:"error"`
		}
		if err := json.Unmarshal([]byte(payload), &frame); err != nil {
			t.Fatalf("malformed frame %q: %v", payload, err)
		}
		if frame.Error == "" && frame.ConversationID == "" {
			out = append(out, frame.Content)
		}
	}
	return out
}

func (r *frameRecorder) conversationID(t *testing.T) string {
	t.Helper()
	for _, payload := range r.payloads {
		if payload == StreamDone {
			continue
		}
		var frame struct {
			ConversationID string `json:"conversationId"`
		}
		if err := json.Unmarshal([]byte(payload), &frame); err == nil && frame.ConversationID != "" {
			return frame.ConversationID
		}
	}
	return ""
}

func newTestChatLogic(provider *fakeProvider, store *fakeStore) *ChatLogic {
	return NewChatLogic(provider, store, NewTitleLogic(provider, "title-model"))
}

func userTurn(content string) ChatTurn {
	return ChatTurn{
		Messages: []IncomingMessage{{Role: "user", Content: content}},
		Model:    "llama3:8b",
	}
}

func TestStreamChatRelaysFragmentsInOrder(t *testing.T) {
	provider := newFakeProvider("Hel", "lo wor", "ld")
	rec := &frameRecorder{}

	err := newTestChatLogic(provider, newFakeStore()).StreamChat(context.Background(), userTurn("hi"), rec.emit)
	if err != nil {
		t.Fatalf("StreamChat() error = %v", err)
	}

	contents := rec.contents(t)
	want := []string{"Hel", "lo wor", "ld"}
	if len(contents) != len(want) {
		t.Fatalf("got %d content frames %v, want %d", len(contents), contents, len(want))
	}
	for i := range want {
		if contents[i] != want[i] {
			t.Errorf("frame %d = %q, want %q", i, contents[i], want[i])
		}
	}

	// Accumulating all fragments equals the full non-streaming text
	if got := strings.Join(contents, ""); got != "Hello world" {
		t.Errorf("accumulated = %q, want %q", got, "Hello world")
	}

	if last := rec.payloads[len(rec.payloads)-1]; last != StreamDone {
		t.Errorf("last payload = %q, want sentinel", last)
	}
}

func TestStreamChatCreatesNewConversation(t *testing.T) {
	provider := newFakeProvider("Hello", " there")
	store := newFakeStore()
	rec := &frameRecorder{}

	turn := userTurn("hi")
	turn.Save = true
	if err := newTestChatLogic(provider, store).StreamChat(context.Background(), turn, rec.emit); err != nil {
		t.Fatalf("StreamChat() error = %v", err)
	}

	if store.created != 1 {
		t.Fatalf("created %d conversations, want 1", store.created)
	}

	id := rec.conversationID(t)
	if id == "" {
		t.Fatal("no conversationId frame emitted")
	}

	convo, err := store.GetConversationByID(uuid.MustParse(id))
	if err != nil {
		t.Fatalf("conversation not found: %v", err)
	}
	if len(convo.Messages) != 2 {
		t.Fatalf("conversation has %d messages, want 2", len(convo.Messages))
	}
	if convo.Messages[0].Role != models.RoleUser || convo.Messages[0].Content != "hi" {
		t.Errorf("first message = %+v, want user %q", convo.Messages[0], "hi")
	}
	if convo.Messages[1].Role != models.RoleAssistant || convo.Messages[1].Content != "Hello there" {
		t.Errorf("second message = %+v, want assistant %q", convo.Messages[1], "Hello there")
	}
	if convo.Title != "Test Title" {
		t.Errorf("title = %q, want %q", convo.Title, "Test Title")
	}
}

func TestStreamChatAppendsToExistingConversation(t *testing.T) {
	provider := newFakeProvider("sure")
	store := newFakeStore()
	existing, err := store.CreateConversation("Old", "llama3:8b", []models.Message{
		{Role: models.RoleUser, Content: "first"},
		{Role: models.RoleAssistant, Content: "answer"},
	})
	if err != nil {
		t.Fatal(err)
	}
	existing.UpdatedAt = time.Now().Add(-time.Hour)
	before := existing.UpdatedAt
	store.created = 0

	rec := &frameRecorder{}
	turn := userTurn("second question")
	turn.Save = true
	turn.ConversationID = existing.ID.String()
	if err := newTestChatLogic(provider, store).StreamChat(context.Background(), turn, rec.emit); err != nil {
		t.Fatalf("StreamChat() error = %v", err)
	}

	if store.created != 0 {
		t.Errorf("created %d new conversations, want 0", store.created)
	}
	if got := rec.conversationID(t); got != existing.ID.String() {
		t.Errorf("conversationId frame = %q, want %q", got, existing.ID)
	}
	if len(existing.Messages) != 4 {
		t.Fatalf("conversation has %d messages, want 4", len(existing.Messages))
	}
	if !existing.UpdatedAt.After(before) {
		t.Errorf("UpdatedAt %v not after %v", existing.UpdatedAt, before)
	}
}

func TestStreamChatUnknownIDCreatesNewConversation(t *testing.T) {
	provider := newFakeProvider("answer")
	store := newFakeStore()
	rec := &frameRecorder{}

	turn := userTurn("hi")
	turn.Save = true
	turn.ConversationID = uuid.NewString()
	if err := newTestChatLogic(provider, store).StreamChat(context.Background(), turn, rec.emit); err != nil {
		t.Fatalf("StreamChat() error = %v", err)
	}

	if store.created != 1 {
		t.Errorf("created %d conversations, want 1", store.created)
	}
	if rec.conversationID(t) == "" {
		t.Error("no conversationId frame emitted")
	}
}

func TestStreamChatWithoutSaveDoesNotPersist(t *testing.T) {
	provider := newFakeProvider("answer")
	store := newFakeStore()
	rec := &frameRecorder{}

	if err := newTestChatLogic(provider, store).StreamChat(context.Background(), userTurn("hi"), rec.emit); err != nil {
		t.Fatalf("StreamChat() error = %v", err)
	}

	if store.created != 0 {
		t.Errorf("created %d conversations, want 0", store.created)
	}
	if rec.conversationID(t) != "" {
		t.Error("unexpected conversationId frame")
	}
}

func TestStreamChatPersistenceFailureKeepsStream(t *testing.T) {
	provider := newFakeProvider("answer")
	store := newFakeStore()
	store.createErr = errors.New("disk full")
	rec := &frameRecorder{}

	turn := userTurn("hi")
	turn.Save = true
	if err := newTestChatLogic(provider, store).StreamChat(context.Background(), turn, rec.emit); err != nil {
		t.Fatalf("StreamChat() error = %v", err)
	}

	// No durable identifier, but the transcript stream still terminates
	// normally
	if rec.conversationID(t) != "" {
		t.Error("conversationId frame emitted despite failed save")
	}
	if last := rec.payloads[len(rec.payloads)-1]; last != StreamDone {
		t.Errorf("last payload = %q, want sentinel", last)
	}
}

func TestStreamChatProviderFailsBeforeStreaming(t *testing.T) {
	provider := newFakeProvider()
	provider.failAfter = 0
	rec := &frameRecorder{}

	err := newTestChatLogic(provider, newFakeStore()).StreamChat(context.Background(), userTurn("hi"), rec.emit)
	if err == nil {
		t.Fatal("StreamChat() error = nil, want error")
	}
	if len(rec.payloads) != 0 {
		t.Errorf("emitted %d payloads before failing, want 0", len(rec.payloads))
	}
}

func TestStreamChatProviderFailsMidStream(t *testing.T) {
	provider := newFakeProvider("partial ")
	provider.failAfter = 1
	store := newFakeStore()
	rec := &frameRecorder{}

	turn := userTurn("hi")
	turn.Save = true
	if err := newTestChatLogic(provider, store).StreamChat(context.Background(), turn, rec.emit); err != nil {
		t.Fatalf("StreamChat() error = %v, want nil after in-band report", err)
	}

	last := rec.payloads[len(rec.payloads)-1]
	var frame struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(last), &frame); err != nil || frame.Error == "" {
		t.Errorf("last payload = %q, want error frame", last)
	}
	// No sentinel after an error, and nothing persisted
	for _, payload := range rec.payloads {
		if payload == StreamDone {
			t.Error("sentinel emitted after mid-stream failure")
		}
	}
	if store.created != 0 {
		t.Errorf("created %d conversations after failed stream, want 0", store.created)
	}
}

func TestStreamChatValidationFailsBeforeProvider(t *testing.T) {
	rec := &frameRecorder{}
	turn := ChatTurn{
		Messages: []IncomingMessage{{Role: "robot", Content: "hi"}},
		Model:    "llama3:8b",
	}

	err := newTestChatLogic(newFakeProvider("x"), newFakeStore()).StreamChat(context.Background(), turn, rec.emit)
	if !errors.Is(err, ErrInvalidMessageFormat) {
		t.Fatalf("error = %v, want ErrInvalidMessageFormat", err)
	}
	if len(rec.payloads) != 0 {
		t.Errorf("emitted %d payloads, want 0", len(rec.payloads))
	}
}
