package client

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
)

// TurnState is the lifecycle of one chat turn
type TurnState int

const (
	StateIdle TurnState = iota
	StateSending
	StateStreaming
	StateCommitted
	StateAborted
	StateErrored
)

func (s TurnState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateStreaming:
		return "streaming"
	case StateCommitted:
		return "committed"
	case StateAborted:
		return "aborted"
	case StateErrored:
		return "errored"
	}
	return "unknown"
}

// ErrorNotice is the generic failure message appended as a system message
// when a turn errors out
const ErrorNotice = "Sorry, there was an error processing your request. Please try again."

// Session holds client-side conversation state and drives the per-turn
// state machine: Idle -> Sending -> Streaming -> one of Committed,
// Aborted, Errored. All stream events are applied from a single dispatcher
// loop inside Send, in wire order; other goroutines only observe state
// through the accessors or request cancellation through Abort.
type Session struct {
	client *Client
	model  string
	save   bool

	mu             sync.Mutex
	turn           uint64
	state          TurnState
	conversationID string
	messages       []ChatMessage
	conversations  []Conversation
	cancel         context.CancelFunc
	onPartial      func(accumulated string)
}

func NewSession(client *Client, model string, save bool) *Session {
	return &Session{
		client: client,
		model:  model,
		save:   save,
		state:  StateIdle,
	}
}

// OnPartial registers a hook invoked with the accumulated partial response
// after each applied fragment. It is called from the dispatcher loop.
func (s *Session) OnPartial(fn func(accumulated string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onPartial = fn
}

// State returns the state of the current (or last) turn.
func (s *Session) State() TurnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ConversationID returns the durable identifier for this session's
// conversation, if one has been recorded.
func (s *Session) ConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversationID
}

// Messages returns a copy of the committed message list.
func (s *Session) Messages() []ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// Conversations returns the last fetched conversation list.
func (s *Session) Conversations() []Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Conversation, len(s.conversations))
	copy(out, s.conversations)
	return out
}

// Abort cancels the in-flight turn, if any. The turn commits whatever
// partial output it has accumulated and transitions to Aborted.
func (s *Session) Abort() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Send runs one chat turn to completion and returns its terminal state.
// A turn already in flight is canceled first, so at most one stream is
// ever active per session. The returned error is non-nil only when the
// request failed before any streaming began.
func (s *Session) Send(ctx context.Context, content string, images []string) (TurnState, error) {
	s.mu.Lock()
	if s.cancel != nil {
		// Preempt the previous still-active turn; a preempted turn's
		// late events no longer mutate session state (see turn guard)
		s.cancel()
	}
	turnCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.turn++
	turn := s.turn
	s.state = StateSending
	s.messages = append(s.messages, ChatMessage{Role: "user", Content: content, Images: images})
	history := make([]ChatMessage, len(s.messages))
	copy(history, s.messages)
	req := ChatRequest{
		Messages:         history,
		Model:            s.model,
		ConversationID:   s.conversationID,
		SaveConversation: s.save,
	}
	s.mu.Unlock()

	defer func() {
		cancel()
		s.mu.Lock()
		if s.turn == turn {
			s.cancel = nil
		}
		s.mu.Unlock()
	}()

	events, err := s.client.StreamChat(turnCtx, req)
	if err != nil {
		if turnCtx.Err() != nil {
			return s.finishTurn(turn, StateAborted, ""), nil
		}
		return s.finishTurn(turn, StateErrored, ""), err
	}

	// Dispatcher loop: the only place stream events mutate turn state,
	// applied strictly in arrival order. Every mutation is guarded by the
	// turn counter so a preempted turn's buffered events are inert.
	var partial strings.Builder
	var streamErr error
	for ev := range events {
		if turnCtx.Err() != nil {
			// Canceled: drain without processing so the reader goroutine
			// can finish, but apply nothing further to this turn
			continue
		}

		s.mu.Lock()
		owned := s.turn == turn
		if owned && s.state == StateSending {
			s.state = StateStreaming
		}
		if owned && ev.ConversationID != "" && s.conversationID == "" {
			s.conversationID = ev.ConversationID
		}
		notify := s.onPartial
		s.mu.Unlock()

		if ev.Err != nil {
			streamErr = ev.Err
			continue
		}
		if ev.Content != "" {
			partial.WriteString(ev.Content)
			if owned && notify != nil {
				notify(partial.String())
			}
		}
	}

	switch {
	case turnCtx.Err() != nil:
		// User-triggered cancellation: keep the partial output
		return s.finishTurn(turn, StateAborted, partial.String()), nil
	case streamErr != nil && !errors.Is(streamErr, context.Canceled):
		log.Printf("chat stream failed: %v", streamErr)
		return s.finishTurn(turn, StateErrored, ""), nil
	default:
		state := s.finishTurn(turn, StateCommitted, partial.String())
		s.refreshConversations(ctx)
		return state, nil
	}
}

// finishTurn performs the single terminal transition for a turn. Committed
// and Aborted commit the accumulated text (when non-empty) as the
// finalized assistant message; Errored appends a generic system notice and
// discards the partial output. A turn that was preempted by a newer one
// no longer owns session state and transitions without mutating it.
func (s *Session) finishTurn(turn uint64, state TurnState, accumulated string) TurnState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.turn != turn {
		return state
	}

	switch state {
	case StateCommitted, StateAborted:
		if accumulated != "" {
			s.messages = append(s.messages, ChatMessage{Role: "assistant", Content: accumulated})
		}
	case StateErrored:
		s.messages = append(s.messages, ChatMessage{Role: "system", Content: ErrorNotice})
	}
	s.state = state
	return state
}

// refreshConversations re-fetches the conversation list; the local cache
// is eventually consistent and never trusted indefinitely.
func (s *Session) refreshConversations(ctx context.Context) {
	convos, err := s.client.ListConversations(ctx)
	if err != nil {
		log.Printf("failed to refresh conversations: %v", err)
		return
	}
	s.mu.Lock()
	s.conversations = convos
	s.mu.Unlock()
}
