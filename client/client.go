// Package client consumes the chat backend's streaming API: it parses the
// SSE byte stream into semantic events and drives the per-turn state
// machine a UI sits on top of.
package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// streamDone is the terminal SSE sentinel payload. It marks end of stream
// and is never treated as content.
const streamDone = "[DONE]"

// ChatMessage is a message in client-held conversation state
type ChatMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

// ChatRequest is the relay request body
type ChatRequest struct {
	Messages         []ChatMessage `json:"messages"`
	Model            string        `json:"model"`
	ConversationID   string        `json:"conversationId,omitempty"`
	SaveConversation bool          `json:"saveConversation"`
}

// Conversation mirrors the server's persisted conversation shape
type Conversation struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Model     string        `json:"model"`
	Messages  []ChatMessage `json:"messages"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Event is one semantic event decoded from the SSE stream. Exactly one of
// the fields is meaningful: a content fragment, a durable conversation
// identifier, or a terminal error. The stream ends when the channel closes.
type Event struct {
	Content        string
	ConversationID string
	Err            error
}

// Client talks to the chat backend
type Client struct {
	server string
	http   *http.Client
}

func New(server string) *Client {
	return &Client{
		server: strings.TrimRight(server, "/"),
		// No timeout: a streaming turn can run for minutes. The per-turn
		// context bounds the request.
		http: &http.Client{},
	}
}

// StreamChat starts a chat turn and returns a channel of stream events fed
// by a background reader. The channel is closed when the stream ends for
// any reason; canceling ctx aborts the turn. Events arrive strictly in
// wire order.
func (c *Client) StreamChat(ctx context.Context, req ChatRequest) (<-chan Event, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.server+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}

	events := make(chan Event, 16)
	go c.readStream(resp.Body, events)
	return events, nil
}

// readStream parses SSE frames off the response body and forwards them as
// events. The scanner buffers partial lines across reads, so frame
// boundaries need not align with network chunks.
func (c *Client) readStream(body io.ReadCloser, events chan<- Event) {
	defer close(events)
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data: ") {
			continue
		}

		payload := strings.TrimSpace(strings.TrimPrefix(line, "data: "))
		if payload == streamDone {
			// End-of-stream marker, not content
			continue
		}

		var frame struct {
			Content        string `json:"content"`
			ConversationID string `json:"conversationId"`
			Error          string `json:"error"`
		}
		if err := json.Unmarshal([]byte(payload), &frame); err != nil {
			log.Printf("skipping malformed SSE frame: %v", err)
			continue
		}

		if frame.Error != "" {
			events <- Event{Err: errors.New(frame.Error)}
			return
		}
		events <- Event{Content: frame.Content, ConversationID: frame.ConversationID}
	}

	if err := scanner.Err(); err != nil {
		events <- Event{Err: err}
	}
}

// ListConversations fetches all saved conversations, most recent first.
func (c *Client) ListConversations(ctx context.Context) ([]Conversation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.server+"/api/conversations", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	var out struct {
		Conversations []Conversation `json:"conversations"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return out.Conversations, nil
}

// GetConversation fetches one conversation by identifier.
func (c *Client) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.server+"/api/conversations/"+id, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	var out struct {
		Conversation *Conversation `json:"conversation"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return out.Conversation, nil
}

func decodeError(resp *http.Response) error {
	var out struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&out); err == nil && out.Error != "" {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, out.Error)
	}
	return fmt.Errorf("server returned %d", resp.StatusCode)
}
