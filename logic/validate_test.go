package logic

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func dataURL(payloadLen int) string {
	return "data:image/png;base64," + strings.Repeat("A", payloadLen)
}

func TestNormalizeMessagesValid(t *testing.T) {
	messages := []IncomingMessage{
		{Role: "system", Content: "You are helpful."},
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi there"},
		{Role: "user", Content: "", Images: []string{dataURL(16)}},
	}

	normalized, err := NormalizeMessages(messages)
	if err != nil {
		t.Fatalf("NormalizeMessages() error = %v", err)
	}
	if len(normalized) != len(messages) {
		t.Fatalf("got %d messages, want %d", len(normalized), len(messages))
	}

	for i, msg := range normalized {
		if msg.Role != messages[i].Role {
			t.Errorf("message %d role = %q, want %q", i, msg.Role, messages[i].Role)
		}
		if msg.Content != messages[i].Content {
			t.Errorf("message %d content = %q, want %q", i, msg.Content, messages[i].Content)
		}
	}

	// The data-URL prefix must be stripped, leaving raw base64
	if got, want := normalized[3].Images[0], strings.Repeat("A", 16); got != want {
		t.Errorf("image payload = %q, want %q", got, want)
	}
}

func TestNormalizeMessagesTruncatesToCap(t *testing.T) {
	var messages []IncomingMessage
	for i := 0; i < 60; i++ {
		messages = append(messages, IncomingMessage{Role: "user", Content: fmt.Sprintf("msg-%d", i)})
	}

	normalized, err := NormalizeMessages(messages)
	if err != nil {
		t.Fatalf("NormalizeMessages() error = %v", err)
	}
	if len(normalized) != MaxMessageCount {
		t.Fatalf("got %d messages, want %d", len(normalized), MaxMessageCount)
	}

	// Exactly the last 50, in original relative order
	for i, msg := range normalized {
		if want := fmt.Sprintf("msg-%d", i+10); msg.Content != want {
			t.Errorf("message %d content = %q, want %q", i, msg.Content, want)
		}
	}
}

func TestNormalizeMessagesInvalidRole(t *testing.T) {
	tests := []struct {
		name string
		role string
	}{
		{"missing role", ""},
		{"unknown role", "moderator"},
		{"case sensitive", "User"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizeMessages([]IncomingMessage{{Role: tt.role, Content: "hi"}})
			if !errors.Is(err, ErrInvalidMessageFormat) {
				t.Errorf("error = %v, want ErrInvalidMessageFormat", err)
			}
		})
	}
}

func TestNormalizeMessagesImageErrors(t *testing.T) {
	// 2 MiB decodes from ceil(n*0.75) > 2097152, i.e. any payload longer
	// than 2796202 base64 characters
	oversized := dataURL(2796203)
	justFits := dataURL(2796202)

	tests := []struct {
		name       string
		images     []string
		wantReason string
		wantIndex  int
	}{
		{"not a data URL", []string{"http://example.com/cat.png"}, ImageBadFormat, 0},
		{"wrong media type", []string{"data:text/plain;base64,aGk="}, ImageBadFormat, 0},
		{"no payload after comma", []string{"data:image/png;base64,"}, ImageBadData, 0},
		{"no comma at all", []string{"data:image/png;base64"}, ImageBadData, 0},
		{"oversized", []string{oversized}, ImageTooLarge, 0},
		{"oversized at second index", []string{dataURL(8), oversized}, ImageTooLarge, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizeMessages([]IncomingMessage{{Role: "user", Images: tt.images}})
			var imgErr *ImageError
			if !errors.As(err, &imgErr) {
				t.Fatalf("error = %v, want *ImageError", err)
			}
			if imgErr.Reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", imgErr.Reason, tt.wantReason)
			}
			if imgErr.Index != tt.wantIndex {
				t.Errorf("index = %d, want %d", imgErr.Index, tt.wantIndex)
			}
		})
	}

	t.Run("at the ceiling passes", func(t *testing.T) {
		_, err := NormalizeMessages([]IncomingMessage{{Role: "user", Images: []string{justFits}}})
		if err != nil {
			t.Errorf("NormalizeMessages() error = %v, want nil", err)
		}
	})
}

func TestEstimateDecodedSize(t *testing.T) {
	tests := []struct {
		length int
		want   int64
	}{
		{0, 0},
		{4, 3},
		{5, 4}, // ceil(3.75)
		{6, 5}, // ceil(4.5)
		{2796202, 2097152},
		{2796203, 2097153},
	}
	for _, tt := range tests {
		if got := estimateDecodedSize(tt.length); got != tt.want {
			t.Errorf("estimateDecodedSize(%d) = %d, want %d", tt.length, got, tt.want)
		}
	}
}
