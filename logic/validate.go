package logic

import (
	"strings"

	"github.com/Geetanshgarg/ai-chat-interface/models"
	"github.com/Geetanshgarg/ai-chat-interface/pkg"
)

// Maximum number of messages to send to the model
const MaxMessageCount = 50

// Maximum allowed estimated decoded size for each image (2MB)
const MaxImageSizeBytes = 2 * 1024 * 1024

// IncomingMessage is the raw message shape accepted at the API boundary.
// Images are data-URL strings as produced by the upload endpoint.
type IncomingMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

// NormalizeMessages validates raw messages and converts them into the
// provider's expected shape. Only the most recent MaxMessageCount messages
// are kept; older ones are silently dropped. Image payloads are reduced to
// raw base64 with the data-URL prefix stripped.
//
// The transform is pure: any failure is returned before a provider call is
// ever made.
func NormalizeMessages(messages []IncomingMessage) ([]pkg.ChatMessage, error) {
	if len(messages) > MaxMessageCount {
		messages = messages[len(messages)-MaxMessageCount:]
	}

	normalized := make([]pkg.ChatMessage, 0, len(messages))
	for _, msg := range messages {
		if !models.ValidRole(msg.Role) {
			return nil, ErrInvalidMessageFormat
		}

		out := pkg.ChatMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}

		for idx, image := range msg.Images {
			if !strings.HasPrefix(image, "data:image/") {
				return nil, &ImageError{Index: idx, Reason: ImageBadFormat}
			}

			_, base64Data, found := strings.Cut(image, ",")
			if !found || base64Data == "" {
				return nil, &ImageError{Index: idx, Reason: ImageBadData}
			}

			if estimateDecodedSize(len(base64Data)) > MaxImageSizeBytes {
				return nil, &ImageError{Index: idx, Reason: ImageTooLarge}
			}

			out.Images = append(out.Images, base64Data)
		}

		normalized = append(normalized, out)
	}

	return normalized, nil
}

// estimateDecodedSize approximates the decoded binary size of a base64
// payload as ceil(length * 0.75) without decoding it.
func estimateDecodedSize(base64Length int) int64 {
	return (int64(base64Length)*3 + 3) / 4
}
