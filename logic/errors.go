package logic

import (
	"errors"
	"fmt"

	"github.com/Geetanshgarg/ai-chat-interface/pkg"
)

// Errors surfaced before or during a chat turn. Controllers map these to
// HTTP statuses; everything unclassified becomes a 500.
var (
	// ErrInvalidMessageFormat is returned when a message is missing a role
	// or carries a role outside user/assistant/system
	ErrInvalidMessageFormat = errors.New("invalid message format")
	// ErrProviderUnavailable is returned when the model server cannot be reached
	ErrProviderUnavailable = pkg.ErrUnavailable
	// ErrConversationNotFound is returned for lookups of unknown conversation IDs
	ErrConversationNotFound = errors.New("conversation not found")
)

// Image validation failure reasons
const (
	ImageBadFormat = "invalid image format, must be a data URL"
	ImageBadData   = "invalid image data, could not extract base64 content"
	ImageTooLarge  = "image exceeds maximum size"
)

// ImageError reports which image in a message failed validation and why.
type ImageError struct {
	Index  int
	Reason string
}

func (e *ImageError) Error() string {
	return fmt.Sprintf("%s at index %d", e.Reason, e.Index)
}

// IsImageTooLarge reports whether err is an oversized-image failure,
// which maps to 413 instead of 400.
func IsImageTooLarge(err error) bool {
	var imgErr *ImageError
	return errors.As(err, &imgErr) && imgErr.Reason == ImageTooLarge
}
