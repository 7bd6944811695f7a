package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/Geetanshgarg/ai-chat-interface/logic"
)

// StatusClientClosedRequest is the non-standard status nginx popularized
// for requests the client abandoned
const StatusClientClosedRequest = 499

// statusForError maps the chat error taxonomy onto HTTP statuses for
// failures detected before streaming begins.
func statusForError(err error) int {
	var imgErr *logic.ImageError
	switch {
	case logic.IsImageTooLarge(err):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &imgErr), errors.Is(err, logic.ErrInvalidMessageFormat):
		return http.StatusBadRequest
	case errors.Is(err, logic.ErrProviderUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}

// errorMessage produces the client-facing message for a failed request
func errorMessage(err error) string {
	switch {
	case errors.Is(err, logic.ErrProviderUnavailable):
		return "Could not connect to Ollama server. Please ensure Ollama is running."
	case errors.Is(err, context.Canceled):
		return "Request was aborted"
	default:
		return err.Error()
	}
}
