package controller

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Geetanshgarg/ai-chat-interface/logic"
)

// ChatController handles the streaming chat endpoint
type ChatController struct {
	chatLogic *logic.ChatLogic
}

func NewChatController(chatLogic *logic.ChatLogic) *ChatController {
	return &ChatController{chatLogic: chatLogic}
}

// Chat handles POST /api/chat
//
// The response is a Server-Sent-Events stream of data frames: one
// {"content": ...} frame per model fragment, an optional
// {"content":"","conversationId": ...} frame once the exchange has been
// persisted, and a terminal [DONE] sentinel. Failures that occur before
// the first frame are returned as plain JSON with a status from the
// error taxonomy instead.
func (c *ChatController) Chat(ctx *gin.Context) {
	type Request struct {
		Messages         []logic.IncomingMessage `json:"messages"`
		Model            string                  `json:"model"`
		ConversationID   string                  `json:"conversationId"`
		SaveConversation bool                    `json:"saveConversation"`
	}
	var req Request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Messages) == 0 || req.Model == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Both messages and model are required"})
		return
	}

	turn := logic.ChatTurn{
		Messages:       req.Messages,
		Model:          req.Model,
		ConversationID: req.ConversationID,
		Save:           req.SaveConversation,
	}

	// SSE headers are written lazily with the first frame so that
	// pre-stream failures can still carry a real status code.
	started := false
	emit := func(payload string) error {
		if !started {
			ctx.Header("Content-Type", "text/event-stream")
			ctx.Header("Cache-Control", "no-cache")
			ctx.Header("Connection", "keep-alive")
			ctx.Status(http.StatusOK)
			started = true
		}
		if _, err := fmt.Fprintf(ctx.Writer, "data: %s\n\n", payload); err != nil {
			return err
		}
		ctx.Writer.Flush()
		return nil
	}

	if err := c.chatLogic.StreamChat(ctx.Request.Context(), turn, emit); err != nil && !started {
		ctx.JSON(statusForError(err), gin.H{"error": errorMessage(err)})
	}
}
