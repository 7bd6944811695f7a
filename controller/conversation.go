package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Geetanshgarg/ai-chat-interface/logic"
)

// ConversationController handles conversation CRUD requests
type ConversationController struct {
	convoLogic *logic.ConversationLogic
}

func NewConversationController(convoLogic *logic.ConversationLogic) *ConversationController {
	return &ConversationController{convoLogic: convoLogic}
}

// ListConversations handles GET /api/conversations
func (c *ConversationController) ListConversations(ctx *gin.Context) {
	convos, err := c.convoLogic.ListConversations()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch conversations"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"conversations": convos})
}

// CreateConversation handles POST /api/conversations
func (c *ConversationController) CreateConversation(ctx *gin.Context) {
	type Request struct {
		Title    string                  `json:"title"`
		Model    string                  `json:"model"`
		Messages []logic.IncomingMessage `json:"messages"`
	}
	var req Request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Model == "" || req.Messages == nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Model and messages are required"})
		return
	}

	convo, err := c.convoLogic.CreateConversation(req.Title, req.Model, req.Messages)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create conversation"})
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"conversation": convo})
}

// GetConversation handles GET /api/conversations/:id
func (c *ConversationController) GetConversation(ctx *gin.Context) {
	convoID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid conversation ID"})
		return
	}

	convo, err := c.convoLogic.GetConversation(convoID)
	if err != nil {
		if errors.Is(err, logic.ErrConversationNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch conversation"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"conversation": convo})
}

// UpdateConversation handles PATCH /api/conversations/:id
func (c *ConversationController) UpdateConversation(ctx *gin.Context) {
	type Request struct {
		Title    string                  `json:"title"`
		Messages []logic.IncomingMessage `json:"messages"`
	}
	convoID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid conversation ID"})
		return
	}

	var req Request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	convo, err := c.convoLogic.UpdateConversation(convoID, req.Title, req.Messages)
	if err != nil {
		if errors.Is(err, logic.ErrConversationNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update conversation"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"conversation": convo})
}

// DeleteConversation handles DELETE /api/conversations/:id
func (c *ConversationController) DeleteConversation(ctx *gin.Context) {
	convoID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid conversation ID"})
		return
	}

	if err := c.convoLogic.DeleteConversation(convoID); err != nil {
		if errors.Is(err, logic.ErrConversationNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete conversation"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Conversation deleted successfully"})
}
