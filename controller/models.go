package controller

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// fallbackModels is served when the model server cannot be reached, so
// the model picker is never empty.
var fallbackModels = []string{
	"gemma3:12b",
	"llama3:8b",
	"llama3:70b",
	"codellama:7b",
	"phi3:14b",
}

// ModelLister lists the models the inference server has available
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

// ModelsController handles model discovery requests
type ModelsController struct {
	provider ModelLister
}

func NewModelsController(provider ModelLister) *ModelsController {
	return &ModelsController{provider: provider}
}

// ListModels handles GET /api/models
func (c *ModelsController) ListModels(ctx *gin.Context) {
	models, err := c.provider.ListModels(ctx.Request.Context())
	if err != nil {
		log.Printf("failed to list models: %v", err)
		ctx.JSON(http.StatusOK, gin.H{
			"success": false,
			"models":  fallbackModels,
			"error":   err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"models":  models,
	})
}
