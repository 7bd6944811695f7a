package controller

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Maximum accepted upload size (5MB). Larger than the 2MB chat ceiling:
// the data-URL round trip inflates payloads and the chat validator has
// the final say.
const maxUploadBytes = 5 * 1024 * 1024

// UploadController converts uploaded images into data-URL strings
type UploadController struct{}

func NewUploadController() *UploadController {
	return &UploadController{}
}

// mimeForFilename maps an accepted file extension to its MIME type.
// Returns "" for unsupported formats.
func mimeForFilename(filename string) string {
	switch {
	case strings.HasSuffix(filename, ".png"):
		return "image/png"
	case strings.HasSuffix(filename, ".jpg"), strings.HasSuffix(filename, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(filename, ".gif"):
		return "image/gif"
	case strings.HasSuffix(filename, ".webp"):
		return "image/webp"
	}
	return ""
}

// Upload handles POST /api/upload
func (c *UploadController) Upload(ctx *gin.Context) {
	file, err := ctx.FormFile("image")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "No image provided"})
		return
	}

	if file.Size > maxUploadBytes {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Image size exceeds maximum allowed size of %dMB", maxUploadBytes/(1024*1024)),
		})
		return
	}

	mimeType := mimeForFilename(strings.ToLower(file.Filename))
	if mimeType == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported image format. Please use JPG, PNG, GIF, or WEBP."})
		return
	}

	src, err := file.Open()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process image"})
		return
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to convert image to base64 format"})
		return
	}

	encoded := base64.StdEncoding.EncodeToString(data)
	ctx.JSON(http.StatusOK, gin.H{
		"success":   true,
		"imageData": fmt.Sprintf("data:%s;base64,%s", mimeType, encoded),
	})
}
