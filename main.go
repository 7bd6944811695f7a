package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/cenkalti/backoff"
	"github.com/gin-gonic/gin"

	"github.com/Geetanshgarg/ai-chat-interface/config"
	"github.com/Geetanshgarg/ai-chat-interface/controller"
	"github.com/Geetanshgarg/ai-chat-interface/dao"
	"github.com/Geetanshgarg/ai-chat-interface/logic"
	"github.com/Geetanshgarg/ai-chat-interface/pkg"
)

func main() {
	// Initialize config
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run main.go <config.yaml>")
	}
	configFile := os.Args[1]
	if err := config.LoadConfig(configFile); err != nil {
		log.Fatalf("Failed to load config from %s: %v", configFile, err)
	}
	cfg := &config.GlobalConfig

	// Database store connects lazily; a failed attempt is retried on the
	// next request instead of being cached.
	store := dao.NewStore(cfg.DSN())

	// Initialize Ollama client and probe it so startup logs say whether
	// the model server is up. The probe is advisory: the chat endpoint
	// answers 503 per request while Ollama is down.
	chatClient := pkg.NewChatClient(cfg.Ollama.Endpoint)
	probe := backoff.NewExponentialBackOff()
	probe.MaxElapsedTime = cfg.Ollama.ConnectTimeout
	if err := backoff.Retry(func() error {
		return chatClient.Ping(context.Background(), cfg.Ollama.ConnectTimeout)
	}, probe); err != nil {
		log.Printf("Ollama not reachable at %s: %v (continuing, chat will return 503)", cfg.Ollama.Endpoint, err)
	}

	// Initialize DAOs
	convoDAO := dao.NewConversationDAO(store)

	// Initialize Logics
	titleLogic := logic.NewTitleLogic(chatClient, cfg.Ollama.TitleModel)
	chatLogic := logic.NewChatLogic(chatClient, convoDAO, titleLogic)
	convoLogic := logic.NewConversationLogic(convoDAO)

	// Initialize Controllers
	chatCtrl := controller.NewChatController(chatLogic)
	convoCtrl := controller.NewConversationController(convoLogic)
	uploadCtrl := controller.NewUploadController()
	modelsCtrl := controller.NewModelsController(chatClient)

	// Setup Gin router
	r := gin.Default()
	r.POST("/api/chat", chatCtrl.Chat)
	r.GET("/api/conversations", convoCtrl.ListConversations)
	r.POST("/api/conversations", convoCtrl.CreateConversation)
	r.GET("/api/conversations/:id", convoCtrl.GetConversation)
	r.PATCH("/api/conversations/:id", convoCtrl.UpdateConversation)
	r.DELETE("/api/conversations/:id", convoCtrl.DeleteConversation)
	r.POST("/api/upload", uploadCtrl.Upload)
	r.GET("/api/models", modelsCtrl.ListModels)

	// Run server
	if err := r.Run(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}
