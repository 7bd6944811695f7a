package logic

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/Geetanshgarg/ai-chat-interface/pkg"
)

// DefaultTitle is used when no usable title can be derived
const DefaultTitle = "New Conversation"

const titleSystemPrompt = "You are a helpful assistant that creates short, descriptive chat titles. " +
	"Always respond with only the title, no quotes, explanations, or extra text. " +
	"Keep titles to 4-5 words maximum."

// TitleLogic derives short conversation titles from the first exchange
type TitleLogic struct {
	provider ChatProvider
	model    string
}

func NewTitleLogic(provider ChatProvider, model string) *TitleLogic {
	return &TitleLogic{provider: provider, model: model}
}

// GenerateTitle asks the model for a short descriptive title and cleans the
// result. Any provider failure, or a result that fails the plausibility
// heuristic, falls back to a truncation of the user message. Never fails:
// title generation must not block a conversation save.
func (l *TitleLogic) GenerateTitle(ctx context.Context, userMessage, assistantMessage string) string {
	prompt := fmt.Sprintf(
		"Based on this conversation, generate a short, descriptive title (maximum 4-5 words). "+
			"Only respond with the title, no quotes or extra text.\n\nUser: %s\n",
		excerpt(userMessage, 200),
	)
	if assistantMessage != "" {
		prompt += fmt.Sprintf("Assistant: %s\n", excerpt(assistantMessage, 200))
	}
	prompt += "\nTitle:"

	raw, err := l.provider.Chat(ctx, l.model, []pkg.ChatMessage{
		{Role: "system", Content: titleSystemPrompt},
		{Role: "user", Content: prompt},
	})
	if err != nil {
		log.Printf("title generation failed: %v", err)
		return fallbackTitle(userMessage)
	}

	title := strings.NewReplacer(`"`, "", `'`, "").Replace(raw)
	title = strings.TrimSpace(title)
	if runes := []rune(title); len(runes) > 50 {
		title = string(runes[:47]) + "..."
	}

	// Reject empty or generic results in favor of the fallback
	if title == "" || len([]rune(title)) < 3 || strings.Contains(strings.ToLower(title), "title") {
		return fallbackTitle(userMessage)
	}
	return title
}

func fallbackTitle(userMessage string) string {
	if userMessage == "" {
		return DefaultTitle
	}
	if runes := []rune(userMessage); len(runes) > 30 {
		return string(runes[:30]) + "..."
	}
	return userMessage
}

func excerpt(s string, max int) string {
	if runes := []rune(s); len(runes) > max {
		return string(runes[:max]) + "..."
	}
	return s
}
