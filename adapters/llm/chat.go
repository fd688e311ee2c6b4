package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/satriahrh/cocoa-fruit/storybook/domain"
	"github.com/satriahrh/cocoa-fruit/storybook/utils/log"
)

const (
	systemInstruction = "You are a friendly, helpful storyteller for children. Keep your answers short, safe and fun. Speak %s."
	tiredReply        = "I think we talked a lot! I'm a little tired (quota reached). Please wait a bit."
)

// Reply answers message in the context of history. history may already end
// with message; it is not sent twice.
func (g *GeminiClient) Reply(ctx context.Context, history []domain.ChatMessage, message string) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: fmt.Sprintf(systemInstruction, g.opts.Language)}},
		},
	}

	chat, err := g.startChat(ctx, g.opts.ChatModel, config, toContents(history, message))
	if err != nil {
		return "", fmt.Errorf("creating chat: %w", err)
	}

	resp, err := chat.SendMessage(ctx, genai.Part{Text: message})
	if err != nil {
		if isQuotaError(err) {
			log.WithCtx(ctx).Warn("Assistant quota exhausted")
			return tiredReply, nil
		}
		return "", fmt.Errorf("send message: %w", err)
	}

	return strings.TrimSpace(resp.Text()), nil
}

func toContents(history []domain.ChatMessage, message string) []*genai.Content {
	if n := len(history); n > 0 && history[n-1].Role == domain.UserRole && history[n-1].Content == message {
		history = history[:n-1]
	}

	contents := make([]*genai.Content, 0, len(history))
	for _, msg := range history {
		role := genai.RoleModel
		if msg.Role == domain.UserRole {
			role = genai.RoleUser
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: msg.Content}},
		})
	}
	return contents
}
