package domain

import "context"

// StoryGenerator produces a whole story from the setup form.
type StoryGenerator interface {
	// GenerateStory returns a story with at least one page or a *GenerationError.
	GenerateStory(ctx context.Context, topic, name string, age int) (*Story, error)
}

// ImageGenerator produces one illustration per prompt. Implementations absorb
// their own transient failures and return a fallback image instead.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string, quality Quality) (ImageRef, error)
}

// Assistant abstracts any chat/LLM provider.
type Assistant interface {
	// Reply takes the running history and the new user message and returns the model's reply.
	Reply(ctx context.Context, history []ChatMessage, message string) (string, error)
}

type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type Role string

const (
	UserRole  Role = "user"
	ModelRole Role = "model"
)
