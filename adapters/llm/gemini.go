package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/satriahrh/cocoa-fruit/storybook/domain"
)

// Options select the models and the tone of everything the client generates.
type Options struct {
	APIKey     string
	StoryModel string
	ChatModel  string
	ImageModel string
	// Language of the page text and of the assistant's replies.
	Language string

	// FallbackImageURL is returned when an illustration cannot be generated.
	FallbackImageURL  string
	ImageRateInterval time.Duration
	ImageRateBurst    int
}

// contentModel, imageModel and chatSession are the parts of the genai client
// this package calls.
type contentModel interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type imageModel interface {
	GenerateImages(ctx context.Context, model, prompt string, config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error)
}

type chatSession interface {
	SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type chatStarter func(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error)

// GeminiClient is the story generator, illustrator and assistant backed by Gemini and Imagen.
type GeminiClient struct {
	content   contentModel
	images    imageModel
	startChat chatStarter
	opts      Options
	limiter   *rate.Limiter
	fallback  domain.ImageRef
}

func NewGeminiClient(ctx context.Context, opts Options) *GeminiClient {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		panic(fmt.Errorf("creating genai client: %w", err))
	}

	start := func(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error) {
		return client.Chats.Create(ctx, model, config, history)
	}
	return newGeminiClient(client.Models, client.Models, start, opts)
}

func newGeminiClient(content contentModel, images imageModel, startChat chatStarter, opts Options) *GeminiClient {
	if opts.Language == "" {
		opts.Language = "English"
	}
	limit := rate.Inf
	if opts.ImageRateInterval > 0 {
		limit = rate.Every(opts.ImageRateInterval)
	}
	if opts.ImageRateBurst < 1 {
		opts.ImageRateBurst = 1
	}

	return &GeminiClient{
		content:   content,
		images:    images,
		startChat: startChat,
		opts:      opts,
		limiter:   rate.NewLimiter(limit, opts.ImageRateBurst),
		fallback:  &domain.Image{URL: opts.FallbackImageURL},
	}
}

// isQuotaError reports whether err comes from the backend's rate or quota limits.
func isQuotaError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, domain.ErrQuotaExhausted) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "RESOURCE_EXHAUSTED") ||
		strings.Contains(strings.ToLower(msg), "quota")
}
