package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/satriahrh/cocoa-fruit/storybook/domain"
	"github.com/satriahrh/cocoa-fruit/storybook/utils/log"
	"go.uber.org/zap"
)

const (
	busyMessage    = "The system is very busy right now (quota exceeded). Please wait a while and try again."
	genericMessage = "Something went wrong. Please try again."
)

const storyPrompt = `Write a children's story in %[1]s for a %[2]d year old named %[3]s about %[4]s.
The story should be 4-6 pages long.
Return a JSON object with:
1. 'title': The story title.
2. 'characterDescription': A detailed visual description in English of the main character (e.g. "a 5-year-old boy with curly brown hair, wearing a red superhero cape and blue jeans") to be used for consistent image generation across all pages.
3. 'pages': An array of pages. Each page must have 'text' (the story text for that page in %[1]s, 2-3 sentences max) and 'imagePrompt' (a description of the scene/action in English, focusing on the environment and activity, not redefining the character).`

var storySchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"title":                {Type: genai.TypeString},
		"characterDescription": {Type: genai.TypeString},
		"pages": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"text":        {Type: genai.TypeString},
					"imagePrompt": {Type: genai.TypeString},
				},
				Required: []string{"text", "imagePrompt"},
			},
		},
	},
	Required: []string{"title", "characterDescription", "pages"},
}

// GenerateStory writes a whole illustrated story in one JSON-constrained call.
func (g *GeminiClient) GenerateStory(ctx context.Context, topic, name string, age int) (*domain.Story, error) {
	prompt := fmt.Sprintf(storyPrompt, g.opts.Language, age, name, topic)

	resp, err := g.content.GenerateContent(ctx, g.opts.StoryModel, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   storySchema,
	})
	if err != nil {
		return nil, storyError(fmt.Errorf("generate story: %w", err))
	}

	story, err := parseStory(resp.Text())
	if err != nil {
		return nil, storyError(err)
	}

	log.WithCtx(ctx).Info("📝 Story text generated",
		zap.String("title", story.Title),
		zap.Int("pages", len(story.Pages)))
	return story, nil
}

func parseStory(text string) (*domain.Story, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("failed to generate story text: empty response")
	}

	var story domain.Story
	if err := json.Unmarshal([]byte(text), &story); err != nil {
		return nil, fmt.Errorf("decoding story: %w", err)
	}
	if len(story.Pages) == 0 {
		return nil, fmt.Errorf("decoding story: no pages")
	}
	return &story, nil
}

func storyError(err error) *domain.GenerationError {
	if isQuotaError(err) {
		return &domain.GenerationError{
			Message: busyMessage,
			Err:     fmt.Errorf("%w: %w", domain.ErrQuotaExhausted, err),
		}
	}
	return &domain.GenerationError{Message: genericMessage, Err: err}
}
