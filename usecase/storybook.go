package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/satriahrh/cocoa-fruit/storybook/domain"
	"github.com/satriahrh/cocoa-fruit/storybook/utils/log"
	"go.uber.org/zap"
)

const (
	MinAge     = 2
	MaxAge     = 12
	DefaultAge = 5

	busyMessage    = "The system is very busy right now (quota exceeded). Please wait a while and try again."
	genericMessage = "Something went wrong. Please try again."
)

var ErrGenerationInProgress = errors.New("a story is already being generated")

// StoryRequest is the setup form.
type StoryRequest struct {
	Topic   string
	Name    string
	Age     int
	Quality string
}

type StorybookOptions struct {
	DefaultQuality domain.Quality
	Placeholder    domain.ImageRef
	ImageTimeout   time.Duration
	Publisher      domain.EventPublisher
}

// Storybook owns the application session: at most one playback engine at a
// time, replaced on every generation and dropped on reset, next to a
// conversation and a narration controller that outlive every story.
type Storybook struct {
	stories   domain.StoryGenerator
	images    domain.ImageGenerator
	narration *NarrationController
	chat      *ConversationSession
	opts      StorybookOptions

	mu         sync.Mutex
	engine     *PlaybackEngine
	generating bool
}

func NewStorybook(stories domain.StoryGenerator, images domain.ImageGenerator, narration *NarrationController, chat *ConversationSession, opts StorybookOptions) *Storybook {
	if opts.DefaultQuality == "" {
		opts.DefaultQuality = domain.QualityLow
	}
	if opts.Placeholder.IsEmpty() {
		opts.Placeholder = &domain.Image{URL: DefaultPlaceholderURL}
	}
	return &Storybook{
		stories:   stories,
		images:    images,
		narration: narration,
		chat:      chat,
		opts:      opts,
	}
}

func (s *Storybook) Conversation() *ConversationSession { return s.chat }

func (s *Storybook) Narration() *NarrationController { return s.narration }

// Generate asks for a new story and, once it arrives, replaces the current
// session with a fresh one on page 0. Generation failures are returned as
// *domain.GenerationError; the current session is left untouched.
func (s *Storybook) Generate(ctx context.Context, req StoryRequest) (*PlaybackEngine, error) {
	quality, err := s.validate(&req)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.generating {
		s.mu.Unlock()
		return nil, ErrGenerationInProgress
	}
	s.generating = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.generating = false
		s.mu.Unlock()
	}()

	log.WithCtx(ctx).Info("📖 Generating story",
		zap.String("topic", req.Topic),
		zap.Int("age", req.Age),
		zap.String("quality", string(quality)))

	story, err := s.generateStory(ctx, req)
	if err != nil {
		log.WithCtx(ctx).Error("❌ Story generation failed", zap.Error(err))
		return nil, err
	}

	engine, err := NewPlaybackEngine(ctx, story, s.images, s.narration, EngineOptions{
		Quality:      quality,
		Placeholder:  s.opts.Placeholder,
		ImageTimeout: s.opts.ImageTimeout,
		Publisher:    s.opts.Publisher,
	})
	if err != nil {
		return nil, &domain.GenerationError{Message: genericMessage, Err: err}
	}

	s.mu.Lock()
	old := s.engine
	s.engine = engine
	s.mu.Unlock()
	if old != nil {
		old.Close()
	}

	log.WithCtx(ctx).Info("✅ Story ready",
		zap.String("session_id", engine.ID()),
		zap.String("title", story.Title),
		zap.Int("pages", len(story.Pages)))
	publish(ctx, s.opts.Publisher, engine.ID(), domain.Event{
		Type:      domain.EventStoryLoaded,
		SessionID: engine.ID(),
		Title:     story.Title,
		PageIndex: intPtr(0),
		PageCount: len(story.Pages),
		Text:      story.Pages[0].Text,
	})
	return engine, nil
}

// Reset drops the current story together with its images.
func (s *Storybook) Reset(ctx context.Context) {
	s.mu.Lock()
	old := s.engine
	s.engine = nil
	s.mu.Unlock()

	if old == nil {
		return
	}
	old.Close()
	log.WithCtx(ctx).Info("🔄 Story reset", zap.String("session_id", old.ID()))
	publish(ctx, s.opts.Publisher, old.ID(), domain.Event{Type: domain.EventStoryReset, SessionID: old.ID()})
}

// Current returns the active playback engine or ErrNoStory.
func (s *Storybook) Current() (*PlaybackEngine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine == nil {
		return nil, ErrNoStory
	}
	return s.engine, nil
}

// Close ends the current story and silences narration.
func (s *Storybook) Close() {
	s.mu.Lock()
	engine := s.engine
	s.engine = nil
	s.mu.Unlock()
	if engine != nil {
		engine.Close()
		engine.Wait()
	}
	s.narration.Cancel(context.Background())
}

func (s *Storybook) validate(req *StoryRequest) (domain.Quality, error) {
	req.Topic = strings.TrimSpace(req.Topic)
	req.Name = strings.TrimSpace(req.Name)
	if req.Topic == "" {
		return "", fmt.Errorf("%w: topic is required", domain.ErrInvalidInput)
	}
	if req.Name == "" {
		return "", fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	if req.Age == 0 {
		req.Age = DefaultAge
	}
	if req.Age < MinAge || req.Age > MaxAge {
		return "", fmt.Errorf("%w: age must be between %d and %d", domain.ErrInvalidInput, MinAge, MaxAge)
	}
	if req.Quality == "" {
		return s.opts.DefaultQuality, nil
	}
	return domain.ParseQuality(req.Quality)
}

func (s *Storybook) generateStory(ctx context.Context, req StoryRequest) (story *domain.Story, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &domain.GenerationError{Message: genericMessage, Err: fmt.Errorf("story generator panicked: %v", r)}
		}
	}()

	story, err = s.stories.GenerateStory(ctx, req.Topic, req.Name, req.Age)
	if err != nil {
		var genErr *domain.GenerationError
		if errors.As(err, &genErr) {
			return nil, err
		}
		return nil, &domain.GenerationError{Message: UserMessage(err), Err: err}
	}
	if story == nil || len(story.Pages) == 0 {
		return nil, &domain.GenerationError{Message: genericMessage, Err: ErrEmptyStory}
	}
	return story, nil
}

// UserMessage is the text shown to the reader when a story cannot be generated.
func UserMessage(err error) string {
	var genErr *domain.GenerationError
	if errors.As(err, &genErr) && genErr.Message != "" {
		return genErr.Message
	}
	if errors.Is(err, domain.ErrQuotaExhausted) {
		return busyMessage
	}
	return genericMessage
}
