package usecase

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/satriahrh/cocoa-fruit/storybook/domain"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second
const tick = 5 * time.Millisecond

type imageResult struct {
	img domain.ImageRef
	err error
}

type imageCall struct {
	prompt  string
	quality domain.Quality
	result  chan imageResult
}

// fakeImages blocks every request until the test resolves it.
type fakeImages struct {
	mu    sync.Mutex
	calls []*imageCall
	panic bool
}

func (f *fakeImages) GenerateImage(ctx context.Context, prompt string, quality domain.Quality) (domain.ImageRef, error) {
	call := &imageCall{prompt: prompt, quality: quality, result: make(chan imageResult, 1)}
	f.mu.Lock()
	f.calls = append(f.calls, call)
	shouldPanic := f.panic
	f.mu.Unlock()

	if shouldPanic {
		panic("boom")
	}
	select {
	case r := <-call.result:
		return r.img, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// callsFor counts requests whose prompt mentions scene.
func (f *fakeImages) callsFor(scene string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.Contains(c.prompt, scene) {
			n++
		}
	}
	return n
}

func (f *fakeImages) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// await returns the latest request for scene once it has been issued.
func (f *fakeImages) await(t *testing.T, scene string) *imageCall {
	t.Helper()
	var found *imageCall
	require.Eventually(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		for _, c := range f.calls {
			if strings.Contains(c.prompt, scene) {
				found = c
			}
		}
		return found != nil
	}, waitFor, tick, "no image request for %q", scene)
	return found
}

func (c *imageCall) resolve(img domain.ImageRef) { c.result <- imageResult{img: img} }

func (c *imageCall) fail(err error) { c.result <- imageResult{err: err} }

// fakeNarrator plays until the test ends the utterance or it is cancelled.
type fakeNarrator struct {
	mu      sync.Mutex
	started []string
	texts   []string
	endings map[string]chan error
	panic   bool
}

func newFakeNarrator() *fakeNarrator {
	return &fakeNarrator{endings: make(map[string]chan error)}
}

func (f *fakeNarrator) Narrate(ctx context.Context, id, text string) error {
	end := make(chan error, 1)
	f.mu.Lock()
	f.started = append(f.started, id)
	f.texts = append(f.texts, text)
	f.endings[id] = end
	shouldPanic := f.panic
	f.mu.Unlock()

	if shouldPanic {
		panic("speaker unplugged")
	}
	select {
	case err := <-end:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeNarrator) end(t *testing.T, id string, err error) {
	t.Helper()
	var ch chan error
	require.Eventually(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		ch = f.endings[id]
		return ch != nil
	}, waitFor, tick)
	ch <- err
}

func (f *fakeNarrator) lastText() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.texts) == 0 {
		return ""
	}
	return f.texts[len(f.texts)-1]
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
	keys   []string
}

func (p *recordingPublisher) Publish(_ context.Context, topic, routingKey string, message []byte) error {
	var evt domain.Event
	if err := json.Unmarshal(message, &evt); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	p.keys = append(p.keys, routingKey)
	return nil
}

func (p *recordingPublisher) ofType(typ domain.EventType) []domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []domain.Event
	for _, e := range p.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

// fakeAssistant answers when the test says so.
type fakeAssistant struct {
	mu       sync.Mutex
	history  [][]domain.ChatMessage
	messages []string
	replies  chan chatReply
	panic    bool
}

type chatReply struct {
	text string
	err  error
}

func newFakeAssistant() *fakeAssistant {
	return &fakeAssistant{replies: make(chan chatReply, 4)}
}

func (f *fakeAssistant) Reply(ctx context.Context, history []domain.ChatMessage, message string) (string, error) {
	f.mu.Lock()
	f.history = append(f.history, history)
	f.messages = append(f.messages, message)
	shouldPanic := f.panic
	f.mu.Unlock()

	if shouldPanic {
		panic("model melted")
	}
	select {
	case r := <-f.replies:
		return r.text, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (f *fakeAssistant) answer(text string) { f.replies <- chatReply{text: text} }

func (f *fakeAssistant) fail(err error) { f.replies <- chatReply{err: err} }

func (f *fakeAssistant) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

// fakeStories returns a canned story or error.
type fakeStories struct {
	mu    sync.Mutex
	story *domain.Story
	err   error
	gate  chan struct{}
	calls int
}

func (f *fakeStories) GenerateStory(ctx context.Context, topic, name string, age int) (*domain.Story, error) {
	f.mu.Lock()
	f.calls++
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.story, f.err
}

func threePages() *domain.Story {
	return &domain.Story{
		Title:                "The Brave Fox",
		CharacterDescription: "A small orange fox with a blue scarf",
		Pages: []domain.Page{
			{Text: "A", ImagePrompt: "scene-0"},
			{Text: "B", ImagePrompt: "scene-1"},
			{Text: "C", ImagePrompt: "scene-2"},
		},
	}
}
