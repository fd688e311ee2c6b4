package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/satriahrh/cocoa-fruit/storybook/domain"
	"github.com/satriahrh/cocoa-fruit/storybook/utils/log"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultPlaceholderURL is shown when an illustration fails and no other
// placeholder was configured.
const DefaultPlaceholderURL = "https://picsum.photos/800/800"

var (
	ErrNoStory    = errors.New("no story loaded")
	ErrEmptyStory = errors.New("story has no pages")

	errNoImage = errors.New("image generator returned no image")
)

// EngineOptions tune one playback session.
type EngineOptions struct {
	Quality domain.Quality
	// Placeholder is shown when an illustration cannot be produced.
	Placeholder domain.ImageRef
	// ImageTimeout bounds each illustration request; zero waits forever.
	ImageTimeout time.Duration
	Publisher    domain.EventPublisher
}

// Snapshot is a consistent view of the playback state.
type Snapshot struct {
	SessionID string
	Title     string
	Index     int
	PageCount int
	Page      domain.Page
	Image     domain.ImageRef
	Narrating bool
	// First and Last tell the reader which navigation buttons are live.
	First bool
	Last  bool
}

// PlaybackEngine drives one story session: navigation, per-page illustrations
// fetched at most once, and narration that never outlives its page.
type PlaybackEngine struct {
	id          string
	story       *domain.Story
	quality     domain.Quality
	images      domain.ImageGenerator
	narration   *NarrationController
	publisher   domain.EventPublisher
	placeholder domain.ImageRef
	timeout     time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	flight singleflight.Group
	wg     sync.WaitGroup

	mu      sync.Mutex
	nav     *Navigator
	cache   *AssetCache
	current domain.ImageRef
	closed  bool
}

// NewPlaybackEngine opens a session on page 0 and starts loading its illustration.
func NewPlaybackEngine(ctx context.Context, story *domain.Story, images domain.ImageGenerator, narration *NarrationController, opts EngineOptions) (*PlaybackEngine, error) {
	if story == nil || len(story.Pages) == 0 {
		return nil, ErrEmptyStory
	}
	if opts.Quality == "" {
		opts.Quality = domain.QualityLow
	}
	if opts.Placeholder.IsEmpty() {
		opts.Placeholder = &domain.Image{URL: DefaultPlaceholderURL}
	}

	id := uuid.NewString()
	sctx, cancel := context.WithCancel(log.WithSession(context.WithoutCancel(ctx), id))

	e := &PlaybackEngine{
		id:          id,
		story:       story,
		quality:     opts.Quality,
		images:      images,
		narration:   narration,
		publisher:   opts.Publisher,
		placeholder: opts.Placeholder,
		timeout:     opts.ImageTimeout,
		ctx:         sctx,
		cancel:      cancel,
		nav:         NewNavigator(len(story.Pages)),
		cache:       NewAssetCache(),
	}

	e.mu.Lock()
	idx, pending := e.reconcileLocked()
	e.mu.Unlock()
	e.afterReconcile(idx, pending)

	return e, nil
}

func (e *PlaybackEngine) ID() string { return e.id }

func (e *PlaybackEngine) Title() string { return e.story.Title }

func (e *PlaybackEngine) Quality() domain.Quality { return e.quality }

func (e *PlaybackEngine) PageCount() int { return len(e.story.Pages) }

func (e *PlaybackEngine) CurrentIndex() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.nav.Index()
}

func (e *PlaybackEngine) CurrentPage() domain.Page {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.story.Pages[e.nav.Index()]
}

// CurrentImage returns the current page's illustration, or nil while it is pending.
func (e *PlaybackEngine) CurrentImage() domain.ImageRef {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// CachedImage returns the memoized illustration of page without generating one.
func (e *PlaybackEngine) CachedImage(page int) (domain.ImageRef, bool) {
	return e.cache.Get(page)
}

func (e *PlaybackEngine) IsNarrating() bool {
	return e.narration.IsSpeaking()
}

func (e *PlaybackEngine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	idx := e.nav.Index()
	return Snapshot{
		SessionID: e.id,
		Title:     e.story.Title,
		Index:     idx,
		PageCount: e.nav.Count(),
		Page:      e.story.Pages[idx],
		Image:     e.current,
		Narrating: e.narration.IsSpeaking(),
		First:     e.nav.IsFirst(),
		Last:      e.nav.IsLast(),
	}
}

func (e *PlaybackEngine) Next() bool { return e.move((*Navigator).Next) }

func (e *PlaybackEngine) Previous() bool { return e.move((*Navigator).Previous) }

// GoTo moves to target, silences narration and brings up the target's
// illustration. Out-of-range targets are ignored and report false.
func (e *PlaybackEngine) GoTo(target int) bool {
	return e.move(func(n *Navigator) bool { return n.GoTo(target) })
}

// move applies step to the navigator under the lock, so relative moves made
// concurrently each count.
func (e *PlaybackEngine) move(step func(*Navigator) bool) bool {
	e.mu.Lock()
	if e.closed || !step(e.nav) {
		e.mu.Unlock()
		return false
	}
	e.narration.Cancel(e.ctx)
	idx, pending := e.reconcileLocked()
	text := e.story.Pages[idx].Text
	e.mu.Unlock()

	publish(e.ctx, e.publisher, e.id, domain.Event{
		Type:      domain.EventPageChanged,
		SessionID: e.id,
		PageIndex: intPtr(idx),
		PageCount: len(e.story.Pages),
		Text:      text,
	})
	e.afterReconcile(idx, pending)
	return true
}

// ToggleNarration stops narration when it is playing and reads the current
// page otherwise. It reports whether narration is now playing.
func (e *PlaybackEngine) ToggleNarration() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false
	}
	if e.narration.IsSpeaking() {
		e.narration.Cancel(e.ctx)
		return false
	}
	e.narration.Speak(e.ctx, e.story.Pages[e.nav.Index()].Text)
	return true
}

// Close ends the session. Outstanding illustration requests are cancelled and
// their results ignored.
func (e *PlaybackEngine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.narration.Cancel(e.ctx)
	e.mu.Unlock()

	e.cancel()
}

// Wait blocks until every outstanding illustration request has completed.
func (e *PlaybackEngine) Wait() {
	e.wg.Wait()
}

// reconcileLocked shows the cached illustration of the current page, or
// clears the viewer and reports the page as pending.
func (e *PlaybackEngine) reconcileLocked() (int, bool) {
	idx := e.nav.Index()
	if img, ok := e.cache.Get(idx); ok {
		e.current = img
		return idx, false
	}
	e.current = nil
	return idx, true
}

func (e *PlaybackEngine) afterReconcile(idx int, pending bool) {
	if !pending {
		if img := e.displayedFor(idx); img != nil {
			e.publishImage(idx, img, false)
		}
		return
	}

	prompt := BuildImagePrompt(e.story.CharacterDescription, e.story.Pages[idx].ImagePrompt)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		img, err := e.resolve(idx, prompt)
		e.complete(idx, img, err)
	}()
}

// displayedFor returns the displayed illustration if page is still current.
func (e *PlaybackEngine) displayedFor(page int) domain.ImageRef {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.nav.Index() != page {
		return nil
	}
	return e.current
}

// resolve produces the illustration of page, sharing one generator call
// between every request for the same page.
func (e *PlaybackEngine) resolve(page int, prompt string) (domain.ImageRef, error) {
	v, err, _ := e.flight.Do(strconv.Itoa(page), func() (interface{}, error) {
		if img, ok := e.cache.Get(page); ok {
			return img, nil
		}
		img, err := e.generate(prompt)
		if err != nil {
			return nil, err
		}
		if img == nil {
			return nil, errNoImage
		}
		// Memoized even when the reader has moved on, so a revisit is a hit.
		e.cache.Store(page, img)
		return img, nil
	})
	if err != nil {
		return nil, err
	}
	img, _ := v.(domain.ImageRef)
	return img, nil
}

func (e *PlaybackEngine) generate(prompt string) (img domain.ImageRef, err error) {
	ctx := e.ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("image generator panicked: %v", r)
		}
	}()
	return e.images.GenerateImage(ctx, prompt, e.quality)
}

// complete applies a finished request only if its page is still the current one.
func (e *PlaybackEngine) complete(page int, img domain.ImageRef, err error) {
	logger := log.WithCtx(e.ctx).With(zap.Int("page", page))

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		logger.Debug("Discarding illustration of a closed session")
		return
	}
	fresh := e.nav.Index() == page
	if err != nil {
		img = e.placeholder
	}
	if fresh {
		e.current = img
	}
	e.mu.Unlock()

	if err != nil {
		logger.Warn("Illustration failed", zap.Bool("fresh", fresh), zap.Error(err))
	}
	if !fresh {
		logger.Debug("Discarding stale illustration")
		return
	}
	e.publishImage(page, img, err != nil)
}

func (e *PlaybackEngine) publishImage(page int, img domain.ImageRef, fallback bool) {
	evt := domain.Event{
		Type:      domain.EventImageReady,
		SessionID: e.id,
		PageIndex: intPtr(page),
		Fallback:  fallback,
	}
	if img.IsRemote() {
		evt.ImageURL = img.URL
	}
	publish(e.ctx, e.publisher, e.id, evt)
}
