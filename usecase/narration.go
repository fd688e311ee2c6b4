package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/satriahrh/cocoa-fruit/storybook/domain"
	"github.com/satriahrh/cocoa-fruit/storybook/utils/log"
	"go.uber.org/zap"
)

// NarrationController owns the single audible utterance. Starting a new one
// always silences the previous one first.
type NarrationController struct {
	device    domain.Narrator
	publisher domain.EventPublisher

	mu       sync.Mutex
	speaking bool
	activeID string
	stop     context.CancelFunc
	wg       sync.WaitGroup
}

func NewNarrationController(device domain.Narrator, publisher domain.EventPublisher) *NarrationController {
	return &NarrationController{
		device:    device,
		publisher: publisher,
	}
}

// Speak cancels whatever is playing and starts reading text. It returns the
// new utterance id without waiting for the device.
func (n *NarrationController) Speak(ctx context.Context, text string) string {
	// The utterance outlives the request that started it.
	base := context.WithoutCancel(ctx)

	n.mu.Lock()
	stopped := n.cancelLocked()

	id := uuid.NewString()
	uctx, stop := context.WithCancel(log.WithUtterance(base, id))
	n.speaking = true
	n.activeID = id
	n.stop = stop
	n.wg.Add(1)
	n.mu.Unlock()

	if stopped != "" {
		publish(base, n.publisher, narrationKey, domain.Event{Type: domain.EventNarrationStopped, UtteranceID: stopped})
	}
	publish(uctx, n.publisher, narrationKey, domain.Event{Type: domain.EventNarrationStarted, UtteranceID: id, Text: text})

	go func() {
		defer n.wg.Done()
		err := n.play(uctx, id, text)
		n.finish(uctx, id, err)
	}()

	return id
}

// Cancel silences the active utterance, if any. The speaking flag is cleared
// before returning, regardless of what the device reports later.
func (n *NarrationController) Cancel(ctx context.Context) {
	n.mu.Lock()
	stopped := n.cancelLocked()
	n.mu.Unlock()

	if stopped != "" {
		log.WithCtx(log.WithUtterance(ctx, stopped)).Debug("Narration cancelled")
		publish(ctx, n.publisher, narrationKey, domain.Event{Type: domain.EventNarrationStopped, UtteranceID: stopped})
	}
}

func (n *NarrationController) IsSpeaking() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.speaking
}

// ActiveUtterance returns the id of the audible utterance, or "".
func (n *NarrationController) ActiveUtterance() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.activeID
}

// Wait blocks until every started utterance has reported its outcome.
func (n *NarrationController) Wait() {
	n.wg.Wait()
}

func (n *NarrationController) cancelLocked() string {
	stopped := n.activeID
	if n.stop != nil {
		n.stop()
	}
	n.speaking = false
	n.activeID = ""
	n.stop = nil
	return stopped
}

func (n *NarrationController) play(ctx context.Context, id, text string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("narration device panicked: %v", r)
		}
	}()
	return n.device.Narrate(ctx, id, text)
}

// finish applies the device's terminal outcome, unless the utterance was
// already superseded or cancelled.
func (n *NarrationController) finish(ctx context.Context, id string, err error) {
	n.mu.Lock()
	if n.activeID != id {
		n.mu.Unlock()
		return
	}
	n.stop()
	n.speaking = false
	n.activeID = ""
	n.stop = nil
	n.mu.Unlock()

	if err != nil {
		log.WithCtx(ctx).Warn("Narration failed", zap.Error(err))
	} else {
		log.WithCtx(ctx).Debug("Narration finished")
	}
	publish(context.WithoutCancel(ctx), n.publisher, narrationKey, domain.Event{Type: domain.EventNarrationStopped, UtteranceID: id})
}
