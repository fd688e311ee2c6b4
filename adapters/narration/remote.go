package narration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/satriahrh/cocoa-fruit/storybook/domain"
	"github.com/satriahrh/cocoa-fruit/storybook/utils/log"
	"go.uber.org/zap"
)

const (
	MessageAudio = "narration_audio"
	MessageStop  = "narration_stop"
)

// ErrNoReaders is returned when nobody is connected to play an utterance.
var ErrNoReaders = errors.New("no reader connected to play narration")

// Broadcaster delivers a message to every connected reader and reports how
// many accepted it.
type Broadcaster interface {
	Broadcast(message []byte) int
}

// Message is what the readers receive for each utterance.
type Message struct {
	Type        string `json:"type"`
	UtteranceID string `json:"utterance_id"`
	MIMEType    string `json:"mime_type,omitempty"`
	// Audio is base64 encoded on the wire.
	Audio []byte `json:"audio,omitempty"`
}

// RemoteSpeaker plays narration on the connected readers: it synthesizes the
// audio, ships it, and waits for a reader to report the end of playback.
type RemoteSpeaker struct {
	synth    domain.Synthesizer
	out      Broadcaster
	mimeType string

	mu      sync.Mutex
	pending map[string]chan error
}

func NewRemoteSpeaker(synth domain.Synthesizer, out Broadcaster, mimeType string) *RemoteSpeaker {
	return &RemoteSpeaker{
		synth:    synth,
		out:      out,
		mimeType: mimeType,
		pending:  make(map[string]chan error),
	}
}

// Narrate returns nil when a reader finished playing the utterance, the
// reader's error when playback failed, and ctx's error when it was cancelled.
func (s *RemoteSpeaker) Narrate(ctx context.Context, utteranceID, text string) error {
	audio, err := s.synth.Synthesize(ctx, text)
	if err != nil {
		return fmt.Errorf("synthesizing narration: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	done := make(chan error, 1)
	s.mu.Lock()
	s.pending[utteranceID] = done
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.pending, utteranceID)
		s.mu.Unlock()
	}()

	if s.send(ctx, Message{Type: MessageAudio, UtteranceID: utteranceID, MIMEType: s.mimeType, Audio: audio}) == 0 {
		return ErrNoReaders
	}
	log.WithCtx(ctx).Debug("🔊 Narration sent to readers", zap.Int("bytes", len(audio)))

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		s.send(context.WithoutCancel(ctx), Message{Type: MessageStop, UtteranceID: utteranceID})
		return ctx.Err()
	}
}

// Acknowledge records a reader's report for utteranceID. Only the first report
// of an utterance still playing counts; it reports whether this one did.
func (s *RemoteSpeaker) Acknowledge(utteranceID string, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	done, ok := s.pending[utteranceID]
	if !ok {
		return false
	}
	delete(s.pending, utteranceID)
	done <- err
	return true
}

func (s *RemoteSpeaker) send(ctx context.Context, msg Message) int {
	payload, err := json.Marshal(msg)
	if err != nil {
		log.WithCtx(ctx).Error("❌ Failed to marshal narration message", zap.Error(err))
		return 0
	}
	return s.out.Broadcast(payload)
}
