package narration

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSynth struct {
	audio []byte
	err   error
}

func (f fakeSynth) Synthesize(context.Context, string) ([]byte, error) { return f.audio, f.err }

type fakeReaders struct {
	mu       sync.Mutex
	clients  int
	messages []Message
}

func (f *fakeReaders) Broadcast(message []byte) int {
	var msg Message
	if err := json.Unmarshal(message, &msg); err != nil {
		panic(err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, msg)
	return f.clients
}

func (f *fakeReaders) received() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Message(nil), f.messages...)
}

func narrate(ctx context.Context, s *RemoteSpeaker, id string) <-chan error {
	out := make(chan error, 1)
	go func() { out <- s.Narrate(ctx, id, "Once upon a time") }()
	return out
}

func awaitAudio(t *testing.T, readers *fakeReaders) Message {
	t.Helper()
	require.Eventually(t, func() bool { return len(readers.received()) > 0 }, time.Second, 5*time.Millisecond)
	return readers.received()[0]
}

func TestRemoteSpeaker_EndedAck(t *testing.T) {
	readers := &fakeReaders{clients: 1}
	s := NewRemoteSpeaker(fakeSynth{audio: []byte("mp3")}, readers, "audio/mpeg")

	result := narrate(context.Background(), s, "u1")

	msg := awaitAudio(t, readers)
	assert.Equal(t, MessageAudio, msg.Type)
	assert.Equal(t, "u1", msg.UtteranceID)
	assert.Equal(t, "audio/mpeg", msg.MIMEType)
	assert.Equal(t, []byte("mp3"), msg.Audio)

	assert.False(t, s.Acknowledge("someone-else", nil))
	assert.True(t, s.Acknowledge("u1", nil))
	assert.False(t, s.Acknowledge("u1", errors.New("late duplicate")))

	assert.NoError(t, <-result)
}

func TestRemoteSpeaker_ErrorAck(t *testing.T) {
	readers := &fakeReaders{clients: 2}
	s := NewRemoteSpeaker(fakeSynth{audio: []byte("mp3")}, readers, "audio/mpeg")

	result := narrate(context.Background(), s, "u1")
	awaitAudio(t, readers)
	s.Acknowledge("u1", errors.New("autoplay blocked"))

	assert.EqualError(t, <-result, "autoplay blocked")
}

func TestRemoteSpeaker_CancelStopsReaders(t *testing.T) {
	readers := &fakeReaders{clients: 1}
	s := NewRemoteSpeaker(fakeSynth{audio: []byte("mp3")}, readers, "audio/mpeg")

	ctx, cancel := context.WithCancel(context.Background())
	result := narrate(ctx, s, "u1")
	awaitAudio(t, readers)
	cancel()

	assert.ErrorIs(t, <-result, context.Canceled)
	msgs := readers.received()
	require.Len(t, msgs, 2)
	assert.Equal(t, Message{Type: MessageStop, UtteranceID: "u1"}, msgs[1])
	assert.False(t, s.Acknowledge("u1", nil), "a cancelled utterance takes no more acks")
}

func TestRemoteSpeaker_NoReaders(t *testing.T) {
	s := NewRemoteSpeaker(fakeSynth{audio: []byte("mp3")}, &fakeReaders{}, "audio/mpeg")

	err := s.Narrate(context.Background(), "u1", "hello")
	assert.ErrorIs(t, err, ErrNoReaders)
}

func TestRemoteSpeaker_SynthesisFailure(t *testing.T) {
	readers := &fakeReaders{clients: 1}
	s := NewRemoteSpeaker(fakeSynth{err: errors.New("tts down")}, readers, "audio/mpeg")

	err := s.Narrate(context.Background(), "u1", "hello")
	assert.ErrorContains(t, err, "tts down")
	assert.Empty(t, readers.received())
}
