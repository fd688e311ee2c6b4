package domain

import "context"

// Narrator is the device that reads an utterance aloud. Narrate blocks until
// the utterance is over and returns exactly once: nil when it ended normally,
// an error when the device failed or ctx was cancelled.
type Narrator interface {
	Narrate(ctx context.Context, utteranceID, text string) error
}

// Synthesizer turns text into encoded speech audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Transcriber turns a recorded question into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}
