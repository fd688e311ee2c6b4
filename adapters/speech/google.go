package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/satriahrh/cocoa-fruit/storybook/utils/log"
	"go.uber.org/zap"
)

// ErrNoSpeech is returned when the recording holds nothing recognizable.
var ErrNoSpeech = errors.New("no speech recognized")

type GoogleSpeech struct {
	client       *speech.Client
	languageCode string
	sampleRate   int32
}

// NewGoogleSpeech expects LINEAR16 mono recordings at sampleRate Hz.
func NewGoogleSpeech(languageCode string, sampleRate int) *GoogleSpeech {
	client, err := speech.NewClient(context.Background())
	if err != nil {
		panic(fmt.Errorf("creating Google speech client: %w", err))
	}
	return &GoogleSpeech{
		client:       client,
		languageCode: languageCode,
		sampleRate:   int32(sampleRate),
	}
}

// Transcribe recognizes a short recorded question and returns its best transcript.
func (g *GoogleSpeech) Transcribe(ctx context.Context, audio []byte) (string, error) {
	resp, err := g.client.Recognize(ctx, g.buildRequest(audio))
	if err != nil {
		return "", fmt.Errorf("recognizing speech: %w", err)
	}

	text := bestTranscript(resp)
	if text == "" {
		return "", ErrNoSpeech
	}
	log.WithCtx(ctx).Debug("🎙️ Speech recognized", zap.Int("chars", len(text)))
	return text, nil
}

func (g *GoogleSpeech) Close() error {
	return g.client.Close()
}

func (g *GoogleSpeech) buildRequest(audio []byte) *speechpb.RecognizeRequest {
	return &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz:            g.sampleRate,
			LanguageCode:               g.languageCode,
			EnableAutomaticPunctuation: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	}
}

// bestTranscript joins the top alternative of every result.
func bestTranscript(resp *speechpb.RecognizeResponse) string {
	var parts []string
	for _, result := range resp.GetResults() {
		alts := result.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		if t := strings.TrimSpace(alts[0].GetTranscript()); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
