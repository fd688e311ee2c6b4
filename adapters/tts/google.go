package tts

import (
	"context"
	"fmt"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/satriahrh/cocoa-fruit/storybook/utils/log"
	"go.uber.org/zap"
)

// MIMEType is the encoding of every synthesized utterance.
const MIMEType = "audio/mpeg"

// Voice tunes the narration voice. Children follow a slower, slightly higher voice more easily.
type Voice struct {
	LanguageCode string
	// Name selects a specific voice; empty lets the service pick one for LanguageCode.
	Name         string
	SpeakingRate float64
	Pitch        float64
}

type GoogleTTS struct {
	client *texttospeech.Client
	voice  Voice
}

func NewGoogleTTS(voice Voice) *GoogleTTS {
	client, err := texttospeech.NewClient(context.Background())
	if err != nil {
		panic(fmt.Errorf("creating Google tts client: %w", err))
	}
	return &GoogleTTS{
		client: client,
		voice:  voice,
	}
}

func (g *GoogleTTS) Synthesize(ctx context.Context, text string) ([]byte, error) {
	resp, err := g.client.SynthesizeSpeech(ctx, buildRequest(g.voice, text))
	if err != nil {
		return nil, fmt.Errorf("synthesizing speech: %w", err)
	}

	log.WithCtx(ctx).Debug("🔊 Speech synthesized", zap.Int("bytes", len(resp.GetAudioContent())))
	return resp.GetAudioContent(), nil
}

func (g *GoogleTTS) Close() error {
	return g.client.Close()
}

func buildRequest(voice Voice, text string) *texttospeechpb.SynthesizeSpeechRequest {
	return &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{
				Text: text,
			},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: voice.LanguageCode,
			Name:         voice.Name,
			SsmlGender:   texttospeechpb.SsmlVoiceGender_FEMALE,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
			SpeakingRate:  voice.SpeakingRate,
			Pitch:         voice.Pitch,
		},
	}
}
