package speech

import (
	"testing"

	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/stretchr/testify/assert"
)

func TestBestTranscript(t *testing.T) {
	resp := &speechpb.RecognizeResponse{
		Results: []*speechpb.SpeechRecognitionResult{
			{Alternatives: []*speechpb.SpeechRecognitionAlternative{
				{Transcript: "why is the fox ", Confidence: 0.9},
				{Transcript: "why is the box", Confidence: 0.4},
			}},
			{},
			{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: "so orange"}}},
		},
	}

	assert.Equal(t, "why is the fox so orange", bestTranscript(resp))
	assert.Empty(t, bestTranscript(&speechpb.RecognizeResponse{}))
}

func TestBuildRequest(t *testing.T) {
	g := &GoogleSpeech{languageCode: "en-US", sampleRate: 16000}

	req := g.buildRequest([]byte{1, 2, 3})

	assert.Equal(t, speechpb.RecognitionConfig_LINEAR16, req.GetConfig().GetEncoding())
	assert.EqualValues(t, 16000, req.GetConfig().GetSampleRateHertz())
	assert.Equal(t, "en-US", req.GetConfig().GetLanguageCode())
	assert.Equal(t, []byte{1, 2, 3}, req.GetAudio().GetContent())
}
