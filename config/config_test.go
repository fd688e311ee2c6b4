package config_test

import (
	"testing"
	"time"

	"github.com/satriahrh/cocoa-fruit/storybook/config"
	"github.com/stretchr/testify/assert"
)

// TestLoad_Defaults verifies that Load() boots with the documented defaults
// when nothing is set.
func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "DEBUG", "STORY_MODEL", "IMAGE_MODEL", "IMAGE_QUALITY",
		"IMAGE_RATE_INTERVAL", "IMAGE_RATE_BURST", "IMAGE_TIMEOUT", "CHAT_TIMEOUT",
		"TTS_SPEAKING_RATE", "TTS_PITCH", "SPEECH_SAMPLE_RATE",
	} {
		t.Setenv(key, "")
	}

	cfg := config.Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.False(t, cfg.Debug)
	assert.Equal(t, config.DefaultStoryModel, cfg.StoryModel)
	assert.Equal(t, config.DefaultImageModel, cfg.ImageModel)
	assert.Equal(t, "low", cfg.ImageQuality)
	assert.Equal(t, 2*time.Second, cfg.ImageRateInterval)
	assert.Equal(t, 2, cfg.ImageRateBurst)
	assert.Zero(t, cfg.ImageTimeout, "no deadline unless configured")
	assert.Zero(t, cfg.ChatTimeout)
	assert.InDelta(t, 0.9, cfg.TTSSpeakingRate, 1e-9)
	assert.Equal(t, 16000, cfg.SpeechSampleRate)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DEBUG", "true")
	t.Setenv("IMAGE_QUALITY", "high")
	t.Setenv("IMAGE_TIMEOUT", "45s")
	t.Setenv("IMAGE_RATE_BURST", "5")
	t.Setenv("TTS_PITCH", "-2.5")
	t.Setenv("ASSISTANT_GREETING", "")

	cfg := config.Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "high", cfg.ImageQuality)
	assert.Equal(t, 45*time.Second, cfg.ImageTimeout)
	assert.Equal(t, 5, cfg.ImageRateBurst)
	assert.InDelta(t, -2.5, cfg.TTSPitch, 1e-9)
	assert.Empty(t, cfg.Greeting, "an explicitly empty greeting disables it")
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("IMAGE_RATE_INTERVAL", "soon")
	t.Setenv("SPEECH_SAMPLE_RATE", "many")

	cfg := config.Load()

	assert.Equal(t, config.DefaultImageRateInterval, cfg.ImageRateInterval)
	assert.Equal(t, config.DefaultSpeechSampleRate, cfg.SpeechSampleRate)
}

func TestLoad_EmptyPlaceholderURLFallsBack(t *testing.T) {
	t.Setenv("PLACEHOLDER_IMAGE_URL", "")

	cfg := config.Load()

	assert.Equal(t, config.DefaultPlaceholderImageURL, cfg.PlaceholderImageURL)
}
