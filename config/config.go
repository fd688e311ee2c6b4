package config

import (
	"os"
	"strconv"
	"time"

	"github.com/subosito/gotenv"
)

const (
	DefaultPort                = "8080"
	DefaultStoryModel          = "gemini-2.5-flash"
	DefaultChatModel           = "gemini-2.5-flash"
	DefaultImageModel          = "imagen-4.0-generate-001"
	DefaultStoryLanguage       = "English"
	DefaultImageQuality        = "low"
	DefaultImageRateInterval   = 2 * time.Second
	DefaultImageRateBurst      = 2
	DefaultFallbackImageURL    = "https://picsum.photos/1024/1024?blur=2"
	DefaultPlaceholderImageURL = "https://picsum.photos/800/800"
	DefaultGreeting            = "Hello! I can answer questions about your story, or about anything else!"
	DefaultTTSLanguage         = "en-US"
	DefaultTTSSpeakingRate     = 0.9
	DefaultTTSPitch            = 1.5
	DefaultSpeechLanguage      = "en-US"
	DefaultSpeechSampleRate    = 16000
)

// Config is read once at startup from the environment (and .env, if present).
type Config struct {
	Port  string
	Debug bool

	GeminiAPIKey  string
	StoryModel    string
	ChatModel     string
	ImageModel    string
	StoryLanguage string

	ImageQuality      string
	ImageRateInterval time.Duration
	ImageRateBurst    int
	// Zero means no deadline.
	ImageTimeout time.Duration
	ChatTimeout  time.Duration

	FallbackImageURL    string
	PlaceholderImageURL string
	Greeting            string

	TTSLanguage     string
	TTSVoice        string
	TTSSpeakingRate float64
	TTSPitch        float64

	SpeechLanguage   string
	SpeechSampleRate int
}

// Load reads .env into the process environment and builds the Config.
func Load() Config {
	_ = gotenv.Load()

	return Config{
		Port:  getEnv("PORT", DefaultPort),
		Debug: getBool("DEBUG", false),

		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		StoryModel:    getEnv("STORY_MODEL", DefaultStoryModel),
		ChatModel:     getEnv("CHAT_MODEL", DefaultChatModel),
		ImageModel:    getEnv("IMAGE_MODEL", DefaultImageModel),
		StoryLanguage: getEnv("STORY_LANGUAGE", DefaultStoryLanguage),

		ImageQuality:      getEnv("IMAGE_QUALITY", DefaultImageQuality),
		ImageRateInterval: getDuration("IMAGE_RATE_INTERVAL", DefaultImageRateInterval),
		ImageRateBurst:    getInt("IMAGE_RATE_BURST", DefaultImageRateBurst),
		ImageTimeout:      getDuration("IMAGE_TIMEOUT", 0),
		ChatTimeout:       getDuration("CHAT_TIMEOUT", 0),

		FallbackImageURL:    getEnv("FALLBACK_IMAGE_URL", DefaultFallbackImageURL),
		PlaceholderImageURL: getEnv("PLACEHOLDER_IMAGE_URL", DefaultPlaceholderImageURL),
		Greeting:            lookupEnv("ASSISTANT_GREETING", DefaultGreeting),

		TTSLanguage:     getEnv("TTS_LANGUAGE", DefaultTTSLanguage),
		TTSVoice:        os.Getenv("TTS_VOICE"),
		TTSSpeakingRate: getFloat("TTS_SPEAKING_RATE", DefaultTTSSpeakingRate),
		TTSPitch:        getFloat("TTS_PITCH", DefaultTTSPitch),

		SpeechLanguage:   getEnv("SPEECH_LANGUAGE", DefaultSpeechLanguage),
		SpeechSampleRate: getInt("SPEECH_SAMPLE_RATE", DefaultSpeechSampleRate),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// lookupEnv distinguishes "set to empty" from "unset".
func lookupEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
