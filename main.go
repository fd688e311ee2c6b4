package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/satriahrh/cocoa-fruit/storybook/adapters/hasher"
	storyhttp "github.com/satriahrh/cocoa-fruit/storybook/adapters/http"
	"github.com/satriahrh/cocoa-fruit/storybook/adapters/llm"
	"github.com/satriahrh/cocoa-fruit/storybook/adapters/message_broker"
	"github.com/satriahrh/cocoa-fruit/storybook/adapters/narration"
	"github.com/satriahrh/cocoa-fruit/storybook/adapters/speech"
	"github.com/satriahrh/cocoa-fruit/storybook/adapters/tts"
	"github.com/satriahrh/cocoa-fruit/storybook/adapters/websocket"
	"github.com/satriahrh/cocoa-fruit/storybook/config"
	"github.com/satriahrh/cocoa-fruit/storybook/domain"
	"github.com/satriahrh/cocoa-fruit/storybook/usecase"
	"github.com/satriahrh/cocoa-fruit/storybook/utils/log"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	quality, err := domain.ParseQuality(cfg.ImageQuality)
	if err != nil {
		log.With().Fatal("Invalid IMAGE_QUALITY", zap.Error(err))
	}

	gemini := llm.NewGeminiClient(ctx, llm.Options{
		APIKey:            cfg.GeminiAPIKey,
		StoryModel:        cfg.StoryModel,
		ChatModel:         cfg.ChatModel,
		ImageModel:        cfg.ImageModel,
		Language:          cfg.StoryLanguage,
		FallbackImageURL:  cfg.FallbackImageURL,
		ImageRateInterval: cfg.ImageRateInterval,
		ImageRateBurst:    cfg.ImageRateBurst,
	})
	googleTTS := tts.NewGoogleTTS(tts.Voice{
		LanguageCode: cfg.TTSLanguage,
		Name:         cfg.TTSVoice,
		SpeakingRate: cfg.TTSSpeakingRate,
		Pitch:        cfg.TTSPitch,
	})
	defer googleTTS.Close()
	googleSpeech := speech.NewGoogleSpeech(cfg.SpeechLanguage, cfg.SpeechSampleRate)
	defer googleSpeech.Close()

	broker := message_broker.NewChannelMessageBroker()
	defer broker.Close()

	hub := websocket.NewHub()
	speaker := narration.NewRemoteSpeaker(googleTTS, hub, tts.MIMEType)

	narrationCtl := usecase.NewNarrationController(speaker, broker)
	chat := usecase.NewConversationSession(gemini, usecase.ConversationOptions{
		Greeting:  cfg.Greeting,
		Timeout:   cfg.ChatTimeout,
		Publisher: broker,
	})
	book := usecase.NewStorybook(gemini, gemini, narrationCtl, chat, usecase.StorybookOptions{
		DefaultQuality: quality,
		Placeholder:    &domain.Image{URL: cfg.PlaceholderImageURL},
		ImageTimeout:   cfg.ImageTimeout,
		Publisher:      broker,
	})
	defer book.Close()

	server := websocket.NewServer(hub, book, broker, speaker)
	handler := storyhttp.NewStorybookHandler(book, googleSpeech, hasher.New())

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.Secure())
	e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(20)))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.POST, echo.PUT, echo.DELETE, echo.OPTIONS},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			"If-None-Match",
			"Content-Length",
		},
		MaxAge: 86400,
	}))
	e.Use(middleware.BodyLimit(storyhttp.MaxRequestSize))

	e.GET("/ws", server.Handler)
	handler.Register(e.Group("/api/v1"))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Listen(gctx)
	})
	g.Go(func() error {
		log.With(zap.String("port", cfg.Port)).Info("🚀 Starting storybook server")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.With().Info("🛑 Shutting down")
		return e.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.With().Error("❌ Server stopped", zap.Error(err))
	}
}
