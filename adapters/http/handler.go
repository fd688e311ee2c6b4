package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/satriahrh/cocoa-fruit/storybook/adapters/hasher"
	"github.com/satriahrh/cocoa-fruit/storybook/adapters/speech"
	"github.com/satriahrh/cocoa-fruit/storybook/domain"
	"github.com/satriahrh/cocoa-fruit/storybook/usecase"
	"github.com/satriahrh/cocoa-fruit/storybook/utils/log"
	"go.uber.org/zap"
)

const (
	// MaxRequestSize bounds every request body, voice questions included.
	MaxRequestSize = "10MB"
	// MaxVoiceBytes is about a minute of 16 kHz LINEAR16 audio.
	MaxVoiceBytes = 2 * 1024 * 1024
)

type StorybookHandler struct {
	book        *usecase.Storybook
	transcriber domain.Transcriber
	hasher      domain.Hasher
}

func NewStorybookHandler(book *usecase.Storybook, transcriber domain.Transcriber, h domain.Hasher) *StorybookHandler {
	return &StorybookHandler{
		book:        book,
		transcriber: transcriber,
		hasher:      h,
	}
}

// Register mounts the API on g.
func (h *StorybookHandler) Register(g *echo.Group) {
	g.GET("/health", h.HealthCheck)

	g.POST("/story", h.CreateStory)
	g.GET("/story", h.GetStory)
	g.DELETE("/story", h.ResetStory)
	g.POST("/story/next", h.Next)
	g.POST("/story/previous", h.Previous)
	g.PUT("/story/page", h.GoTo)
	g.POST("/story/narration", h.ToggleNarration)
	g.GET("/story/image", h.CurrentImage)
	g.GET("/story/pages/:index/image", h.PageImage)

	g.GET("/chat", h.GetChat)
	g.POST("/chat", h.SendChat)
	g.POST("/chat/voice", h.SendVoice)
}

type CreateStoryRequest struct {
	Topic   string `json:"topic"`
	Name    string `json:"name"`
	Age     int    `json:"age"`
	Quality string `json:"quality"`
}

type GoToRequest struct {
	Index *int `json:"index"`
}

type ChatRequest struct {
	Text string `json:"text"`
}

type StoryResponse struct {
	SessionID   string `json:"session_id"`
	Title       string `json:"title"`
	Quality     string `json:"quality"`
	PageIndex   int    `json:"page_index"`
	PageCount   int    `json:"page_count"`
	Text        string `json:"text"`
	ImageStatus string `json:"image_status"`
	ImageURL    string `json:"image_url,omitempty"`
	Narrating   bool   `json:"narrating"`
	First       bool   `json:"first"`
	Last        bool   `json:"last"`
	Moved       *bool  `json:"moved,omitempty"`
}

type ChatResponse struct {
	Messages []domain.Message `json:"messages"`
	Thinking bool             `json:"thinking"`
	Heard    string           `json:"heard,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func (h *StorybookHandler) HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"service":   "storybook",
	})
}

func (h *StorybookHandler) CreateStory(c echo.Context) error {
	var req CreateStoryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	engine, err := h.book.Generate(c.Request().Context(), usecase.StoryRequest{
		Topic:   req.Topic,
		Name:    req.Name,
		Age:     req.Age,
		Quality: req.Quality,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, storyResponse(engine.Snapshot(), engine.Quality()))
}

func (h *StorybookHandler) GetStory(c echo.Context) error {
	engine, err := h.book.Current()
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, storyResponse(engine.Snapshot(), engine.Quality()))
}

func (h *StorybookHandler) ResetStory(c echo.Context) error {
	h.book.Reset(c.Request().Context())
	return c.NoContent(http.StatusNoContent)
}

func (h *StorybookHandler) Next(c echo.Context) error {
	return h.navigate(c, (*usecase.PlaybackEngine).Next)
}

func (h *StorybookHandler) Previous(c echo.Context) error {
	return h.navigate(c, (*usecase.PlaybackEngine).Previous)
}

func (h *StorybookHandler) GoTo(c echo.Context) error {
	var req GoToRequest
	if err := c.Bind(&req); err != nil || req.Index == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "index is required")
	}
	return h.navigate(c, func(e *usecase.PlaybackEngine) bool { return e.GoTo(*req.Index) })
}

func (h *StorybookHandler) navigate(c echo.Context, move func(*usecase.PlaybackEngine) bool) error {
	engine, err := h.book.Current()
	if err != nil {
		return h.fail(c, err)
	}
	moved := move(engine)
	resp := storyResponse(engine.Snapshot(), engine.Quality())
	resp.Moved = &moved
	return c.JSON(http.StatusOK, resp)
}

func (h *StorybookHandler) ToggleNarration(c echo.Context) error {
	engine, err := h.book.Current()
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"narrating": engine.ToggleNarration()})
}

// CurrentImage serves the current page's illustration: bytes with an ETag,
// a redirect for remote images, or 202 while it is still being drawn.
func (h *StorybookHandler) CurrentImage(c echo.Context) error {
	engine, err := h.book.Current()
	if err != nil {
		return h.fail(c, err)
	}
	img := engine.CurrentImage()
	if img == nil {
		return c.JSON(http.StatusAccepted, map[string]string{"status": "pending"})
	}
	return h.serveImage(c, img)
}

// PageImage serves an already drawn illustration; it never starts a new one.
func (h *StorybookHandler) PageImage(c echo.Context) error {
	page, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "index must be a number")
	}
	engine, err := h.book.Current()
	if err != nil {
		return h.fail(c, err)
	}
	img, ok := engine.CachedImage(page)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "image not available")
	}
	return h.serveImage(c, img)
}

func (h *StorybookHandler) serveImage(c echo.Context, img domain.ImageRef) error {
	if img.IsEmpty() {
		return echo.NewHTTPError(http.StatusNotFound, "image not available")
	}
	if img.IsRemote() {
		return c.Redirect(http.StatusFound, img.URL)
	}

	etag := hasher.ETag(h.hasher, img.Data)
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=3600")
	c.Response().Header().Set("ETag", etag)
	if c.Request().Header.Get("If-None-Match") == etag {
		return c.NoContent(http.StatusNotModified)
	}
	return c.Blob(http.StatusOK, img.MIMEType, img.Data)
}

func (h *StorybookHandler) GetChat(c echo.Context) error {
	chat := h.book.Conversation()
	return c.JSON(http.StatusOK, ChatResponse{Messages: chat.Log(), Thinking: chat.IsThinking()})
}

func (h *StorybookHandler) SendChat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	return h.send(c, req.Text, "")
}

// SendVoice transcribes a recorded question and sends it as a chat message.
func (h *StorybookHandler) SendVoice(c echo.Context) error {
	audio, err := io.ReadAll(io.LimitReader(c.Request().Body, MaxVoiceBytes+1))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Failed to read audio")
	}
	if len(audio) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "audio is required")
	}
	if len(audio) > MaxVoiceBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "audio is too long")
	}

	ctx := c.Request().Context()
	text, err := h.transcriber.Transcribe(ctx, audio)
	if errors.Is(err, speech.ErrNoSpeech) {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "No speech recognized")
	}
	if err != nil {
		log.WithCtx(ctx).Error("❌ Transcription failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadGateway, "Failed to transcribe audio")
	}
	return h.send(c, text, text)
}

func (h *StorybookHandler) send(c echo.Context, text, heard string) error {
	if strings.TrimSpace(text) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "text is required")
	}
	chat := h.book.Conversation()
	if !chat.Send(c.Request().Context(), text) {
		return echo.NewHTTPError(http.StatusConflict, "Still thinking about the last question")
	}
	return c.JSON(http.StatusAccepted, ChatResponse{Messages: chat.Log(), Thinking: chat.IsThinking(), Heard: heard})
}

// fail maps usecase errors to responses. Generation errors carry their own
// reader-facing message.
func (h *StorybookHandler) fail(c echo.Context, err error) error {
	var genErr *domain.GenerationError
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, usecase.ErrNoStory), errors.Is(err, usecase.ErrGenerationInProgress):
		return c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrQuotaExhausted):
		return c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: usecase.UserMessage(err)})
	case errors.As(err, &genErr):
		return c.JSON(http.StatusBadGateway, ErrorResponse{Error: usecase.UserMessage(err)})
	}
	log.WithCtx(c.Request().Context()).Error("❌ Unhandled error", zap.Error(err))
	return echo.NewHTTPError(http.StatusInternalServerError, "Internal error")
}

func storyResponse(snap usecase.Snapshot, quality domain.Quality) StoryResponse {
	resp := StoryResponse{
		SessionID:   snap.SessionID,
		Title:       snap.Title,
		Quality:     string(quality),
		PageIndex:   snap.Index,
		PageCount:   snap.PageCount,
		Text:        snap.Page.Text,
		ImageStatus: "pending",
		Narrating:   snap.Narrating,
		First:       snap.First,
		Last:        snap.Last,
	}
	switch {
	case snap.Image.IsRemote():
		resp.ImageStatus = "ready"
		resp.ImageURL = snap.Image.URL
	case !snap.Image.IsEmpty():
		resp.ImageStatus = "ready"
	}
	return resp
}
