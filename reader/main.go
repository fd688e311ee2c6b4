package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/satriahrh/cocoa-fruit/storybook/utils/log"
)

// incoming covers every message the server sends; unused fields stay empty.
type incoming struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	PageIndex   *int   `json:"page_index"`
	PageCount   int    `json:"page_count"`
	Text        string `json:"text"`
	ImageURL    string `json:"image_url"`
	Fallback    bool   `json:"fallback"`
	UtteranceID string `json:"utterance_id"`
	MIMEType    string `json:"mime_type"`
	Audio       []byte `json:"audio"`
	// Message is a chat entry in chat_message and plain text in error.
	Message  json.RawMessage `json:"message"`
	Thinking *bool           `json:"thinking"`
	Command  string          `json:"command"`
}

type chatEntry struct {
	Text   string `json:"text"`
	Sender string `json:"sender"`
}

type command struct {
	Type        string `json:"type"`
	Index       *int   `json:"index,omitempty"`
	Text        string `json:"text,omitempty"`
	UtteranceID string `json:"utterance_id,omitempty"`
	Error       string `json:"error,omitempty"`
}

// reader is a terminal stand-in for the picture book screen and its speaker.
type reader struct {
	conn   *websocket.Conn
	player string

	writeMu sync.Mutex

	mu      sync.Mutex
	playing map[string]context.CancelFunc
}

func main() {
	serverURL := flag.String("server", "ws://localhost:8080/ws", "storybook websocket endpoint")
	player := flag.String("player", "", "command that plays an audio file given as its last argument, e.g. \"mpg123 -q\"")
	flag.Parse()

	conn, _, err := websocket.DefaultDialer.Dial(*serverURL, nil)
	if err != nil {
		log.With().Fatal("Failed to connect to server", zap.String("url", *serverURL), zap.Error(err))
	}
	defer conn.Close()

	r := &reader{conn: conn, player: *player, playing: make(map[string]context.CancelFunc)}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		r.listen(ctx)
		stop()
	}()
	go r.prompt(ctx, stop)

	<-ctx.Done()
	fmt.Println("Shutting down...")
	r.writeMu.Lock()
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	r.writeMu.Unlock()
}

func (r *reader) listen(ctx context.Context) {
	for {
		_, data, err := r.conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				log.With().Error("Error reading message", zap.Error(err))
			}
			return
		}
		var msg incoming
		if err := json.Unmarshal(data, &msg); err != nil {
			log.With().Warn("Unreadable message", zap.Error(err))
			continue
		}
		r.handle(ctx, msg)
	}
}

func (r *reader) handle(ctx context.Context, msg incoming) {
	switch msg.Type {
	case "state", "story_loaded", "page_changed":
		if msg.Title != "" {
			fmt.Printf("\n📖 %s\n", msg.Title)
		}
		if msg.PageIndex != nil && msg.PageCount > 0 {
			fmt.Printf("\n-- page %d/%d --\n%s\n", *msg.PageIndex+1, msg.PageCount, msg.Text)
		}
	case "story_reset":
		fmt.Println("\n🔄 The story was closed.")
	case "image_ready":
		switch {
		case msg.Fallback:
			fmt.Println("🖼️  (no picture this time)")
		case msg.ImageURL != "":
			fmt.Printf("🖼️  %s\n", msg.ImageURL)
		default:
			fmt.Println("🖼️  picture ready")
		}
	case "narration_audio":
		r.play(ctx, msg)
	case "narration_stop":
		r.stopPlaying(msg.UtteranceID)
	case "chat_message":
		var entry chatEntry
		if err := json.Unmarshal(msg.Message, &entry); err == nil {
			fmt.Printf("💬 %s: %s\n", entry.Sender, entry.Text)
		}
	case "chat_thinking":
		if msg.Thinking != nil && *msg.Thinking {
			fmt.Println("💭 ...")
		}
	case "error":
		var text string
		_ = json.Unmarshal(msg.Message, &text)
		fmt.Printf("⚠️  %s: %s\n", msg.Command, text)
	}
	fmt.Print("> ")
}

// play writes the utterance to a temp file and hands it to the player. The
// server is told once, when playback ends, fails, or is stopped.
func (r *reader) play(ctx context.Context, msg incoming) {
	if r.player == "" {
		fmt.Printf("🔊 %d bytes of narration (no --player set)\n", len(msg.Audio))
		r.send(command{Type: "narration_ended", UtteranceID: msg.UtteranceID})
		return
	}

	playCtx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.playing[msg.UtteranceID] = cancel
	r.mu.Unlock()

	go func() {
		defer func() {
			r.mu.Lock()
			delete(r.playing, msg.UtteranceID)
			r.mu.Unlock()
			cancel()
		}()

		if err := r.playFile(playCtx, msg.Audio); err != nil {
			if playCtx.Err() != nil {
				return
			}
			r.send(command{Type: "narration_error", UtteranceID: msg.UtteranceID, Error: err.Error()})
			return
		}
		r.send(command{Type: "narration_ended", UtteranceID: msg.UtteranceID})
	}()
}

func (r *reader) playFile(ctx context.Context, audio []byte) error {
	f, err := os.CreateTemp("", "narration-*.mp3")
	if err != nil {
		return fmt.Errorf("creating audio file: %w", err)
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(audio); err != nil {
		f.Close()
		return fmt.Errorf("writing audio file: %w", err)
	}
	f.Close()

	args := strings.Fields(r.player)
	cmd := exec.CommandContext(ctx, args[0], append(args[1:], f.Name())...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("player failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (r *reader) stopPlaying(utteranceID string) {
	r.mu.Lock()
	cancel, ok := r.playing[utteranceID]
	r.mu.Unlock()
	if ok {
		cancel()
	}
}

func (r *reader) send(cmd command) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	if err := r.conn.WriteJSON(cmd); err != nil {
		log.With().Debug("Error sending command", zap.Error(err))
	}
}

func (r *reader) prompt(ctx context.Context, quit func()) {
	fmt.Println("Commands: n(ext), p(revious), g <page>, r(ead aloud), say <text>, exit")
	in := bufio.NewScanner(os.Stdin)
	for in.Scan() {
		line := strings.TrimSpace(in.Text())
		verb, rest, _ := strings.Cut(line, " ")
		switch verb {
		case "":
		case "n", "next":
			r.send(command{Type: "next"})
		case "p", "prev", "previous":
			r.send(command{Type: "previous"})
		case "g", "goto":
			page, err := strconv.Atoi(strings.TrimSpace(rest))
			if err != nil {
				fmt.Println("usage: g <page number>")
				continue
			}
			index := page - 1
			r.send(command{Type: "goto", Index: &index})
		case "r", "read":
			r.send(command{Type: "toggle_narration"})
		case "say":
			r.send(command{Type: "say", Text: rest})
		case "exit", "quit":
			quit()
			return
		default:
			fmt.Println("unknown command")
		}
		if ctx.Err() != nil {
			return
		}
	}
	quit()
}
