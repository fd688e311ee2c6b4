package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/satriahrh/cocoa-fruit/storybook/domain"
	"github.com/satriahrh/cocoa-fruit/storybook/usecase"
	"github.com/satriahrh/cocoa-fruit/storybook/utils/log"
	"go.uber.org/zap"
)

// NarrationAcker receives the outcome of an utterance played by a reader.
type NarrationAcker interface {
	Acknowledge(utteranceID string, err error) bool
}

type Server struct {
	upgrader      websocket.Upgrader
	book          *usecase.Storybook
	messageBroker domain.MessageBroker
	acks          NarrationAcker
	hub           *Hub
}

func NewServer(hub *Hub, book *usecase.Storybook, messageBroker domain.MessageBroker, acks NarrationAcker) *Server {
	return &Server{
		upgrader:      websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		book:          book,
		messageBroker: messageBroker,
		acks:          acks,
		hub:           hub,
	}
}

// Listen forwards every playback event to the connected readers until ctx ends.
func (s *Server) Listen(ctx context.Context) error {
	events, err := s.messageBroker.Subscribe(ctx, domain.EventsTopic, "")
	if err != nil {
		return err
	}

	log.WithCtx(ctx).Info("🎧 WebSocket server listening to playback events")

	for {
		select {
		case msg, ok := <-events:
			if !ok {
				log.WithCtx(ctx).Info("🔒 Event listener stopped")
				return nil
			}
			n := s.hub.Broadcast(msg.Payload)
			log.WithCtx(ctx).Debug("📤 Broadcasted event", zap.String("routingKey", msg.RoutingKey), zap.Int("clients", n))

		case <-ctx.Done():
			log.WithCtx(ctx).Info("🔒 Event listener stopped")
			return nil
		}
	}
}

func (s *Server) handleMessage(c *Client, message []byte) {
	var cmd Command
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.reply(c, ErrorResponse{Type: MessageError, Message: "malformed command"})
		return
	}
	ctx := c.Context()
	log.WithCtx(ctx).Debug("Reader command", zap.String("type", cmd.Type))

	switch cmd.Type {
	case CommandNarrationEnded, CommandNarrationError:
		var deviceErr error
		if cmd.Type == CommandNarrationError {
			deviceErr = errors.New(cmd.Error)
		}
		if !s.acks.Acknowledge(cmd.UtteranceID, deviceErr) {
			log.WithCtx(log.WithUtterance(ctx, cmd.UtteranceID)).Debug("Ignoring narration ack for an unknown utterance")
		}

	case CommandSay:
		if !s.book.Conversation().Send(ctx, cmd.Text) {
			s.reply(c, ErrorResponse{Type: MessageError, Command: cmd.Type, Message: "message rejected"})
		}

	case CommandNext, CommandPrevious, CommandGoTo, CommandToggleNarration:
		engine, err := s.book.Current()
		if err != nil {
			s.reply(c, ErrorResponse{Type: MessageError, Command: cmd.Type, Message: err.Error()})
			return
		}
		switch cmd.Type {
		case CommandNext:
			engine.Next()
		case CommandPrevious:
			engine.Previous()
		case CommandGoTo:
			if cmd.Index == nil || !engine.GoTo(*cmd.Index) {
				s.reply(c, s.state())
			}
		case CommandToggleNarration:
			engine.ToggleNarration()
		}

	default:
		s.reply(c, ErrorResponse{Type: MessageError, Command: cmd.Type, Message: "unknown command"})
	}
}

// state describes what the reader should be showing right now.
func (s *Server) state() State {
	st := State{
		Type:      MessageState,
		Thinking:  s.book.Conversation().IsThinking(),
		Timestamp: time.Now().UTC(),
	}
	engine, err := s.book.Current()
	if err != nil {
		return st
	}
	snap := engine.Snapshot()
	st.SessionID = snap.SessionID
	st.Title = snap.Title
	st.PageIndex = snap.Index
	st.PageCount = snap.PageCount
	st.Text = snap.Page.Text
	st.Narrating = snap.Narrating
	if snap.Image.IsRemote() {
		st.ImageURL = snap.Image.URL
	}
	return st
}

func (s *Server) reply(c *Client, v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.WithCtx(c.Context()).Error("❌ Failed to marshal reply", zap.Error(err))
		return
	}
	if err := c.SendMessage(payload); err != nil {
		log.WithCtx(c.Context()).Debug("Reply dropped", zap.Error(err))
	}
}
