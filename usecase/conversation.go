package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/satriahrh/cocoa-fruit/storybook/domain"
	"github.com/satriahrh/cocoa-fruit/storybook/utils/log"
	"go.uber.org/zap"
)

const DefaultFallbackReply = "Sorry, I got a little confused. Could you say that again?"

type ConversationOptions struct {
	// Greeting is seeded as the first assistant message when not empty.
	Greeting string
	// Fallback replaces the assistant's reply when it fails or says nothing.
	Fallback string
	// Timeout bounds each assistant call; zero waits forever.
	Timeout   time.Duration
	Publisher domain.EventPublisher
}

// ConversationSession is the append-only chat log with the assistant. At most
// one request is outstanding at a time.
type ConversationSession struct {
	assistant domain.Assistant
	fallback  string
	timeout   time.Duration
	publisher domain.EventPublisher

	mu       sync.Mutex
	log      []domain.Message
	thinking bool
	wg       sync.WaitGroup
}

func NewConversationSession(assistant domain.Assistant, opts ConversationOptions) *ConversationSession {
	if opts.Fallback == "" {
		opts.Fallback = DefaultFallbackReply
	}
	c := &ConversationSession{
		assistant: assistant,
		fallback:  opts.Fallback,
		timeout:   opts.Timeout,
		publisher: opts.Publisher,
	}
	if opts.Greeting != "" {
		c.log = append(c.log, domain.Message{Text: opts.Greeting, Sender: domain.SenderAssistant})
	}
	return c
}

// Send appends text as a user message and asks the assistant for a reply.
// Blank text, or a request while another is outstanding, is ignored and
// reports false. The reply is appended asynchronously.
func (c *ConversationSession) Send(ctx context.Context, text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	c.mu.Lock()
	if c.thinking {
		c.mu.Unlock()
		return false
	}
	userMsg := domain.Message{Text: text, Sender: domain.SenderUser}
	c.log = append(c.log, userMsg)
	c.thinking = true
	history := toHistory(c.log)
	c.wg.Add(1)
	c.mu.Unlock()

	// The reply must land even if the caller goes away.
	ctx = context.WithoutCancel(ctx)
	publish(ctx, c.publisher, domain.ConversationKey, domain.Event{Type: domain.EventChatMessage, Message: &userMsg})
	publish(ctx, c.publisher, domain.ConversationKey, domain.Event{Type: domain.EventChatThinking, Thinking: boolPtr(true)})

	go func() {
		defer c.wg.Done()
		reply := c.ask(ctx, history, text)

		c.mu.Lock()
		msg := domain.Message{Text: reply, Sender: domain.SenderAssistant}
		c.log = append(c.log, msg)
		c.thinking = false
		c.mu.Unlock()

		publish(ctx, c.publisher, domain.ConversationKey, domain.Event{Type: domain.EventChatMessage, Message: &msg})
		publish(ctx, c.publisher, domain.ConversationKey, domain.Event{Type: domain.EventChatThinking, Thinking: boolPtr(false)})
	}()
	return true
}

// Log returns a copy of the conversation so far.
func (c *ConversationSession) Log() []domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Message, len(c.log))
	copy(out, c.log)
	return out
}

func (c *ConversationSession) IsThinking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.thinking
}

// Wait blocks until the outstanding reply, if any, has been appended.
func (c *ConversationSession) Wait() {
	c.wg.Wait()
}

func (c *ConversationSession) ask(ctx context.Context, history []domain.ChatMessage, text string) string {
	reply, err := c.reply(ctx, history, text)
	if err != nil {
		log.WithCtx(ctx).Warn("Assistant failed, using fallback reply", zap.Error(err))
		return c.fallback
	}
	if strings.TrimSpace(reply) == "" {
		log.WithCtx(ctx).Warn("Assistant returned an empty reply, using fallback reply")
		return c.fallback
	}
	return reply
}

func (c *ConversationSession) reply(ctx context.Context, history []domain.ChatMessage, text string) (reply string, err error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("assistant panicked: %v", r)
		}
	}()
	return c.assistant.Reply(ctx, history, text)
}

func toHistory(msgs []domain.Message) []domain.ChatMessage {
	history := make([]domain.ChatMessage, len(msgs))
	for i, m := range msgs {
		role := domain.ModelRole
		if m.Sender == domain.SenderUser {
			role = domain.UserRole
		}
		history[i] = domain.ChatMessage{Role: role, Content: m.Text}
	}
	return history
}
