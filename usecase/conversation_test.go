package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/satriahrh/cocoa-fruit/storybook/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationSession_Greeting(t *testing.T) {
	c := NewConversationSession(newFakeAssistant(), ConversationOptions{Greeting: "Hi there!"})

	log := c.Log()
	require.Len(t, log, 1)
	assert.Equal(t, domain.Message{Text: "Hi there!", Sender: domain.SenderAssistant}, log[0])

	assert.Empty(t, NewConversationSession(newFakeAssistant(), ConversationOptions{}).Log())
}

func TestConversationSession_RejectsBlank(t *testing.T) {
	assistant := newFakeAssistant()
	c := NewConversationSession(assistant, ConversationOptions{})

	assert.False(t, c.Send(context.Background(), ""))
	assert.False(t, c.Send(context.Background(), "  \n\t"))

	assert.Empty(t, c.Log())
	assert.False(t, c.IsThinking())
	assert.Zero(t, assistant.calls())
}

func TestConversationSession_SendAndReply(t *testing.T) {
	assistant := newFakeAssistant()
	pub := &recordingPublisher{}
	c := NewConversationSession(assistant, ConversationOptions{Greeting: "Hello!", Publisher: pub})

	require.True(t, c.Send(context.Background(), "  Why is the sky blue?  "))
	assert.True(t, c.IsThinking())

	log := c.Log()
	require.Len(t, log, 2)
	assert.Equal(t, domain.Message{Text: "Why is the sky blue?", Sender: domain.SenderUser}, log[1], "the user message is visible immediately")

	assistant.answer("Because of sunlight scattering!")
	c.Wait()

	assert.False(t, c.IsThinking())
	log = c.Log()
	require.Len(t, log, 3)
	assert.Equal(t, domain.Message{Text: "Because of sunlight scattering!", Sender: domain.SenderAssistant}, log[2])

	require.Equal(t, 1, assistant.calls())
	assert.Equal(t, "Why is the sky blue?", assistant.messages[0])
	assert.Equal(t, []domain.ChatMessage{
		{Role: domain.ModelRole, Content: "Hello!"},
		{Role: domain.UserRole, Content: "Why is the sky blue?"},
	}, assistant.history[0])

	for _, e := range pub.ofType(domain.EventChatMessage) {
		require.NotNil(t, e.Message)
	}
	assert.Len(t, pub.ofType(domain.EventChatMessage), 2)
	assert.Len(t, pub.ofType(domain.EventChatThinking), 2)
}

func TestConversationSession_RejectsWhileThinking(t *testing.T) {
	assistant := newFakeAssistant()
	c := NewConversationSession(assistant, ConversationOptions{})

	require.True(t, c.Send(context.Background(), "first"))
	assert.False(t, c.Send(context.Background(), "second"))

	log := c.Log()
	require.Len(t, log, 1)
	assert.Equal(t, "first", log[0].Text)

	assistant.answer("reply")
	c.Wait()
	assert.Len(t, c.Log(), 2)
	assert.Equal(t, 1, assistant.calls())

	assert.True(t, c.Send(context.Background(), "second"), "accepted again once the reply landed")
	assistant.answer("another reply")
	c.Wait()
	assert.Len(t, c.Log(), 4)
}

func TestConversationSession_FailureAppendsOneFallback(t *testing.T) {
	tests := []struct {
		name    string
		respond func(a *fakeAssistant)
	}{
		{"error", func(a *fakeAssistant) { a.fail(errors.New("backend unavailable")) }},
		{"empty reply", func(a *fakeAssistant) { a.answer("   ") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assistant := newFakeAssistant()
			c := NewConversationSession(assistant, ConversationOptions{Fallback: "Oops, ask me again!"})

			require.True(t, c.Send(context.Background(), "hello"))
			tt.respond(assistant)
			c.Wait()

			log := c.Log()
			require.Len(t, log, 2)
			assert.Equal(t, domain.Message{Text: "Oops, ask me again!", Sender: domain.SenderAssistant}, log[1])
			assert.False(t, c.IsThinking())
		})
	}
}

func TestConversationSession_PanicUsesDefaultFallback(t *testing.T) {
	assistant := newFakeAssistant()
	assistant.panic = true
	c := NewConversationSession(assistant, ConversationOptions{})

	require.True(t, c.Send(context.Background(), "hello"))
	c.Wait()

	log := c.Log()
	require.Len(t, log, 2)
	assert.Equal(t, DefaultFallbackReply, log[1].Text)
	assert.False(t, c.IsThinking())
}

func TestConversationSession_Timeout(t *testing.T) {
	c := NewConversationSession(newFakeAssistant(), ConversationOptions{Timeout: 20 * time.Millisecond})

	require.True(t, c.Send(context.Background(), "hello"))
	c.Wait()

	assert.Equal(t, DefaultFallbackReply, c.Log()[1].Text)
}

func TestConversationSession_ReplyOutlivesCallerContext(t *testing.T) {
	assistant := newFakeAssistant()
	c := NewConversationSession(assistant, ConversationOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	require.True(t, c.Send(ctx, "hello"))
	cancel()

	assistant.answer("still here")
	c.Wait()
	assert.Equal(t, "still here", c.Log()[1].Text)
}
