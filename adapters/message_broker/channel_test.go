package message_broker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satriahrh/cocoa-fruit/storybook/domain"
)

func receive(t *testing.T, ch <-chan domain.BrokerMessage) domain.BrokerMessage {
	t.Helper()
	select {
	case msg, ok := <-ch:
		require.True(t, ok, "channel closed")
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return domain.BrokerMessage{}
	}
}

func TestChannelMessageBroker_RoutingKeys(t *testing.T) {
	b := NewChannelMessageBroker()
	defer b.Close()
	ctx := context.Background()

	all, err := b.Subscribe(ctx, domain.EventsTopic, "")
	require.NoError(t, err)
	chat, err := b.Subscribe(ctx, domain.EventsTopic, domain.ConversationKey)
	require.NoError(t, err)

	require.NoError(t, b.Publish(ctx, domain.EventsTopic, "session-1", []byte(`{"type":"page_changed"}`)))
	require.NoError(t, b.Publish(ctx, domain.EventsTopic, domain.ConversationKey, []byte(`{"type":"chat_message"}`)))

	first := receive(t, all)
	assert.Equal(t, "session-1", first.RoutingKey)
	assert.Equal(t, domain.EventsTopic, first.Topic)
	assert.JSONEq(t, `{"type":"page_changed"}`, string(first.Payload))
	assert.Equal(t, domain.ConversationKey, receive(t, all).RoutingKey)

	assert.JSONEq(t, `{"type":"chat_message"}`, string(receive(t, chat).Payload))
	select {
	case msg := <-chat:
		t.Fatalf("unexpected message %s", msg.Payload)
	default:
	}
}

func TestChannelMessageBroker_PublishWithoutSubscribers(t *testing.T) {
	b := NewChannelMessageBroker()
	defer b.Close()

	assert.NoError(t, b.Publish(context.Background(), "nobody.listens", "", []byte("x")))
	assert.Zero(t, b.GetTopicCount())
}

func TestChannelMessageBroker_FullSubscriberDoesNotBlock(t *testing.T) {
	b := NewChannelMessageBroker()
	defer b.Close()
	ctx := context.Background()

	ch, err := b.Subscribe(ctx, "t", "")
	require.NoError(t, err)

	for i := 0; i < subscriberBuffer+10; i++ {
		require.NoError(t, b.Publish(ctx, "t", "k", []byte("x")))
	}
	assert.Len(t, ch, subscriberBuffer)
}

func TestChannelMessageBroker_UnsubscribeOnContextDone(t *testing.T) {
	b := NewChannelMessageBroker()
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := b.Subscribe(ctx, "t", "")
	require.NoError(t, err)
	assert.Equal(t, 1, b.GetTopicCount())

	cancel()
	require.Eventually(t, func() bool { return b.GetTopicCount() == 0 }, time.Second, 5*time.Millisecond)
	_, ok := <-ch
	assert.False(t, ok)
}

func TestChannelMessageBroker_Close(t *testing.T) {
	b := NewChannelMessageBroker()
	ch, err := b.Subscribe(context.Background(), "t", "")
	require.NoError(t, err)

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
	assert.True(t, b.IsClosed())

	_, ok := <-ch
	assert.False(t, ok)
	assert.ErrorIs(t, b.Publish(context.Background(), "t", "", nil), ErrBrokerClosed)
	_, err = b.Subscribe(context.Background(), "t", "")
	assert.ErrorIs(t, err, ErrBrokerClosed)
}
