package message_broker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/satriahrh/cocoa-fruit/storybook/domain"
	"github.com/satriahrh/cocoa-fruit/storybook/utils/log"
	"go.uber.org/zap"
)

// ErrBrokerClosed is returned by every operation after Close.
var ErrBrokerClosed = errors.New("message broker is closed")

const subscriberBuffer = 100

type subscription struct {
	routingKey string
	ch         chan domain.BrokerMessage
}

// ChannelMessageBroker implements MessageBroker using Go channels. Every
// subscriber gets its own buffered channel; a slow subscriber loses messages
// instead of blocking publishers.
type ChannelMessageBroker struct {
	topics map[string]map[*subscription]struct{}
	mu     sync.RWMutex
	closed bool
}

// NewChannelMessageBroker creates a new channel-based message broker
func NewChannelMessageBroker() *ChannelMessageBroker {
	return &ChannelMessageBroker{
		topics: make(map[string]map[*subscription]struct{}),
	}
}

// makeKey creates a unique key for topic and routingKey
func makeKey(topic, routingKey string) string {
	return topic + ":" + routingKey
}

// Publish delivers a message to every subscriber of topic whose routing key
// matches, or who subscribed with an empty one.
func (b *ChannelMessageBroker) Publish(ctx context.Context, topic string, routingKey string, message []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrBrokerClosed
	}

	msg := domain.BrokerMessage{
		Topic:      topic,
		RoutingKey: routingKey,
		Payload:    message,
		Timestamp:  time.Now(),
	}

	delivered := 0
	for sub := range b.topics[topic] {
		if sub.routingKey != "" && sub.routingKey != routingKey {
			continue
		}
		select {
		case sub.ch <- msg:
			delivered++
		default:
			log.WithCtx(ctx).Warn("Subscriber channel is full, message dropped",
				zap.String("key", makeKey(topic, sub.routingKey)))
		}
	}

	log.WithCtx(ctx).Debug("📤 Message published to topic",
		zap.String("topic", topic),
		zap.String("routingKey", routingKey),
		zap.Int("subscribers", delivered),
		zap.Int("payload_size", len(message)))
	return nil
}

// Subscribe listens for messages on a topic. An empty routingKey receives the
// whole topic. The channel is closed when ctx ends or the broker closes.
func (b *ChannelMessageBroker) Subscribe(ctx context.Context, topic string, routingKey string) (<-chan domain.BrokerMessage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBrokerClosed
	}

	sub := &subscription{routingKey: routingKey, ch: make(chan domain.BrokerMessage, subscriberBuffer)}
	subs, exists := b.topics[topic]
	if !exists {
		subs = make(map[*subscription]struct{})
		b.topics[topic] = subs
	}
	subs[sub] = struct{}{}

	go func() {
		<-ctx.Done()
		b.unsubscribe(topic, sub)
	}()

	log.WithCtx(ctx).Info("📡 Subscribed to topic", zap.String("topic", topic), zap.String("routingKey", routingKey))
	return sub.ch, nil
}

func (b *ChannelMessageBroker) unsubscribe(topic string, sub *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.topics[topic]
	if !ok {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	close(sub.ch)
	if len(subs) == 0 {
		delete(b.topics, topic)
	}
}

// Close closes the message broker and all subscriber channels
func (b *ChannelMessageBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	b.closed = true

	for topic, subs := range b.topics {
		for sub := range subs {
			close(sub.ch)
		}
		log.With(zap.String("topic", topic)).Debug("🔒 Closed topic subscribers", zap.Int("count", len(subs)))
	}

	b.topics = make(map[string]map[*subscription]struct{})

	log.With().Info("🔒 Message broker closed")
	return nil
}

// GetTopicCount returns the number of topics with at least one subscriber
func (b *ChannelMessageBroker) GetTopicCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics)
}

// IsClosed returns whether the broker is closed
func (b *ChannelMessageBroker) IsClosed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.closed
}
