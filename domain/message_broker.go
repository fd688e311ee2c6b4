package domain

import (
	"context"
	"time"
)

// EventsTopic carries every state change the readers should see.
const EventsTopic = "storybook.events"

// ConversationKey is the routing key of conversation events, which outlive stories.
const ConversationKey = "conversation"

// MessageBroker defines the interface for message broker operations
type MessageBroker interface {
	EventPublisher

	// Subscribe listens for messages on a specific topic/channel and routing key.
	// An empty routing key receives every message of the topic.
	Subscribe(ctx context.Context, topic string, routingKey string) (<-chan BrokerMessage, error)

	// Close closes the message broker connection
	Close() error
}

// EventPublisher is the publishing half of MessageBroker.
type EventPublisher interface {
	// Publish sends a message to a specific topic/channel with a routing key
	Publish(ctx context.Context, topic string, routingKey string, message []byte) error
}

// BrokerMessage represents a message received from the broker
type BrokerMessage struct {
	Topic      string
	RoutingKey string
	Payload    []byte
	Timestamp  time.Time
}

type EventType string

const (
	EventStoryLoaded      EventType = "story_loaded"
	EventStoryReset       EventType = "story_reset"
	EventPageChanged      EventType = "page_changed"
	EventImageReady       EventType = "image_ready"
	EventNarrationStarted EventType = "narration_started"
	EventNarrationStopped EventType = "narration_stopped"
	EventChatMessage      EventType = "chat_message"
	EventChatThinking     EventType = "chat_thinking"
)

// Event is the payload published on EventsTopic.
type Event struct {
	Type        EventType `json:"type"`
	SessionID   string    `json:"session_id,omitempty"`
	Title       string    `json:"title,omitempty"`
	PageIndex   *int      `json:"page_index,omitempty"`
	PageCount   int       `json:"page_count,omitempty"`
	Text        string    `json:"text,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	Fallback    bool      `json:"fallback,omitempty"`
	UtteranceID string    `json:"utterance_id,omitempty"`
	Message     *Message  `json:"message,omitempty"`
	Thinking    *bool     `json:"thinking,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}
