package mq

import (
	"context"
	"time"
)

// MessageQueue defines the queue operations used by services.
type MessageQueue interface {
	Producer
	Consumer

	// Ping verifies the connection is alive
	Ping(ctx context.Context) error

	// Close stops consumers and closes the connection
	Close() error
}

// Producer defines the interface for sending messages
type Producer interface {
	// Publish sends a message without waiting for a reply
	Publish(ctx context.Context, subject string, message *Message) error

	// Request sends a message and waits for one reply or ctx
	Request(ctx context.Context, subject string, message *Message) (*Message, error)
}

// Consumer defines the interface for consuming messages
type Consumer interface {
	// Subscribe processes messages on subject with handler. Subscribers
	// sharing a QueueGroup split the messages between them.
	Subscribe(ctx context.Context, subject string, handler HandlerFunc, opts *SubscribeOptions) error

	// Stop unsubscribes and waits for in-flight handlers
	Stop() error
}

// Message represents a message in the queue
type Message struct {
	// ID is the unique identifier for the message
	ID string `json:"id"`

	// Body is the message payload
	Body []byte `json:"body"`

	// Headers contains metadata about the message
	Headers map[string]string `json:"headers"`

	// Timestamp is when the message was created
	Timestamp time.Time `json:"timestamp"`

	// Expiration drops the message when it is handled later than this
	Expiration time.Duration `json:"expiration"`
}

// HandlerFunc handles one message. A non-nil reply is sent back when the
// sender is waiting for one.
type HandlerFunc func(ctx context.Context, message *Message) (*Message, error)

// SubscribeOptions defines options for subscribing to a subject
type SubscribeOptions struct {
	// QueueGroup load-balances messages across subscribers
	QueueGroup string

	// Concurrency sets the number of concurrent handlers
	// Default: 1
	Concurrency int

	// HandlerTimeout bounds one handler call. Zero means no limit.
	HandlerTimeout time.Duration

	// MessageTTL drops messages older than this
	MessageTTL time.Duration
}

// SetDefaults sets default values for subscribe options
func (o *SubscribeOptions) SetDefaults() {
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}
}

// NewMessage creates a new message with the given body
func NewMessage(body []byte) *Message {
	return &Message{
		Body:      body,
		Headers:   make(map[string]string),
		Timestamp: time.Now(),
	}
}

// SetHeader sets a header value
func (m *Message) SetHeader(key, value string) {
	if m.Headers == nil {
		m.Headers = make(map[string]string)
	}
	m.Headers[key] = value
}

// GetHeader retrieves a header value
func (m *Message) GetHeader(key string) (string, bool) {
	if m.Headers == nil {
		return "", false
	}
	val, ok := m.Headers[key]
	return val, ok
}

// Expired reports whether the message outlived its expiration.
func (m *Message) Expired(now time.Time) bool {
	return m.Expiration > 0 && !m.Timestamp.IsZero() && now.Sub(m.Timestamp) > m.Expiration
}
