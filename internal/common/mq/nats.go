package mq

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"codejudge/pkg/utils/contextkey"
	"codejudge/pkg/utils/logger"

	"github.com/nats-io/nats.go"
	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

const (
	headerID         = "X-Message-Id"
	headerTimestamp  = "X-Message-Ts"
	headerExpiration = "X-Message-Expiration-Ms"
	headerTraceID    = "X-Trace-Id"
)

// NATSConfig defines configuration for the NATS implementation.
type NATSConfig struct {
	URL            string
	Name           string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectTimeout time.Duration
}

// NATSQueue implements MessageQueue using core NATS request/reply.
type NATSQueue struct {
	config NATSConfig
	conn   *nats.Conn

	mu            sync.Mutex
	subscriptions []*natsSubscription
	closed        bool
}

type natsSubscription struct {
	subject string
	handler HandlerFunc
	opts    SubscribeOptions

	sub    *nats.Subscription
	ctx    context.Context
	cancel context.CancelFunc
	pool   *pool.Pool

	// gate guards pool submission against Stop; the pool must not see
	// Go after Wait.
	gate     sync.Mutex
	stopping bool
	inflight sync.WaitGroup
}

func (s *natsSubscription) dispatch(fn func()) {
	s.gate.Lock()
	if s.stopping {
		s.gate.Unlock()
		return
	}
	s.inflight.Add(1)
	s.gate.Unlock()
	defer s.inflight.Done()
	s.pool.Go(fn)
}

// drain rejects further dispatches and waits for the pool to finish.
func (s *natsSubscription) drain() {
	s.gate.Lock()
	s.stopping = true
	s.gate.Unlock()
	s.inflight.Wait()
	s.pool.Wait()
}

// NewNATSQueue connects to a NATS server.
func NewNATSQueue(cfg NATSConfig) (*NATSQueue, error) {
	if cfg.URL == "" {
		return nil, errors.New("nats url is required")
	}
	if cfg.Name == "" {
		cfg.Name = "codejudge"
	}
	if cfg.MaxReconnects == 0 {
		cfg.MaxReconnects = 5
	}
	if cfg.ReconnectWait == 0 {
		cfg.ReconnectWait = 2 * time.Second
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.Timeout(cfg.ConnectTimeout),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn(context.Background(), "nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info(context.Background(), "nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			logger.Info(context.Background(), "nats connection closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats failed: %w", err)
	}
	return &NATSQueue{config: cfg, conn: conn}, nil
}

// Publish publishes a message to a subject.
func (q *NATSQueue) Publish(ctx context.Context, subject string, message *Message) error {
	if message == nil {
		return errors.New("message is nil")
	}
	if subject == "" {
		return errors.New("subject is required")
	}
	return q.conn.PublishMsg(toNATSMessage(ctx, subject, message))
}

// Request publishes a message and waits for its reply.
func (q *NATSQueue) Request(ctx context.Context, subject string, message *Message) (*Message, error) {
	if message == nil {
		return nil, errors.New("message is nil")
	}
	if subject == "" {
		return nil, errors.New("subject is required")
	}
	resp, err := q.conn.RequestMsgWithContext(ctx, toNATSMessage(ctx, subject, message))
	if err != nil {
		return nil, err
	}
	return fromNATSMessage(resp), nil
}

// Subscribe starts consuming a subject.
func (q *NATSQueue) Subscribe(ctx context.Context, subject string, handler HandlerFunc, opts *SubscribeOptions) error {
	if subject == "" {
		return errors.New("subject is required")
	}
	if handler == nil {
		return errors.New("handler is required")
	}
	var options SubscribeOptions
	if opts != nil {
		options = *opts
	}
	options.SetDefaults()
	if ctx == nil {
		ctx = context.Background()
	}

	sub := &natsSubscription{
		subject: subject,
		handler: handler,
		opts:    options,
		pool:    pool.New().WithMaxGoroutines(options.Concurrency),
	}
	sub.ctx, sub.cancel = context.WithCancel(ctx)

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		sub.cancel()
		return errors.New("message queue is closed")
	}
	ns, err := q.conn.QueueSubscribe(subject, options.QueueGroup, func(msg *nats.Msg) {
		sub.dispatch(func() { q.handleMessage(sub, msg) })
	})
	if err != nil {
		sub.cancel()
		return fmt.Errorf("subscribe %s failed: %w", subject, err)
	}
	sub.sub = ns
	q.subscriptions = append(q.subscriptions, sub)
	logger.Info(ctx, "nats subscription started",
		zap.String("subject", subject),
		zap.String("queue_group", options.QueueGroup),
		zap.Int("concurrency", options.Concurrency),
	)
	return nil
}

// Stop unsubscribes every subscription and waits for in-flight handlers.
func (q *NATSQueue) Stop() error {
	q.mu.Lock()
	subs := q.subscriptions
	q.subscriptions = nil
	q.mu.Unlock()

	var errs []error
	for _, sub := range subs {
		if err := sub.sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			errs = append(errs, err)
		}
	}
	for _, sub := range subs {
		sub.drain()
		sub.cancel()
	}
	return errors.Join(errs...)
}

// Ping verifies the connection with a server round trip.
func (q *NATSQueue) Ping(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		return q.conn.FlushTimeout(q.config.ConnectTimeout)
	}
	return q.conn.FlushWithContext(ctx)
}

// Close stops consumers and closes the connection.
func (q *NATSQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.mu.Unlock()

	err := q.Stop()
	if !q.conn.IsClosed() {
		_ = q.conn.FlushTimeout(q.config.ConnectTimeout)
		q.conn.Close()
	}
	return err
}

func (q *NATSQueue) handleMessage(sub *natsSubscription, msg *nats.Msg) {
	m := fromNATSMessage(msg)
	if m.Expiration == 0 && sub.opts.MessageTTL > 0 {
		m.Expiration = sub.opts.MessageTTL
	}
	ctx := sub.ctx
	if traceID, ok := m.GetHeader(headerTraceID); ok && traceID != "" {
		ctx = context.WithValue(ctx, contextkey.TraceID, traceID)
	}
	if m.Expired(time.Now()) {
		logger.Warn(ctx, "drop expired message", zap.String("subject", msg.Subject), zap.String("message_id", m.ID))
		return
	}
	if sub.opts.HandlerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, sub.opts.HandlerTimeout)
		defer cancel()
	}

	var reply *Message
	var err error
	if rec := panics.Try(func() { reply, err = sub.handler(ctx, m) }); rec != nil {
		err = rec.AsError()
	}
	if err != nil {
		logger.Error(ctx, "handle message failed",
			zap.String("subject", msg.Subject),
			zap.String("message_id", m.ID),
			zap.Error(err),
		)
	}
	if reply == nil || msg.Reply == "" {
		return
	}
	if err := msg.RespondMsg(toNATSMessage(ctx, msg.Reply, reply)); err != nil {
		logger.Warn(ctx, "send reply failed", zap.String("subject", msg.Subject), zap.Error(err))
	}
}

func toNATSMessage(ctx context.Context, subject string, message *Message) *nats.Msg {
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now()
	}
	msg := nats.NewMsg(subject)
	msg.Data = message.Body
	for k, v := range message.Headers {
		msg.Header.Set(k, v)
	}
	if message.ID != "" {
		msg.Header.Set(headerID, message.ID)
	}
	msg.Header.Set(headerTimestamp, message.Timestamp.Format(time.RFC3339Nano))
	if message.Expiration > 0 {
		msg.Header.Set(headerExpiration, strconv.FormatInt(message.Expiration.Milliseconds(), 10))
	}
	if msg.Header.Get(headerTraceID) == "" && ctx != nil {
		if traceID, ok := ctx.Value(contextkey.TraceID).(string); ok && traceID != "" {
			msg.Header.Set(headerTraceID, traceID)
		}
	}
	return msg
}

func fromNATSMessage(msg *nats.Msg) *Message {
	m := &Message{
		Body:    msg.Data,
		Headers: make(map[string]string),
	}
	for key, values := range msg.Header {
		if len(values) == 0 {
			continue
		}
		switch key {
		case headerID:
			m.ID = values[0]
		case headerTimestamp:
			if ts, err := time.Parse(time.RFC3339Nano, values[0]); err == nil {
				m.Timestamp = ts
			}
		case headerExpiration:
			if v, err := strconv.ParseInt(values[0], 10, 64); err == nil && v > 0 {
				m.Expiration = time.Duration(v) * time.Millisecond
			}
		default:
			m.Headers[key] = values[0]
		}
	}
	return m
}
