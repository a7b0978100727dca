package mq

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"codejudge/pkg/utils/contextkey"

	"github.com/nats-io/nats-server/v2/server"
)

func runServer(t *testing.T) string {
	t.Helper()
	ns, err := server.NewServer(&server.Options{Host: "127.0.0.1", Port: server.RANDOM_PORT, NoLog: true, NoSigs: true})
	if err != nil {
		t.Fatalf("start nats server failed: %v", err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(5 * time.Second) {
		ns.Shutdown()
		t.Fatalf("nats server not ready")
	}
	t.Cleanup(ns.Shutdown)
	return ns.ClientURL()
}

func newQueue(t *testing.T, url string) *NATSQueue {
	t.Helper()
	q, err := NewNATSQueue(NATSConfig{URL: url, Name: t.Name()})
	if err != nil {
		t.Fatalf("NewNATSQueue: %v", err)
	}
	t.Cleanup(func() { _ = q.Close() })
	return q
}

func TestNewNATSQueueRequiresURL(t *testing.T) {
	if _, err := NewNATSQueue(NATSConfig{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRequestReply(t *testing.T) {
	url := runServer(t)
	consumer := newQueue(t, url)
	producer := newQueue(t, url)

	var gotTrace atomic.Value
	err := consumer.Subscribe(context.Background(), "echo", func(ctx context.Context, msg *Message) (*Message, error) {
		if v, ok := ctx.Value(contextkey.TraceID).(string); ok {
			gotTrace.Store(v)
		}
		reply := NewMessage(append([]byte("echo:"), msg.Body...))
		reply.ID = msg.ID
		if v, ok := msg.GetHeader("X-Lang"); ok {
			reply.SetHeader("X-Lang", v)
		}
		return reply, nil
	}, &SubscribeOptions{QueueGroup: "workers", Concurrency: 2})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if err := consumer.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.WithValue(context.Background(), contextkey.TraceID, "trace-1"), 2*time.Second)
	defer cancel()
	msg := NewMessage([]byte("hi"))
	msg.ID = "m-1"
	msg.SetHeader("X-Lang", "python")
	resp, err := producer.Request(ctx, "echo", msg)
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if string(resp.Body) != "echo:hi" || resp.ID != "m-1" {
		t.Fatalf("unexpected reply %+v", resp)
	}
	if v, _ := resp.GetHeader("X-Lang"); v != "python" {
		t.Fatalf("header not propagated: %+v", resp.Headers)
	}
	if resp.Timestamp.IsZero() {
		t.Fatalf("expected timestamp")
	}
	if gotTrace.Load() != "trace-1" {
		t.Fatalf("trace id not propagated, got %v", gotTrace.Load())
	}
}

func TestExpiredMessageDropped(t *testing.T) {
	url := runServer(t)
	consumer := newQueue(t, url)
	producer := newQueue(t, url)

	var calls atomic.Int32
	err := consumer.Subscribe(context.Background(), "ttl", func(ctx context.Context, msg *Message) (*Message, error) {
		calls.Add(1)
		return NewMessage(nil), nil
	}, nil)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	_ = consumer.Ping(context.Background())

	msg := NewMessage([]byte("late"))
	msg.Timestamp = time.Now().Add(-time.Minute)
	msg.Expiration = time.Second
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	if _, err := producer.Request(ctx, "ttl", msg); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if calls.Load() != 0 {
		t.Fatalf("expired message should not reach the handler")
	}
}

func TestHandlerPanicRecovered(t *testing.T) {
	url := runServer(t)
	consumer := newQueue(t, url)
	producer := newQueue(t, url)

	err := consumer.Subscribe(context.Background(), "boom", func(ctx context.Context, msg *Message) (*Message, error) {
		if string(msg.Body) == "panic" {
			panic("handler exploded")
		}
		return NewMessage([]byte("ok")), nil
	}, nil)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	_ = consumer.Ping(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	if _, err := producer.Request(ctx, "boom", NewMessage([]byte("panic"))); err == nil {
		t.Fatalf("expected no reply after panic")
	}
	ctx2, cancel2 := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel2()
	resp, err := producer.Request(ctx2, "boom", NewMessage([]byte("again")))
	if err != nil || string(resp.Body) != "ok" {
		t.Fatalf("subscription should survive a panic: %v", err)
	}
}

func TestHandlerTimeoutAndStop(t *testing.T) {
	url := runServer(t)
	consumer := newQueue(t, url)
	producer := newQueue(t, url)

	done := make(chan error, 1)
	err := consumer.Subscribe(context.Background(), "slow", func(ctx context.Context, msg *Message) (*Message, error) {
		<-ctx.Done()
		done <- ctx.Err()
		return nil, ctx.Err()
	}, &SubscribeOptions{HandlerTimeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	_ = consumer.Ping(context.Background())

	if err := producer.Publish(context.Background(), "slow", NewMessage([]byte("x"))); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	select {
	case err := <-done:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected handler deadline, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("handler was not bounded by its timeout")
	}

	if err := consumer.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := consumer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := consumer.Subscribe(context.Background(), "slow", func(context.Context, *Message) (*Message, error) { return nil, nil }, nil); err == nil {
		t.Fatalf("subscribe after close should fail")
	}
}

func TestStopWhileDispatchBlocked(t *testing.T) {
	url := runServer(t)
	consumer := newQueue(t, url)
	producer := newQueue(t, url)

	var handled atomic.Int32
	started := make(chan struct{}, 3)
	err := consumer.Subscribe(context.Background(), "busy", func(ctx context.Context, msg *Message) (*Message, error) {
		started <- struct{}{}
		time.Sleep(300 * time.Millisecond)
		handled.Add(1)
		return nil, nil
	}, &SubscribeOptions{Concurrency: 1})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	_ = consumer.Ping(context.Background())

	for i := 0; i < 3; i++ {
		if err := producer.Publish(context.Background(), "busy", NewMessage([]byte("x"))); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}
	_ = producer.Ping(context.Background())
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatalf("first handler never started")
	}
	// the second delivery is now parked waiting for a worker slot
	time.Sleep(50 * time.Millisecond)

	stopped := make(chan error, 1)
	go func() { stopped <- consumer.Stop() }()
	select {
	case err := <-stopped:
		if err != nil {
			t.Fatalf("Stop: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("Stop did not return")
	}
	if n := handled.Load(); n < 2 {
		t.Fatalf("in-flight deliveries should finish before Stop returns, handled %d", n)
	}
}

func TestPublishValidation(t *testing.T) {
	q := newQueue(t, runServer(t))
	if err := q.Publish(context.Background(), "", NewMessage(nil)); err == nil {
		t.Fatalf("expected subject error")
	}
	if err := q.Publish(context.Background(), "x", nil); err == nil {
		t.Fatalf("expected nil message error")
	}
	if _, err := q.Request(context.Background(), "x", nil); err == nil {
		t.Fatalf("expected nil message error")
	}
}

func TestMessageExpired(t *testing.T) {
	now := time.Now()
	m := &Message{Timestamp: now.Add(-2 * time.Second), Expiration: time.Second}
	if !m.Expired(now) {
		t.Fatalf("expected expired")
	}
	m.Expiration = 0
	if m.Expired(now) {
		t.Fatalf("zero expiration never expires")
	}
}
