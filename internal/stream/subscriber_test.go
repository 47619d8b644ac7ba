// =============================
// File: internal/stream/subscriber_test.go
// =============================
package stream

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeSession replays scripted messages, then fails with failErr.
type fakeSession struct {
	mu       sync.Mutex
	messages [][]byte
	failErr  error
	closed   chan struct{}
	subErr   error
}

func newFakeSession(messages [][]byte, failErr error) *fakeSession {
	return &fakeSession{
		messages: messages,
		failErr:  failErr,
		closed:   make(chan struct{}),
	}
}

func (s *fakeSession) Subscribe(ctx context.Context, request interface{}) error {
	return s.subErr
}

func (s *fakeSession) Recv() ([]byte, error) {
	s.mu.Lock()
	if len(s.messages) > 0 {
		msg := s.messages[0]
		s.messages = s.messages[1:]
		s.mu.Unlock()
		return msg, nil
	}
	s.mu.Unlock()

	// Block like a real socket until closed.
	<-s.closed
	return nil, s.failErr
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.closed:
	default:
		close(s.closed)
	}
	return nil
}

// scriptedTransport hands out sessions (or open errors) in order, then
// keeps returning the last entry.
type scriptedTransport struct {
	mu       sync.Mutex
	sessions []*fakeSession
	openErrs []error
	opens    int
}

func (t *scriptedTransport) Open(ctx context.Context) (Session, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	i := t.opens
	t.opens++
	if i < len(t.openErrs) && t.openErrs[i] != nil {
		return nil, t.openErrs[i]
	}
	if i >= len(t.sessions) {
		i = len(t.sessions) - 1
	}
	return t.sessions[i], nil
}

func (t *scriptedTransport) openCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.opens
}

func TestRunReconnectsAfterFailedOpens(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan []byte, 1)
	transport := &scriptedTransport{
		openErrs: []error{
			errors.New("dial refused"),
			errors.New("dial refused"),
			errors.New("dial refused"),
		},
		sessions: []*fakeSession{nil, nil, nil, newFakeSession([][]byte{[]byte("hello")}, io.EOF)},
	}

	sub := NewSubscriber(transport, nil, func(ctx context.Context, msg []byte) error {
		received <- msg
		return nil
	}, zap.NewNop(), WithRetryInterval(time.Millisecond))

	done := make(chan error, 1)
	go func() { done <- sub.Run(ctx) }()

	select {
	case msg := <-received:
		assert.Equal(t, []byte("hello"), msg)
	case <-time.After(2 * time.Second):
		t.Fatal("message never delivered after reconnects")
	}

	assert.GreaterOrEqual(t, transport.openCount(), 4,
		"three failed dials must each be retried")

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestRunOutlivesRetryElapsedDefault(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	transport := &scriptedTransport{
		openErrs: []error{errors.New("dial refused")},
		sessions: []*fakeSession{nil},
	}

	// A retry interval past backoff's default 15 minute elapsed cap would
	// end the loop on the first reconnect if the cap were still armed.
	sub := NewSubscriber(transport, nil, func(ctx context.Context, msg []byte) error {
		return nil
	}, zap.NewNop(), WithRetryInterval(time.Hour))

	done := make(chan error, 1)
	go func() { done <- sub.Run(ctx) }()

	select {
	case err := <-done:
		t.Fatalf("loop ended without cancellation: %v", err)
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestRunReconnectsAfterSessionDrop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := newFakeSession([][]byte{[]byte("one")}, io.ErrUnexpectedEOF)
	second := newFakeSession([][]byte{[]byte("two")}, io.EOF)
	transport := &scriptedTransport{sessions: []*fakeSession{first, second}}

	var received [][]byte
	var mu sync.Mutex
	gotTwo := make(chan struct{})
	sub := NewSubscriber(transport, nil, func(ctx context.Context, msg []byte) error {
		mu.Lock()
		received = append(received, msg)
		mu.Unlock()
		if string(msg) == "one" {
			// Drop the first session once its message is in.
			first.Close()
		} else {
			close(gotTwo)
		}
		return nil
	}, zap.NewNop(), WithRetryInterval(time.Millisecond))

	go sub.Run(ctx)

	select {
	case <-gotTwo:
	case <-time.After(2 * time.Second):
		t.Fatal("second session message never delivered")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, [][]byte{[]byte("one"), []byte("two")}, received)
}

func TestRunHandlerErrorDoesNotEndSession(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session := newFakeSession([][]byte{[]byte("a"), []byte("b"), []byte("c")}, io.EOF)
	transport := &scriptedTransport{sessions: []*fakeSession{session}}

	var received []string
	var mu sync.Mutex
	gotAll := make(chan struct{})
	sub := NewSubscriber(transport, nil, func(ctx context.Context, msg []byte) error {
		mu.Lock()
		received = append(received, string(msg))
		n := len(received)
		mu.Unlock()
		if n == 3 {
			close(gotAll)
		}
		return errors.New("handler rejects everything")
	}, zap.NewNop(), WithRetryInterval(time.Millisecond))

	go sub.Run(ctx)

	select {
	case <-gotAll:
	case <-time.After(2 * time.Second):
		t.Fatal("handler errors must not stop message delivery")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a", "b", "c"}, received)
}

func TestRunHandlerPanicIsContained(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session := newFakeSession([][]byte{[]byte("boom"), []byte("after")}, io.EOF)
	transport := &scriptedTransport{sessions: []*fakeSession{session}}

	gotSecond := make(chan struct{})
	sub := NewSubscriber(transport, nil, func(ctx context.Context, msg []byte) error {
		if string(msg) == "boom" {
			panic("bad message")
		}
		close(gotSecond)
		return nil
	}, zap.NewNop(), WithRetryInterval(time.Millisecond))

	go sub.Run(ctx)

	select {
	case <-gotSecond:
	case <-time.After(2 * time.Second):
		t.Fatal("a handler panic must not stop message delivery")
	}
}

func TestRunSubscribeFailureRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	broken := newFakeSession(nil, io.EOF)
	broken.subErr = errors.New("subscribe rejected")
	working := newFakeSession([][]byte{[]byte("ok")}, io.EOF)
	transport := &scriptedTransport{sessions: []*fakeSession{broken, working}}

	got := make(chan struct{})
	sub := NewSubscriber(transport, map[string]string{"req": "r"}, func(ctx context.Context, msg []byte) error {
		close(got)
		return nil
	}, zap.NewNop(), WithRetryInterval(time.Millisecond))

	go sub.Run(ctx)

	select {
	case <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("a failed subscribe must route into the reconnect loop")
	}
	assert.GreaterOrEqual(t, transport.openCount(), 2)
}

func TestRunCancelStopsLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	session := newFakeSession(nil, io.EOF)
	transport := &scriptedTransport{sessions: []*fakeSession{session}}

	sub := NewSubscriber(transport, nil, func(ctx context.Context, msg []byte) error {
		return nil
	}, zap.NewNop(), WithRetryInterval(time.Millisecond))

	done := make(chan error, 1)
	go func() { done <- sub.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("cancellation must end the loop")
	}
}

func TestRunSingleSessionGuard(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session := newFakeSession(nil, io.EOF)
	transport := &scriptedTransport{sessions: []*fakeSession{session}}

	sub := NewSubscriber(transport, nil, func(ctx context.Context, msg []byte) error {
		return nil
	}, zap.NewNop(), WithRetryInterval(time.Millisecond))

	go sub.Run(ctx)
	time.Sleep(20 * time.Millisecond)

	err := sub.Run(ctx)
	assert.ErrorIs(t, err, ErrAlreadyRunning)
}
