// =============================
// File: internal/stream/subscriber.go
// =============================

// Package stream keeps a long-running event subscription alive: connect,
// subscribe, dispatch inbound messages, and reconnect forever on any
// failure until the context is cancelled.
package stream

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// Transport opens sessions against the event feed.
type Transport interface {
	Open(ctx context.Context) (Session, error)
}

// Session is one live connection. Recv blocks until a message arrives or
// the session dies; Close unblocks a pending Recv.
type Session interface {
	Subscribe(ctx context.Context, request interface{}) error
	Recv() ([]byte, error)
	Close() error
}

// Handler consumes one inbound message. Errors are logged and isolated;
// they never end the session.
type Handler func(ctx context.Context, message []byte) error

// ErrAlreadyRunning is returned when Run is called on a subscriber whose
// session loop is already active.
var ErrAlreadyRunning = errors.New("subscriber is already running")

const defaultRetryInterval = 1 * time.Second

// Subscriber owns the reconnect loop for one subscription.
type Subscriber struct {
	transport     Transport
	request       interface{}
	handler       Handler
	logger        *zap.Logger
	retryInterval time.Duration
	running       atomic.Bool
}

// SubscriberOption configures the subscriber.
type SubscriberOption func(*Subscriber)

// WithRetryInterval overrides the fixed delay between reconnect attempts.
func WithRetryInterval(interval time.Duration) SubscriberOption {
	return func(s *Subscriber) { s.retryInterval = interval }
}

// NewSubscriber creates a subscriber that will send request on every new
// session and dispatch inbound messages to handler.
func NewSubscriber(transport Transport, request interface{}, handler Handler, logger *zap.Logger, opts ...SubscriberOption) *Subscriber {
	s := &Subscriber{
		transport:     transport,
		request:       request,
		handler:       handler,
		logger:        logger.Named("stream"),
		retryInterval: defaultRetryInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run drives the session loop until ctx is cancelled. Every session end,
// clean or not, leads back to a reconnect after a fixed delay; there is no
// retry cap. At most one loop runs per subscriber.
func (s *Subscriber) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer s.running.Store(false)

	operation := func() (struct{}, error) {
		err := s.runSession(ctx)
		if ctx.Err() != nil {
			return struct{}{}, backoff.Permanent(ctx.Err())
		}
		if err == nil {
			// A cleanly closed session still reconnects.
			err = errors.New("session closed")
		}
		return struct{}{}, err
	}

	notify := func(err error, delay time.Duration) {
		s.logger.Warn("session ended, reconnecting",
			zap.Error(err),
			zap.Duration("delay", delay))
	}

	// MaxElapsedTime of zero disables backoff's default 15 minute cap; the
	// loop must outlive any session however long it streamed.
	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(s.retryInterval)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(notify))
	return err
}

// runSession opens one session, subscribes, and pumps messages until the
// session dies or ctx is cancelled.
func (s *Subscriber) runSession(ctx context.Context) error {
	session, err := s.transport.Open(ctx)
	if err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}

	// Recv has no context; closing the session unblocks it on cancel.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			session.Close()
		case <-done:
		}
	}()
	defer session.Close()

	if s.request != nil {
		if err := session.Subscribe(ctx, s.request); err != nil {
			return fmt.Errorf("failed to subscribe: %w", err)
		}
	}

	s.logger.Info("session established")

	for {
		message, err := session.Recv()
		if err != nil {
			return fmt.Errorf("session receive failed: %w", err)
		}
		s.dispatch(ctx, message)
	}
}

// dispatch runs the handler for one message, containing both errors and
// panics so a bad message cannot take the session down.
func (s *Subscriber) dispatch(ctx context.Context, message []byte) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("handler panicked", zap.Any("panic", r))
		}
	}()
	if err := s.handler(ctx, message); err != nil {
		s.logger.Error("handler failed", zap.Error(err))
	}
}
