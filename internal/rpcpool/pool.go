// =============================
// File: internal/rpcpool/pool.go
// =============================
package rpcpool

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	MaxRetries         = 3
	RetryDelay         = 100 * time.Millisecond
	DefaultReviveAfter = 30 * time.Second
)

// Pool rotates requests over a fixed list of RPC endpoints. Rotation is
// strict round-robin; the cursor lives only in memory.
type Pool struct {
	clients     []*Client
	logger      *zap.Logger
	limiter     *rate.Limiter
	reviveAfter time.Duration

	mu   sync.Mutex
	curr int
}

// Option configures a Pool.
type Option func(*Pool)

// WithRateLimit paces outgoing requests at the given requests-per-second.
func WithRateLimit(rps float64) Option {
	return func(p *Pool) {
		p.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithReviveAfter overrides how long a failed node is sidelined before the
// pool probes it again.
func WithReviveAfter(d time.Duration) Option {
	return func(p *Pool) {
		p.reviveAfter = d
	}
}

// NewPool builds a pool from endpoint URLs. The list must be non-empty.
func NewPool(urls []string, logger *zap.Logger, opts ...Option) (*Pool, error) {
	if len(urls) == 0 {
		return nil, errors.New("rpc endpoint list is empty")
	}
	clients := make([]*Client, 0, len(urls))
	for _, url := range urls {
		clients = append(clients, NewClient(url))
	}
	p := &Pool{
		clients:     clients,
		logger:      logger.Named("rpc_pool"),
		reviveAfter: DefaultReviveAfter,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Next returns the next client in round-robin order. Health is not
// consulted here; callers that need failover use ExecuteWithRetry.
func (p *Pool) Next() *Client {
	p.mu.Lock()
	defer p.mu.Unlock()

	client := p.clients[p.curr]
	p.curr = (p.curr + 1) % len(p.clients)
	return client
}

// nextActive returns the next healthy client. A node sidelined longer than
// reviveAfter is put back in rotation; when every node is down the whole
// pool is reset rather than left dead.
func (p *Pool) nextActive() *Client {
	for range p.clients {
		client := p.Next()
		if client.IsActive() {
			return client
		}
		if time.Since(client.DownSince()) >= p.reviveAfter {
			client.SetActive(true)
			p.logger.Info("re-probing sidelined RPC endpoint",
				zap.String("endpoint", client.URL()))
			return client
		}
	}

	p.logger.Warn("all RPC endpoints marked down, resetting health state")
	for _, client := range p.clients {
		client.SetActive(true)
	}
	return p.Next()
}

// HasActiveClients reports whether at least one node is healthy.
func (p *Pool) HasActiveClients() bool {
	for _, client := range p.clients {
		if client.IsActive() {
			return true
		}
	}
	return false
}

// Len returns the number of endpoints in the pool.
func (p *Pool) Len() int { return len(p.clients) }

// ExecuteWithRetry runs the operation against successive healthy nodes,
// marking a node unhealthy after a failure, until it succeeds or retries
// are exhausted.
func (p *Pool) ExecuteWithRetry(ctx context.Context, operation func(*Client) error) error {
	var lastErr error
	for attempt := 0; attempt < MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		client := p.nextActive()
		if err := operation(client); err != nil {
			lastErr = err
			client.SetActive(false)
			p.logger.Warn("RPC operation failed, rotating endpoint",
				zap.String("endpoint", client.URL()),
				zap.Int("attempt", attempt+1),
				zap.Error(err))
			time.Sleep(RetryDelay)
			continue
		}
		return nil
	}
	return lastErr
}
