// =============================
// File: internal/app/runner.go
// =============================

// Package app wires the toolkit together: config, logging, wallets, the
// RPC pool, both swap venues, the bundle submitter and the stream
// subscriber watching one account.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/solana-execkit/internal/config"
	"github.com/rovshanmuradov/solana-execkit/internal/dex"
	"github.com/rovshanmuradov/solana-execkit/internal/dex/amm"
	"github.com/rovshanmuradov/solana-execkit/internal/dex/curve"
	"github.com/rovshanmuradov/solana-execkit/internal/holdings"
	"github.com/rovshanmuradov/solana-execkit/internal/logger"
	"github.com/rovshanmuradov/solana-execkit/internal/relay"
	"github.com/rovshanmuradov/solana-execkit/internal/rpcpool"
	"github.com/rovshanmuradov/solana-execkit/internal/stream"
	"github.com/rovshanmuradov/solana-execkit/internal/txbuild"
	"github.com/rovshanmuradov/solana-execkit/internal/txdiff"
	"github.com/rovshanmuradov/solana-execkit/internal/wallet"
)

// Runner owns the wired component graph.
type Runner struct {
	logger *zap.Logger
	cfg    *config.Config

	pool       *rpcpool.Pool
	wallets    []*wallet.Wallet
	submitter  *relay.Submitter
	amm        *amm.Orchestrator
	curve      *curve.Orchestrator
	holdings   *holdings.Aggregator
	builder    *txbuild.Builder
	subscriber *stream.Subscriber

	watchAccount solana.PublicKey
}

// NewRunner creates an empty runner; Initialize builds the graph.
func NewRunner() *Runner {
	return &Runner{}
}

// Initialize loads configuration and constructs every component.
func (r *Runner) Initialize(configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	r.cfg = cfg

	log, err := logger.New(&logger.Config{
		LogFile:    cfg.LogFile,
		MaxSizeMB:  50,
		MaxBackups: 3,
		MaxAgeDays: 14,
		Compress:   true,
		Debug:      cfg.DebugLogging,
	})
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	r.logger = log

	wallets, err := wallet.LoadFromFile(cfg.WalletsFile)
	if err != nil {
		return fmt.Errorf("failed to load wallets: %w", err)
	}
	r.wallets = wallets

	pool, err := rpcpool.NewPool(cfg.RPCList, log, rpcpool.WithRateLimit(cfg.RPCRateLimit))
	if err != nil {
		return fmt.Errorf("failed to build rpc pool: %w", err)
	}
	r.pool = pool

	relayOpts := []relay.Option{}
	if len(cfg.RelayURLs) > 0 {
		relayOpts = append(relayOpts, relay.WithBundleURLs(cfg.RelayURLs))
	}
	if cfg.TipFloorURL != "" {
		relayOpts = append(relayOpts, relay.WithTipFloorURL(cfg.TipFloorURL))
	}
	submitter, err := relay.NewSubmitter(log, relayOpts...)
	if err != nil {
		return fmt.Errorf("failed to build submitter: %w", err)
	}
	r.submitter = submitter

	// The pool itself backs every component, so each request rotates to
	// the next healthy endpoint instead of pinning one client.
	ammVenue, err := amm.New(pool, pool, log)
	if err != nil {
		return fmt.Errorf("failed to build amm venue: %w", err)
	}
	r.amm = ammVenue

	curveVenue, err := curve.New(pool, log)
	if err != nil {
		return fmt.Errorf("failed to build curve venue: %w", err)
	}
	r.curve = curveVenue

	r.holdings = holdings.NewAggregator(pool, log)
	r.builder = txbuild.NewBuilder(pool, log)

	if cfg.WatchAccount != "" {
		watch, err := solana.PublicKeyFromBase58(cfg.WatchAccount)
		if err != nil {
			return fmt.Errorf("invalid watch_account: %w", err)
		}
		r.watchAccount = watch

		transport := stream.NewWSTransport(cfg.StreamEndpoint, cfg.StreamXToken)
		request := stream.TransactionSubscribeRequest(cfg.WatchAccount)
		r.subscriber = stream.NewSubscriber(transport, request, r.handleStreamMessage, log)
	}

	log.Info("initialized",
		zap.Int("rpc_endpoints", pool.Len()),
		zap.Int("wallets", len(wallets)),
		zap.String("watch_account", cfg.WatchAccount))
	return nil
}

// Orchestrator returns the venue implementation for the request.
func (r *Runner) Orchestrator(venue dex.Venue) (dex.Orchestrator, error) {
	switch venue {
	case dex.VenueAMM:
		return r.amm, nil
	case dex.VenueCurve:
		return r.curve, nil
	default:
		return nil, fmt.Errorf("unknown venue %q", venue)
	}
}

// Run drives the stream subscriber until a signal or ctx cancellation.
func (r *Runner) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	if r.subscriber != nil {
		g.Go(func() error {
			return r.subscriber.Run(gctx)
		})
	} else {
		r.logger.Info("no watch_account configured, stream subscriber disabled")
		<-ctx.Done()
	}

	err := g.Wait()
	if ctx.Err() != nil {
		r.logger.Info("shutting down")
		return nil
	}
	return err
}

// streamNotification is the envelope of a transactionSubscribe message.
type streamNotification struct {
	Params struct {
		Result struct {
			Signature   string `json:"signature"`
			Transaction struct {
				Meta *solanarpc.TransactionMeta `json:"meta"`
			} `json:"transaction"`
		} `json:"result"`
	} `json:"params"`
}

// handleStreamMessage extracts balance deltas for the watched account from
// one streamed transaction.
func (r *Runner) handleStreamMessage(ctx context.Context, message []byte) error {
	var notification streamNotification
	if err := json.Unmarshal(message, &notification); err != nil {
		return fmt.Errorf("malformed stream message: %w", err)
	}

	meta := notification.Params.Result.Transaction.Meta
	if meta == nil {
		// Subscription confirmations and pings carry no transaction.
		return nil
	}

	deltas := txdiff.TokenDeltas(meta, r.watchAccount)
	nativeDelta := txdiff.NativeDelta(meta)

	fields := []zap.Field{
		zap.String("signature", notification.Params.Result.Signature),
		zap.Int("token_mints_touched", len(deltas)),
	}
	if nativeDelta != nil {
		fields = append(fields, zap.String("native_delta", nativeDelta.String()))
	}
	for mint, delta := range deltas {
		fields = append(fields, zap.String("mint_"+mint, delta.UIChange().String()))
	}

	r.logger.Info("observed transaction", fields...)
	return nil
}
