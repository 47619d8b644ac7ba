// =============================
// File: internal/dex/amm/pool.go
// =============================
package amm

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/solana-execkit/internal/cache"
)

// Client is the RPC surface the pool manager needs.
type Client interface {
	GetAccountInfo(ctx context.Context, addr solana.PublicKey) (*solanarpc.GetAccountInfoResult, error)
	GetProgramAccounts(ctx context.Context, program solana.PublicKey, filters []solanarpc.RPCFilter) (solanarpc.GetProgramAccountsResult, error)
}

// Pool lookups are cached: discovery is slow and pools never move, while
// reserves go stale within seconds.
const (
	poolIDTTL       = 30 * time.Second
	poolStateTTL    = 5 * time.Second
	globalConfigTTL = 10 * time.Minute
)

// PoolManager discovers pools and reads their state.
type PoolManager struct {
	client    Client
	logger    *zap.Logger
	programID solana.PublicKey

	poolIDs      *cache.TTL[string, solana.PublicKey]
	poolState    *cache.TTL[string, *PoolInfo]
	globalConfig *cache.TTL[string, *GlobalConfig]
}

// NewPoolManager creates a pool manager backed by the client.
func NewPoolManager(client Client, logger *zap.Logger) *PoolManager {
	pm := &PoolManager{
		client:    client,
		logger:    logger.Named("pool_manager"),
		programID: ProgramID,
	}
	pm.poolIDs = cache.New(poolIDTTL, pm.discoverPool)
	pm.poolState = cache.New(poolStateTTL, pm.fetchPoolInfo)
	pm.globalConfig = cache.New(globalConfigTTL, pm.fetchGlobalConfig)
	return pm
}

// GlobalConfig returns the cached program configuration.
func (pm *PoolManager) GlobalConfig(ctx context.Context) (*GlobalConfig, error) {
	return pm.globalConfig.Get(ctx, "global")
}

func (pm *PoolManager) fetchGlobalConfig(ctx context.Context, _ string) (*GlobalConfig, error) {
	addr, err := DeriveGlobalConfigAddress()
	if err != nil {
		return nil, fmt.Errorf("failed to derive global config address: %w", err)
	}
	info, err := pm.client.GetAccountInfo(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to get global config: %w", err)
	}
	if info == nil || info.Value == nil {
		return nil, fmt.Errorf("global config account %s not found", addr.String())
	}
	return ParseGlobalConfig(info.Value.Data.GetBinary())
}

// FindPool returns the current state of the pool trading mint against
// wrapped SOL, or (nil, nil) when no such pool exists.
func (pm *PoolManager) FindPool(ctx context.Context, mint solana.PublicKey) (*PoolInfo, error) {
	poolAddr, err := pm.poolIDs.Get(ctx, mint.String())
	if err != nil {
		return nil, err
	}
	if poolAddr.IsZero() {
		return nil, nil
	}
	return pm.poolState.Get(ctx, poolAddr.String())
}

// discoverPool locates the pool account for a mint via program-account
// filters. A missing pool is not an error; the zero key marks absence.
func (pm *PoolManager) discoverPool(ctx context.Context, mintStr string) (solana.PublicKey, error) {
	mint, err := solana.PublicKeyFromBase58(mintStr)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid mint %q: %w", mintStr, err)
	}

	filters := []solanarpc.RPCFilter{
		{DataSize: uint64(poolAccountSize)},
		{Memcmp: &solanarpc.RPCFilterMemcmp{
			Offset: 0,
			Bytes:  PoolDiscriminator,
		}},
		{Memcmp: &solanarpc.RPCFilterMemcmp{
			Offset: baseMintOffset,
			Bytes:  mint.Bytes(),
		}},
		{Memcmp: &solanarpc.RPCFilterMemcmp{
			Offset: quoteMintOffset,
			Bytes:  solana.WrappedSol.Bytes(),
		}},
	}

	accounts, err := pm.client.GetProgramAccounts(ctx, pm.programID, filters)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("pool discovery failed for %s: %w", mintStr, err)
	}
	if len(accounts) == 0 {
		pm.logger.Debug("no pool found for mint", zap.String("mint", mintStr))
		return solana.PublicKey{}, nil
	}

	pm.logger.Debug("discovered pool",
		zap.String("mint", mintStr),
		zap.String("pool", accounts[0].Pubkey.String()))
	return accounts[0].Pubkey, nil
}

// fetchPoolInfo loads the pool account and both vault balances.
func (pm *PoolManager) fetchPoolInfo(ctx context.Context, poolAddrStr string) (*PoolInfo, error) {
	poolAddr, err := solana.PublicKeyFromBase58(poolAddrStr)
	if err != nil {
		return nil, fmt.Errorf("invalid pool address %q: %w", poolAddrStr, err)
	}

	info, err := pm.client.GetAccountInfo(ctx, poolAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to get pool account %s: %w", poolAddrStr, err)
	}
	if info == nil || info.Value == nil {
		return nil, fmt.Errorf("pool account %s not found", poolAddrStr)
	}

	pool, err := ParsePool(info.Value.Data.GetBinary())
	if err != nil {
		return nil, fmt.Errorf("failed to parse pool %s: %w", poolAddrStr, err)
	}

	var baseReserves, quoteReserves uint64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		baseReserves, err = pm.vaultBalance(gctx, pool.PoolBaseTokenAccount)
		return err
	})
	g.Go(func() error {
		var err error
		quoteReserves, err = pm.vaultBalance(gctx, pool.PoolQuoteTokenAccount)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &PoolInfo{
		Address:               poolAddr,
		BaseMint:              pool.BaseMint,
		QuoteMint:             pool.QuoteMint,
		BaseReserves:          baseReserves,
		QuoteReserves:         quoteReserves,
		FeeBps:                defaultFeeBps,
		PoolBaseTokenAccount:  pool.PoolBaseTokenAccount,
		PoolQuoteTokenAccount: pool.PoolQuoteTokenAccount,
	}, nil
}

func (pm *PoolManager) vaultBalance(ctx context.Context, vault solana.PublicKey) (uint64, error) {
	info, err := pm.client.GetAccountInfo(ctx, vault)
	if err != nil {
		return 0, fmt.Errorf("failed to get vault %s: %w", vault.String(), err)
	}
	if info == nil || info.Value == nil {
		return 0, fmt.Errorf("vault account %s not found", vault.String())
	}
	return parseTokenAccountAmount(info.Value.Data.GetBinary())
}
