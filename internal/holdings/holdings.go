// =============================
// File: internal/holdings/holdings.go
// =============================

// Package holdings aggregates a wallet's native and SPL token balances into
// one map keyed by mint address. The native SOL balance lives under the
// wrapped-SOL mint key; when the wallet also holds a wrapped-SOL token
// account the two amounts are summed into a single entry.
package holdings

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-execkit/internal/rpcpool"
)

// NativeMint is the wrapped-SOL mint used as the map key for native value.
var NativeMint = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")

const nativeDecimals = 9

// Entry is one asset position.
type Entry struct {
	Amount              uint64
	UIAmount            decimal.Decimal
	TokenAccountAddress string
	Decimals            uint8
}

// Holdings maps a mint's base58 address to its position.
type Holdings map[string]Entry

// Ledger is the read surface the aggregator needs from an RPC node.
type Ledger interface {
	GetNativeBalance(ctx context.Context, addr solana.PublicKey) (uint64, error)
	GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey) ([]rpcpool.TokenAccount, error)
}

// Aggregator reads wallet balances through a Ledger.
type Aggregator struct {
	ledger Ledger
	logger *zap.Logger
}

// NewAggregator creates a holdings aggregator.
func NewAggregator(ledger Ledger, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		ledger: ledger,
		logger: logger.Named("holdings"),
	}
}

// Fetch returns the wallet's holdings. Any underlying read failure is
// logged and whatever was accumulated so far is returned, so callers always
// get a usable (possibly partial) map.
func (a *Aggregator) Fetch(ctx context.Context, wallet solana.PublicKey, onlyNative bool) Holdings {
	holdings := make(Holdings)

	lamports, err := a.ledger.GetNativeBalance(ctx, wallet)
	if err != nil {
		a.logger.Warn("failed to read native balance",
			zap.String("wallet", wallet.String()),
			zap.Error(err))
		return holdings
	}

	holdings[NativeMint.String()] = Entry{
		Amount:   lamports,
		UIAmount: decimal.New(int64(lamports), -nativeDecimals),
		Decimals: nativeDecimals,
	}

	if onlyNative {
		return holdings
	}

	accounts, err := a.ledger.GetTokenAccountsByOwner(ctx, wallet)
	if err != nil {
		a.logger.Warn("failed to enumerate token accounts",
			zap.String("wallet", wallet.String()),
			zap.Error(err))
		return holdings
	}

	for _, account := range accounts {
		if account.Amount == 0 {
			continue
		}

		mint := account.Mint.String()
		uiAmount := decimal.New(int64(account.Amount), -int32(account.Decimals))

		if existing, ok := holdings[mint]; ok && account.Mint.Equals(NativeMint) {
			// Wrapped-SOL token account on top of the true native
			// balance: sum both amounts into one entry.
			holdings[mint] = Entry{
				Amount:              existing.Amount + account.Amount,
				UIAmount:            existing.UIAmount.Add(uiAmount),
				TokenAccountAddress: account.Address.String(),
				Decimals:            account.Decimals,
			}
			continue
		}

		holdings[mint] = Entry{
			Amount:              account.Amount,
			UIAmount:            uiAmount,
			TokenAccountAddress: account.Address.String(),
			Decimals:            account.Decimals,
		}
	}

	return holdings
}
