// =============================
// File: internal/dex/types.go
// =============================

// Package dex defines the venue-independent swap contract plus the account
// lifecycle helpers shared by both venue implementations. Throughout the
// package the base asset is the traded token and the quote asset is native
// SOL; slippage is expressed in basis points (1/100 of a percent) for both
// venues.
package dex

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/solana-execkit/internal/wallet"
)

// Venue identifies a liquidity venue design.
type Venue string

const (
	// VenueAMM is the constant-product pool venue.
	VenueAMM Venue = "amm"
	// VenueCurve is the bonding-curve issuance venue.
	VenueCurve Venue = "curve"
)

// Direction of a swap relative to the base token.
type Direction string

const (
	// QuoteToBase buys the base token with native SOL.
	QuoteToBase Direction = "quote_to_base"
	// BaseToQuote sells the base token for native SOL.
	BaseToQuote Direction = "base_to_quote"
)

const bpsDenominator = 10_000

// SwapRequest describes one swap to quote or execute.
type SwapRequest struct {
	Venue         Venue
	Mint          solana.PublicKey
	Direction     Direction
	InputUIAmount decimal.Decimal
	SlippageBps   uint64
	Trader        *wallet.Wallet
	Payer         *wallet.Wallet // optional; defaults to Trader
}

// Validate checks the request invariants.
func (r *SwapRequest) Validate() error {
	if r.Trader == nil {
		return errors.New("swap request has no trader")
	}
	if !r.InputUIAmount.IsPositive() {
		return fmt.Errorf("input amount must be positive, got %s", r.InputUIAmount)
	}
	if r.SlippageBps >= bpsDenominator {
		return fmt.Errorf("slippage %d bps out of range", r.SlippageBps)
	}
	switch r.Direction {
	case QuoteToBase, BaseToQuote:
	default:
		return fmt.Errorf("unknown direction %q", r.Direction)
	}
	return nil
}

// FeePayer returns the payer wallet, falling back to the trader.
func (r *SwapRequest) FeePayer() *wallet.Wallet {
	if r.Payer != nil {
		return r.Payer
	}
	return r.Trader
}

// Quote is the priced outcome of a swap request.
type Quote struct {
	// InputAmount is the input in minor units.
	InputAmount uint64
	// OutputAmount is the nominal output in minor units before slippage.
	OutputAmount uint64
	// OutputMint is the asset received.
	OutputMint solana.PublicKey
	// Limit bounds the execution: minimum acceptable output for a sell,
	// maximum acceptable input for a buy.
	Limit uint64
}

// Orchestrator is the contract both venue variants implement. A venue with
// no state for the requested mint returns (nil, nil) from both methods;
// callers must branch on absence.
type Orchestrator interface {
	Quote(ctx context.Context, req SwapRequest) (*Quote, error)
	BuildInstructions(ctx context.Context, req SwapRequest) ([]solana.Instruction, error)
}

// MinOutput reduces the nominal output by slippage basis points.
func MinOutput(amount, slippageBps uint64) uint64 {
	result := new(big.Int).SetUint64(amount)
	result.Mul(result, big.NewInt(int64(bpsDenominator-slippageBps)))
	result.Div(result, big.NewInt(bpsDenominator))
	return result.Uint64()
}

// MaxInput increases the nominal input by slippage basis points.
func MaxInput(amount, slippageBps uint64) uint64 {
	result := new(big.Int).SetUint64(amount)
	result.Mul(result, big.NewInt(int64(bpsDenominator+slippageBps)))
	result.Div(result, big.NewInt(bpsDenominator))
	return result.Uint64()
}

// UIToMinor converts a UI amount to minor units for the given decimals.
func UIToMinor(ui decimal.Decimal, decimals int32) uint64 {
	return uint64(ui.Shift(decimals).Round(0).IntPart())
}
