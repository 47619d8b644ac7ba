// =============================
// File: internal/dex/curve/curve.go
// =============================
package curve

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-execkit/internal/cache"
	"github.com/rovshanmuradov/solana-execkit/internal/dex"
)

// Token amounts on this venue use these precisions: curve tokens carry six
// decimals, SOL nine.
const (
	tokenDecimals = 6
	solDecimals   = 9
)

// Curve state moves with every trade; the global config is effectively
// static.
const (
	curveStateTTL = 5 * time.Second
	globalTTL     = 10 * time.Minute
)

// Orchestrator prices and assembles trades against bonding curves. Unlike
// the pool venue, trades here spend and receive native SOL directly, so no
// wrapped-SOL lifecycle instructions are emitted.
type Orchestrator struct {
	reader         dex.AccountReader
	logger         *zap.Logger
	eventAuthority solana.PublicKey

	curves *cache.TTL[string, *BondingCurve]
	global *cache.TTL[string, *GlobalAccount]
}

// New creates the curve orchestrator.
func New(reader dex.AccountReader, logger *zap.Logger) (*Orchestrator, error) {
	eventAuthority, err := DeriveEventAuthority()
	if err != nil {
		return nil, fmt.Errorf("failed to derive event authority: %w", err)
	}
	o := &Orchestrator{
		reader:         reader,
		logger:         logger.Named("curve"),
		eventAuthority: eventAuthority,
	}
	o.curves = cache.New(curveStateTTL, o.fetchCurve)
	o.global = cache.New(globalTTL, o.fetchGlobal)
	return o, nil
}

// fetchCurve loads the curve account for a mint. A missing account is not
// an error; nil marks absence.
func (o *Orchestrator) fetchCurve(ctx context.Context, mintStr string) (*BondingCurve, error) {
	mint, err := solana.PublicKeyFromBase58(mintStr)
	if err != nil {
		return nil, fmt.Errorf("invalid mint %q: %w", mintStr, err)
	}
	addr, err := DeriveBondingCurveAddress(mint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive bonding curve address: %w", err)
	}

	info, err := o.reader.GetAccountInfo(ctx, addr)
	if errors.Is(err, solanarpc.ErrNotFound) {
		o.logger.Debug("no bonding curve for mint", zap.String("mint", mintStr))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bonding curve %s: %w", addr.String(), err)
	}
	if info == nil || info.Value == nil {
		return nil, nil
	}
	return ParseBondingCurve(info.Value.Data.GetBinary())
}

func (o *Orchestrator) fetchGlobal(ctx context.Context, _ string) (*GlobalAccount, error) {
	addr, err := DeriveGlobalAddress()
	if err != nil {
		return nil, fmt.Errorf("failed to derive global address: %w", err)
	}
	info, err := o.reader.GetAccountInfo(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to get global account: %w", err)
	}
	if info == nil || info.Value == nil {
		return nil, fmt.Errorf("global account %s not found", addr.String())
	}
	return ParseGlobalAccount(info.Value.Data.GetBinary())
}

// IsComplete reports whether the mint's curve has run to completion and
// trading moved to a pool venue. A missing curve account reads as complete,
// so callers route such mints to the pool venue instead of retrying here;
// a mint that never had a curve is never tradable on this venue either way.
func (o *Orchestrator) IsComplete(ctx context.Context, mint solana.PublicKey) (bool, error) {
	bc, err := o.curves.Get(ctx, mint.String())
	if err != nil {
		return false, err
	}
	if bc == nil {
		return true, nil
	}
	return bc.Complete, nil
}

// tradableCurve returns the live curve for the mint, or nil when the mint
// has none or it has completed.
func (o *Orchestrator) tradableCurve(ctx context.Context, mint solana.PublicKey) (*BondingCurve, error) {
	bc, err := o.curves.Get(ctx, mint.String())
	if err != nil {
		return nil, err
	}
	if bc == nil || bc.Complete {
		return nil, nil
	}
	return bc, nil
}

// Quote prices the request against the current virtual reserves. It
// returns (nil, nil) when the mint has no live curve.
func (o *Orchestrator) Quote(ctx context.Context, req dex.SwapRequest) (*dex.Quote, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	bc, err := o.tradableCurve(ctx, req.Mint)
	if err != nil {
		return nil, err
	}
	if bc == nil {
		return nil, nil
	}
	global, err := o.global.Get(ctx, "global")
	if err != nil {
		return nil, err
	}
	return o.quoteAgainstCurve(bc, global, req)
}

func (o *Orchestrator) quoteAgainstCurve(bc *BondingCurve, global *GlobalAccount, req dex.SwapRequest) (*dex.Quote, error) {
	switch req.Direction {
	case dex.QuoteToBase:
		solIn := dex.UIToMinor(req.InputUIAmount, solDecimals)
		tokensOut, err := buyPrice(bc, solIn)
		if err != nil {
			return nil, err
		}
		// The buy limit caps the spend, not the receipt.
		return &dex.Quote{
			InputAmount:  solIn,
			OutputAmount: tokensOut,
			OutputMint:   req.Mint,
			Limit:        dex.MaxInput(solIn, req.SlippageBps),
		}, nil
	case dex.BaseToQuote:
		tokensIn := dex.UIToMinor(req.InputUIAmount, tokenDecimals)
		solOut, err := sellPrice(bc, tokensIn, global.FeeBasisPoints)
		if err != nil {
			return nil, err
		}
		return &dex.Quote{
			InputAmount:  tokensIn,
			OutputAmount: solOut,
			OutputMint:   solana.WrappedSol,
			Limit:        dex.MinOutput(solOut, req.SlippageBps),
		}, nil
	default:
		return nil, fmt.Errorf("unknown direction %q", req.Direction)
	}
}

// BuildInstructions assembles the trade: token account creation on a buy,
// then exactly one buy or sell instruction. It returns (nil, nil) when the
// mint has no live curve.
func (o *Orchestrator) BuildInstructions(ctx context.Context, req dex.SwapRequest) ([]solana.Instruction, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	bc, err := o.tradableCurve(ctx, req.Mint)
	if err != nil {
		return nil, err
	}
	if bc == nil {
		return nil, nil
	}
	global, err := o.global.Get(ctx, "global")
	if err != nil {
		return nil, err
	}
	quote, err := o.quoteAgainstCurve(bc, global, req)
	if err != nil {
		return nil, err
	}

	bondingCurve, err := DeriveBondingCurveAddress(req.Mint)
	if err != nil {
		return nil, err
	}
	associatedCurve, _, err := solana.FindAssociatedTokenAddress(bondingCurve, req.Mint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive associated bonding curve: %w", err)
	}
	globalAddr, err := DeriveGlobalAddress()
	if err != nil {
		return nil, err
	}

	trader := req.Trader.PublicKey
	payer := req.FeePayer().PublicKey

	userATA, createATAIx, err := dex.ResolveTokenAccount(ctx, o.reader, req.Mint, trader, payer)
	if err != nil {
		return nil, err
	}

	accounts := tradeAccounts{
		Global:                 globalAddr,
		FeeRecipient:           global.FeeRecipient,
		Mint:                   req.Mint,
		BondingCurve:           bondingCurve,
		AssociatedBondingCurve: associatedCurve,
		UserTokenAccount:       userATA,
		User:                   trader,
		EventAuthority:         o.eventAuthority,
	}

	var instructions []solana.Instruction
	isBuy := req.Direction == dex.QuoteToBase
	if isBuy {
		if createATAIx != nil {
			instructions = append(instructions, createATAIx)
		}
		instructions = append(instructions, buildBuyInstruction(accounts, quote.OutputAmount, quote.Limit))
	} else {
		instructions = append(instructions, buildSellInstruction(accounts, quote.InputAmount, quote.Limit))
	}

	o.logger.Debug("built trade instructions",
		zap.String("mint", req.Mint.String()),
		zap.Bool("is_buy", isBuy),
		zap.Uint64("input_amount", quote.InputAmount),
		zap.Uint64("output_amount", quote.OutputAmount),
		zap.Int("instruction_count", len(instructions)))

	return instructions, nil
}
