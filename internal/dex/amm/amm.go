// =============================
// File: internal/dex/amm/amm.go
// =============================
package amm

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-execkit/internal/dex"
)

// Token amounts on this venue use these precisions: the traded token
// carries six decimals, wrapped SOL nine.
const (
	baseDecimals  = 6
	quoteDecimals = 9
)

// Orchestrator prices and assembles swaps against constant-product pools.
type Orchestrator struct {
	pools          *PoolManager
	reader         dex.AccountReader
	logger         *zap.Logger
	eventAuthority solana.PublicKey
}

// New creates the AMM orchestrator.
func New(client Client, reader dex.AccountReader, logger *zap.Logger) (*Orchestrator, error) {
	eventAuthority, err := DeriveEventAuthority()
	if err != nil {
		return nil, fmt.Errorf("failed to derive event authority: %w", err)
	}
	return &Orchestrator{
		pools:          NewPoolManager(client, logger),
		reader:         reader,
		logger:         logger.Named("amm"),
		eventAuthority: eventAuthority,
	}, nil
}

// Quote prices the request against the current pool reserves. It returns
// (nil, nil) when no pool trades the mint.
func (o *Orchestrator) Quote(ctx context.Context, req dex.SwapRequest) (*dex.Quote, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	pool, err := o.pools.FindPool(ctx, req.Mint)
	if err != nil {
		return nil, err
	}
	if pool == nil {
		return nil, nil
	}
	return o.quoteAgainstPool(pool, req)
}

func (o *Orchestrator) quoteAgainstPool(pool *PoolInfo, req dex.SwapRequest) (*dex.Quote, error) {
	switch req.Direction {
	case dex.QuoteToBase:
		quoteIn := dex.UIToMinor(req.InputUIAmount, quoteDecimals)
		baseOut, err := buyOutput(pool, quoteIn)
		if err != nil {
			return nil, err
		}
		return &dex.Quote{
			InputAmount:  quoteIn,
			OutputAmount: baseOut,
			OutputMint:   pool.BaseMint,
			Limit:        dex.MaxInput(quoteIn, req.SlippageBps),
		}, nil
	case dex.BaseToQuote:
		baseIn := dex.UIToMinor(req.InputUIAmount, baseDecimals)
		quoteOut, err := sellOutput(pool, baseIn)
		if err != nil {
			return nil, err
		}
		return &dex.Quote{
			InputAmount:  baseIn,
			OutputAmount: quoteOut,
			OutputMint:   pool.QuoteMint,
			Limit:        dex.MinOutput(quoteOut, req.SlippageBps),
		}, nil
	default:
		return nil, fmt.Errorf("unknown direction %q", req.Direction)
	}
}

// BuildInstructions assembles the full swap sequence: token account
// creation, wrapped-SOL funding for a buy, the swap itself, and the
// wrapped-SOL teardown for a sell. It returns (nil, nil) when no pool
// trades the mint.
func (o *Orchestrator) BuildInstructions(ctx context.Context, req dex.SwapRequest) ([]solana.Instruction, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	pool, err := o.pools.FindPool(ctx, req.Mint)
	if err != nil {
		return nil, err
	}
	if pool == nil {
		return nil, nil
	}

	quote, err := o.quoteAgainstPool(pool, req)
	if err != nil {
		return nil, err
	}

	global, err := o.pools.GlobalConfig(ctx)
	if err != nil {
		return nil, err
	}
	feeRecipient := global.FeeRecipient()
	feeRecipientATA, _, err := solana.FindAssociatedTokenAddress(feeRecipient, pool.QuoteMint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive fee recipient ATA: %w", err)
	}
	globalConfigAddr, err := DeriveGlobalConfigAddress()
	if err != nil {
		return nil, err
	}

	trader := req.Trader.PublicKey
	payer := req.FeePayer().PublicKey

	baseATA, createBaseIx, err := dex.ResolveTokenAccount(ctx, o.reader, pool.BaseMint, trader, payer)
	if err != nil {
		return nil, err
	}
	quoteATA, createQuoteIx, err := dex.ResolveTokenAccount(ctx, o.reader, pool.QuoteMint, trader, payer)
	if err != nil {
		return nil, err
	}

	var instructions []solana.Instruction
	if createBaseIx != nil {
		instructions = append(instructions, createBaseIx)
	}
	if createQuoteIx != nil {
		instructions = append(instructions, createQuoteIx)
	}

	isBuy := req.Direction == dex.QuoteToBase
	params := &swapInstructionParams{
		IsBuy:                 isBuy,
		PoolAddress:           pool.Address,
		User:                  trader,
		GlobalConfig:          globalConfigAddr,
		BaseMint:              pool.BaseMint,
		QuoteMint:             pool.QuoteMint,
		UserBaseTokenAccount:  baseATA,
		UserQuoteTokenAccount: quoteATA,
		PoolBaseTokenAccount:  pool.PoolBaseTokenAccount,
		PoolQuoteTokenAccount: pool.PoolQuoteTokenAccount,
		FeeRecipient:          feeRecipient,
		FeeRecipientATA:       feeRecipientATA,
		EventAuthority:        o.eventAuthority,
	}

	if isBuy {
		// The pool debits up to the quote limit from the wrapped-SOL
		// account, so funding must land before the swap.
		instructions = append(instructions, dex.WrapSOLInstructions(trader, quoteATA, quote.Limit)...)

		params.Amount1 = quote.OutputAmount
		params.Amount2 = quote.Limit
		instructions = append(instructions, buildSwapInstruction(params))
	} else {
		params.Amount1 = quote.InputAmount
		params.Amount2 = quote.Limit
		instructions = append(instructions, buildSwapInstruction(params))

		// Proceeds arrive as wrapped SOL; closing the account returns
		// them as lamports.
		instructions = append(instructions, dex.UnwrapSOLInstruction(trader, quoteATA))
	}

	o.logger.Debug("built swap instructions",
		zap.String("pool", pool.Address.String()),
		zap.Bool("is_buy", isBuy),
		zap.Uint64("input_amount", quote.InputAmount),
		zap.Uint64("output_amount", quote.OutputAmount),
		zap.Int("instruction_count", len(instructions)))

	return instructions, nil
}
