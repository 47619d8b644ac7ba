// =============================
// File: internal/dex/amm/instructions.go
// =============================
package amm

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

// Instruction discriminators extracted from the IDL.
var (
	buyDiscriminator  = []byte{102, 6, 61, 18, 1, 218, 235, 234}
	sellDiscriminator = []byte{51, 230, 133, 164, 1, 127, 131, 173}
)

// swapInstructionParams carries everything the swap instruction needs.
type swapInstructionParams struct {
	IsBuy bool

	PoolAddress           solana.PublicKey
	User                  solana.PublicKey
	GlobalConfig          solana.PublicKey
	BaseMint              solana.PublicKey
	QuoteMint             solana.PublicKey
	UserBaseTokenAccount  solana.PublicKey
	UserQuoteTokenAccount solana.PublicKey
	PoolBaseTokenAccount  solana.PublicKey
	PoolQuoteTokenAccount solana.PublicKey
	FeeRecipient          solana.PublicKey
	FeeRecipientATA       solana.PublicKey
	EventAuthority        solana.PublicKey

	// For a buy: Amount1 = baseAmountOut, Amount2 = maxQuoteAmountIn.
	// For a sell: Amount1 = baseAmountIn, Amount2 = minQuoteAmountOut.
	Amount1 uint64
	Amount2 uint64
}

// buildSwapInstruction assembles the buy or sell instruction.
func buildSwapInstruction(params *swapInstructionParams) solana.Instruction {
	data := make([]byte, 8+8+8)
	if params.IsBuy {
		copy(data[0:8], buyDiscriminator)
	} else {
		copy(data[0:8], sellDiscriminator)
	}
	binary.LittleEndian.PutUint64(data[8:16], params.Amount1)
	binary.LittleEndian.PutUint64(data[16:24], params.Amount2)

	accountMetas := []*solana.AccountMeta{
		solana.NewAccountMeta(params.PoolAddress, false, false),
		solana.NewAccountMeta(params.User, true, true),
		solana.NewAccountMeta(params.GlobalConfig, false, false),
		solana.NewAccountMeta(params.BaseMint, false, false),
		solana.NewAccountMeta(params.QuoteMint, false, false),
		solana.NewAccountMeta(params.UserBaseTokenAccount, true, false),
		solana.NewAccountMeta(params.UserQuoteTokenAccount, true, false),
		solana.NewAccountMeta(params.PoolBaseTokenAccount, true, false),
		solana.NewAccountMeta(params.PoolQuoteTokenAccount, true, false),
		solana.NewAccountMeta(params.FeeRecipient, false, false),
		solana.NewAccountMeta(params.FeeRecipientATA, true, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
		solana.NewAccountMeta(solana.SPLAssociatedTokenAccountProgramID, false, false),
		solana.NewAccountMeta(params.EventAuthority, false, false),
		solana.NewAccountMeta(ProgramID, false, false),
	}

	return solana.NewInstruction(ProgramID, accountMetas, data)
}
