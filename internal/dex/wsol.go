// =============================
// File: internal/dex/wsol.go
// =============================
package dex

import (
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
)

// SPL token program instruction codes used for wrapped-SOL lifecycle.
const (
	tokenInstructionCloseAccount = 9
	tokenInstructionSyncNative   = 17
)

// WrapSOLInstructions funds a wrapped-SOL token account with lamports: a
// system transfer into the account followed by a SyncNative so the token
// balance reflects the new lamports.
func WrapSOLInstructions(from, wsolAccount solana.PublicKey, lamports uint64) []solana.Instruction {
	transfer := system.NewTransferInstruction(lamports, from, wsolAccount).Build()
	sync := solana.NewInstruction(
		solana.TokenProgramID,
		[]*solana.AccountMeta{
			{PublicKey: wsolAccount, IsWritable: true, IsSigner: false},
		},
		[]byte{tokenInstructionSyncNative},
	)
	return []solana.Instruction{transfer, sync}
}

// UnwrapSOLInstruction closes the wrapped-SOL token account, returning its
// lamports to the owner.
func UnwrapSOLInstruction(owner, wsolAccount solana.PublicKey) solana.Instruction {
	return solana.NewInstruction(
		solana.TokenProgramID,
		[]*solana.AccountMeta{
			{PublicKey: wsolAccount, IsWritable: true, IsSigner: false},
			{PublicKey: owner, IsWritable: true, IsSigner: false},
			{PublicKey: owner, IsWritable: false, IsSigner: true},
		},
		[]byte{tokenInstructionCloseAccount},
	)
}
