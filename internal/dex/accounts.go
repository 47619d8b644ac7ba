// =============================
// File: internal/dex/accounts.go
// =============================
package dex

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
)

// AssociatedTokenProgramID is the SPL associated-token-account program.
var AssociatedTokenProgramID = solana.MustPublicKeyFromBase58("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")

// AccountReader is the account-read collaborator used during ATA resolution.
type AccountReader interface {
	GetAccountInfo(ctx context.Context, addr solana.PublicKey) (*solanarpc.GetAccountInfoResult, error)
}

// ResolveTokenAccount returns the trader's associated token account for the
// mint and, when the account does not exist yet (or is owned by the wrong
// program), an instruction that creates it. Resolution is idempotent: once
// the account exists no creation instruction is emitted. Any account-read
// error other than "not found" propagates.
func ResolveTokenAccount(ctx context.Context, reader AccountReader, mint, owner, payer solana.PublicKey) (solana.PublicKey, solana.Instruction, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, nil, fmt.Errorf("failed to derive ATA for mint %s: %w", mint.String(), err)
	}

	info, err := reader.GetAccountInfo(ctx, ata)
	switch {
	case errors.Is(err, solanarpc.ErrNotFound):
		return ata, createTokenAccountInstruction(payer, owner, mint, ata), nil
	case err != nil:
		return solana.PublicKey{}, nil, fmt.Errorf("failed to read token account %s: %w", ata.String(), err)
	case info == nil || info.Value == nil:
		return ata, createTokenAccountInstruction(payer, owner, mint, ata), nil
	case !info.Value.Owner.Equals(solana.TokenProgramID):
		// Same recovery as the not-found case: the address is not a
		// usable token account.
		return ata, createTokenAccountInstruction(payer, owner, mint, ata), nil
	}

	return ata, nil, nil
}

// createTokenAccountInstruction builds the idempotent ATA creation
// instruction. The account list order is fixed by the program.
func createTokenAccountInstruction(payer, owner, mint, ata solana.PublicKey) solana.Instruction {
	return solana.NewInstruction(
		AssociatedTokenProgramID,
		[]*solana.AccountMeta{
			{PublicKey: payer, IsWritable: true, IsSigner: true},
			{PublicKey: ata, IsWritable: true, IsSigner: false},
			{PublicKey: owner, IsWritable: false, IsSigner: false},
			{PublicKey: mint, IsWritable: false, IsSigner: false},
			{PublicKey: solana.SystemProgramID, IsWritable: false, IsSigner: false},
			{PublicKey: solana.TokenProgramID, IsWritable: false, IsSigner: false},
		},
		[]byte{1}, // CreateIdempotent
	)
}
