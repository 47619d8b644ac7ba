// =============================
// File: internal/dex/curve/instructions.go
// =============================
package curve

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

// Instruction discriminators extracted from the IDL.
var (
	buyDiscriminator  = []byte{102, 6, 61, 18, 1, 218, 235, 234}
	sellDiscriminator = []byte{51, 230, 133, 164, 1, 127, 131, 173}
)

// tradeAccounts carries the account set shared by the buy and sell
// instructions.
type tradeAccounts struct {
	Global                 solana.PublicKey
	FeeRecipient           solana.PublicKey
	Mint                   solana.PublicKey
	BondingCurve           solana.PublicKey
	AssociatedBondingCurve solana.PublicKey
	UserTokenAccount       solana.PublicKey
	User                   solana.PublicKey
	EventAuthority         solana.PublicKey
}

func encodeTradeData(discriminator []byte, amount, limit uint64) []byte {
	data := make([]byte, 8+8+8)
	copy(data[0:8], discriminator)
	binary.LittleEndian.PutUint64(data[8:16], amount)
	binary.LittleEndian.PutUint64(data[16:24], limit)
	return data
}

// buildBuyInstruction buys tokenAmount tokens spending at most maxSolCost
// lamports. The account list order is fixed by the program.
func buildBuyInstruction(accounts tradeAccounts, tokenAmount, maxSolCost uint64) solana.Instruction {
	metas := []*solana.AccountMeta{
		{PublicKey: accounts.Global, IsSigner: false, IsWritable: false},
		{PublicKey: accounts.FeeRecipient, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.Mint, IsSigner: false, IsWritable: false},
		{PublicKey: accounts.BondingCurve, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.AssociatedBondingCurve, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.UserTokenAccount, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.User, IsSigner: true, IsWritable: true},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.TokenProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.SysVarRentPubkey, IsSigner: false, IsWritable: false},
		{PublicKey: accounts.EventAuthority, IsSigner: false, IsWritable: false},
		{PublicKey: ProgramID, IsSigner: false, IsWritable: false},
	}
	return solana.NewInstruction(ProgramID, metas, encodeTradeData(buyDiscriminator, tokenAmount, maxSolCost))
}

// buildSellInstruction sells tokenAmount tokens for at least minSolOutput
// lamports.
func buildSellInstruction(accounts tradeAccounts, tokenAmount, minSolOutput uint64) solana.Instruction {
	metas := []*solana.AccountMeta{
		{PublicKey: accounts.Global, IsSigner: false, IsWritable: false},
		{PublicKey: accounts.FeeRecipient, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.Mint, IsSigner: false, IsWritable: false},
		{PublicKey: accounts.BondingCurve, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.AssociatedBondingCurve, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.UserTokenAccount, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.User, IsSigner: true, IsWritable: true},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.SPLAssociatedTokenAccountProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.TokenProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: accounts.EventAuthority, IsSigner: false, IsWritable: false},
		{PublicKey: ProgramID, IsSigner: false, IsWritable: false},
	}
	return solana.NewInstruction(ProgramID, metas, encodeTradeData(sellDiscriminator, tokenAmount, minSolOutput))
}
