// =============================
// File: internal/dex/amm/types.go
// =============================

// Package amm implements the constant-product pool venue: pool discovery by
// program-account filters, reserve reads, quoting and swap instruction
// assembly.
package amm

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// ProgramID is the AMM program.
var ProgramID = solana.MustPublicKeyFromBase58("pAMMBay6oceH9fJKBRHGP5D4bD4sWpmSwMn52FMfXEA")

// PoolDiscriminator identifies Pool accounts, extracted from the IDL.
var PoolDiscriminator = []byte{241, 154, 109, 4, 17, 177, 109, 188}

// Pool account layout offsets.
const (
	poolAccountSize   = 211
	baseMintOffset    = 43
	quoteMintOffset   = 75
	tokenAmountOffset = 64 // amount field inside an SPL token account
)

// Default LP fee applied to quotes when the pool does not override it.
const defaultFeeBps = 25

// Pool is the on-chain pool account.
type Pool struct {
	PoolBump              uint8
	Index                 uint16
	Creator               solana.PublicKey
	BaseMint              solana.PublicKey
	QuoteMint             solana.PublicKey
	LPMint                solana.PublicKey
	PoolBaseTokenAccount  solana.PublicKey
	PoolQuoteTokenAccount solana.PublicKey
	LPSupply              uint64
}

// PoolInfo is a pool snapshot with its current reserves.
type PoolInfo struct {
	Address       solana.PublicKey
	BaseMint      solana.PublicKey
	QuoteMint     solana.PublicKey
	BaseReserves  uint64
	QuoteReserves uint64
	FeeBps        uint64

	PoolBaseTokenAccount  solana.PublicKey
	PoolQuoteTokenAccount solana.PublicKey
}

// ParsePool parses account data into a Pool.
func ParsePool(data []byte) (*Pool, error) {
	if len(data) < poolAccountSize {
		return nil, fmt.Errorf("data too short for Pool: %d bytes", len(data))
	}
	for i := 0; i < 8; i++ {
		if data[i] != PoolDiscriminator[i] {
			return nil, fmt.Errorf("invalid discriminator for Pool")
		}
	}

	pool := &Pool{}
	pos := 8

	pool.PoolBump = data[pos]
	pos++

	pool.Index = binary.LittleEndian.Uint16(data[pos : pos+2])
	pos += 2

	for _, field := range []*solana.PublicKey{
		&pool.Creator,
		&pool.BaseMint,
		&pool.QuoteMint,
		&pool.LPMint,
		&pool.PoolBaseTokenAccount,
		&pool.PoolQuoteTokenAccount,
	} {
		*field = solana.PublicKeyFromBytes(data[pos : pos+32])
		pos += 32
	}

	pool.LPSupply = binary.LittleEndian.Uint64(data[pos : pos+8])
	return pool, nil
}

// parseTokenAccountAmount reads the amount field of an SPL token account.
func parseTokenAccountAmount(data []byte) (uint64, error) {
	if len(data) < tokenAmountOffset+8 {
		return 0, fmt.Errorf("token account data too short: %d bytes", len(data))
	}
	return binary.LittleEndian.Uint64(data[tokenAmountOffset : tokenAmountOffset+8]), nil
}
