// =============================
// File: internal/dex/curve/state.go
// =============================

// Package curve implements the bonding-curve issuance venue: curve state
// reads, virtual-reserve pricing and trade instruction assembly.
package curve

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// ProgramID is the bonding-curve program.
var ProgramID = solana.MustPublicKeyFromBase58("6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P")

// Account discriminators extracted from the IDL.
var (
	BondingCurveDiscriminator = []byte{23, 183, 248, 55, 96, 216, 172, 96}
	GlobalDiscriminator       = []byte{167, 232, 232, 177, 200, 108, 114, 127}
)

// BondingCurve is the on-chain curve account for one mint.
type BondingCurve struct {
	VirtualTokenReserves uint64
	VirtualSolReserves   uint64
	RealTokenReserves    uint64
	RealSolReserves      uint64
	TokenTotalSupply     uint64
	Complete             bool
}

// GlobalAccount is the program-wide configuration account.
type GlobalAccount struct {
	Initialized                 bool
	Authority                   solana.PublicKey
	FeeRecipient                solana.PublicKey
	InitialVirtualTokenReserves uint64
	InitialVirtualSolReserves   uint64
	InitialRealTokenReserves    uint64
	TokenTotalSupply            uint64
	FeeBasisPoints              uint64
}

// DeriveBondingCurveAddress computes the curve PDA for a mint.
func DeriveBondingCurveAddress(mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("bonding-curve"), mint.Bytes()},
		ProgramID,
	)
	return addr, err
}

// DeriveGlobalAddress computes the global config PDA.
func DeriveGlobalAddress() (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte("global")}, ProgramID)
	return addr, err
}

// DeriveEventAuthority computes the event authority PDA.
func DeriveEventAuthority() (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte("__event_authority")}, ProgramID)
	return addr, err
}

// ParseBondingCurve parses account data into a BondingCurve.
func ParseBondingCurve(data []byte) (*BondingCurve, error) {
	const size = 8 + 5*8 + 1
	if len(data) < size {
		return nil, fmt.Errorf("data too short for BondingCurve: %d bytes", len(data))
	}
	for i := 0; i < 8; i++ {
		if data[i] != BondingCurveDiscriminator[i] {
			return nil, fmt.Errorf("invalid discriminator for BondingCurve")
		}
	}

	bc := &BondingCurve{}
	pos := 8
	for _, field := range []*uint64{
		&bc.VirtualTokenReserves,
		&bc.VirtualSolReserves,
		&bc.RealTokenReserves,
		&bc.RealSolReserves,
		&bc.TokenTotalSupply,
	} {
		*field = binary.LittleEndian.Uint64(data[pos : pos+8])
		pos += 8
	}
	bc.Complete = data[pos] != 0
	return bc, nil
}

// ParseGlobalAccount parses account data into a GlobalAccount.
func ParseGlobalAccount(data []byte) (*GlobalAccount, error) {
	const size = 8 + 1 + 64 + 5*8
	if len(data) < size {
		return nil, fmt.Errorf("data too short for GlobalAccount: %d bytes", len(data))
	}
	for i := 0; i < 8; i++ {
		if data[i] != GlobalDiscriminator[i] {
			return nil, fmt.Errorf("invalid discriminator for GlobalAccount")
		}
	}

	acc := &GlobalAccount{}
	pos := 8

	acc.Initialized = data[pos] != 0
	pos++

	acc.Authority = solana.PublicKeyFromBytes(data[pos : pos+32])
	pos += 32

	acc.FeeRecipient = solana.PublicKeyFromBytes(data[pos : pos+32])
	pos += 32

	for _, field := range []*uint64{
		&acc.InitialVirtualTokenReserves,
		&acc.InitialVirtualSolReserves,
		&acc.InitialRealTokenReserves,
		&acc.TokenTotalSupply,
		&acc.FeeBasisPoints,
	} {
		*field = binary.LittleEndian.Uint64(data[pos : pos+8])
		pos += 8
	}

	return acc, nil
}
