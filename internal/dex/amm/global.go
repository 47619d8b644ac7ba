// =============================
// File: internal/dex/amm/global.go
// =============================
package amm

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// GlobalConfigDiscriminator identifies GlobalConfig accounts, extracted
// from the IDL.
var GlobalConfigDiscriminator = []byte{149, 8, 156, 202, 160, 252, 176, 217}

// GlobalConfig is the program-wide configuration account.
type GlobalConfig struct {
	Admin                  solana.PublicKey
	LPFeeBasisPoints       uint64
	ProtocolFeeBasisPoints uint64
	DisableFlags           uint8
	ProtocolFeeRecipients  [8]solana.PublicKey
}

// FeeRecipient returns the first configured protocol fee recipient.
func (g *GlobalConfig) FeeRecipient() solana.PublicKey {
	for _, r := range g.ProtocolFeeRecipients {
		if !r.IsZero() {
			return r
		}
	}
	return solana.PublicKey{}
}

// DeriveGlobalConfigAddress computes the global config PDA.
func DeriveGlobalConfigAddress() (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte("global_config")}, ProgramID)
	return addr, err
}

// DeriveEventAuthority computes the event authority PDA.
func DeriveEventAuthority() (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte("__event_authority")}, ProgramID)
	return addr, err
}

// ParseGlobalConfig parses account data into a GlobalConfig.
func ParseGlobalConfig(data []byte) (*GlobalConfig, error) {
	const minSize = 8 + 32 + 8 + 8 + 1 + 32*8
	if len(data) < minSize {
		return nil, fmt.Errorf("data too short for GlobalConfig: %d bytes", len(data))
	}
	for i := 0; i < 8; i++ {
		if data[i] != GlobalConfigDiscriminator[i] {
			return nil, fmt.Errorf("invalid discriminator for GlobalConfig")
		}
	}

	cfg := &GlobalConfig{}
	pos := 8

	cfg.Admin = solana.PublicKeyFromBytes(data[pos : pos+32])
	pos += 32

	cfg.LPFeeBasisPoints = binary.LittleEndian.Uint64(data[pos : pos+8])
	pos += 8

	cfg.ProtocolFeeBasisPoints = binary.LittleEndian.Uint64(data[pos : pos+8])
	pos += 8

	cfg.DisableFlags = data[pos]
	pos++

	for i := 0; i < 8; i++ {
		cfg.ProtocolFeeRecipients[i] = solana.PublicKeyFromBytes(data[pos : pos+32])
		pos += 32
	}

	return cfg, nil
}
