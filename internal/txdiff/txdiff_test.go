package txdiff

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	trader   = solana.MustPublicKeyFromBase58("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM")
	stranger = solana.MustPublicKeyFromBase58("7xLk17EQQ5KLDLDe44wCmupJKJjTGd8hs3eSVVhCx932")
	mintA    = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	mintB    = solana.MustPublicKeyFromBase58("Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB")
)

func tokenBalance(mint solana.PublicKey, owner solana.PublicKey, amount string, uiAmount float64) rpc.TokenBalance {
	ui := uiAmount
	return rpc.TokenBalance{
		Mint:  mint,
		Owner: &owner,
		UiTokenAmount: &rpc.UiTokenAmount{
			Amount:   amount,
			Decimals: 6,
			UiAmount: &ui,
		},
	}
}

func TestTokenDeltasBothSides(t *testing.T) {
	meta := &rpc.TransactionMeta{
		PreTokenBalances:  []rpc.TokenBalance{tokenBalance(mintA, trader, "1000000", 1)},
		PostTokenBalances: []rpc.TokenBalance{tokenBalance(mintA, trader, "2500000", 2.5)},
	}

	deltas := TokenDeltas(meta, trader)
	require.Len(t, deltas, 1)

	d := deltas[mintA.String()]
	assert.Equal(t, "1000000", d.Pre.UiTokenAmount.Amount)
	assert.Equal(t, "2500000", d.Post.UiTokenAmount.Amount)
}

func TestTokenDeltasMintOnlyInPost(t *testing.T) {
	meta := &rpc.TransactionMeta{
		PostTokenBalances: []rpc.TokenBalance{tokenBalance(mintB, trader, "5000000", 5)},
	}

	deltas := TokenDeltas(meta, trader)
	require.Len(t, deltas, 1)

	d := deltas[mintB.String()]
	assert.Equal(t, "0", d.Pre.UiTokenAmount.Amount, "missing pre side must be zero-filled")
	assert.Equal(t, mintB, d.Pre.Mint)
	require.NotNil(t, d.Pre.Owner)
	assert.Equal(t, trader, *d.Pre.Owner)
	assert.Equal(t, uint8(6), d.Pre.UiTokenAmount.Decimals, "placeholder shares the present side's decimals")
	assert.Equal(t, "5000000", d.Post.UiTokenAmount.Amount)
	assert.True(t, d.UIChange().Equal(decimal.RequireFromString("5")))
}

func TestTokenDeltasMintOnlyInPre(t *testing.T) {
	meta := &rpc.TransactionMeta{
		PreTokenBalances: []rpc.TokenBalance{tokenBalance(mintA, trader, "3000000", 3)},
	}

	deltas := TokenDeltas(meta, trader)
	require.Len(t, deltas, 1)

	d := deltas[mintA.String()]
	assert.Equal(t, "3000000", d.Pre.UiTokenAmount.Amount)
	assert.Equal(t, "0", d.Post.UiTokenAmount.Amount, "missing post side must be zero-filled")
	assert.Equal(t, mintA, d.Post.Mint)
	assert.Equal(t, uint8(6), d.Post.UiTokenAmount.Decimals, "placeholder shares the present side's decimals")
}

func TestTokenDeltasFiltersByOwner(t *testing.T) {
	meta := &rpc.TransactionMeta{
		PreTokenBalances: []rpc.TokenBalance{
			tokenBalance(mintA, trader, "1000000", 1),
			tokenBalance(mintB, stranger, "9000000", 9),
		},
		PostTokenBalances: []rpc.TokenBalance{
			tokenBalance(mintA, trader, "2000000", 2),
			tokenBalance(mintB, stranger, "8000000", 8),
		},
	}

	deltas := TokenDeltas(meta, trader)
	require.Len(t, deltas, 1)
	assert.Contains(t, deltas, mintA.String())
}

func TestTokenDeltasNilMeta(t *testing.T) {
	assert.Empty(t, TokenDeltas(nil, trader))
}

func TestNativeDelta(t *testing.T) {
	meta := &rpc.TransactionMeta{
		PreBalances:  []uint64{1_000_000_000},
		PostBalances: []uint64{3_500_000_123},
	}

	delta := NativeDelta(meta)
	require.NotNil(t, delta)
	assert.True(t, delta.Equal(decimal.RequireFromString("2.5")), "got %s", delta.String())
}

func TestNativeDeltaRoundsToSixDigits(t *testing.T) {
	meta := &rpc.TransactionMeta{
		PreBalances:  []uint64{1_000_000_000},
		PostBalances: []uint64{1_000_001_499},
	}

	delta := NativeDelta(meta)
	require.NotNil(t, delta)
	assert.True(t, delta.Equal(decimal.RequireFromString("0.000001")), "got %s", delta.String())
}

func TestNativeDeltaNegative(t *testing.T) {
	meta := &rpc.TransactionMeta{
		PreBalances:  []uint64{2_000_000_000},
		PostBalances: []uint64{1_500_000_000},
	}

	delta := NativeDelta(meta)
	require.NotNil(t, delta)
	assert.True(t, delta.Equal(decimal.RequireFromString("-0.5")), "got %s", delta.String())
}

func TestNativeDeltaAbsentBalances(t *testing.T) {
	assert.Nil(t, NativeDelta(nil))
	assert.Nil(t, NativeDelta(&rpc.TransactionMeta{}))
	assert.Nil(t, NativeDelta(&rpc.TransactionMeta{
		PreBalances:  []uint64{1_000_000_000},
		PostBalances: []uint64{0}, // account closed
	}))
}
