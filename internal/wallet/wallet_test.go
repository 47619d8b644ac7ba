package wallet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKey(t *testing.T) (string, solana.PublicKey) {
	t.Helper()
	account := solana.NewWallet()
	return account.PrivateKey.String(), account.PublicKey()
}

func TestNewFromBase58(t *testing.T) {
	key, pub := newTestKey(t)

	w, err := New(key)
	require.NoError(t, err)
	assert.Equal(t, pub, w.PublicKey)
}

func TestNewRejectsGarbage(t *testing.T) {
	_, err := New("not-a-key")
	assert.Error(t, err)
}

func TestLoadFromFile(t *testing.T) {
	keyA, pubA := newTestKey(t)
	keyB, pubB := newTestKey(t)

	path := filepath.Join(t.TempDir(), "wallets.txt")
	content := "# trading wallets\n" + keyA + "\n\n" + keyB + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	wallets, err := LoadFromFile(path)
	require.NoError(t, err)
	require.Len(t, wallets, 2)
	assert.Equal(t, pubA, wallets[0].PublicKey)
	assert.Equal(t, pubB, wallets[1].PublicKey)
}

func TestLoadFromFileEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallets.txt")
	require.NoError(t, os.WriteFile(path, []byte("# nothing here\n"), 0o600))

	_, err := LoadFromFile(path)
	assert.Error(t, err)
}

func TestGetATAIsCached(t *testing.T) {
	key, _ := newTestKey(t)
	w, err := New(key)
	require.NoError(t, err)

	mint := solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")

	first, err := w.GetATA(mint)
	require.NoError(t, err)
	second, err := w.GetATA(mint)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	expected, _, err := solana.FindAssociatedTokenAddress(w.PublicKey, mint)
	require.NoError(t, err)
	assert.Equal(t, expected, first)
}
