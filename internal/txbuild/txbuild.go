// =============================
// File: internal/txbuild/txbuild.go
// =============================

// Package txbuild turns instruction lists into signed transactions and
// into the base64 payloads the bundle relay accepts.
package txbuild

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-execkit/internal/wallet"
)

// Chain is the ledger surface needed to assemble and follow transactions.
type Chain interface {
	GetLatestBlockhash(ctx context.Context) (solana.Hash, error)
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	ConfirmTransaction(ctx context.Context, sig solana.Signature) error
	GetParsedTransaction(ctx context.Context, sig solana.Signature) (*solanarpc.GetTransactionResult, error)
}

// Builder assembles, signs and submits transactions.
type Builder struct {
	chain  Chain
	logger *zap.Logger
}

// NewBuilder creates a builder over the chain client.
func NewBuilder(chain Chain, logger *zap.Logger) *Builder {
	return &Builder{chain: chain, logger: logger.Named("txbuild")}
}

// Build assembles a signed transaction from the instructions, using a
// fresh blockhash and the payer as fee payer.
func (b *Builder) Build(ctx context.Context, instructions []solana.Instruction, payer *wallet.Wallet) (*solana.Transaction, error) {
	if len(instructions) == 0 {
		return nil, fmt.Errorf("no instructions to build")
	}

	blockhash, err := b.chain.GetLatestBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(
		instructions,
		blockhash,
		solana.TransactionPayer(payer.PublicKey),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	if err := payer.SignTransaction(tx); err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return tx, nil
}

// EncodeBase64 serializes a signed transaction into the wire form the
// bundle relay accepts.
func EncodeBase64(tx *solana.Transaction) (string, error) {
	data, err := tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("failed to serialize transaction: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// SendAndConfirm submits the transaction directly (not through the bundle
// relay), waits for confirmation, and fetches the confirmed transaction
// with its metadata.
func (b *Builder) SendAndConfirm(ctx context.Context, tx *solana.Transaction) (*solanarpc.GetTransactionResult, error) {
	sig, err := b.chain.SendTransaction(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("failed to send transaction: %w", err)
	}

	b.logger.Debug("transaction sent", zap.String("signature", sig.String()))

	if err := b.chain.ConfirmTransaction(ctx, sig); err != nil {
		return nil, fmt.Errorf("transaction %s not confirmed: %w", sig.String(), err)
	}

	result, err := b.chain.GetParsedTransaction(ctx, sig)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch confirmed transaction %s: %w", sig.String(), err)
	}
	return result, nil
}
