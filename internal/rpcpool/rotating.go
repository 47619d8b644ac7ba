// =============================
// File: internal/rpcpool/rotating.go
// =============================
package rpcpool

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
)

// The methods below give the pool the same call surface as a single Client,
// with every call rotated onto the next healthy node and failed over via
// ExecuteWithRetry. Components take the pool itself instead of pinning one
// endpoint at construction.

// GetNativeBalance returns the wallet's SOL balance in lamports.
func (p *Pool) GetNativeBalance(ctx context.Context, addr solana.PublicKey) (uint64, error) {
	var out uint64
	err := p.ExecuteWithRetry(ctx, func(c *Client) error {
		balance, err := c.GetNativeBalance(ctx, addr)
		if err != nil {
			return err
		}
		out = balance
		return nil
	})
	return out, err
}

// GetTokenAccountsByOwner enumerates all SPL token accounts owned by the wallet.
func (p *Pool) GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey) ([]TokenAccount, error) {
	var out []TokenAccount
	err := p.ExecuteWithRetry(ctx, func(c *Client) error {
		accounts, err := c.GetTokenAccountsByOwner(ctx, owner)
		if err != nil {
			return err
		}
		out = accounts
		return nil
	})
	return out, err
}

// GetAccountInfo fetches raw account data. A not-found result is passed
// through without penalizing the node; missing accounts are a caller-level
// outcome, not an endpoint failure.
func (p *Pool) GetAccountInfo(ctx context.Context, addr solana.PublicKey) (*solanarpc.GetAccountInfoResult, error) {
	var out *solanarpc.GetAccountInfoResult
	var notFound error
	err := p.ExecuteWithRetry(ctx, func(c *Client) error {
		info, err := c.GetAccountInfo(ctx, addr)
		if errors.Is(err, solanarpc.ErrNotFound) {
			notFound = err
			return nil
		}
		if err != nil {
			return err
		}
		out = info
		return nil
	})
	if err != nil {
		return nil, err
	}
	if notFound != nil {
		return nil, notFound
	}
	return out, nil
}

// GetProgramAccounts queries accounts owned by a program, with filters.
func (p *Pool) GetProgramAccounts(ctx context.Context, program solana.PublicKey, filters []solanarpc.RPCFilter) (solanarpc.GetProgramAccountsResult, error) {
	var out solanarpc.GetProgramAccountsResult
	err := p.ExecuteWithRetry(ctx, func(c *Client) error {
		accounts, err := c.GetProgramAccounts(ctx, program, filters)
		if err != nil {
			return err
		}
		out = accounts
		return nil
	})
	return out, err
}

// GetLatestBlockhash returns the most recent blockhash at processed commitment.
func (p *Pool) GetLatestBlockhash(ctx context.Context) (solana.Hash, error) {
	var out solana.Hash
	err := p.ExecuteWithRetry(ctx, func(c *Client) error {
		hash, err := c.GetLatestBlockhash(ctx)
		if err != nil {
			return err
		}
		out = hash
		return nil
	})
	return out, err
}

// SendTransaction submits a signed transaction. Resubmitting the same
// signed transaction to another node is idempotent, so failover is safe.
func (p *Pool) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	var out solana.Signature
	err := p.ExecuteWithRetry(ctx, func(c *Client) error {
		sig, err := c.SendTransaction(ctx, tx)
		if err != nil {
			return err
		}
		out = sig
		return nil
	})
	return out, err
}

// ConfirmTransaction polls one node until the signature confirms or the
// context expires. Confirmation errors describe the transaction, not the
// node, so no health marking happens here.
func (p *Pool) ConfirmTransaction(ctx context.Context, sig solana.Signature) error {
	return p.Next().ConfirmTransaction(ctx, sig)
}

// GetParsedTransaction fetches a confirmed transaction with its metadata.
func (p *Pool) GetParsedTransaction(ctx context.Context, sig solana.Signature) (*solanarpc.GetTransactionResult, error) {
	var out *solanarpc.GetTransactionResult
	err := p.ExecuteWithRetry(ctx, func(c *Client) error {
		result, err := c.GetParsedTransaction(ctx, sig)
		if err != nil {
			return err
		}
		out = result
		return nil
	})
	return out, err
}
