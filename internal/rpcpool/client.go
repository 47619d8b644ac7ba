// =============================
// File: internal/rpcpool/client.go
// =============================
package rpcpool

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
)

// Client wraps a single RPC node together with its health state.
type Client struct {
	rpc *solanarpc.Client
	url string

	mu     sync.RWMutex
	active bool
	downAt time.Time
}

// NewClient creates a client for one RPC endpoint.
func NewClient(url string) *Client {
	return &Client{
		rpc:    solanarpc.New(url),
		url:    url,
		active: true,
	}
}

// URL returns the endpoint this client talks to.
func (c *Client) URL() string { return c.url }

// IsActive reports whether the node is currently considered healthy.
func (c *Client) IsActive() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

// SetActive marks the node healthy or unhealthy.
func (c *Client) SetActive(state bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = state
	if !state {
		c.downAt = time.Now()
	}
}

// DownSince returns when the node was last marked unhealthy.
func (c *Client) DownSince() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.downAt
}

// TokenAccount is one SPL token account owned by a wallet, as returned by the
// jsonParsed encoding.
type TokenAccount struct {
	Address  solana.PublicKey
	Mint     solana.PublicKey
	Amount   uint64
	UIAmount float64
	Decimals uint8
}

// GetNativeBalance returns the wallet's SOL balance in lamports.
func (c *Client) GetNativeBalance(ctx context.Context, addr solana.PublicKey) (uint64, error) {
	out, err := c.rpc.GetBalance(ctx, addr, solanarpc.CommitmentProcessed)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance for %s: %w", addr.String(), err)
	}
	return out.Value, nil
}

// parsedTokenAccount mirrors the jsonParsed layout of an SPL token account.
type parsedTokenAccount struct {
	Parsed struct {
		Info struct {
			Mint        string `json:"mint"`
			TokenAmount struct {
				Amount   string  `json:"amount"`
				Decimals uint8   `json:"decimals"`
				UIAmount float64 `json:"uiAmount"`
			} `json:"tokenAmount"`
		} `json:"info"`
	} `json:"parsed"`
}

// GetTokenAccountsByOwner enumerates all SPL token accounts owned by the wallet.
func (c *Client) GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey) ([]TokenAccount, error) {
	tokenProgram := solana.TokenProgramID
	out, err := c.rpc.GetTokenAccountsByOwner(
		ctx,
		owner,
		&solanarpc.GetTokenAccountsConfig{ProgramId: &tokenProgram},
		&solanarpc.GetTokenAccountsOpts{Encoding: solana.EncodingJSONParsed},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get token accounts for %s: %w", owner.String(), err)
	}

	accounts := make([]TokenAccount, 0, len(out.Value))
	for _, item := range out.Value {
		raw := item.Account.Data.GetRawJSON()
		var parsed parsedTokenAccount
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return nil, fmt.Errorf("failed to parse token account %s: %w", item.Pubkey.String(), err)
		}

		mint, err := solana.PublicKeyFromBase58(parsed.Parsed.Info.Mint)
		if err != nil {
			return nil, fmt.Errorf("invalid mint in token account %s: %w", item.Pubkey.String(), err)
		}

		amount, err := strconv.ParseUint(parsed.Parsed.Info.TokenAmount.Amount, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid amount in token account %s: %w", item.Pubkey.String(), err)
		}

		accounts = append(accounts, TokenAccount{
			Address:  item.Pubkey,
			Mint:     mint,
			Amount:   amount,
			UIAmount: parsed.Parsed.Info.TokenAmount.UIAmount,
			Decimals: parsed.Parsed.Info.TokenAmount.Decimals,
		})
	}
	return accounts, nil
}

// GetAccountInfo fetches raw account data.
func (c *Client) GetAccountInfo(ctx context.Context, addr solana.PublicKey) (*solanarpc.GetAccountInfoResult, error) {
	return c.rpc.GetAccountInfo(ctx, addr)
}

// GetProgramAccounts queries accounts owned by a program, with filters.
func (c *Client) GetProgramAccounts(ctx context.Context, program solana.PublicKey, filters []solanarpc.RPCFilter) (solanarpc.GetProgramAccountsResult, error) {
	return c.rpc.GetProgramAccountsWithOpts(ctx, program, &solanarpc.GetProgramAccountsOpts{
		Filters: filters,
	})
}

// GetLatestBlockhash returns the most recent blockhash at processed commitment.
func (c *Client) GetLatestBlockhash(ctx context.Context) (solana.Hash, error) {
	out, err := c.rpc.GetLatestBlockhash(ctx, solanarpc.CommitmentProcessed)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("failed to get latest blockhash: %w", err)
	}
	return out.Value.Blockhash, nil
}

// SendTransaction submits a signed transaction and returns its signature.
func (c *Client) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	return c.rpc.SendTransactionWithOpts(ctx, tx, solanarpc.TransactionOpts{
		SkipPreflight: true,
	})
}

// ConfirmTransaction polls signature statuses until the signature reaches
// confirmed commitment or the context expires.
func (c *Client) ConfirmTransaction(ctx context.Context, sig solana.Signature) error {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			out, err := c.rpc.GetSignatureStatuses(ctx, true, sig)
			if err != nil {
				return fmt.Errorf("failed to get signature status: %w", err)
			}
			if len(out.Value) == 0 || out.Value[0] == nil {
				continue
			}
			status := out.Value[0]
			if status.Err != nil {
				return fmt.Errorf("transaction %s failed on chain: %v", sig.String(), status.Err)
			}
			switch status.ConfirmationStatus {
			case solanarpc.ConfirmationStatusConfirmed, solanarpc.ConfirmationStatusFinalized:
				return nil
			}
		}
	}
}

// GetParsedTransaction fetches a confirmed transaction with its metadata.
func (c *Client) GetParsedTransaction(ctx context.Context, sig solana.Signature) (*solanarpc.GetTransactionResult, error) {
	maxVersion := uint64(0)
	return c.rpc.GetTransaction(ctx, sig, &solanarpc.GetTransactionOpts{
		Commitment:                     solanarpc.CommitmentConfirmed,
		MaxSupportedTransactionVersion: &maxVersion,
	})
}
