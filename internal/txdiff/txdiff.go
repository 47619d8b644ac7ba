// =============================
// File: internal/txdiff/txdiff.go
// =============================

// Package txdiff derives economic effects from confirmed transaction
// metadata: per-mint token balance deltas and the native SOL delta for a
// target account. All functions are pure and never mutate their input.
package txdiff

import (
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
)

// Delta holds the pre and post token balance for one mint. A mint observed
// only on one side of the transaction carries a zero-filled counterpart.
type Delta struct {
	Pre  rpc.TokenBalance
	Post rpc.TokenBalance
}

// UIChange returns the post-minus-pre balance change in UI units.
func (d Delta) UIChange() decimal.Decimal {
	return uiAmount(d.Post).Sub(uiAmount(d.Pre))
}

func uiAmount(balance rpc.TokenBalance) decimal.Decimal {
	if balance.UiTokenAmount == nil {
		return decimal.Zero
	}
	amount, err := decimal.NewFromString(balance.UiTokenAmount.Amount)
	if err != nil {
		return decimal.Zero
	}
	return amount.Shift(-int32(balance.UiTokenAmount.Decimals))
}

// zeroBalance builds a zero-amount placeholder sharing the mint, owner and
// decimals of the observed side.
func zeroBalance(observed rpc.TokenBalance) rpc.TokenBalance {
	zero := float64(0)
	var decimals uint8
	if observed.UiTokenAmount != nil {
		decimals = observed.UiTokenAmount.Decimals
	}
	return rpc.TokenBalance{
		AccountIndex: observed.AccountIndex,
		Mint:         observed.Mint,
		Owner:        observed.Owner,
		UiTokenAmount: &rpc.UiTokenAmount{
			Amount:         "0",
			Decimals:       decimals,
			UiAmount:       &zero,
			UiAmountString: "0",
		},
	}
}

// TokenDeltas extracts per-mint balance deltas for the target owner from
// transaction metadata. The result maps the mint's base58 address to its
// pre/post pair; mints present on only one side are zero-filled on the
// missing side.
func TokenDeltas(meta *rpc.TransactionMeta, owner solana.PublicKey) map[string]Delta {
	deltas := make(map[string]Delta)
	if meta == nil {
		return deltas
	}

	pre := make(map[string]rpc.TokenBalance)
	for _, balance := range meta.PreTokenBalances {
		if balance.Owner != nil && balance.Owner.Equals(owner) {
			pre[balance.Mint.String()] = balance
		}
	}

	post := make(map[string]rpc.TokenBalance)
	for _, balance := range meta.PostTokenBalances {
		if balance.Owner != nil && balance.Owner.Equals(owner) {
			post[balance.Mint.String()] = balance
		}
	}

	for mint, balance := range pre {
		d := Delta{Pre: balance}
		if postBalance, ok := post[mint]; ok {
			d.Post = postBalance
		} else {
			d.Post = zeroBalance(balance)
		}
		deltas[mint] = d
	}

	for mint, balance := range post {
		if _, ok := pre[mint]; ok {
			continue
		}
		deltas[mint] = Delta{Pre: zeroBalance(balance), Post: balance}
	}

	return deltas
}

// NativeDelta computes the fee payer's SOL delta in whole SOL, rounded to 6
// fractional digits. It returns nil when either side is absent, e.g. when
// the account was closed or the metadata carries no balances.
func NativeDelta(meta *rpc.TransactionMeta) *decimal.Decimal {
	if meta == nil || len(meta.PreBalances) == 0 || len(meta.PostBalances) == 0 {
		return nil
	}

	pre := meta.PreBalances[0]
	post := meta.PostBalances[0]
	if pre == 0 || post == 0 {
		return nil
	}

	delta := decimal.New(int64(post)-int64(pre), -9).Round(6)
	return &delta
}

// LamportsToSOL converts lamports to whole SOL without loss.
func LamportsToSOL(lamports uint64) decimal.Decimal {
	return decimal.New(int64(lamports), -9)
}
