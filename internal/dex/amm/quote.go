// =============================
// File: internal/dex/amm/quote.go
// =============================
package amm

import (
	"fmt"
	"math/big"
)

const bpsDenominator = 10_000

// calculateOutput prices an input amount against the pool reserves using
// the constant-product formula with the fee taken from the input:
//
//	out = y * a' / (x + a'),  a' = a * (10000 - feeBps) / 10000
//
// where x is the input-side reserve and y the output-side reserve.
func calculateOutput(inputReserves, outputReserves, amount, feeBps uint64) (uint64, error) {
	if inputReserves == 0 || outputReserves == 0 {
		return 0, fmt.Errorf("pool has empty reserves")
	}
	if feeBps >= bpsDenominator {
		return 0, fmt.Errorf("fee %d bps out of range", feeBps)
	}

	x := new(big.Int).SetUint64(inputReserves)
	y := new(big.Int).SetUint64(outputReserves)

	effIn := new(big.Int).SetUint64(amount)
	effIn.Mul(effIn, big.NewInt(int64(bpsDenominator-feeBps)))
	effIn.Div(effIn, big.NewInt(bpsDenominator))

	numerator := new(big.Int).Mul(y, effIn)
	denominator := new(big.Int).Add(x, effIn)
	out := numerator.Div(numerator, denominator)
	return out.Uint64(), nil
}

// buyOutput prices a quote-token input into base tokens.
func buyOutput(pool *PoolInfo, quoteIn uint64) (uint64, error) {
	return calculateOutput(pool.QuoteReserves, pool.BaseReserves, quoteIn, pool.FeeBps)
}

// sellOutput prices a base-token input into quote tokens.
func sellOutput(pool *PoolInfo, baseIn uint64) (uint64, error) {
	return calculateOutput(pool.BaseReserves, pool.QuoteReserves, baseIn, pool.FeeBps)
}
