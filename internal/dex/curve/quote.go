// =============================
// File: internal/dex/curve/quote.go
// =============================
package curve

import (
	"fmt"
	"math/big"
)

const bpsDenominator = 10_000

// buyPrice converts a SOL input into tokens using the virtual reserves:
//
//	out = vToken - k / (vSol + solIn),  k = vSol * vToken
//
// capped at the real token reserves still held by the curve.
func buyPrice(bc *BondingCurve, solIn uint64) (uint64, error) {
	if bc.VirtualSolReserves == 0 || bc.VirtualTokenReserves == 0 {
		return 0, fmt.Errorf("curve has zero virtual reserves")
	}

	vSol := new(big.Int).SetUint64(bc.VirtualSolReserves)
	vToken := new(big.Int).SetUint64(bc.VirtualTokenReserves)

	k := new(big.Int).Mul(vSol, vToken)
	newSol := new(big.Int).Add(vSol, new(big.Int).SetUint64(solIn))

	newToken := k.Div(k, newSol)
	newToken.Add(newToken, big.NewInt(1))

	out := new(big.Int).Sub(vToken, newToken)
	if out.Sign() < 0 {
		return 0, nil
	}

	tokensOut := out.Uint64()
	if tokensOut > bc.RealTokenReserves {
		tokensOut = bc.RealTokenReserves
	}
	return tokensOut, nil
}

// sellPrice converts a token input into SOL using the virtual reserves,
// with the protocol fee deducted from the proceeds:
//
//	out = (tokensIn * vSol / (vToken + tokensIn)) * (10000 - feeBps) / 10000
func sellPrice(bc *BondingCurve, tokensIn, feeBps uint64) (uint64, error) {
	if bc.VirtualSolReserves == 0 || bc.VirtualTokenReserves == 0 {
		return 0, fmt.Errorf("curve has zero virtual reserves")
	}
	if feeBps >= bpsDenominator {
		return 0, fmt.Errorf("fee %d bps out of range", feeBps)
	}

	vSol := new(big.Int).SetUint64(bc.VirtualSolReserves)
	vToken := new(big.Int).SetUint64(bc.VirtualTokenReserves)
	in := new(big.Int).SetUint64(tokensIn)

	numerator := new(big.Int).Mul(in, vSol)
	denominator := new(big.Int).Add(vToken, in)
	gross := numerator.Div(numerator, denominator)

	fee := new(big.Int).Mul(gross, big.NewInt(int64(feeBps)))
	fee.Div(fee, big.NewInt(bpsDenominator))

	net := gross.Sub(gross, fee)
	return net.Uint64(), nil
}
