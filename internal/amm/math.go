// Package amm implements constant-product liquidity pools.
package amm

import (
	"math"

	"github.com/shopspring/decimal"
)

const amountScale = 8

var (
	one     = decimal.NewFromInt(1)
	two     = decimal.NewFromInt(2)
	hundred = decimal.NewFromInt(100)
)

// SwapQuote is the pure outcome of a constant-product swap against the
// given reserves. Output and fee are truncated to 8 decimal places so the
// pool never pays out more than the exact formula allows.
type SwapQuote struct {
	Output      decimal.Decimal
	Fee         decimal.Decimal
	PriceImpact decimal.Decimal
}

// swapOutput prices an input of `in` against reserves (rin, rout) with the
// pool's fee taken from the input side:
//
//	out = rout - (rin * rout) / (rin + in*(1-fee))
//
// The fee stays in the input reserve, which is what makes k non-decreasing.
func swapOutput(rin, rout, in, feeRate decimal.Decimal) SwapQuote {
	effectiveIn := in.Mul(one.Sub(feeRate))
	newRin := rin.Add(effectiveIn)
	out := rout.Sub(rin.Mul(rout).Div(newRin)).RoundDown(amountScale)

	spot := rout.Div(rin)
	var impact decimal.Decimal
	if out.Sign() > 0 {
		effective := out.Div(in)
		impact = one.Sub(effective.Div(spot)).Mul(hundred).RoundDown(amountScale)
	}

	return SwapQuote{
		Output:      out,
		Fee:         in.Mul(feeRate).RoundDown(amountScale),
		PriceImpact: impact,
	}
}

// sqrt returns the square root of d by Newton iteration seeded from the
// float64 root. shopspring/decimal has no root primitive; a handful of
// iterations from that seed converge well past 8 decimal places.
func sqrt(d decimal.Decimal) decimal.Decimal {
	if d.Sign() <= 0 {
		return decimal.Zero
	}

	f, _ := d.Float64()
	guess := decimal.NewFromFloat(math.Sqrt(f))
	if guess.Sign() <= 0 {
		guess = one
	}

	prev := decimal.Zero
	for i := 0; i < 20; i++ {
		next := guess.Add(d.DivRound(guess, 16)).Div(two)
		if next.Equal(prev) {
			break
		}
		prev = guess
		guess = next
	}
	return guess
}
