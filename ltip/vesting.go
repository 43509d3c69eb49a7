package ltip

import "math/big"

// vestedRaw computes the vested portion of totalAmount at time t: zero
// until the cliff ends at issuedAt+cliffDuration, then growing linearly by
// totalAmount/vestingDuration per second, and all of totalAmount from
// issuedAt+vestingDuration on. Pure, total, integer-only.
//
// The ramp itself starts counting from cliffEnd, not issuedAt: nothing is
// vested the instant the cliff passes, and the reference scenarios' "1000
// seconds after cliff end -> 1000 tokens" reading only holds if elapsed
// time is measured from cliffEnd.
func vestedRaw(totalAmount *big.Int, issuedAt, cliffDuration, vestingDuration, t uint64) *big.Int {
	if totalAmount.Sign() <= 0 {
		return big.NewInt(0)
	}
	cliffEnd := issuedAt + cliffDuration
	vestingEnd := issuedAt + vestingDuration

	if t < issuedAt || t < cliffEnd {
		return big.NewInt(0)
	}
	if t >= vestingEnd {
		return new(big.Int).Set(totalAmount)
	}

	elapsed := new(big.Int).SetUint64(t - cliffEnd)
	// Multiply in a domain wider than either operand before dividing, so
	// total*elapsed cannot overflow even near the token's 128-bit ceiling.
	num := new(big.Int).Mul(totalAmount, elapsed)
	den := new(big.Int).SetUint64(vestingDuration)
	return num.Quo(num, den)
}

// vestedAmount clamps vestedRaw to totalAmount, which is redundant given
// vestedRaw's own clamp at vestingEnd but kept as the named read-only
// quantity spec'd in §3, and as a defensive clamp for callers that recompute
// totalAmount mid-expression.
func vestedAmount(totalAmount *big.Int, issuedAt, cliffDuration, vestingDuration, effectiveT uint64) *big.Int {
	v := vestedRaw(totalAmount, issuedAt, cliffDuration, vestingDuration, effectiveT)
	if v.Cmp(totalAmount) > 0 {
		return new(big.Int).Set(totalAmount)
	}
	return v
}

// claimableAmount is vested - claimed - order, clamped at zero.
func claimableAmount(vested, claimed, order *big.Int) *big.Int {
	c := new(big.Int).Sub(vested, claimed)
	c.Sub(c, order)
	if c.Sign() < 0 {
		return big.NewInt(0)
	}
	return c
}

// payoutFromPercentage computes floor(amount * percentageBps / 10000), the
// shared arithmetic behind both buy and authorize.
func payoutFromPercentage(amount *big.Int, percentageBps uint16) *big.Int {
	p := new(big.Int).Mul(amount, big.NewInt(int64(percentageBps)))
	return p.Quo(p, big.NewInt(10000))
}
