package ltip

import "math/big"

// Grant is one beneficiary's vesting allocation, keyed by (AccountID,
// IssuedAt) per §3/§4.3. Mutable fields are held as *big.Int so the
// engine never drifts or overflows on amounts near the token's natural
// ceiling; every mutator replaces these pointers rather than mutating the
// big.Int in place, so a Snapshot taken before a mutation stays valid
// after it (no shared backing state between the two).
type Grant struct {
	AccountID string
	IssuedAt  uint64

	// Copied from Config at issuance so a grant's schedule is fixed even
	// if a future Config were ever allowed to change (it is not, today,
	// but the grant should not silently re-derive from a mutable config).
	CliffDuration   uint64
	VestingDuration uint64

	TotalAmount   *big.Int
	ClaimedAmount *big.Int
	OrderAmount   *big.Int

	// Set exactly once by Terminate. nil means still active.
	TerminatedAt *uint64
}

// NewGrant constructs a freshly issued grant: total = amount, claimed =
// order = 0, not terminated.
func NewGrant(accountID string, issuedAt uint64, cfg Config, amount *big.Int) *Grant {
	return &Grant{
		AccountID:       accountID,
		IssuedAt:        issuedAt,
		CliffDuration:   cfg.CliffDuration,
		VestingDuration: cfg.VestingDuration,
		TotalAmount:     new(big.Int).Set(amount),
		ClaimedAmount:   big.NewInt(0),
		OrderAmount:     big.NewInt(0),
	}
}

// CliffEndAt and VestingEndAt are the derived timestamps from §3.
func (g *Grant) CliffEndAt() uint64   { return g.IssuedAt + g.CliffDuration }
func (g *Grant) VestingEndAt() uint64 { return g.IssuedAt + g.VestingDuration }

// IsTerminated reports whether Terminate has already run on this grant.
func (g *Grant) IsTerminated() bool { return g.TerminatedAt != nil }

// effectiveTime is terminated_at if set, else the supplied clock reading.
func (g *Grant) effectiveTime(now uint64) uint64 {
	if g.TerminatedAt != nil {
		return *g.TerminatedAt
	}
	return now
}

// VestedAmount is the read-only derived quantity from §3.
func (g *Grant) VestedAmount(now uint64) *big.Int {
	return vestedAmount(g.TotalAmount, g.IssuedAt, g.CliffDuration, g.VestingDuration, g.effectiveTime(now))
}

// NotVestedAmount is total_amount - vested_amount.
func (g *Grant) NotVestedAmount(now uint64) *big.Int {
	return new(big.Int).Sub(g.TotalAmount, g.VestedAmount(now))
}

// ClaimableAmount is vested - claimed - order, clamped at zero.
func (g *Grant) ClaimableAmount(now uint64) *big.Int {
	return claimableAmount(g.VestedAmount(now), g.ClaimedAmount, g.OrderAmount)
}

// GrantSnapshot is a point-in-time copy of a Grant's mutable fields, used
// by the dispatcher to prepare-then-rollback across an in-flight FT
// transfer (§4.5). It is a plain value so holding one never aliases the
// grant's live big.Int pointers.
type GrantSnapshot struct {
	TotalAmount   *big.Int
	ClaimedAmount *big.Int
	OrderAmount   *big.Int
	TerminatedAt  *uint64
}

// Snapshot captures the grant's current mutable state.
func (g *Grant) Snapshot() GrantSnapshot {
	var terminatedAt *uint64
	if g.TerminatedAt != nil {
		t := *g.TerminatedAt
		terminatedAt = &t
	}
	return GrantSnapshot{
		TotalAmount:   new(big.Int).Set(g.TotalAmount),
		ClaimedAmount: new(big.Int).Set(g.ClaimedAmount),
		OrderAmount:   new(big.Int).Set(g.OrderAmount),
		TerminatedAt:  terminatedAt,
	}
}

// Restore reverts the grant to a previously captured snapshot. Used on
// transfer failure to undo a tentatively-applied buy.
func (g *Grant) Restore(s GrantSnapshot) {
	g.TotalAmount = s.TotalAmount
	g.ClaimedAmount = s.ClaimedAmount
	g.OrderAmount = s.OrderAmount
	g.TerminatedAt = s.TerminatedAt
}

// Claim crystallizes the currently-claimable vested amount into the
// order. No-op (not an error) if nothing is claimable. Returns the amount
// newly added to OrderAmount.
func (g *Grant) Claim(now uint64) *big.Int {
	claimable := g.ClaimableAmount(now)
	if claimable.Sign() == 0 {
		return big.NewInt(0)
	}
	g.OrderAmount = new(big.Int).Add(g.OrderAmount, claimable)
	return claimable
}

// Buy pays percentageBps basis points of the current order out of
// treasury: order shrinks, claimed grows by the same payout. No-op if the
// order is empty or the computed payout is zero. Returns the payout so
// the caller (the dispatcher) can credit treasury and schedule the FT
// transfer.
func (g *Grant) Buy(percentageBps uint16) *big.Int {
	if g.OrderAmount.Sign() == 0 {
		return big.NewInt(0)
	}
	payout := payoutFromPercentage(g.OrderAmount, percentageBps)
	if payout.Sign() == 0 {
		return big.NewInt(0)
	}
	g.OrderAmount = new(big.Int).Sub(g.OrderAmount, payout)
	g.ClaimedAmount = new(big.Int).Add(g.ClaimedAmount, payout)
	return payout
}

// Authorize releases percentageBps basis points of the current order
// directly, without touching treasury: same order/claimed bookkeeping as
// Buy, but the caller must not credit spare_balance. Returns the payout.
func (g *Grant) Authorize(percentageBps uint16) *big.Int {
	return g.Buy(percentageBps)
}

// Terminate caps the grant's total_amount to its vested value at ts and
// returns the amount clawed back to treasury. ts may be before, at, or
// after the current clock and any prior operation.
func (g *Grant) Terminate(ts uint64) (released *big.Int, err *Error) {
	if g.IsTerminated() {
		return nil, ErrTerminated(g.AccountID, g.IssuedAt)
	}

	newTotal := vestedAmount(g.TotalAmount, g.IssuedAt, g.CliffDuration, g.VestingDuration, ts)

	// The contract refuses to retroactively revoke already-paid tokens.
	if newTotal.Cmp(g.ClaimedAmount) < 0 {
		newTotal = new(big.Int).Set(g.ClaimedAmount)
	}

	released = new(big.Int).Sub(g.TotalAmount, newTotal)
	g.TotalAmount = newTotal

	maxOrder := new(big.Int).Sub(newTotal, g.ClaimedAmount)
	if g.OrderAmount.Cmp(maxOrder) > 0 {
		g.OrderAmount = new(big.Int).Set(maxOrder)
	}

	tsCopy := ts
	g.TerminatedAt = &tsCopy
	return released, nil
}
