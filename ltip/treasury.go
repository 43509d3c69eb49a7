package ltip

import (
	"math/big"
	"sync"
)

// Treasury holds the single pooled spare_balance counter from §3/§4.4.
type Treasury struct {
	mu    sync.Mutex
	spare *big.Int
}

// NewTreasury constructs a treasury with a zero spare balance.
func NewTreasury() *Treasury {
	return &Treasury{spare: big.NewInt(0)}
}

// Balance returns a copy of the current spare balance.
func (t *Treasury) Balance() *big.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return new(big.Int).Set(t.spare)
}

// TopUp increases spare_balance by amount. The FT receive hook's top-up
// path calls it directly; Credit reuses it.
func (t *Treasury) TopUp(amount *big.Int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.spare.Add(t.spare, amount)
}

// Credit increases spare_balance by amount — the buy-payout and
// terminate-clawback path.
func (t *Treasury) Credit(amount *big.Int) {
	t.TopUp(amount)
}

// Reserve attempts to decrease spare_balance by amount, failing with
// InsufficientSpareBalance and making no change if amount exceeds the
// current balance. Used by issue.
func (t *Treasury) Reserve(amount *big.Int) *Error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if amount.Cmp(t.spare) > 0 {
		return ErrInsufficientSpare(amount.String(), t.spare.String())
	}
	t.spare.Sub(t.spare, amount)
	return nil
}

// Snapshot captures the current balance for a prepare/rollback pair.
func (t *Treasury) Snapshot() *big.Int {
	return t.Balance()
}

// Restore reverts to a previously captured snapshot.
func (t *Treasury) Restore(snapshot *big.Int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.spare = new(big.Int).Set(snapshot)
}
