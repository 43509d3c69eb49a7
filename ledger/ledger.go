// Package ledger provides an in-memory stand-in for the fungible-token
// collaborator the ltip engine depends on (§1/§6 of the spec name the FT
// transfer protocol itself as out of scope). It is the LTIP analogue of
// the teacher's dao.GovernanceToken reduced to a map of balances with
// transfer only, and it is the FT collaborator cmd/ltip-server always
// wires in, in place of a real cross-contract call.
package ledger

import (
	"math/big"
	"sync"

	"github.com/sweat-foundation/ltip-engine/ltip"
)

// SimFT is a synchronous, in-process FungibleToken. Transfer always
// succeeds unless the caller has pre-registered a failure for a
// particular recipient via FailNext, which lets tests exercise the
// dispatcher's rollback path deterministically.
type SimFT struct {
	mu       sync.Mutex
	balances map[string]*big.Int
	failNext map[string]int
}

// NewSimFT constructs an empty ledger. The engine's own contract account
// is not modeled here: this ledger only tracks where outbound transfers
// land, mirroring what a test double for the FT collaborator needs and
// nothing more.
func NewSimFT() *SimFT {
	return &SimFT{
		balances: make(map[string]*big.Int),
		failNext: make(map[string]int),
	}
}

// FailNext arranges for the next n Transfer calls to accountID to fail,
// so tests can exercise rollback.
func (s *SimFT) FailNext(accountID string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext[accountID] = n
}

// BalanceOf returns accountID's simulated balance.
func (s *SimFT) BalanceOf(accountID string) *big.Int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.balances[accountID]; ok {
		return new(big.Int).Set(b)
	}
	return big.NewInt(0)
}

// Transfer implements ltip.FungibleToken.
func (s *SimFT) Transfer(to string, amount *big.Int) ltip.TransferHandle {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n := s.failNext[to]; n > 0 {
		s.failNext[to] = n - 1
		return simHandle{ok: false}
	}

	cur, ok := s.balances[to]
	if !ok {
		cur = big.NewInt(0)
	}
	s.balances[to] = new(big.Int).Add(cur, amount)
	return simHandle{ok: true}
}

// simHandle resolves immediately: SimFT has no real asynchrony to model.
type simHandle struct{ ok bool }

func (h simHandle) Await() bool { return h.ok }
