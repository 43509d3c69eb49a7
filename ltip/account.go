package ltip

import "sync"

// Account is one beneficiary's ordered set of grants, keyed by the unique
// (per-account) IssuedAt. Iteration order is insertion order, matching
// §4.3's "stable iteration order" requirement.
//
// mu serializes mutating operations against this account's grants. Per §5,
// the host processes one invocation at a time but lets other invocations
// run while a given call is suspended awaiting an FT transfer callback;
// mu's granularity is per-account (not a single engine-wide lock) so two
// operations on unrelated accounts never block each other, while two
// operations racing on the same account's grants — including two halves
// of a prepare/rollback pair — serialize correctly.
type Account struct {
	ID     string
	mu     sync.Mutex
	order  []uint64
	grants map[uint64]*Grant
}

// Lock and Unlock expose the account's mutation lock to the dispatcher.
func (a *Account) Lock()   { a.mu.Lock() }
func (a *Account) Unlock() { a.mu.Unlock() }

// Grants returns the account's grants in insertion order. The returned
// slice aliases no internal state beyond the *Grant pointers themselves
// (which callers are expected to mutate only through the dispatcher).
func (a *Account) Grants() []*Grant {
	out := make([]*Grant, 0, len(a.order))
	for _, issuedAt := range a.order {
		out = append(out, a.grants[issuedAt])
	}
	return out
}

// Grant looks up a single grant by its issuance timestamp.
func (a *Account) Grant(issuedAt uint64) (*Grant, bool) {
	g, ok := a.grants[issuedAt]
	return g, ok
}

// Registry is the C3 mapping from account identity to Account. An account
// with no grants is simply absent, per §3.
type Registry struct {
	mu       sync.RWMutex
	accounts map[string]*Account
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{accounts: make(map[string]*Account)}
}

// Get returns the account, or (nil, false) if it has never received a grant.
func (r *Registry) Get(accountID string) (*Account, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[accountID]
	return a, ok
}

// Upsert inserts grant into accountID's grant set. Fails with
// GrantAlreadyExistsOnDate if the account already has a grant at
// grant.IssuedAt; the existing grant is left untouched.
func (r *Registry) Upsert(accountID string, grant *Grant) *Error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[accountID]
	if !ok {
		a = &Account{ID: accountID, grants: make(map[uint64]*Grant)}
		r.accounts[accountID] = a
	}
	if _, exists := a.grants[grant.IssuedAt]; exists {
		return ErrGrantExists(accountID, grant.IssuedAt)
	}
	a.grants[grant.IssuedAt] = grant
	a.order = append(a.order, grant.IssuedAt)
	return nil
}

// GetGrantMut returns the mutable grant for (accountID, issuedAt), if any.
// Callers invoke this after the dispatcher has already authorized the
// caller for the operation about to be applied.
func (r *Registry) GetGrantMut(accountID string, issuedAt uint64) (*Grant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[accountID]
	if !ok {
		return nil, false
	}
	return a.Grant(issuedAt)
}

// AccountIDs returns every account ID that currently has at least one
// grant, in no particular order, for callers that need to scan the whole
// registry.
func (r *Registry) AccountIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.accounts))
	for id := range r.accounts {
		out = append(out, id)
	}
	return out
}
