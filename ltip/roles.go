package ltip

import "sync"

// Role names spec'd in §6. Owner is not stored here: it lives on Config
// and is checked directly against Config.OwnerID.
type Role string

const (
	RoleIssuer   Role = "issuer"
	RoleExecutor Role = "executor"
)

// roleEntry is the per-membership record, modeled on the teacher's
// AccessControlEntry (dao.SecurityManager): who granted it and when.
// The engine has no role expiry, unlike the teacher's ExpiresAt, since
// spec names no such mechanism.
type roleEntry struct {
	AccountID string
	GrantedBy string
	GrantedAt int64
}

// RoleStore tracks issuer/executor membership. The dispatcher takes no
// lock of its own around role checks and changes (its locks are
// per-account), so the store takes its own lock.
type RoleStore struct {
	mu      sync.RWMutex
	members map[Role]map[string]*roleEntry
}

// NewRoleStore constructs an empty role store.
func NewRoleStore() *RoleStore {
	return &RoleStore{
		members: map[Role]map[string]*roleEntry{
			RoleIssuer:   make(map[string]*roleEntry),
			RoleExecutor: make(map[string]*roleEntry),
		},
	}
}

// Grant adds accountID to role, recording who granted it and when.
// Idempotent: granting an already-held role just refreshes the record.
func (s *RoleStore) Grant(role Role, accountID, grantedBy string, now int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket, ok := s.members[role]
	if !ok {
		bucket = make(map[string]*roleEntry)
		s.members[role] = bucket
	}
	bucket[accountID] = &roleEntry{AccountID: accountID, GrantedBy: grantedBy, GrantedAt: now}
}

// Revoke removes accountID from role. No-op if the account did not hold it.
func (s *RoleStore) Revoke(role Role, accountID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if bucket, ok := s.members[role]; ok {
		delete(bucket, accountID)
	}
}

// Has reports whether accountID currently holds role.
func (s *RoleStore) Has(role Role, accountID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bucket, ok := s.members[role]
	if !ok {
		return false
	}
	_, held := bucket[accountID]
	return held
}

// Members returns the account IDs currently holding role, in no
// particular order (the spec's `members(role) -> [account_id]` view does
// not require a stable ordering).
func (s *RoleStore) Members(role Role) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bucket := s.members[role]
	out := make([]string, 0, len(bucket))
	for id := range bucket {
		out = append(out, id)
	}
	return out
}
