package ltip

import (
	"math/big"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/sweat-foundation/ltip-engine/audit"
)

// Engine is the C5 operation dispatcher: it owns the config, registry,
// treasury, and role store, gates every externally invoked operation on
// role/auth, and applies the prepare/transfer/commit-or-rollback pattern
// from §4.5 around anything that moves tokens out of the contract. It is
// the direct descendant of the teacher's DAOProcessor+DAOValidator pair,
// merged into one component because here validation and mutation share
// the same two-phase discipline end to end.
type Engine struct {
	cfg      Config
	registry *Registry
	treasury *Treasury
	roles    *RoleStore
	ft       FungibleToken
	logger   log.Logger
	anchor   *audit.Anchor
}

// New constructs an Engine. Rejects an invalid Config; grants no roles
// beyond the implicit owner (cfg.OwnerID), matching the constructor
// contract in §6 ("rejects further initialization" — this engine simply
// has no re-init method to call).
func New(cfg Config, ft FungibleToken, logger log.Logger) (*Engine, *Error) {
	if err := cfg.Validate(); err != nil {
		return nil, err.(*Error)
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Engine{
		cfg:      cfg,
		registry: NewRegistry(),
		treasury: NewTreasury(),
		roles:    NewRoleStore(),
		ft:       ft,
		logger:   logger,
	}, nil
}

// SetAnchor attaches an off-chain audit anchor. A nil anchor (the default)
// makes Terminate/TerminateGrant skip anchoring entirely; attaching one
// does not change terminate's own success/failure, since a failed anchor
// write only gets logged (§ "anchoring is observability, not a
// precondition").
func (e *Engine) SetAnchor(a *audit.Anchor) { e.anchor = a }

func (e *Engine) recordTermination(accountID string, g *Grant, ts uint64, priorTotal, released *big.Int, terminatedBy string) {
	if e.anchor == nil {
		return
	}
	hash, err := e.anchor.Record(audit.TerminateRecord{
		AccountID:    accountID,
		IssuedAt:     g.IssuedAt,
		Timestamp:    ts,
		PriorTotal:   priorTotal.String(),
		NewTotal:     g.TotalAmount.String(),
		Released:     released.String(),
		TerminatedBy: terminatedBy,
	})
	if err != nil {
		level.Warn(e.logger).Log("op", "terminate", "account", accountID, "issued_at", g.IssuedAt, "anchor_err", err)
		return
	}
	level.Info(e.logger).Log("op", "terminate", "account", accountID, "issued_at", g.IssuedAt, "anchor_hash", hash)
}

// GrantInput is one (account_id, amount) pair in an issue() call.
type GrantInput struct {
	AccountID string `json:"account_id"`
	Amount    string `json:"amount"`
}

func (e *Engine) isOwner(accountID string) bool { return accountID == e.cfg.OwnerID }

func (e *Engine) requireOwner(callerID string) *Error {
	if !e.isOwner(callerID) {
		return ErrUnauthorized("caller is not the owner")
	}
	return nil
}

func (e *Engine) requireRole(callerID string, role Role) *Error {
	if !e.roles.Has(role, callerID) {
		return ErrUnauthorized("caller lacks the " + string(role) + " role")
	}
	return nil
}

// --- Role management (owner-only), §6 ---

// GrantRole adds accountID to role.
func (e *Engine) GrantRole(callerID, accountID string, role Role, now int64) *Error {
	if err := e.requireOwner(callerID); err != nil {
		return err
	}
	e.roles.Grant(role, accountID, callerID, now)
	level.Info(e.logger).Log("op", "grant_role", "account", accountID, "role", string(role))
	return nil
}

// RevokeRole removes accountID from role.
func (e *Engine) RevokeRole(callerID, accountID string, role Role) *Error {
	if err := e.requireOwner(callerID); err != nil {
		return err
	}
	e.roles.Revoke(role, accountID)
	level.Info(e.logger).Log("op", "revoke_role", "account", accountID, "role", string(role))
	return nil
}

// Members returns the accounts holding role.
func (e *Engine) Members(role Role) []string {
	return e.roles.Members(role)
}

// --- Views, §6 ---

// GetAccount returns the account, or (nil, false) if absent.
func (e *Engine) GetAccount(accountID string) (*Account, bool) {
	return e.registry.Get(accountID)
}

// GetSpareBalance returns the treasury's spare balance as a decimal string.
func (e *Engine) GetSpareBalance() string {
	return e.treasury.Balance().String()
}

// GetConfig returns the engine's immutable configuration.
func (e *Engine) GetConfig() Config {
	return e.cfg
}

// --- issue, §4.4/§6 ---

// Issue creates one grant per entry in grants, all dated issueAt, funded
// from treasury. Fails atomically (no changes at all) if any account
// already has a grant at issueAt, or if the grants' total exceeds the
// current spare balance.
func (e *Engine) Issue(callerID string, issueAt uint64, grants []GrantInput) *Error {
	if err := e.requireRole(callerID, RoleIssuer); err != nil {
		return err
	}

	amounts, sum, err := e.parseAndCheckGrants(issueAt, grants)
	if err != nil {
		return err
	}

	if err := e.treasury.Reserve(sum); err != nil {
		return err
	}

	e.createGrants(issueAt, grants, amounts)
	level.Info(e.logger).Log("op", "issue", "issue_at", issueAt, "count", len(grants), "sum", sum.String())
	return nil
}

// parseAndCheckGrants parses amounts and verifies none of the (account,
// issueAt) pairs already exist and no account appears twice in the batch,
// without mutating anything. Returns the parsed amounts (same order as
// grants) and their sum.
func (e *Engine) parseAndCheckGrants(issueAt uint64, grants []GrantInput) ([]*big.Int, *big.Int, *Error) {
	amounts := make([]*big.Int, len(grants))
	sum := big.NewInt(0)
	seen := make(map[string]bool, len(grants))
	for i, g := range grants {
		amt, err := ParseAmount(g.Amount)
		if err != nil {
			return nil, nil, err
		}
		amounts[i] = amt
		sum.Add(sum, amt)

		if seen[g.AccountID] {
			return nil, nil, ErrGrantExists(g.AccountID, issueAt)
		}
		seen[g.AccountID] = true
		if acct, ok := e.registry.Get(g.AccountID); ok {
			if _, exists := acct.Grant(issueAt); exists {
				return nil, nil, ErrGrantExists(g.AccountID, issueAt)
			}
		}
	}
	return amounts, sum, nil
}

func (e *Engine) createGrants(issueAt uint64, grants []GrantInput, amounts []*big.Int) {
	for i, g := range grants {
		grant := NewGrant(g.AccountID, issueAt, e.cfg, amounts[i])
		// Upsert cannot fail here: parseAndCheckGrants already rejected any
		// (account, issueAt) collision, both against the registry and
		// between entries of this batch.
		_ = e.registry.Upsert(g.AccountID, grant)
	}
}

// --- claim, §4.2/§6 ---

// Claim crystallizes claimable_amount into order_amount for every grant
// belonging to callerID. No-op, not an error, if the account has no
// grants or nothing is currently claimable.
func (e *Engine) Claim(callerID string, now uint64) {
	acct, ok := e.registry.Get(callerID)
	if !ok {
		return
	}
	acct.Lock()
	defer acct.Unlock()
	for _, g := range acct.Grants() {
		if delta := g.Claim(now); delta.Sign() != 0 {
			level.Info(e.logger).Log("op", "claim", "account", callerID, "issued_at", g.IssuedAt, "amount", delta.String())
		}
	}
}

// --- buy / authorize, §4.2/§6 ---

// Buy pays percentageBps basis points of the order out of treasury, for
// every grant of every named account, via a two-phase FT transfer per
// grant. Returns an error only for a role/validation failure in the
// prepare step; a failed FT transfer rolls back its own grant and
// treasury credit without failing the call, per §7.
func (e *Engine) Buy(callerID string, accountIDs []string, percentageBps uint16, now uint64) *Error {
	if err := e.requireRole(callerID, RoleExecutor); err != nil {
		return err
	}
	if percentageBps > 10000 {
		return NewError(ErrMalformedMessage, "percentage must be in [0, 10000]", map[string]interface{}{"percentage": percentageBps})
	}

	for _, accountID := range accountIDs {
		acct, ok := e.registry.Get(accountID)
		if !ok {
			continue
		}
		e.buyAccount(acct, percentageBps)
	}
	return nil
}

func (e *Engine) buyAccount(acct *Account, percentageBps uint16) {
	acct.Lock()
	defer acct.Unlock()

	for _, g := range acct.Grants() {
		grantSnap := g.Snapshot()
		treasurySnap := e.treasury.Snapshot()

		payout := g.Buy(percentageBps)
		if payout.Sign() == 0 {
			continue
		}
		e.treasury.Credit(payout)

		handle := e.ft.Transfer(acct.ID, payout)
		if handle.Await() {
			level.Info(e.logger).Log("op", "buy", "account", acct.ID, "issued_at", g.IssuedAt, "payout", payout.String())
			continue
		}

		// TransferFailed: roll back the tentative prepare.
		g.Restore(grantSnap)
		e.treasury.Restore(treasurySnap)
		level.Warn(e.logger).Log("op", "buy", "account", acct.ID, "issued_at", g.IssuedAt, "rolled_back", true)
	}
}

// Authorize releases percentageBps basis points of the order for every
// grant of every named account without involving treasury. The tokens are
// assumed to reach the beneficiary over a rail outside this engine's
// scope, so — per §4.2 — the update is single-phase: no FT transfer is
// dispatched here and there is nothing to roll back.
func (e *Engine) Authorize(callerID string, accountIDs []string, percentageBps uint16, now uint64) *Error {
	if err := e.requireRole(callerID, RoleExecutor); err != nil {
		return err
	}
	if percentageBps > 10000 {
		return NewError(ErrMalformedMessage, "percentage must be in [0, 10000]", map[string]interface{}{"percentage": percentageBps})
	}

	for _, accountID := range accountIDs {
		acct, ok := e.registry.Get(accountID)
		if !ok {
			continue
		}
		acct.Lock()
		for _, g := range acct.Grants() {
			if payout := g.Authorize(percentageBps); payout.Sign() != 0 {
				level.Info(e.logger).Log("op", "authorize", "account", acct.ID, "issued_at", g.IssuedAt, "payout", payout.String())
			}
		}
		acct.Unlock()
	}
	return nil
}

// --- terminate, §4.2/§6 ---

// Terminate ends every grant belonging to accountID at timestamp ts. The
// reference scenarios all use one grant per account, in which case this
// has exactly the single-grant semantics of §4.2/§8; with multiple grants
// on one account, each is terminated independently and the first error
// encountered (e.g. AlreadyTerminated on a grant terminated earlier) is
// returned after every other grant has still been attempted, so one
// already-terminated grant never blocks terminating the rest.
func (e *Engine) Terminate(callerID, accountID string, ts uint64) *Error {
	if err := e.requireRole(callerID, RoleExecutor); err != nil {
		return err
	}
	acct, ok := e.registry.Get(accountID)
	if !ok {
		return nil
	}

	acct.Lock()
	defer acct.Unlock()

	var first *Error
	for _, g := range acct.Grants() {
		priorTotal := new(big.Int).Set(g.TotalAmount)
		released, err := g.Terminate(ts)
		if err != nil {
			if first == nil {
				first = err
			}
			continue
		}
		if released.Sign() != 0 {
			e.treasury.Credit(released)
		}
		level.Info(e.logger).Log("op", "terminate", "account", accountID, "issued_at", g.IssuedAt, "ts", ts, "released", released.String())
		e.recordTermination(accountID, g, ts, priorTotal, released, callerID)
	}
	return first
}

// TerminateGrant ends exactly one grant, identified by (accountID,
// issuedAt), at timestamp ts — the variant named in §6 for interfaces
// that carry issued_at explicitly.
func (e *Engine) TerminateGrant(callerID, accountID string, issuedAt, ts uint64) *Error {
	if err := e.requireRole(callerID, RoleExecutor); err != nil {
		return err
	}
	g, ok := e.registry.GetGrantMut(accountID, issuedAt)
	if !ok {
		return nil
	}

	acct, _ := e.registry.Get(accountID)
	acct.Lock()
	defer acct.Unlock()

	priorTotal := new(big.Int).Set(g.TotalAmount)
	released, err := g.Terminate(ts)
	if err != nil {
		return err
	}
	if released.Sign() != 0 {
		e.treasury.Credit(released)
	}
	level.Info(e.logger).Log("op", "terminate", "account", accountID, "issued_at", issuedAt, "ts", ts, "released", released.String())
	e.recordTermination(accountID, g, ts, priorTotal, released, callerID)
	return nil
}

// --- ft_on_transfer, §4.4/§6 ---

// FTOnTransfer handles the FT receive hook. tokenID is the sending FT
// contract's identifier; senderID is the account that initiated the
// transfer; amount is what arrived; msg is the raw JSON payload. Returns
// the amount to refund, as a decimal string, per §6.
func (e *Engine) FTOnTransfer(tokenID, senderID string, amount *big.Int, msg []byte) (string, *Error) {
	if tokenID != e.cfg.TokenID {
		return "", ErrWrongSender(e.cfg.TokenID)
	}

	parsed, err := ParseFTMessage(msg)
	if err != nil {
		return "", err
	}

	if err := e.requireRole(senderID, RoleIssuer); err != nil {
		return "", err
	}

	switch m := parsed.(type) {
	case TopUpMsg:
		e.treasury.TopUp(amount)
		level.Info(e.logger).Log("op", "top_up", "sender", senderID, "amount", amount.String())
		return "0", nil

	case IssueMsg:
		return e.ftIssue(senderID, m, amount)

	default:
		return "", ErrMalformed("unrecognized message")
	}
}

// ftIssue implements the combined top-up+issue path: the grants are
// funded directly out of the incoming transfer (never touching treasury
// for the consumed portion), and any amount beyond the grants' sum is
// refunded. A duplicate-date collision or insufficient incoming amount
// refunds the whole transfer and creates nothing.
func (e *Engine) ftIssue(senderID string, m IssueMsg, amount *big.Int) (string, *Error) {
	amounts, sum, err := e.parseAndCheckGrants(m.Data.IssueAt, inputsFromMsg(m.Data.Grants))
	if err != nil {
		if err.Code == ErrMalformedMessage {
			return "", err
		}
		// GrantAlreadyExistsOnDate: refund everything, create nothing.
		return amount.String(), nil
	}

	if amount.Cmp(sum) < 0 {
		return amount.String(), nil
	}

	e.createGrants(m.Data.IssueAt, inputsFromMsg(m.Data.Grants), amounts)
	level.Info(e.logger).Log("op", "ft_issue", "sender", senderID, "issue_at", m.Data.IssueAt, "sum", sum.String())

	refund := new(big.Int).Sub(amount, sum)
	return refund.String(), nil
}

func inputsFromMsg(pairs [][2]string) []GrantInput {
	out := make([]GrantInput, len(pairs))
	for i, p := range pairs {
		out[i] = GrantInput{AccountID: p[0], Amount: p[1]}
	}
	return out
}
