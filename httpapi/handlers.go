package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sweat-foundation/ltip-engine/ltip"
)

// GrantView is a grant's JSON projection: amounts as decimal strings, per
// the boundary rule that internal *big.Int never crosses the wire as a
// JSON number.
type GrantView struct {
	IssuedAt        uint64  `json:"issued_at"`
	CliffDuration   uint64  `json:"cliff_duration"`
	VestingDuration uint64  `json:"vesting_duration"`
	TotalAmount     string  `json:"total_amount"`
	ClaimedAmount   string  `json:"claimed_amount"`
	OrderAmount     string  `json:"order_amount"`
	TerminatedAt    *uint64 `json:"terminated_at,omitempty"`
}

// AccountView is the full get_account response.
type AccountView struct {
	AccountID string      `json:"account_id"`
	Grants    []GrantView `json:"grants"`
}

func grantView(g *ltip.Grant) GrantView {
	return GrantView{
		IssuedAt:        g.IssuedAt,
		CliffDuration:   g.CliffDuration,
		VestingDuration: g.VestingDuration,
		TotalAmount:     g.TotalAmount.String(),
		ClaimedAmount:   g.ClaimedAmount.String(),
		OrderAmount:     g.OrderAmount.String(),
		TerminatedAt:    g.TerminatedAt,
	}
}

// --- views ---

func (s *Server) handleGetConfig(c echo.Context) error {
	cfg := s.engine.GetConfig()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"token_id":         cfg.TokenID,
		"cliff_duration":   cfg.CliffDuration,
		"vesting_duration": cfg.VestingDuration,
		"owner_id":         cfg.OwnerID,
	})
}

func (s *Server) handleGetSpareBalance(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"spare_balance": s.engine.GetSpareBalance()})
}

func (s *Server) handleGetAccount(c echo.Context) error {
	accountID := c.Param("id")
	acct, ok := s.engine.GetAccount(accountID)
	if !ok {
		return c.JSON(http.StatusNotFound, APIError{Message: "account has no grants"})
	}
	grants := acct.Grants()
	view := AccountView{AccountID: accountID, Grants: make([]GrantView, len(grants))}
	for i, g := range grants {
		view.Grants[i] = grantView(g)
	}
	return c.JSON(http.StatusOK, view)
}

func (s *Server) handleGetMembers(c echo.Context) error {
	role := ltip.Role(c.Param("role"))
	return c.JSON(http.StatusOK, map[string][]string{"members": s.engine.Members(role)})
}

// --- role management ---

type roleRequest struct {
	CallerID  string    `json:"caller_id"`
	AccountID string    `json:"account_id"`
	Role      ltip.Role `json:"role"`
}

func (s *Server) handleGrantRole(c echo.Context) error {
	var req roleRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "invalid request body"})
	}
	if err := s.engine.GrantRole(req.CallerID, req.AccountID, req.Role, nowUnix()); err != nil {
		return c.JSON(http.StatusForbidden, errResponse(err))
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleRevokeRole(c echo.Context) error {
	var req roleRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "invalid request body"})
	}
	if err := s.engine.RevokeRole(req.CallerID, req.AccountID, req.Role); err != nil {
		return c.JSON(http.StatusForbidden, errResponse(err))
	}
	return c.NoContent(http.StatusNoContent)
}

// --- issue ---

type issueRequest struct {
	CallerID string            `json:"caller_id"`
	IssueAt  uint64            `json:"issue_at"`
	Grants   []ltip.GrantInput `json:"grants"`
}

func (s *Server) handleIssue(c echo.Context) error {
	var req issueRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "invalid request body"})
	}
	if err := s.engine.Issue(req.CallerID, req.IssueAt, req.Grants); err != nil {
		return c.JSON(statusForError(err), errResponse(err))
	}
	for _, g := range req.Grants {
		s.eventBus.Publish(Event{Type: EventGrantIssued, AccountID: g.AccountID, Data: map[string]interface{}{
			"issued_at": req.IssueAt, "amount": g.Amount,
		}})
	}
	return c.NoContent(http.StatusNoContent)
}

// --- claim ---

type claimRequest struct {
	CallerID string `json:"caller_id"`
	Now      uint64 `json:"now"`
}

func (s *Server) handleClaim(c echo.Context) error {
	var req claimRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "invalid request body"})
	}
	s.engine.Claim(req.CallerID, req.Now)
	s.eventBus.Publish(Event{Type: EventClaimed, AccountID: req.CallerID, Data: map[string]interface{}{"now": req.Now}})
	return c.NoContent(http.StatusNoContent)
}

// --- buy / authorize ---

type payoutRequest struct {
	CallerID      string   `json:"caller_id"`
	AccountIDs    []string `json:"account_ids"`
	PercentageBps uint16   `json:"percentage_bps"`
	Now           uint64   `json:"now"`
}

func (s *Server) handleBuy(c echo.Context) error {
	var req payoutRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "invalid request body"})
	}
	if err := s.engine.Buy(req.CallerID, req.AccountIDs, req.PercentageBps, req.Now); err != nil {
		return c.JSON(statusForError(err), errResponse(err))
	}
	for _, id := range req.AccountIDs {
		s.eventBus.Publish(Event{Type: EventBought, AccountID: id, Data: map[string]interface{}{"percentage_bps": req.PercentageBps}})
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleAuthorize(c echo.Context) error {
	var req payoutRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "invalid request body"})
	}
	if err := s.engine.Authorize(req.CallerID, req.AccountIDs, req.PercentageBps, req.Now); err != nil {
		return c.JSON(statusForError(err), errResponse(err))
	}
	for _, id := range req.AccountIDs {
		s.eventBus.Publish(Event{Type: EventAuthorized, AccountID: id, Data: map[string]interface{}{"percentage_bps": req.PercentageBps}})
	}
	return c.NoContent(http.StatusNoContent)
}

// --- terminate ---

type terminateRequest struct {
	CallerID  string `json:"caller_id"`
	AccountID string `json:"account_id"`
	IssuedAt  uint64 `json:"issued_at,omitempty"`
	Timestamp uint64 `json:"timestamp"`
}

func (s *Server) handleTerminate(c echo.Context) error {
	var req terminateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "invalid request body"})
	}
	if err := s.engine.Terminate(req.CallerID, req.AccountID, req.Timestamp); err != nil {
		return c.JSON(statusForError(err), errResponse(err))
	}
	s.eventBus.Publish(Event{Type: EventTerminated, AccountID: req.AccountID, Data: map[string]interface{}{"timestamp": req.Timestamp}})
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleTerminateGrant(c echo.Context) error {
	var req terminateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "invalid request body"})
	}
	if err := s.engine.TerminateGrant(req.CallerID, req.AccountID, req.IssuedAt, req.Timestamp); err != nil {
		return c.JSON(statusForError(err), errResponse(err))
	}
	s.eventBus.Publish(Event{Type: EventTerminated, AccountID: req.AccountID, Data: map[string]interface{}{
		"issued_at": req.IssuedAt, "timestamp": req.Timestamp,
	}})
	return c.NoContent(http.StatusNoContent)
}

// --- ft_on_transfer ---

type ftOnTransferRequest struct {
	TokenID  string `json:"token_id"`
	SenderID string `json:"sender_id"`
	Amount   string `json:"amount"`
	Msg      string `json:"msg"`
}

func (s *Server) handleFTOnTransfer(c echo.Context) error {
	var req ftOnTransferRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "invalid request body"})
	}
	amount, perr := parseAmount(req.Amount)
	if perr != nil {
		return c.JSON(http.StatusBadRequest, errResponse(perr))
	}
	refund, err := s.engine.FTOnTransfer(req.TokenID, req.SenderID, amount, []byte(req.Msg))
	if err != nil {
		return c.JSON(statusForError(err), errResponse(err))
	}
	return c.JSON(http.StatusOK, map[string]string{"refund": refund})
}

func statusForError(err *ltip.Error) int {
	switch err.Code {
	case ltip.ErrUnauthorizedRole, ltip.ErrWrongTokenSender:
		return http.StatusForbidden
	case ltip.ErrInsufficientSpareBalance, ltip.ErrGrantAlreadyExistsOnDate, ltip.ErrAlreadyTerminated:
		return http.StatusConflict
	case ltip.ErrMalformedMessage:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
