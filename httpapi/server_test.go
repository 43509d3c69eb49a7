package httpapi

import (
	"bytes"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweat-foundation/ltip-engine/ltip"
)

type nopHandle struct{}

func (nopHandle) Await() bool { return true }

type nopFT struct{}

func (nopFT) Transfer(to string, amount *big.Int) ltip.TransferHandle { return nopHandle{} }

func setupTestServer(t *testing.T) (*Server, *ltip.Engine) {
	t.Helper()
	cfg := ltip.Config{TokenID: "ft.test", CliffDuration: 100, VestingDuration: 1000, OwnerID: "owner"}
	engine, err := ltip.New(cfg, nopFT{}, nil)
	require.Nil(t, err)
	return NewServer(Config{}, engine), engine
}

func doJSON(t *testing.T, e *echo.Echo, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHandleGetConfig(t *testing.T) {
	s, _ := setupTestServer(t)
	rec := doJSON(t, s.Echo(), http.MethodGet, "/ltip/config", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ft.test", body["token_id"])
}

func TestHandleGetSpareBalance(t *testing.T) {
	s, _ := setupTestServer(t)
	rec := doJSON(t, s.Echo(), http.MethodGet, "/ltip/spare-balance", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "0", body["spare_balance"])
}

func TestHandleGetAccount_NotFound(t *testing.T) {
	s, _ := setupTestServer(t)
	rec := doJSON(t, s.Echo(), http.MethodGet, "/ltip/account/nobody", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleIssue_RequiresIssuerRole(t *testing.T) {
	s, _ := setupTestServer(t)
	rec := doJSON(t, s.Echo(), http.MethodPost, "/ltip/issue", issueRequest{
		CallerID: "random",
		IssueAt:  0,
		Grants:   []ltip.GrantInput{{AccountID: "alice", Amount: "100"}},
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandleIssueThenGetAccount(t *testing.T) {
	s, engine := setupTestServer(t)
	require.Nil(t, engine.GrantRole("owner", "issuer", ltip.RoleIssuer, 0))
	_, err := engine.FTOnTransfer("ft.test", "issuer", big.NewInt(1000), []byte(`{"type":"top_up"}`))
	require.Nil(t, err)

	rec := doJSON(t, s.Echo(), http.MethodPost, "/ltip/issue", issueRequest{
		CallerID: "issuer",
		IssueAt:  0,
		Grants:   []ltip.GrantInput{{AccountID: "alice", Amount: "1000"}},
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, s.Echo(), http.MethodGet, "/ltip/account/alice", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var view AccountView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.Len(t, view.Grants, 1)
	assert.Equal(t, "1000", view.Grants[0].TotalAmount)
}

func TestHandleClaim_NoOpOnUnknownAccount(t *testing.T) {
	s, _ := setupTestServer(t)
	rec := doJSON(t, s.Echo(), http.MethodPost, "/ltip/claim", claimRequest{CallerID: "ghost", Now: 0})
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHandleTerminate_DoubleTerminateConflicts(t *testing.T) {
	s, engine := setupTestServer(t)
	require.Nil(t, engine.GrantRole("owner", "issuer", ltip.RoleIssuer, 0))
	require.Nil(t, engine.GrantRole("owner", "executor", ltip.RoleExecutor, 0))
	_, err := engine.FTOnTransfer("ft.test", "issuer", big.NewInt(1000), []byte(`{"type":"top_up"}`))
	require.Nil(t, err)
	require.Nil(t, engine.Issue("issuer", 0, []ltip.GrantInput{{AccountID: "alice", Amount: "1000"}}))

	rec := doJSON(t, s.Echo(), http.MethodPost, "/ltip/terminate", terminateRequest{
		CallerID: "executor", AccountID: "alice", Timestamp: 100,
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, s.Echo(), http.MethodPost, "/ltip/terminate", terminateRequest{
		CallerID: "executor", AccountID: "alice", Timestamp: 200,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandleFTOnTransfer_WrongToken(t *testing.T) {
	s, _ := setupTestServer(t)
	rec := doJSON(t, s.Echo(), http.MethodPost, "/ltip/ft-on-transfer", ftOnTransferRequest{
		TokenID: "not-the-token", SenderID: "owner", Amount: "10", Msg: `{"type":"top_up"}`,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandleFTOnTransfer_TopUp(t *testing.T) {
	s, engine := setupTestServer(t)
	require.Nil(t, engine.GrantRole("owner", "issuer", ltip.RoleIssuer, 0))

	rec := doJSON(t, s.Echo(), http.MethodPost, "/ltip/ft-on-transfer", ftOnTransferRequest{
		TokenID: "ft.test", SenderID: "issuer", Amount: "500", Msg: `{"type":"top_up"}`,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "0", body["refund"])
	assert.Equal(t, "500", engine.GetSpareBalance())
}
