package ltip

import "fmt"

// ErrorCode classifies the errors the engine can return at its boundary.
type ErrorCode int

const (
	ErrUnauthorizedRole         ErrorCode = 5001
	ErrInsufficientSpareBalance ErrorCode = 5002
	ErrGrantAlreadyExistsOnDate ErrorCode = 5003
	ErrWrongTokenSender         ErrorCode = 5004
	ErrAlreadyTerminated        ErrorCode = 5005
	ErrMalformedMessage         ErrorCode = 5006
	ErrTransferFailed           ErrorCode = 5007
)

// Error is the engine's error type. It mirrors the DAOError shape used
// across the rest of this codebase: a stable numeric code, a message that
// matches the cross-language boundary strings exactly where spec'd, and an
// optional bag of details for callers that want structured context.
type Error struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
}

func (e *Error) Error() string {
	return fmt.Sprintf("ltip error %d: %s", e.Code, e.Message)
}

// NewError constructs an Error.
func NewError(code ErrorCode, message string, details map[string]interface{}) *Error {
	return &Error{Code: code, Message: message, Details: details}
}

// Boundary error strings. These must match spec verbatim, historical
// misspelling included, since external clients match on them.
const (
	msgUnauthorizedRole         = "Unauthorized role"
	msgInsufficientSpareBalance = "Insufficient spare balance"
	msgGrantAlreadyExists       = "A grant has alredy been issued on this date"
	msgWrongTokenSenderFmt      = "Can only receive tokens from %s"
)

// ErrUnauthorized builds the standard unauthorized-role error with a
// human-readable reason appended to Details, as spec'd ("all failures are
// UnauthorizedRole with a human-readable reason").
func ErrUnauthorized(reason string) *Error {
	return NewError(ErrUnauthorizedRole, msgUnauthorizedRole, map[string]interface{}{"reason": reason})
}

// ErrInsufficientSpare builds the standard treasury-shortfall error.
func ErrInsufficientSpare(requested, available string) *Error {
	return NewError(ErrInsufficientSpareBalance, msgInsufficientSpareBalance, map[string]interface{}{
		"requested": requested,
		"available": available,
	})
}

// ErrGrantExists builds the standard duplicate-issuance-date error.
func ErrGrantExists(accountID string, issuedAt uint64) *Error {
	return NewError(ErrGrantAlreadyExistsOnDate, msgGrantAlreadyExists, map[string]interface{}{
		"account_id": accountID,
		"issued_at":  issuedAt,
	})
}

// ErrWrongSender builds the standard wrong-FT-sender error.
func ErrWrongSender(tokenID string) *Error {
	return NewError(ErrWrongTokenSender, fmt.Sprintf(msgWrongTokenSenderFmt, tokenID), map[string]interface{}{
		"token_id": tokenID,
	})
}

// ErrTerminated builds the standard double-termination error.
func ErrTerminated(accountID string, issuedAt uint64) *Error {
	return NewError(ErrAlreadyTerminated, "grant already terminated", map[string]interface{}{
		"account_id": accountID,
		"issued_at":  issuedAt,
	})
}

// ErrMalformed builds the standard message-parsing error.
func ErrMalformed(reason string) *Error {
	return NewError(ErrMalformedMessage, "malformed ft_on_transfer message", map[string]interface{}{"reason": reason})
}
