package errors

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ValidationFailed    ErrorCode = "validation_error"
	InvalidAccountID    ErrorCode = "invalid_account_id"
	SameAccountTransfer ErrorCode = "same_account_transfer"
	InsufficientBalance ErrorCode = "insufficient_balance"
	Conflict            ErrorCode = "conflict"
	NotFound            ErrorCode = "not_found"
	AccountNotFound     ErrorCode = "account_not_found"
	TransactionNotFound ErrorCode = "transaction_not_found"
	UserNotFound        ErrorCode = "user_not_found"
	Unauthorized        ErrorCode = "unauthorized"
	InvalidCredentials  ErrorCode = "invalid_credentials"
	InternalError       ErrorCode = "internal_error"
)

// Issue describes one failed field check. The shape follows the
// {message, path, type, context} objects clients already parse.
type Issue struct {
	Message string       `json:"message"`
	Path    []string     `json:"path"`
	Type    string       `json:"type"`
	Context IssueContext `json:"context"`
}

type IssueContext struct {
	Label string `json:"label"`
	Key   string `json:"key"`
	Value any    `json:"value,omitempty"`
}

type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	Issues  []Issue   `json:"-"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewAppError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

func NewAppErrorf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WithDetails returns a copy so the predefined errors below stay untouched.
func (e *AppError) WithDetails(details string) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

// NewValidationError builds a 400 error carrying the individual field issues.
func NewValidationError(issues ...Issue) *AppError {
	msg := "validation failed"
	if len(issues) > 0 {
		msg = issues[0].Message
	}
	return &AppError{
		Code:    ValidationFailed,
		Message: msg,
		Issues:  issues,
	}
}

// HTTPStatus maps an error code to the response status.
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case ValidationFailed, InvalidCredentials:
		return http.StatusBadRequest
	case InvalidAccountID, SameAccountTransfer, InsufficientBalance, Conflict:
		return http.StatusConflict
	case NotFound, AccountNotFound, TransactionNotFound, UserNotFound:
		return http.StatusNotFound
	case Unauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// As unwraps err into an *AppError if one is present in its chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Is reports whether err carries an AppError with the given code.
func Is(err error, code ErrorCode) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}

// Predefined errors for common cases
var (
	ErrInvalidAmount = NewValidationError(Issue{
		Message: `"amount" must be a positive number`,
		Path:    []string{"amount"},
		Type:    "number.positive",
		Context: IssueContext{Label: "amount", Key: "amount"},
	})
	ErrAmountPrecision = NewValidationError(Issue{
		Message: `"amount" must have no more than 2 decimal places`,
		Path:    []string{"amount"},
		Type:    "number.precision",
		Context: IssueContext{Label: "amount", Key: "amount"},
	})
	// ErrInvalidBalance rejects an opening balance that is negative or not
	// a number at all.
	ErrInvalidBalance = NewValidationError(Issue{
		Message: "Balance must be a positive number",
		Path:    []string{"balance"},
		Type:    "number.min",
		Context: IssueContext{Label: "balance", Key: "balance"},
	})
	ErrBalancePrecision = NewValidationError(Issue{
		Message: `"balance" must have no more than 2 decimal places`,
		Path:    []string{"balance"},
		Type:    "number.precision",
		Context: IssueContext{Label: "balance", Key: "balance"},
	})
	ErrInvalidAccountID       = NewAppError(InvalidAccountID, "Invalid account id")
	ErrSameAccountTransfer    = NewAppError(SameAccountTransfer, "Cannot do transaction between same account")
	ErrInsufficientBalance    = NewAppError(InsufficientBalance, "Insufficient balance")
	ErrAccountNotFound        = NewAppError(AccountNotFound, "account not found")
	ErrUserNotFound           = NewAppError(UserNotFound, "user not found")
	ErrDuplicateEmail         = NewAppError(Conflict, "Email has already been taken")
	ErrInvalidCredentials     = NewAppError(InvalidCredentials, "Invalid email or password")
	ErrUnauthorized           = NewAppError(Unauthorized, "Unauthorized")
	ErrInternal               = NewAppError(InternalError, "Internal server error")
	ErrCannotBeginTransaction = NewAppError(InternalError, "cannot begin transaction on a transactional store")
)
