package services

import "fmt"

// Machine-readable error codes surfaced to API clients.
const (
	CodeValidationError   = "VALIDATION_ERROR"
	CodeOrderNotFound     = "ORDER_NOT_FOUND"
	CodeSameStatus        = "SAME_STATUS"
	CodeInvalidTransition = "INVALID_STATUS_TRANSITION"
	CodeCannotCancel      = "CANNOT_CANCEL_ORDER"
	CodePaymentNotFound   = "PAYMENT_NOT_FOUND"
	CodeStatusConflict    = "STATUS_CONFLICT"
)

// StatusError is a policy rejection from the order state machine or the
// payment confirmation service. Message is self-describing: transition
// errors name the current status and the legal next step so the caller
// can correct itself.
type StatusError struct {
	Code    string
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newStatusError(code, format string, args ...any) *StatusError {
	return &StatusError{Code: code, Message: fmt.Sprintf(format, args...)}
}
