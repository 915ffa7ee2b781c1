package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds shared by the services. AppError values wrap one of these so
// callers can test with errors.Is regardless of the message.
var (
	ErrNotFound             = errors.New("not found")
	ErrForbidden            = errors.New("forbidden")
	ErrInvalidState         = errors.New("invalid state")
	ErrSignatureInvalid     = errors.New("signature invalid")
	ErrRefundExceedsPayment = errors.New("refund exceeds payment")
	ErrGateway              = errors.New("gateway error")
	ErrValidation           = errors.New("validation failed")
)

// AppError represents an application error
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// BadRequestError creates a 400 Bad Request error
func BadRequestError(message string, err error) *AppError {
	return NewAppError(http.StatusBadRequest, message, wrapKind(ErrValidation, err))
}

// ForbiddenError creates a 403 Forbidden error
func ForbiddenError(message string) *AppError {
	return NewAppError(http.StatusForbidden, message, ErrForbidden)
}

// NotFoundError creates a 404 Not Found error
func NotFoundError(message string) *AppError {
	return NewAppError(http.StatusNotFound, message, ErrNotFound)
}

// InvalidStateError creates a 409 Conflict error for operations the current
// state of a resource does not allow
func InvalidStateError(message string) *AppError {
	return NewAppError(http.StatusConflict, message, ErrInvalidState)
}

// SignatureInvalidError creates a 400 error for a forged or tampered gateway signature
func SignatureInvalidError(message string) *AppError {
	return NewAppError(http.StatusBadRequest, message, ErrSignatureInvalid)
}

// RefundExceedsPaymentError creates a 400 error for an out of bounds refund amount
func RefundExceedsPaymentError(message string) *AppError {
	return NewAppError(http.StatusBadRequest, message, ErrRefundExceedsPayment)
}

// GatewayError creates a 502 error for a failed call to the payment gateway
func GatewayError(message string, err error) *AppError {
	return NewAppError(http.StatusBadGateway, message, wrapKind(ErrGateway, err))
}

func wrapKind(kind, err error) error {
	if err == nil {
		return kind
	}
	return fmt.Errorf("%w: %w", kind, err)
}

// GetAppError returns the AppError in the chain of err, if any
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}
