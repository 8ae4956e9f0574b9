package identity

import (
	"errors"
	"fmt"
)

// Identity errors are surfaced to the caller verbatim and never retried.
var (
	ErrEmailInUse         = errors.New("The email address is already in use by another account.")
	ErrWeakPassword       = errors.New("Password should be at least 6 characters")
	ErrInvalidCredentials = errors.New("The email or password is invalid.")
	ErrPopupClosed        = errors.New("The sign-in popup was closed before completing.")
)

// TransportError wraps a network or timeout failure reaching the identity
// provider. Writes are never retried; the caller decides for reads.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("identity provider %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProviderError carries an unmapped provider error code.
type ProviderError struct {
	Code    string
	Message string
}

func (e *ProviderError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

func mapProviderCode(code, message string) error {
	switch code {
	case "EMAIL_EXISTS":
		return ErrEmailInUse
	case "WEAK_PASSWORD":
		return ErrWeakPassword
	case "INVALID_PASSWORD", "EMAIL_NOT_FOUND", "INVALID_LOGIN_CREDENTIALS":
		return ErrInvalidCredentials
	case "USER_CANCELLED", "POPUP_CLOSED":
		return ErrPopupClosed
	default:
		return &ProviderError{Code: code, Message: message}
	}
}
