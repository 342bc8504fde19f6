package apperror

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrBadRequest
	ErrUnauthorized
	ErrForbidden
	ErrConflict
	ErrInternal
)

// Authentication flow error codes
const (
	ErrInvalidCredentials ErrorCode = iota + 2000
	ErrAccountLocked
	ErrPolicyViolation
	ErrSessionExpired
	ErrChallengeIntegrity
	ErrCaptchaFailed
)

// Code extracts the ErrorCode from err, or ErrInternal when err is not an
// AppError.
func Code(err error) ErrorCode {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ErrInternal
}

// Is reports whether err is an AppError with the given code.
func Is(err error, code ErrorCode) bool {
	return Code(err) == code
}

func NotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func BadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    ErrBadRequest,
		Message: message,
		Err:     err,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Code:    ErrConflict,
		Message: message,
	}
}

func Internal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}

func Unauthorized(err error) *AppError {
	return &AppError{
		Code:    ErrUnauthorized,
		Message: "unauthorized",
		Err:     err,
	}
}

func Forbidden(message string) *AppError {
	return &AppError{
		Code:    ErrForbidden,
		Message: message,
	}
}

// InvalidCredentials covers unknown user, blocked user and wrong password.
// The message never distinguishes between them; that is what prevents
// username enumeration.
func InvalidCredentials() *AppError {
	return &AppError{
		Code:    ErrInvalidCredentials,
		Message: "invalid username or password",
	}
}

// InvalidCredentialsRemaining is the wrong-password rejection when attempt
// limiting is enabled and the caller should see how many tries are left.
func InvalidCredentialsRemaining(remaining int) *AppError {
	return &AppError{
		Code:    ErrInvalidCredentials,
		Message: fmt.Sprintf("invalid username or password, %d attempts remaining", remaining),
	}
}

// AccountLocked carries the time left in the lockout window.
func AccountLocked(remaining time.Duration) *AppError {
	mins := int(remaining.Minutes()) + 1
	return &AppError{
		Code:    ErrAccountLocked,
		Message: fmt.Sprintf("account is locked, try again in %d minutes", mins),
	}
}

// PolicyViolation names the single complexity or history rule that failed.
func PolicyViolation(message string) *AppError {
	return &AppError{
		Code:    ErrPolicyViolation,
		Message: message,
	}
}

func SessionExpired() *AppError {
	return &AppError{
		Code:    ErrSessionExpired,
		Message: "session expired, please sign in again",
	}
}

// ChallengeIntegrity is fatal to the current OTP flow: missing, already
// consumed or degenerate challenge context. Forces a restart at login.
func ChallengeIntegrity(message string) *AppError {
	return &AppError{
		Code:    ErrChallengeIntegrity,
		Message: message,
	}
}

func CaptchaFailed() *AppError {
	return &AppError{
		Code:    ErrCaptchaFailed,
		Message: "captcha verification failed",
	}
}
