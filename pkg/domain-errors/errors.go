// Package domainerrors defines the coded error type shared across services.
//
// Stores and gateways report infrastructure facts with pkg/platform/sentinel
// errors; services translate those into coded errors here. The HTTP layer is
// the only place that maps codes to status codes, so services stay
// transport-agnostic.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error for callers and the transport layer.
type Code string

const (
	CodeInvalidInput     Code = "invalid_input"
	CodeDuplicateEmail   Code = "duplicate_email"
	CodeIdentityCreation Code = "identity_creation_failed"
	CodeUploadFailed     Code = "upload_failed"
	CodePersistence      Code = "persistence_failed"
	CodeSignInDenied     Code = "sign_in_denied"
	CodeTooManyAttempts  Code = "too_many_attempts"
	CodeUnauthorized     Code = "unauthorized"
	CodeForbidden        Code = "forbidden"
	CodeNotFound         Code = "not_found"
	CodeConflict         Code = "conflict"
	CodeInvalidState     Code = "invalid_state"
	CodeInternal         Code = "internal"
)

// DenyReason narrows CodeSignInDenied so the presentation layer can route the
// user (resend-verification page vs. "pending approval" notice) instead of
// showing a generic auth failure.
type DenyReason string

const (
	DenyEmailNotVerified DenyReason = "EMAIL_NOT_VERIFIED"
	DenyPendingApproval  DenyReason = "PENDING_APPROVAL"
	DenyAccountDisabled  DenyReason = "ACCOUNT_DISABLED"
)

// Error is a coded domain error. Field is set when the failure is
// attributable to a single form field (for example a duplicate business
// email); Reason is set only for sign-in denials.
type Error struct {
	Code    Code
	Message string
	Field   string
	Reason  DenyReason
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New builds a coded error with no underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf builds a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error while keeping the
// cause reachable through errors.Is/errors.As.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// WithField attributes the error to a form field.
func (e *Error) WithField(field string) *Error {
	e.Field = field
	return e
}

// WithReason attaches a sign-in denial reason.
func (e *Error) WithReason(reason DenyReason) *Error {
	e.Reason = reason
	return e
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for errors
// that did not originate in the domain layer.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// FieldOf extracts the form field attribution from err, if any.
func FieldOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Field
	}
	return ""
}

// ReasonOf extracts the sign-in denial reason from err, if any.
func ReasonOf(err error) DenyReason {
	var de *Error
	if errors.As(err, &de) {
		return de.Reason
	}
	return ""
}
