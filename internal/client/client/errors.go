package client

import (
	"errors"
	"fmt"
)

var (
	ErrUnavailable       = errors.New("service unavailable")
	ErrRejected          = errors.New("request rejected")
	ErrMalformedResponse = errors.New("malformed response")
	ErrValidation        = errors.New("invalid input")
	ErrUnauthorized      = errors.New("unauthorized")
)

// UnreachableMessage is shown for every transport failure.
const UnreachableMessage = "Connection error. Please ensure the system is running."

// RejectedError carries the reason a service gave for refusing a request
// ({success:false, error:...} or a non-2xx reply). Reason may be empty.
type RejectedError struct {
	Status int
	Reason string
}

func (e *RejectedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s (status %d)", ErrRejected, e.Status)
	}
	return fmt.Sprintf("%s (status %d): %s", ErrRejected, e.Status, e.Reason)
}

func (e *RejectedError) Is(target error) bool {
	if target == ErrRejected {
		return true
	}
	return target == ErrUnauthorized && (e.Status == 401 || e.Status == 403)
}

// ValidationError is a local precondition failure. Its text is meant for
// the operator as is.
type ValidationError struct {
	msg string
}

func NewValidationError(msg string) *ValidationError {
	return &ValidationError{msg: msg}
}

func (e *ValidationError) Error() string { return e.msg }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Message renders err for the operator. Validation errors show their own
// text, rejections show the server reason (or fallback when none was
// given), transport failures show UnreachableMessage.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.msg
	}

	var re *RejectedError
	if errors.As(err, &re) {
		if re.Reason != "" {
			return re.Reason
		}
		return fallback
	}

	if errors.Is(err, ErrUnavailable) {
		return UnreachableMessage
	}

	return fallback
}
