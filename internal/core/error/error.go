package errx

import (
	"errors"
	"fmt"
)

// Kind classifies an AppError for the caller deciding how to surface it.
type Kind string

const (
	// KindConfig marks a missing or invalid credential or setting.
	KindConfig Kind = "config"
	// KindUpstream marks a non-success response from an external API.
	KindUpstream Kind = "upstream"
	// KindMalformedOutput marks model output that failed validation.
	KindMalformedOutput Kind = "malformed_output"
	// KindNotFound marks a lookup that produced no record.
	KindNotFound Kind = "not_found"
	// KindInternal marks anything unexpected.
	KindInternal Kind = "internal"
)

const (
	// SystemErrorMessage is the user-facing fallback when a turn fails unexpectedly.
	SystemErrorMessage = "Sorry, something went wrong while handling your request. Please try again."
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage describes a missing Redis key.
	RedisNotFoundMessage = "redis key not found"
)

// AppError wraps an underlying error with a kind and a safe message.
type AppError struct {
	Err     error
	Kind    Kind
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the provided information.
func New(err error, kind Kind, message string) *AppError {
	return &AppError{
		Err:     err,
		Kind:    kind,
		Message: message,
	}
}

// Config reports a missing or invalid setting, e.g. Config("GOOGLE_MAPS_KEY not set").
func Config(message string) *AppError {
	return New(nil, KindConfig, message)
}

// Malformed reports model output that did not pass validation.
func Malformed(message string) *AppError {
	return New(nil, KindMalformedOutput, message)
}

// WrapUpstream keeps the upstream error text and tags it with the service name.
func WrapUpstream(service string, err error) error {
	if err == nil {
		return nil
	}
	return New(err, KindUpstream, service+" request failed")
}

// KindOf returns the kind of the first AppError in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// Is reports whether the target matches the underlying error or is an AppError of the same kind.
func (e *AppError) Is(target error) bool {
	if t, ok := target.(*AppError); ok {
		return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
	}
	return errors.Is(e.Err, target)
}

// As allows casting to AppError or the wrapped error in a chain.
func (e *AppError) As(target any) bool {
	if t, ok := target.(**AppError); ok {
		*t = e
		return true
	}
	return errors.As(e.Err, target)
}
