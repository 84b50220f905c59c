package models

import (
	"errors"
	"fmt"
)

// ErrorKind discriminates the terminal failures of an invocation.
type ErrorKind string

const (
	KindMissingInput             ErrorKind = "missing-input"
	KindInvalidGroupElement      ErrorKind = "invalid-group-element"
	KindInvalidElectionResponse  ErrorKind = "invalid-election-body"
	KindMultiplePublicKeys       ErrorKind = "more-than-one-public-key"
	KindUnknownVoteChoice        ErrorKind = "unknown-vote-choice"
	KindMalformedAuthToken       ErrorKind = "malformed-auth-token"
	KindEmptyVotePermissionToken ErrorKind = "empty-vote-permission-token"
	KindUpstreamHTTPError        ErrorKind = "invalid-status"
	KindUpstreamTimeout          ErrorKind = "upstream-timeout"
	KindSerializationError       ErrorKind = "serialization-error"
)

// Sentinels for errors.Is; they match any *Error of the same kind.
var (
	ErrMissingInput             = &Error{Kind: KindMissingInput}
	ErrInvalidGroupElement      = &Error{Kind: KindInvalidGroupElement}
	ErrInvalidElectionResponse  = &Error{Kind: KindInvalidElectionResponse}
	ErrMultiplePublicKeys       = &Error{Kind: KindMultiplePublicKeys}
	ErrUnknownVoteChoice        = &Error{Kind: KindUnknownVoteChoice}
	ErrMalformedAuthToken       = &Error{Kind: KindMalformedAuthToken}
	ErrEmptyVotePermissionToken = &Error{Kind: KindEmptyVotePermissionToken}
	ErrUpstreamHTTP             = &Error{Kind: KindUpstreamHTTPError}
	ErrUpstreamTimeout          = &Error{Kind: KindUpstreamTimeout}
	ErrSerialization            = &Error{Kind: KindSerializationError}
)

// Error is the single discriminated error surfaced to callers. Message must
// never carry pins, tokens or randomness.
type Error struct {
	Kind    ErrorKind
	Status  int // HTTP status, only for KindUpstreamHTTPError
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (%d)", msg, e.Status)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on kind only so callers can compare against the sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// NewError builds an error of the given kind with a formatted message.
func NewError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError builds an error of the given kind around a cause.
func WrapError(kind ErrorKind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// UpstreamStatusError reports a non-200 answer from the backend.
func UpstreamStatusError(status int, call string) *Error {
	return &Error{Kind: KindUpstreamHTTPError, Status: status, Message: call}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// StatusOf returns the upstream HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}
