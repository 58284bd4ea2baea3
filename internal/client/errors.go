package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Backland-Labs/runclient/internal/schema"
)

// Kind categorizes why a client operation failed
type Kind string

const (
	// KindNetwork means the request never produced a response
	KindNetwork Kind = "network"
	// KindStatus means the service answered with a non-2xx status
	KindStatus Kind = "status"
	// KindDecode means the response body was not the JSON we expected
	KindDecode Kind = "decode"
	// KindValidation means the payload had the wrong shape
	KindValidation Kind = "validation"
	// KindCanceled means the caller's context ended first
	KindCanceled Kind = "canceled"
)

// ErrMissingToken is returned by New when no API token is configured
var ErrMissingToken = errors.New("API token is required")

// Error is returned by every Client operation
type Error struct {
	Op         string // e.g. "run", "get_run"
	Kind       Kind
	StatusCode int                // set for KindStatus
	Fields     schema.FieldErrors // set for KindValidation
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindStatus:
		return fmt.Sprintf("%s: unexpected status code: %d", e.Op, e.StatusCode)
	default:
		return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a client Error of the given kind
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// IsTransient reports whether retrying the same call later might succeed
func IsTransient(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.Kind {
	case KindNetwork:
		return true
	case KindStatus:
		return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
	case KindCanceled:
		return errors.Is(e.Err, context.DeadlineExceeded)
	default:
		return false
	}
}

// classify turns a low-level failure into an *Error
func classify(ctx context.Context, op string, kind Kind, err error) *Error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &Error{Op: op, Kind: KindCanceled, Err: ctxErr}
	}

	var fields schema.FieldErrors
	if errors.As(err, &fields) {
		return &Error{Op: op, Kind: KindValidation, Fields: fields, Err: err}
	}

	var decodeErr *schema.DecodeError
	if errors.As(err, &decodeErr) {
		return &Error{Op: op, Kind: KindDecode, Err: err}
	}

	return &Error{Op: op, Kind: kind, Err: err}
}
