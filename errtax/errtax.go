package errtax

import (
	"errors"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
)

// Sentinel errors for the core's error taxonomy. Use errors.Is against these;
// Wrap* helpers attach go-errors categories and metadata for callers that
// want structured detail instead of string matching.
var (
	// ErrInvalidInput covers local validation failures: an update missing
	// audit_log_id, a secondary-key value that cannot be encoded, etc.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEncoding surfaces a canonical-encoding failure from audithash.
	ErrEncoding = errors.New("encoding error")

	// ErrTransactionConsumed means the executor's transaction slot has
	// already been used for this unit of work.
	ErrTransactionConsumed = errors.New("transaction consumed")

	// ErrConcurrentUpdate means the guarded UPDATE affected zero rows.
	ErrConcurrentUpdate = errors.New("concurrent update")

	// ErrDatabase wraps any other driver-level failure.
	ErrDatabase = errors.New("database error")

	// ErrCacheApply is logged, never surfaced to a caller (commit must not
	// fail because the cache could not be updated).
	ErrCacheApply = errors.New("cache apply warning")

	// ErrListenerDisconnected is internal to notifylisten; it triggers
	// reconnection and is never surfaced to a repository caller.
	ErrListenerDisconnected = errors.New("listener disconnected")
)

// category maps each sentinel to a go-errors category so that consumers
// using github.com/goliatone/go-errors elsewhere in their stack get
// consistent classification.
var category = map[error]goerrors.Category{
	ErrInvalidInput:         goerrors.CategoryValidation,
	ErrEncoding:             goerrors.CategoryValidation,
	ErrTransactionConsumed:  goerrors.CategoryInternal,
	ErrConcurrentUpdate:     goerrors.CategoryConflict,
	ErrDatabase:             goerrors.CategoryInternal,
	ErrCacheApply:           goerrors.CategoryInternal,
	ErrListenerDisconnected: goerrors.CategoryInternal,
}

// Wrap attaches the go-errors category for sentinel and a formatted
// message built from format/args, wrapping cause if non-nil.
func Wrap(sentinel error, cause error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	cat, ok := category[sentinel]
	if !ok {
		cat = goerrors.CategoryInternal
	}

	var built *goerrors.Error
	if cause != nil {
		built = goerrors.Wrap(cause, cat, msg)
	} else {
		built = goerrors.New(msg, cat)
	}

	return &taggedError{sentinel: sentinel, detail: built}
}

// taggedError lets errors.Is(err, errtax.ErrConcurrentUpdate) succeed while
// Error() renders the richer go-errors message.
type taggedError struct {
	sentinel error
	detail   *goerrors.Error
}

func (e *taggedError) Error() string { return e.detail.Error() }
func (e *taggedError) Unwrap() error { return e.sentinel }

// WithMetadata attaches structured key/value context (e.g. primary key,
// table name) to a wrapped taxonomy error for logging/debugging.
func WithMetadata(err error, kv map[string]any) error {
	te, ok := err.(*taggedError)
	if !ok {
		return err
	}
	te.detail = te.detail.WithMetadata(kv)
	return te
}

// IsRetryable reports whether the caller may retry the operation as-is
// (after reloading current state, for ErrConcurrentUpdate).
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentUpdate)
}

// IsClientError reports whether the failure stems from caller-supplied
// input rather than infrastructure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrEncoding)
}
