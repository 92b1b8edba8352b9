package store

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/tKV/lib/tree"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IteratorFunc is called by Iterate for every entry of a store.
// iterationNumber starts at 1. Returning stop == true ends the iteration and
// result becomes the result of Iterate.
type IteratorFunc func(value any, key string, iterationNumber int) (result any, stop bool)

// IStore is the interface for interacting with one scope (database name plus store name)
// of a key-value store. Keys may be of any type, non-string keys are converted to strings.
// A key containing "/" addresses a nested entry (unless Config.EscapeKeys is set).
//
// All methods return a *Error for failures detected by the store itself (see RetCode),
// errors of the underlying tree are returned unchanged.
type IStore interface {
	// Iterate calls f for every entry in traversal order until f returns stop == true.
	// It returns the result of the stopping call, or nil if every entry was visited.
	Iterate(ctx context.Context, f IteratorFunc) (result any, err error)
	// GetItem returns the decoded value for a key, ErrNotFound if the key does not exist.
	GetItem(ctx context.Context, key any) (value any, err error)
	// SetItem replaces the value for a key and returns the value written. A nil value is stored as null.
	SetItem(ctx context.Context, key any, value any) (written any, err error)
	// RemoveItem removes a single key, ErrNotFound if the key does not exist.
	RemoveItem(ctx context.Context, key any) (err error)
	// Clear removes every entry of the store but keeps the store itself.
	Clear(ctx context.Context) (err error)
	// Length returns the number of entries in the store.
	Length(ctx context.Context) (n int, err error)
	// Key returns the key of the n-th entry (0-indexed) in traversal order.
	// ok is false if the store has fewer than n+1 entries.
	Key(ctx context.Context, n int) (key string, ok bool, err error)
	// Keys returns all keys in traversal order.
	Keys(ctx context.Context) (keys []string, err error)
	// DropInstance removes a store or a whole database and returns the path that was removed.
	// Empty fields of opts fall back to the configuration of this store.
	DropInstance(ctx context.Context, opts Config) (path string, err error)
	// Config returns the configuration this store was opened with.
	Config() Config
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode),
// an error message and optionally the error that caused it.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
	Err  error   // The wrapped cause (may be nil)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("StoreError (code %s): %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("StoreError (code %s): %s", e.Code, e.Msg)
}

// Unwrap returns the wrapped cause, so errors.Is(err, tree.ErrNotFound) still works
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a *Error with the same code.
// This makes the sentinel errors (ErrNotFound, ...) match every error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewError creates a new Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// WrapError creates a new Error with the given code and message that wraps err.
func WrapError(code RetCode, msg string, err error) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
		Err:  err,
	}
}

// Sentinel errors, use errors.Is to compare
var (
	ErrNotFound         = NewError(RetCNotFound, "not found")
	ErrUnavailable      = NewError(RetCUnavailable, "storage unavailable")
	ErrInvalidArguments = NewError(RetCInvalidArguments, "invalid arguments")
	ErrNotInitialized   = NewError(RetCInvalidOperation, "store not initialized")
)

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess          RetCode = iota // 0: Command executed successfully.
	RetCInternalError                   // 1: Command failed due to an internal error.
	RetCInvalidOperation                // 2: Invalid operation (e.g. use before initialization).
	RetCNotFound                        // 3: The key or path does not exist.
	RetCUnavailable                     // 4: The tree storage can not be reached at all.
	RetCInvalidArguments                // 5: The arguments can not be resolved (e.g. no database name).
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCInvalidOperation:
		return "InvalidOperation"
	case RetCNotFound:
		return "NotFound"
	case RetCUnavailable:
		return "Unavailable"
	case RetCInvalidArguments:
		return "InvalidArguments"
	default:
		return fmt.Sprintf("Unknown(%d)", uint64(c))
	}
}

// CodeOf returns the RetCode for an error returned by an IStore (RetCSuccess for nil).
// Errors of the tree package are mapped to their closest code, everything else is RetCInternalError.
func CodeOf(err error) RetCode {
	var e *Error
	switch {
	case err == nil:
		return RetCSuccess
	case errors.As(err, &e):
		return e.Code
	case errors.Is(err, tree.ErrNotFound):
		return RetCNotFound
	case errors.Is(err, tree.ErrUnavailable):
		return RetCUnavailable
	case errors.Is(err, tree.ErrInvalidName):
		return RetCInvalidArguments
	default:
		return RetCInternalError
	}
}
