package internal

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/tKV/lib/tree"
)

// ResultCode is stored in sm.Result.Value (commands) and QueryResult.Code (queries)
type ResultCode uint64

const (
	ResultOK ResultCode = iota
	ResultNotFound
	ResultTypeMismatch
	ResultNotEmpty
	ResultInvalidName
	ResultInvalidOperation
	ResultInternalError
)

// CodeOf maps an error of the tree package to its result code
func CodeOf(err error) ResultCode {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, tree.ErrNotFound):
		return ResultNotFound
	case errors.Is(err, tree.ErrTypeMismatch):
		return ResultTypeMismatch
	case errors.Is(err, tree.ErrNotEmpty):
		return ResultNotEmpty
	case errors.Is(err, tree.ErrInvalidName):
		return ResultInvalidName
	default:
		return ResultInternalError
	}
}

// Err converts a result code back into an error of the tree package (nil for ResultOK)
func (c ResultCode) Err(msg string) error {
	var base error
	switch c {
	case ResultOK:
		return nil
	case ResultNotFound:
		base = tree.ErrNotFound
	case ResultTypeMismatch:
		base = tree.ErrTypeMismatch
	case ResultNotEmpty:
		base = tree.ErrNotEmpty
	case ResultInvalidName:
		base = tree.ErrInvalidName
	case ResultInvalidOperation:
		return fmt.Errorf("invalid operation: %s", msg)
	default:
		return fmt.Errorf("state machine error: %s", msg)
	}
	if msg == "" {
		return base
	}
	return fmt.Errorf("%w: %s", base, msg)
}
