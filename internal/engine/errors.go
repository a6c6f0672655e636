package engine

import (
	"errors"
	"fmt"
)

// ErrUnavailable means the engine binary or API cannot be reached or is
// not authenticated. This aborts the whole pipeline run, not just one
// article.
var ErrUnavailable = errors.New("engine unavailable")

// ErrTimeout means a call exceeded its wall-clock budget. Retryable.
var ErrTimeout = errors.New("engine timeout")

// CallError is a retryable engine failure: non-zero exit, API error
// response, or malformed output.
type CallError struct {
	Op     Op
	Detail string
}

func (e *CallError) Error() string {
	return fmt.Sprintf("engine %s: %s", e.Op, e.Detail)
}

// IsFatal reports whether err should abort the pipeline run instead of
// being retried per article.
func IsFatal(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
