package pipeline

import "errors"

// StageError wraps an error with the stage whose operation failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return e.Stage + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// StageName returns the stage the error occurred in.
func (e *StageError) StageName() string {
	return e.Stage
}

// ValidationError marks engine output that failed validation. It is
// retryable like any engine error, but carries the validator's reason.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

// stageOf extracts the stage name from a *StageError, falling back to
// the article's current stage.
func stageOf(err error, fallback string) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.StageName()
	}
	return fallback
}
