// internal/exit/errors.go
package exit

import (
	"errors"
	"fmt"
)

// ErrInvalidRequest marks a sell request that cannot be executed as given
// (unparseable keys, zero entry cost on a ladder run).
var ErrInvalidRequest = errors.New("invalid sell request")

// SubmissionError wraps a failed swap submission with the level that
// triggered it. A submission failure ends the run: the level already
// latched, and retrying a broadcast that may have landed risks selling
// the same tranche twice.
type SubmissionError struct {
	Side   Side
	Level  float64
	Amount uint64
	Err    error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("%s submission at level %.2f for %d units failed: %v",
		e.Side, e.Level, e.Amount, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}
