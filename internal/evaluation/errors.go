package evaluation

import (
	"errors"
	"fmt"
)

// ErrEvaluationInFlight means another evaluation is still pending. Dispatches
// are refused rather than queued; the caller re-submits manually.
var ErrEvaluationInFlight = errors.New("an evaluation is already in flight")

// ValidationError reports a structurally invalid evaluation request.
// Validation is fail-fast and fail-closed: it blocks the call before any
// network traffic occurs. Index is -1 for single evaluations.
type ValidationError struct {
	Index int
	Field string
}

func (e *ValidationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s is required", e.Field)
	}
	return fmt.Sprintf("evaluations[%d]: %s is required", e.Index, e.Field)
}
