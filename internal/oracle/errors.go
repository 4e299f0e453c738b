package oracle

import "fmt"

// RemoteError is a non-success response from the scoring service. It is
// surfaced to the caller verbatim and never retried; nothing is recorded to
// history when one occurs.
type RemoteError struct {
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("oracle returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("oracle returned status %d: %s", e.StatusCode, e.Body)
}

// ContractError reports an oracle response that violates the scoring
// contract: a score outside 0-8 or a confidence outside [0,1]. The violation
// belongs to the oracle, not to this core, and the result is not stored.
type ContractError struct {
	Detail string
}

func (e *ContractError) Error() string {
	return "oracle contract violation: " + e.Detail
}
