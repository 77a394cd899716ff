package query

import "fmt"

// ExecutionError is a request-level problem: malformed query, unknown sort or
// search field, bad pagination values. It maps to a 4xx response and never
// affects cache state.
type ExecutionError struct {
	Reason string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("query execution: %s", e.Reason)
}

func execErrorf(format string, args ...any) error {
	return &ExecutionError{Reason: fmt.Sprintf(format, args...)}
}
