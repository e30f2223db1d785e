package agent

import "fmt"

// ExecutionError is returned when a task fails. The run is aborted at the
// failing task; no partial-failure recovery is attempted.
type ExecutionError struct {
	Task string
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("agent: task %q failed: %v", e.Task, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
