package tactile

import "context"

// Executor is the interface for command execution.
type Executor interface {
	// Execute runs a command and returns its result. Cancelling ctx kills
	// the process.
	Execute(ctx context.Context, cmd Command) (*ExecutionResult, error)
}
