// Package tactile runs external processes on the host and reports what
// happened. It is the only place sentinel starts a child process.
package tactile

import (
	"io"
	"strings"
	"time"
)

// Command represents a command to be executed.
type Command struct {
	// Binary is the executable to run (e.g., "pwsh", "powershell.exe").
	Binary string `json:"binary"`

	// Arguments are the command-line arguments.
	Arguments []string `json:"arguments"`

	// WorkingDirectory is the directory to execute in.
	WorkingDirectory string `json:"working_directory,omitempty"`

	// Environment variables added to the inherited environment (KEY=VALUE).
	Environment []string `json:"environment,omitempty"`

	// Stream, when set, receives output as it is produced in addition to
	// being captured.
	Stream io.Writer `json:"-"`
}

// CommandString returns the full command as a string (for display/logging).
func (c Command) CommandString() string {
	if len(c.Arguments) == 0 {
		return c.Binary
	}
	return c.Binary + " " + strings.Join(c.Arguments, " ")
}

// ExecutionResult contains the complete result of a command execution.
type ExecutionResult struct {
	// Success indicates the process could be run. A command that runs but
	// returns a non-zero exit code has Success=true.
	Success bool `json:"success"`

	// ExitCode is the command's exit code (-1 if not available).
	ExitCode int `json:"exit_code"`

	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`

	// Combined is stdout and stderr interleaved in arrival order.
	Combined string `json:"combined"`

	Duration   time.Duration `json:"duration"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`

	// Killed indicates the command was forcibly terminated.
	Killed     bool   `json:"killed"`
	KillReason string `json:"kill_reason,omitempty"`

	// Truncated indicates output was cut at the executor's limit.
	Truncated bool `json:"truncated"`

	// Error contains any infrastructure-level error message.
	Error string `json:"error,omitempty"`
}

// IsError returns true if the execution failed (infrastructure error).
func (r *ExecutionResult) IsError() bool {
	return !r.Success || r.Error != ""
}

// IsNonZeroExit returns true if the command ran but returned non-zero.
func (r *ExecutionResult) IsNonZeroExit() bool {
	return r.Success && r.ExitCode != 0
}

// Output returns the combined output.
func (r *ExecutionResult) Output() string {
	return r.Combined
}

// ExecutorConfig configures an executor.
type ExecutorConfig struct {
	// MaxOutputBytes caps each captured stream and the combined capture.
	// Zero means 10MB.
	MaxOutputBytes int64
}

// DefaultExecutorConfig returns the default configuration.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{MaxOutputBytes: 10 * 1024 * 1024}
}
