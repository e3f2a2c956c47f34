package tactile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"sentinel/internal/logging"
)

// DirectExecutor executes commands directly on the host using os/exec.
type DirectExecutor struct {
	config ExecutorConfig
}

// NewDirectExecutor creates a new direct executor with default config.
func NewDirectExecutor() *DirectExecutor {
	return NewDirectExecutorWithConfig(DefaultExecutorConfig())
}

// NewDirectExecutorWithConfig creates a new direct executor with custom config.
func NewDirectExecutorWithConfig(config ExecutorConfig) *DirectExecutor {
	if config.MaxOutputBytes <= 0 {
		config.MaxOutputBytes = DefaultExecutorConfig().MaxOutputBytes
	}
	logging.TactileDebug("Creating DirectExecutor: maxOutput=%d bytes", config.MaxOutputBytes)
	return &DirectExecutor{config: config}
}

// Validate checks if a command can be executed.
func (e *DirectExecutor) Validate(cmd Command) error {
	if cmd.Binary == "" {
		return fmt.Errorf("binary is required")
	}
	return nil
}

// Execute runs a command directly on the host.
func (e *DirectExecutor) Execute(ctx context.Context, cmd Command) (*ExecutionResult, error) {
	timer := logging.StartTimer(logging.CategoryTactile, "Direct command execution")
	defer timer.Stop()

	if err := e.Validate(cmd); err != nil {
		logging.TactileWarn("Command validation failed: %s %v - %v", cmd.Binary, cmd.Arguments, err)
		return nil, err
	}
	logging.TactileDebug("Executing: %s (dir=%s)", cmd.CommandString(), cmd.WorkingDirectory)

	result := &ExecutionResult{ExitCode: -1}

	execCmd := exec.CommandContext(ctx, cmd.Binary, cmd.Arguments...)
	execCmd.Dir = cmd.WorkingDirectory
	execCmd.Env = append(os.Environ(), cmd.Environment...)
	setupProcessGroup(execCmd)
	execCmd.Cancel = func() error { return killProcessGroup(execCmd) }
	execCmd.WaitDelay = 2 * time.Second

	var stdoutBuf, stderrBuf bytes.Buffer
	var combinedBuf bytes.Buffer
	stdoutLimited := &limitedWriter{w: &stdoutBuf, max: e.config.MaxOutputBytes}
	stderrLimited := &limitedWriter{w: &stderrBuf, max: e.config.MaxOutputBytes}
	combinedLimited := &limitedWriter{w: &combinedBuf, max: e.config.MaxOutputBytes}
	combined := &lockedWriter{w: combinedLimited}

	stdoutSinks := []io.Writer{stdoutLimited, combined}
	stderrSinks := []io.Writer{stderrLimited, combined}
	if cmd.Stream != nil {
		stream := &lockedWriter{w: cmd.Stream}
		stdoutSinks = append(stdoutSinks, stream)
		stderrSinks = append(stderrSinks, stream)
	}
	execCmd.Stdout = io.MultiWriter(stdoutSinks...)
	execCmd.Stderr = io.MultiWriter(stderrSinks...)

	result.StartedAt = time.Now()
	err := execCmd.Run()
	result.FinishedAt = time.Now()
	result.Duration = result.FinishedAt.Sub(result.StartedAt)

	result.Stdout = stdoutBuf.String()
	result.Stderr = stderrBuf.String()
	result.Combined = combinedBuf.String()
	result.Truncated = stdoutLimited.truncated || stderrLimited.truncated || combinedLimited.truncated
	if result.Truncated {
		logging.TactileWarn("Command output truncated at %d bytes", e.config.MaxOutputBytes)
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		result.Success = true
		result.ExitCode = 0
	case ctx.Err() != nil:
		result.Success = true
		result.Killed = true
		result.KillReason = ctx.Err().Error()
		logging.TactileDebug("Command canceled: %s (%s)", cmd.Binary, result.KillReason)
	case errors.As(err, &exitErr):
		result.Success = true
		result.ExitCode = exitErr.ExitCode()
		logging.TactileDebug("Command exited non-zero: %s -> %d", cmd.Binary, result.ExitCode)
	default:
		result.Success = false
		result.Error = err.Error()
		logging.TactileWarn("Command failed to run: %s - %v", cmd.Binary, err)
		return result, nil
	}

	logging.Tactile("Command completed: %s -> exit=%d, duration=%s",
		cmd.Binary, result.ExitCode, result.Duration)
	return result, nil
}

// limitedWriter is an io.Writer that limits total bytes written.
type limitedWriter struct {
	w         io.Writer
	max       int64
	written   int64
	truncated bool
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	if lw.written >= lw.max {
		lw.truncated = true
		return n, nil // Pretend we wrote it
	}
	remaining := lw.max - lw.written
	if int64(n) > remaining {
		lw.truncated = true
		written, err := lw.w.Write(p[:remaining])
		lw.written += int64(written)
		return n, err // Report the full length to avoid short write errors
	}
	written, err := lw.w.Write(p)
	lw.written += int64(written)
	return written, err
}

// lockedWriter serialises writes from the stdout and stderr copiers.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
