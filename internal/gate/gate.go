// Package gate is the single point where an extracted script is shown to
// the operator and, once approved, run in the target project directory.
package gate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"sentinel/internal/logging"
	"sentinel/internal/tactile"
)

// ErrInterpreterFailure is returned when the interpreter exits non-zero or
// cannot be started.
var ErrInterpreterFailure = errors.New("script interpreter failed")

// Environment variables set for the interpreter.
const (
	EnvBundle     = "SENTINEL_BUNDLE"
	EnvProjectDir = "SENTINEL_PROJECT_DIR"
)

// Outcome is the terminal state of one gate run.
type Outcome int

const (
	// OutcomeRejected means the script was blank and never shown.
	OutcomeRejected Outcome = iota
	OutcomeDeclined
	OutcomeSucceeded
	OutcomeFailed
	// OutcomeCancelled means the context ended while the operator was being
	// asked. Nothing ran and the bundle should be offered again later.
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRejected:
		return "rejected"
	case OutcomeDeclined:
		return "declined"
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Request is one script awaiting approval.
type Request struct {
	Script string
	// Label identifies the bundle to the operator.
	Label string
	// Dir is the project directory the script runs in.
	Dir string
}

// Prompter asks the operator to approve a request.
type Prompter interface {
	// Confirm shows the request and returns true only on explicit approval.
	Confirm(ctx context.Context, req Request) (bool, error)
}

// Config configures how approved scripts are run.
type Config struct {
	// TempScriptName is the file the script is written to inside Dir.
	TempScriptName string
	Interpreter    string
	// Args are passed to the interpreter with the script name already
	// substituted.
	Args []string
}

// Gate prompts, executes and cleans up. It holds no per-request state.
type Gate struct {
	cfg      Config
	prompter Prompter
	executor tactile.Executor
	out      io.Writer
}

// New creates a Gate. Interpreter output is streamed to out as it is
// produced; nil means stdout.
func New(cfg Config, prompter Prompter, executor tactile.Executor, out io.Writer) *Gate {
	if out == nil {
		out = os.Stdout
	}
	if executor == nil {
		executor = tactile.NewDirectExecutor()
	}
	return &Gate{cfg: cfg, prompter: prompter, executor: executor, out: out}
}

// Run takes a request through approval and execution. A declined or
// rejected request returns a nil error; a failed run returns an error
// wrapping ErrInterpreterFailure. If ctx ends while the operator is being
// asked, Run returns OutcomeCancelled with ctx's error.
func (g *Gate) Run(ctx context.Context, req Request) (Outcome, error) {
	if strings.TrimSpace(req.Script) == "" {
		logging.GateWarn("rejected %s: script is empty", req.Label)
		return OutcomeRejected, nil
	}

	approved, err := g.prompter.Confirm(ctx, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			logging.Gate("prompt for %s abandoned: %v", req.Label, ctxErr)
			return OutcomeCancelled, ctxErr
		}
		logging.GateWarn("prompt for %s failed, treating as declined: %v", req.Label, err)
		return OutcomeDeclined, nil
	}
	if !approved {
		logging.Gate("declined %s", req.Label)
		return OutcomeDeclined, nil
	}

	scriptPath := filepath.Join(req.Dir, g.cfg.TempScriptName)
	defer func() {
		if err := os.Remove(scriptPath); err != nil && !os.IsNotExist(err) {
			logging.GateWarn("failed to remove temp script %s: %v", scriptPath, err)
		}
	}()
	if err := os.WriteFile(scriptPath, []byte(req.Script), 0644); err != nil {
		return OutcomeFailed, fmt.Errorf("%w: writing %s: %v", ErrInterpreterFailure, scriptPath, err)
	}

	logging.Gate("executing %s in %s", req.Label, req.Dir)
	result, err := g.executor.Execute(ctx, tactile.Command{
		Binary:           g.cfg.Interpreter,
		Arguments:        g.cfg.Args,
		WorkingDirectory: req.Dir,
		Environment: []string{
			EnvBundle + "=" + req.Label,
			EnvProjectDir + "=" + req.Dir,
		},
		Stream: g.out,
	})
	if err != nil {
		return OutcomeFailed, fmt.Errorf("%w: %v", ErrInterpreterFailure, err)
	}

	if out := result.Output(); out != "" && !strings.HasSuffix(out, "\n") {
		fmt.Fprintln(g.out)
	}

	switch {
	case result.IsError():
		logging.GateError("interpreter for %s did not run: %s", req.Label, result.Error)
		return OutcomeFailed, fmt.Errorf("%w: %s", ErrInterpreterFailure, result.Error)
	case result.Killed:
		logging.GateWarn("interpreter for %s killed: %s", req.Label, result.KillReason)
		return OutcomeFailed, fmt.Errorf("%w: %s", ErrInterpreterFailure, result.KillReason)
	case result.IsNonZeroExit():
		logging.GateWarn("%s exited with status %d", req.Label, result.ExitCode)
		return OutcomeFailed, fmt.Errorf("%w: exit status %d", ErrInterpreterFailure, result.ExitCode)
	}

	logging.Gate("%s succeeded in %s", req.Label, result.Duration)
	return OutcomeSucceeded, nil
}
