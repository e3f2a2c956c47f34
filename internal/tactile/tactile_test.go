package tactile

import (
	"bytes"
	"context"
	"runtime"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func shellCommand(script string) Command {
	if runtime.GOOS == "windows" {
		return Command{Binary: "cmd", Arguments: []string{"/c", script}}
	}
	return Command{Binary: "sh", Arguments: []string{"-c", script}}
}

func TestDirectExecutor_Execute(t *testing.T) {
	executor := NewDirectExecutor()

	result, err := executor.Execute(context.Background(), shellCommand("echo hello"))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !result.Success {
		t.Errorf("Expected success, got failure: %s", result.Error)
	}
	if result.ExitCode != 0 {
		t.Errorf("Expected exit code 0, got %d", result.ExitCode)
	}
	if !strings.Contains(result.Output(), "hello") {
		t.Errorf("Expected output to contain 'hello', got: %s", result.Output())
	}
}

func TestDirectExecutor_NonZeroExit(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
	executor := NewDirectExecutor()

	result, err := executor.Execute(context.Background(), shellCommand("echo out; echo err >&2; exit 3"))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !result.IsNonZeroExit() || result.ExitCode != 3 {
		t.Errorf("Expected exit code 3, got %d", result.ExitCode)
	}
	if result.Stdout != "out\n" || result.Stderr != "err\n" {
		t.Errorf("Unexpected streams: stdout=%q stderr=%q", result.Stdout, result.Stderr)
	}
	if !strings.Contains(result.Combined, "out") || !strings.Contains(result.Combined, "err") {
		t.Errorf("Combined output missing a stream: %q", result.Combined)
	}
}

func TestDirectExecutor_WorkingDirectory(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
	dir := t.TempDir()
	cmd := shellCommand("pwd")
	cmd.WorkingDirectory = dir

	result, err := NewDirectExecutor().Execute(context.Background(), cmd)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	// macOS temp dirs resolve through /private.
	if !strings.HasSuffix(strings.TrimSpace(result.Stdout), strings.TrimPrefix(dir, "/private")) {
		t.Errorf("Expected pwd %s, got %s", dir, result.Stdout)
	}
}

func TestDirectExecutor_Stream(t *testing.T) {
	var live bytes.Buffer
	cmd := shellCommand("echo streamed")
	cmd.Stream = &live

	if _, err := NewDirectExecutor().Execute(context.Background(), cmd); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.Contains(live.String(), "streamed") {
		t.Errorf("Expected streamed output, got %q", live.String())
	}
}

func TestDirectExecutor_CombinedCapped(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
	executor := NewDirectExecutorWithConfig(ExecutorConfig{MaxOutputBytes: 16})

	script := "i=0; while [ $i -lt 50 ]; do echo 0123456789; echo 0123456789 >&2; i=$((i+1)); done"
	result, err := executor.Execute(context.Background(), shellCommand(script))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !result.Truncated {
		t.Error("Expected truncation")
	}
	if len(result.Combined) > 16 || len(result.Stdout) > 16 || len(result.Stderr) > 16 {
		t.Errorf("Capture exceeded cap: combined=%d stdout=%d stderr=%d",
			len(result.Combined), len(result.Stdout), len(result.Stderr))
	}
}

func TestDirectExecutor_Cancel(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sleep")
	}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(200 * time.Millisecond)
		cancel()
	}()

	result, err := NewDirectExecutor().Execute(ctx, Command{Binary: "sleep", Arguments: []string{"10"}})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !result.Killed || result.KillReason != "context canceled" {
		t.Errorf("Expected cancellation, got killed=%v reason=%q", result.Killed, result.KillReason)
	}
}

func TestDirectExecutor_MissingBinary(t *testing.T) {
	result, err := NewDirectExecutor().Execute(context.Background(), Command{Binary: "definitely-not-a-real-binary-xyz"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !result.IsError() {
		t.Error("Expected infrastructure error for missing binary")
	}
}

func TestDirectExecutor_Validate(t *testing.T) {
	if _, err := NewDirectExecutor().Execute(context.Background(), Command{}); err == nil {
		t.Error("Expected validation error for empty binary")
	}
}

func TestLimitedWriter(t *testing.T) {
	var buf bytes.Buffer
	lw := &limitedWriter{w: &buf, max: 4}
	n, err := lw.Write([]byte("abcdef"))
	if err != nil || n != 6 {
		t.Fatalf("Write = %d, %v", n, err)
	}
	if buf.String() != "abcd" || !lw.truncated {
		t.Errorf("Expected truncated 'abcd', got %q truncated=%v", buf.String(), lw.truncated)
	}
}

func TestCommandString(t *testing.T) {
	cmd := Command{Binary: "pwsh", Arguments: []string{"-File", "_current_patch.ps1"}}
	if got := cmd.CommandString(); got != "pwsh -File _current_patch.ps1" {
		t.Errorf("CommandString = %q", got)
	}
}
