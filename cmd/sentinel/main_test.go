package main

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentinel/internal/logging"
	"sentinel/internal/registry"
	"sentinel/internal/store"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	var err error
	output := captureOutput(t, func() {
		rootCmd.SetArgs(args)
		if stdin != "" {
			rootCmd.SetIn(strings.NewReader(stdin))
		} else {
			rootCmd.SetIn(nil)
		}
		err = rootCmd.Execute()
		logging.CloseAll()
	})
	return output, err
}

// firstLine returns the first stdout line; log output follows it.
func firstLine(out string) string {
	line, _, _ := strings.Cut(out, "\n")
	return strings.TrimSpace(line)
}

func TestRegisterAndProjects(t *testing.T) {
	home := t.TempDir()
	project := t.TempDir()

	out, err := execute(t, "", "--home", home, "register", project)
	require.NoError(t, err)
	id := firstLine(out)
	assert.True(t, strings.HasPrefix(id, registry.IDPrefix), "unexpected id %q", id)

	again, err := execute(t, "", "--home", home, "register", project)
	require.NoError(t, err)
	assert.Equal(t, id, firstLine(again))

	listing, err := execute(t, "", "--home", home, "projects")
	require.NoError(t, err)
	assert.Contains(t, listing, id)
	assert.Contains(t, listing, project)
}

func TestRegisterUsesChooserWithoutPath(t *testing.T) {
	home := t.TempDir()
	project := t.TempDir()

	orig := chooseDirectory
	chooseDirectory = func(*cobra.Command) (string, error) { return project, nil }
	defer func() { chooseDirectory = orig }()

	out, err := execute(t, "", "--home", home, "register")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(firstLine(out), registry.IDPrefix))
}

func TestRegisterRejectsMissingDirectory(t *testing.T) {
	_, err := execute(t, "", "--home", t.TempDir(), "register", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, registry.ErrInvalidPath))
}

func TestBootstrapBlocksAndPatch(t *testing.T) {
	home := t.TempDir()
	src := filepath.Join(t.TempDir(), "greet.go")
	require.NoError(t, os.WriteFile(src, []byte("package greet\n\nfunc Hello() string {\n\treturn \"hello\"\n}\n"), 0644))

	out, err := execute(t, "", "--home", home, "bootstrap", src)
	require.NoError(t, err)
	assert.Contains(t, out, "Inserted 1 block(s)")

	out, err = execute(t, "", "--home", home, "blocks", src)
	require.NoError(t, err)
	assert.Contains(t, out, "Hello")

	body := "func Hello() string {\n\treturn \"hi\"\n}\n"
	out, err = execute(t, body, "--home", home, "patch", src, "Hello")
	require.NoError(t, err)
	assert.Contains(t, out, "Patched block")

	data, err := os.ReadFile(src)
	require.NoError(t, err)
	assert.Contains(t, string(data), "return \"hi\"")
	assert.Contains(t, string(data), "// --- BLOCK: Hello ---")

	out, err = execute(t, "func Hello() string {   return \"hi\" }", "--home", home, "patch", src, "Hello")
	require.NoError(t, err)
	assert.Contains(t, out, "already up to date")
}

func TestBootstrapTwiceFails(t *testing.T) {
	home := t.TempDir()
	src := filepath.Join(t.TempDir(), "one.go")
	require.NoError(t, os.WriteFile(src, []byte("package one\n\nfunc One() {}\n"), 0644))

	_, err := execute(t, "", "--home", home, "bootstrap", src)
	require.NoError(t, err)
	_, err = execute(t, "", "--home", home, "bootstrap", src)
	assert.Error(t, err)
}

func TestWatchLocalWithoutProjects(t *testing.T) {
	_, err := execute(t, "", "--home", t.TempDir(), "watch", "local")
	require.Error(t, err)
	assert.True(t, errors.Is(err, registry.ErrConfig))
}

func TestWatchRejectsUnknownMode(t *testing.T) {
	_, err := execute(t, "", "--home", t.TempDir(), "watch", "ftp")
	assert.Error(t, err)
}

func TestBannerFlagsMissingPaths(t *testing.T) {
	present := t.TempDir()
	records := []registry.ProjectRecord{
		{ID: "proj-aaaa", Path: present},
		{ID: "proj-bbbb", Path: filepath.Join(present, "gone")},
	}

	out := captureOutput(t, func() { printBanner("local", records, 7) })
	assert.Contains(t, out, "   proj-aaaa")
	assert.Contains(t, out, " ! proj-bbbb")
	assert.Contains(t, out, "Processed bundles: 7")
}

func TestHistory(t *testing.T) {
	home := t.TempDir()

	out, err := execute(t, "", "--home", home, "history", "--limit", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "No bundles handled yet")

	hs, err := store.Open(filepath.Join(home, "history.db"))
	require.NoError(t, err)
	require.NoError(t, hs.Record(store.Entry{
		Channel:    "remote",
		Identifier: "doc-1",
		ProjectID:  "proj-1a2b",
		Label:      "proj-1a2b (fix.txt)",
		State:      store.StateFailed,
		Detail:     "script interpreter failed: exit status 2",
	}))
	require.NoError(t, hs.Close())

	out, err = execute(t, "", "--home", home, "history", "--limit", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "proj-1a2b (fix.txt)")
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "exit status 2")

	historyPretty = false
	t.Cleanup(func() { historyPretty = false })
	out, err = execute(t, "", "--home", home, "history", "--pretty")
	require.NoError(t, err)
	assert.Contains(t, out, "Channel")
	assert.Contains(t, out, "fix.txt")
	assert.Contains(t, out, "failed")
}

func captureOutput(t *testing.T, fn func()) string {
	t.Helper()

	origOut := os.Stdout
	origErr := os.Stderr
	rOut, wOut, _ := os.Pipe()
	rErr, wErr, _ := os.Pipe()
	os.Stdout = wOut
	os.Stderr = wErr

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, rOut)
		_, _ = io.Copy(&buf, rErr)
		done <- buf.String()
	}()

	fn()

	_ = wOut.Close()
	_ = wErr.Close()
	os.Stdout = origOut
	os.Stderr = origErr
	return <-done
}
