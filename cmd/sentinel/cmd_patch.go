package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"sentinel/internal/patch"
)

var patchCmd = &cobra.Command{
	Use:   "patch <file> <block-name>",
	Short: "Replace the body of a named block with text read from stdin",
	Long: `Replaces the lines between a block's start and end markers with the
text read from standard input. The markers themselves are kept.

If the new text matches the current body (ignoring whitespace) the file is
not rewritten.`,
	Args: cobra.ExactArgs(2),
	RunE: runPatch,
}

func runPatch(cmd *cobra.Command, args []string) error {
	path, block := args[0], args[1]

	content, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return fmt.Errorf("failed to read new block content: %w", err)
	}

	res, err := patch.Patch(path, block, string(content))
	if err != nil {
		return err
	}
	if !res.Changed {
		fmt.Printf("Block %q in %s already up to date\n", block, path)
		return nil
	}
	fmt.Printf("Patched block %q in %s\n", block, path)
	return nil
}
