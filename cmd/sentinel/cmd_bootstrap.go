package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"sentinel/internal/anchor"
	"sentinel/internal/textfile"
)

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap <file>",
	Short: "Wrap every top-level function in a file with block markers",
	Long: `Inserts a BLOCK/ENDBLOCK marker pair around each top-level function
so the patch command can replace it by name.

Supported: Python, Go, JavaScript, TypeScript and Rust. Files that already
contain markers are left untouched.`,
	Args: cobra.ExactArgs(1),
	RunE: runBootstrap,
}

func runBootstrap(cmd *cobra.Command, args []string) error {
	path := args[0]
	res, err := anchor.NewBootstrapper(nil).Bootstrap(path)
	if err != nil {
		return err
	}

	fmt.Printf("Inserted %d block(s) into %s\n", res.Blocks, path)
	if len(res.Names) > 0 {
		fmt.Printf("  %s\n", strings.Join(res.Names, ", "))
	}
	if res.Encoding == textfile.Latin1 {
		fmt.Println("  (written as latin-1)")
	}
	return nil
}
