package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sentinel/internal/anchor"
	"sentinel/internal/textfile"
)

var blocksCmd = &cobra.Command{
	Use:   "blocks <file>",
	Short: "List the named blocks in a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runBlocks,
}

func runBlocks(cmd *cobra.Command, args []string) error {
	path := args[0]
	doc, err := textfile.Read(path)
	if err != nil {
		return err
	}

	blocks, problems := anchor.SyntaxFor(path).Blocks(anchor.SplitLines(doc.Text))
	if len(blocks) == 0 && len(problems) == 0 {
		fmt.Printf("No blocks in %s\n", path)
		return nil
	}
	for _, b := range blocks {
		fmt.Printf("%-30s lines %d-%d\n", b.Name, b.StartLine, b.EndLine)
	}
	for _, p := range problems {
		fmt.Printf("! %s\n", p)
	}
	return nil
}
