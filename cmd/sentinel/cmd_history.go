package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"sentinel/internal/store"
)

var (
	historyLimit  int
	historyPretty bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent bundle outcomes",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Number of entries to show")
	historyCmd.Flags().BoolVar(&historyPretty, "pretty", false, "Render entries as a styled table")
}

func runHistory(cmd *cobra.Command, args []string) error {
	hs, err := store.Open(cfg.HistoryPath())
	if err != nil {
		return err
	}
	defer hs.Close()

	entries, err := hs.Recent(historyLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No bundles handled yet.")
		return nil
	}

	if historyPretty {
		out, err := renderHistory(entries)
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	}

	for _, e := range entries {
		what := e.Label
		if what == "" {
			what = e.Identifier
		}
		fmt.Printf("%s  %-6s  %-14s  %s\n", e.CreatedAt.Local().Format("2006-01-02 15:04:05"), e.Channel, e.State, what)
		if e.Detail != "" {
			fmt.Printf("    %s\n", e.Detail)
		}
	}
	return nil
}

// renderHistory formats entries as a markdown table rendered for the
// terminal.
func renderHistory(entries []store.Entry) (string, error) {
	cell := strings.NewReplacer("|", "\\|", "\n", " ", "\r", "")

	var md strings.Builder
	md.WriteString("| When | Channel | State | Bundle | Detail |\n")
	md.WriteString("|---|---|---|---|---|\n")
	for _, e := range entries {
		what := e.Label
		if what == "" {
			what = e.Identifier
		}
		fmt.Fprintf(&md, "| %s | %s | %s | %s | %s |\n",
			e.CreatedAt.Local().Format("2006-01-02 15:04"),
			e.Channel, e.State, cell.Replace(what), cell.Replace(e.Detail))
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(120),
	)
	if err != nil {
		return "", fmt.Errorf("creating renderer: %w", err)
	}
	return renderer.Render(md.String())
}
