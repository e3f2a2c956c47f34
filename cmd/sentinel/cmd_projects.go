package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sentinel/internal/registry"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List registered projects",
	Args:  cobra.NoArgs,
	RunE:  runProjects,
}

func runProjects(cmd *cobra.Command, args []string) error {
	records, err := registry.New(cfg.RegistryPath()).Projects()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No projects registered.")
		return nil
	}

	for _, rec := range records {
		status := ""
		if _, err := os.Stat(rec.Path); err != nil {
			status = "  (missing)"
		}
		fmt.Printf("%-12s %s%s\n", rec.ID, rec.Path, status)
	}
	return nil
}
