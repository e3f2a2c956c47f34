package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sentinel/internal/chooser"
	"sentinel/internal/registry"
)

// chooseDirectory is swapped out in tests.
var chooseDirectory = func(cmd *cobra.Command) (string, error) {
	return chooser.ChooseDirectory(cmd.Context(), ".", os.Stdin, os.Stdout)
}

var registerCmd = &cobra.Command{
	Use:   "register [path]",
	Short: "Register a project directory and print its id",
	Long: `Registers a directory as a delivery target. Bundles name the project
by the printed id. Registering the same directory again prints the
existing id.

Without a path an interactive directory chooser opens.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRegister,
}

func runRegister(cmd *cobra.Command, args []string) error {
	var dir string
	if len(args) == 1 {
		dir = args[0]
	} else {
		chosen, err := chooseDirectory(cmd)
		if err != nil {
			return err
		}
		dir = chosen
	}

	reg := registry.New(cfg.RegistryPath())
	id, err := reg.Register(dir)
	if err != nil {
		return err
	}
	fmt.Println(id)
	return nil
}
