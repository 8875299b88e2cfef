package main

import (
	"context"
	"os"

	"github.com/fatih/color"

	"github.com/gabay/core/cmd/api/commands"
)

func main() {
	rootCmd := commands.NewRootCommand()

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
