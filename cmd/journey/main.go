// Package main provides the journey command: the REST API, the due-action
// dispatcher and offline simulation of journey files.
package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	cli "github.com/urfave/cli/v3"
)

func main() {
	// Existing environment variables win over .env entries.
	_ = godotenv.Load()

	cmd := &cli.Command{
		Name:                  "journey",
		Usage:                 "Author, simulate and run customer journeys",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			NewAPICommand(),
			NewDispatcherCommand(),
			NewSimulateCommand(),
		},
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
