// Command bunda-cli signs in to Jagoan Bunda and manages the stored
// session, in single-command mode or as an interactive shell.
package main

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"

	"github.com/jagoanbunda/bunda-cli/internal/cli/command"
)

func main() {
	// BUNDA_* settings may come from a .env file in the working directory.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		command.PrintError(os.Stderr, err)
		os.Exit(1)
	}

	app := command.App()
	if err := app.Run(os.Args); err != nil {
		command.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}
