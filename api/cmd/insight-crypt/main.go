// Command insight-crypt is the operator tool for values encrypted at rest:
// it seals and opens settings, connection details and attachment files with
// the same key the API derives from INSIGHT_ENCRYPTION_SECRET_KEY.
package main

import (
	"os"

	"github.com/fatih/color"
)

func main() {
	root := newRootCmd(&cli{
		in:     os.Stdin,
		out:    os.Stdout,
		errOut: os.Stderr,
		getenv: os.Getenv,
	})

	if err := root.Execute(); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, "✗", err)
		os.Exit(1)
	}
}
