// Command eventsheet compiles, validates, runs and tests event sheets.
package main

import (
	"os"

	"github.com/roach88/eventsheet/internal/cli"
)

func main() {
	os.Exit(cli.Execute(cli.NewRootCommand(), os.Stderr))
}
