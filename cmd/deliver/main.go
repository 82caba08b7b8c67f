// Command deliver runs candidate sessions over compiled assessment content.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/deliver/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
