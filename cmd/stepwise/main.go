// Command stepwise runs and steps through programs written in the
// cooperatively scheduled scripting language the interp package evaluates.
package main

import (
	"fmt"
	"os"

	_ "go.uber.org/automaxprocs"

	"github.com/stepwise-dev/stepwise/cmd/stepwise/internal/cli"
)

func main() {
	root := cli.NewRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
