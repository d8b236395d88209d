package cli

import (
	"bufio"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stepwise-dev/stepwise/interp"
	"github.com/stepwise-dev/stepwise/parser"
)

func newReplCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "read one program per line and run each to completion, sharing bindings across lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")

			rt := interp.NewRuntime()
			rt.IsDebug = debug
			scope := interp.WithGlobal(interp.NewRootScope())

			in := bufio.NewScanner(cmd.InOrStdin())
			out := cmd.OutOrStdout()
			n := 0
			fmt.Fprint(out, "> ")
			for in.Scan() {
				line := in.Text()
				n++
				if line == "" {
					fmt.Fprint(out, "> ")
					continue
				}

				program, err := parser.Parse([]byte(line))
				if err != nil {
					fmt.Fprintln(out, err)
					fmt.Fprint(out, "> ")
					continue
				}

				ex := rt.Execute(program, scope, fmt.Sprintf("repl:%d", n))
				ex.Start()
				<-ex.Done()

				if err := ex.Err(); err != nil {
					fmt.Fprintln(out, err)
				} else if result := ex.Result(); result != nil && result != interp.Undefined {
					fmt.Fprintln(out, interp.FormatValue(result))
				}
				fmt.Fprint(out, "> ")
			}
			return in.Err()
		},
	}
}
