// Package cli wires together the stepwise root Cobra command and its
// subcommands (run, repl, version), modeled on the cobra root/commands
// split the bartekus-stagecraft pack repo uses.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags "-X .../cli.version=...";
// it defaults to a development marker so `go run` still reports something.
var version = "0.0.0-dev"

// NewRootCommand constructs the stepwise root Cobra command.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "stepwise",
		Short:         "stepwise runs programs in a cooperatively scheduled scripting language",
		Long:          "stepwise is a step-at-a-time interpreter: every program executes as a sequence of discrete, resumable Steps, driven either to completion or one Step at a time under a debugger.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("config", "", "path to stepwise.yml")
	cmd.PersistentFlags().Bool("debug", false, "trace every Step to stderr")

	cmd.AddCommand(newRunCommand())
	cmd.AddCommand(newReplCommand())
	cmd.AddCommand(newVersionCommand())

	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print the stepwise version",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "stepwise version %s\n", version)
			return err
		},
	}
}
