package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/stepwise-dev/stepwise/interp"
	"github.com/stepwise-dev/stepwise/parser"
)

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [program]",
		Short: "run a program to completion",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			debug, _ := cmd.Flags().GetBool("debug")

			cfg, err := interp.LoadConfig(configPath)
			if err != nil {
				return err
			}

			var entry string
			switch {
			case len(args) == 1:
				entry = args[0]
			case configPath != "":
				entry = filepath.Join(filepath.Dir(configPath), cfg.Entry)
			default:
				entry = cfg.Entry
			}

			src, err := os.ReadFile(entry)
			if err != nil {
				return fmt.Errorf("reading program %s: %w", entry, err)
			}

			program, err := parser.Parse(src)
			if err != nil {
				return fmt.Errorf("parsing %s: %w", entry, err)
			}

			rt := interp.NewRuntime()
			rt.IsDebug = debug || cfg.Debug

			scope := interp.WithGlobal(interp.NewRootScope())
			ex := rt.Execute(program, scope, filepath.Base(entry))

			ctx := context.Background()
			if cfg.TimeoutMillis > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, time.Duration(cfg.TimeoutMillis)*time.Millisecond)
				defer cancel()
			}

			ex.Start()
			select {
			case <-ex.Done():
			case <-ctx.Done():
				return fmt.Errorf("%s: %w", entry, ctx.Err())
			}

			if err := ex.Err(); err != nil {
				return fmt.Errorf("%s: %w", entry, err)
			}
			if result := ex.Result(); result != nil && result != interp.Undefined {
				fmt.Fprintln(cmd.OutOrStdout(), interp.FormatValue(result))
			}
			return nil
		},
	}

	return cmd
}
