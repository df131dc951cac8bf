package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"josephlewis.net/gosh/core"
	"josephlewis.net/gosh/core/shell"
)

var runSkipStartup bool

// runCmd executes script files non-interactively
var runCmd = &cobra.Command{
	Use:   "run SCRIPT...",
	Short: "Run script files and print the result of the last one.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		configuration, err := loadConfig()
		if err != nil {
			return err
		}

		interpreter := core.NewInterpreter(configuration)
		session := interpreter.NewSession(cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		defer session.Close()

		ctx := cmd.Context()
		if !runSkipStartup {
			if err := interpreter.RunStartupScripts(ctx, session); err != nil {
				return err
			}
		}

		var result interface{}
		for _, script := range args {
			result, err = interpreter.RunScript(ctx, session, script)
			if err != nil {
				color.New(color.FgRed).Fprintf(cmd.ErrOrStderr(), "%v\n", err)
				return err
			}
		}

		if result != nil {
			fmt.Fprintln(cmd.OutOrStdout(), shell.Format(result, shell.Inspect))
		}
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&runSkipStartup, "no-startup", false, "skip the configured startup scripts")
	rootCmd.AddCommand(runCmd)
}
