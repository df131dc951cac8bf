package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"josephlewis.net/gosh/core"
)

// consoleCmd runs an interactive console on the local terminal
var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Run an interactive console on the local terminal.",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		configuration, err := loadConfig()
		if err != nil {
			return err
		}

		interpreter := core.NewInterpreter(configuration)
		session := interpreter.NewSession(os.Stdin, os.Stdout, os.Stderr)
		defer session.Close()

		ctx := cmd.Context()
		if err := interpreter.RunStartupScripts(ctx, session); err != nil {
			return err
		}

		console, err := core.NewConsole(session, core.ConsoleOptions{
			Prompt:      configuration.Prompt,
			HistoryPath: configuration.HistoryPath(),
		})
		if err != nil {
			return err
		}
		defer console.Close()

		return console.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(consoleCmd)
}
