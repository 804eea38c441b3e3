package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const version = "1.0.0"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "trackframe-replay",
		Short: "Offline event replay for the Trackframe worker",
		Long: `trackframe-replay feeds recorded camera event files through the same
validation and normalization pipeline the worker uses for live events.

Replay files may be JSON Lines, a JSON array or a single JSON object.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			levelStr, _ := cmd.Flags().GetString("log-level")
			level, err := zerolog.ParseLevel(levelStr)
			if err != nil {
				level = zerolog.WarnLevel
			}
			zerolog.TimeFieldFormat = time.RFC3339
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
			zerolog.SetGlobalLevel(level)

			noColor, _ := cmd.Flags().GetBool("no-color")
			setNoColor(noColor)
			return nil
		},
	}

	root.PersistentFlags().String("log-level", "warn", "pipeline log level: debug, info, warn, error")
	root.PersistentFlags().Bool("no-color", false, "disable colored output")

	root.AddCommand(newRunCmd())
	root.AddCommand(newCheckCmd())
	return root
}
