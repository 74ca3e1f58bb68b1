package cmd

import (
	"os"

	"github.com/spf13/cobra"

	config "notegrid.app/notegrid/internal/configs"
)

var (
	configDir string
	logLevel  string
)

var rootCmd = &cobra.Command{
	Use:           "notegrid",
	Short:         "NoteGrid task and link organizer",
	Long:          "NoteGrid keeps tasks and links behind a secret identity code.\nRun `notegrid serve` for the API, or use the client commands against it.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		rootCmd.PrintErrln("Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", config.DefaultConfigDir(), "client configuration directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "client log level")
}
