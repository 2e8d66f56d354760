package cli

import (
	"github.com/spf13/cobra"
)

var version = "dev"

func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "uiforge",
	Short: "uiforge generates UI components through an AI agent pipeline",
	Long: `uiforge runs tool descriptions through a multi-agent generation pipeline:
function planning, state and layout design, styling, assembly, validation,
and final packaging. Steps run in order with one parallel branch, and a
failed generation degrades to a tagged placeholder instead of killing the
job.

All state is stored in ~/.uiforge/ (SQLite for progress events, JSON for
job contexts) unless configured otherwise in uiforge.yaml.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(jobCmd)
	rootCmd.AddCommand(isolatedCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
}
