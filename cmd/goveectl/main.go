// Goveectl controls Govee Bluetooth lights.
//
// It speaks the lights' 20-byte frame protocol directly over Bluetooth LE
// and can fall back to the Govee cloud API for lights out of radio range.
//
// Usage:
//
//	goveectl [command] [flags]
//
// See 'goveectl --help' for available commands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/muurk/goveectl/internal/logging"
	"github.com/muurk/goveectl/internal/ui"
	"github.com/muurk/goveectl/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logging.Sync()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Global flags
var (
	logLevel   string
	logFile    string
	showStats  bool
	modelFlag  string
	catalogDir string
)

var rootCmd = &cobra.Command{
	Use:   "goveectl",
	Short: "Govee Bluetooth Light Controller",
	Long: `Control Govee lights over Bluetooth LE.

Commands are encoded into the lights' 20-byte frames and written to the
control characteristic without a hub or the Govee app. Lights out of
range can be controlled through the Govee cloud API with 'goveectl cloud'.

Devices can be addressed by Bluetooth address or by an alias saved with
'goveectl device add'.`,
	Version: version.Version,
	Example: `  # Find lights in range
  goveectl scan

  # Save one under a short name
  goveectl device add desk --address A4:C1:38:12:34:56 --model H6199

  # Turn it on at half brightness in orange
  goveectl power on desk --brightness 128 --color ff8000

  # Browse and play an effect
  goveectl effects pick desk`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.InitializeWithOptions(logging.Options{Level: logLevel, File: logFile})
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); silent when unset")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write JSON logs to this rotating file")
	rootCmd.PersistentFlags().BoolVar(&showStats, "stats", false, "Print transport statistics after the command")
	rootCmd.PersistentFlags().StringVar(&modelFlag, "model", "", "Device model (overrides the saved model, e.g. H6199)")
	rootCmd.PersistentFlags().StringVar(&catalogDir, "catalog-dir", "", "Directory of <MODEL>.json effect catalogs")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		ui.NewPrinter(cmd.OutOrStdout()).PrintSuccess("goveectl "+version.Version, version.Details())
	},
}
