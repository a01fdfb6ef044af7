// Package commands implements the rgbbridge CLI.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	daemonListeningPort uint16
)

// rootCmd starts the daemon; the bridge has no subcommands besides version.
var rootCmd = &cobra.Command{
	Use:   "rgbbridge <app_directory_path>",
	Short: "RGB multisig bridge - coordination daemon for multisig wallet communities",
	Long: `rgbbridge is the coordination daemon for an M-of-N multisig wallet
community. Cosigners post wallet operations with their files (PSBTs, RGB
consignments, media, metadata), other cosigners approve or reject them, and
the bridge tracks threshold approval and per-cosigner processing state.

The app directory holds the configuration file (config.toml), the SQLite
database, the uploaded files and the logs.`,
	Args:          cobra.ExactArgs(1),
	RunE:          runStart,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI. Called by main.main().
func Execute() error {
	rootCmd.Version = fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, Date)
	return rootCmd.Execute()
}

func init() {
	rootCmd.Flags().Uint16Var(&daemonListeningPort, "daemon-listening-port", 3001,
		"Listening port of the daemon")
}
