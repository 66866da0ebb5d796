// Mdcctl controls commercial display panels over their binary serial
// command protocol on TCP port 1515.
//
// It switches power, input source, volume and video wall mode, mirrors the
// display's acknowledged state, and can bridge that state to other hosts
// over HTTP and WebSocket.
//
// Usage:
//
//	mdcctl [command] [flags]
//
// See 'mdcctl --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/mdcctl/internal/logging"
	"github.com/muurk/mdcctl/internal/version"
)

func main() {
	err := rootCmd.Execute()
	logging.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "mdcctl",
	Short: "Display panel control utility",
	Long: `A command line utility for controlling commercial display panels
over the binary serial-command protocol (TCP port 1515).

Displays can be addressed directly with --host and --device-id, or saved
by name with 'mdcctl config set-display' and selected with --display.`,
	Version:           version.Version,
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("mdcctl %s\n", version.Full())
	},
}
