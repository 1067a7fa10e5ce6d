// Softap-cfg provisions devices running softap-server.
//
// It finds provisioning portals over mDNS, reports their state, submits
// Wi-Fi credentials and follows a device until it has joined the network.
// Run it from a laptop joined to the device's setup network.
//
// Usage:
//
//	softap-cfg [command] [flags]
//
// See 'softap-cfg --help' for available commands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/muurk/softap/internal/logging"
	"github.com/muurk/softap/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "softap-cfg",
	Short: "Provision devices through their setup portal",
	Long: `A utility for provisioning devices running softap-server.

Join the device's setup Wi-Fi network, then use 'scan' to find the portal
and 'provision' to send it the credentials of your network.`,
	Version: version.Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Initialize("")
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("softap-cfg %s\n", version.Full())
	},
}
