// Softap-server runs a Wi-Fi provisioning portal on a headless device.
//
// The device brings up its own access point, serves a page where an
// operator enters the credentials of the network the device should join,
// and then joins that network as a client.
//
// Usage:
//
//	softap-server serve [flags]
//
// See 'softap-server serve --help' for available options.
package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/softap/internal/config"
	"github.com/muurk/softap/internal/discovery"
	"github.com/muurk/softap/internal/logging"
	"github.com/muurk/softap/internal/netmode"
	"github.com/muurk/softap/internal/portal"
	"github.com/muurk/softap/internal/provision"
	"github.com/muurk/softap/internal/ui"
	"github.com/muurk/softap/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "softap-server",
	Short: "Wi-Fi provisioning portal",
	Long: `Runs a Wi-Fi provisioning portal on a headless device.

The device hosts its own access point and serves a page where an operator
enters the name and password of the network the device should join. The
device then joins that network as a client.

Note: to provision a device from another machine, use 'softap-cfg'.`,
	Version: version.Version,
}

var configPath string

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: $XDG_CONFIG_HOME/softap/config.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// Serve command flags
var (
	logLevel   string
	port       int
	backend    string
	noMDNS     bool
	showBanner bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the access point and the provisioning portal",
	Long: `Start the provisioning access point and serve the portal.

The access point settings, retry policy and radio backend come from the
config file. Flags override individual values. Failing to start the access
point is fatal; everything after that is logged and the portal keeps
serving.`,
	Example: `  # Start with the config file defaults (simulated radio)
  softap-server serve

  # Drive NetworkManager and log every request
  softap-server serve --backend nmcli --log-level debug

  # Serve on a custom port without mDNS
  softap-server serve --port 8080 --no-mdns`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides the config file")
	serveCmd.Flags().IntVar(&port, "port", 0, "Portal HTTP port; overrides the config file")
	serveCmd.Flags().StringVar(&backend, "backend", "", "Radio backend (sim, nmcli); overrides the config file")
	serveCmd.Flags().BoolVar(&noMDNS, "no-mdns", false, "Do not advertise the portal over mDNS")
	serveCmd.Flags().BoolVar(&showBanner, "banner", true, "Print the startup banner")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.HTTP.Port = port
	}
	if backend != "" {
		cfg.Radio.Backend = backend
	}
	if noMDNS {
		cfg.MDNS.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	if err := logging.Initialize(level); err != nil {
		return err
	}
	defer logging.Sync()

	apCfg, err := cfg.APConfig()
	if err != nil {
		return err
	}
	radio, err := cfg.NewRadio()
	if err != nil {
		return err
	}
	policy := cfg.RetryPolicy()
	ctrl, err := netmode.NewController(radio, apCfg, policy)
	if err != nil {
		return err
	}

	var announcer portal.Announcer
	var instance string
	if cfg.MDNS.Enabled {
		adv := discovery.NewAdvertiser(cfg.MDNS.Instance, cfg.MDNS.Interface)
		announcer = adv
		instance = adv.Instance
	}

	srv, err := portal.New(portal.Config{
		Host: cfg.HTTP.Host,
		Port: cfg.HTTP.Port,
	}, provision.NewTracker(), ctrl, announcer)
	if err != nil {
		return fmt.Errorf("failed to create portal: %w", err)
	}

	logging.Info("Starting softap-server",
		zap.String("version", version.Version),
		zap.String("backend", cfg.Radio.Backend),
		zap.String("ap_ssid", apCfg.SSID),
		zap.Int("max_attempts", policy.MaxAttempts),
		zap.Duration("retry_interval", policy.Interval),
		zap.Duration("max_retry_wait", policy.MaxDuration()),
	)

	if showBanner {
		ui.NewPrinter(os.Stdout).PrintBanner(ui.BannerInfo{
			SSID:     apCfg.SSID,
			Password: apCfg.Password,
			Security: string(apCfg.Security),
			URL:      portalURL(apCfg.IP.Address.String(), cfg.HTTP.Port),
			Instance: instance,
		})
	}

	// Start handles SIGINT and SIGTERM itself
	if err := srv.Start(cmd.Context()); err != nil {
		var radioErr *netmode.RadioError
		if errors.As(err, &radioErr) && (radioErr.Op == "start_ap" || radioErr.Op == "ap_address") {
			ui.NewPrinter(os.Stderr).PrintError("Access point could not be started", err,
				"Check that the radio supports access point mode and that the interface is not managed elsewhere.")
			logging.Fatal("Access point could not be started", zap.Error(err))
		}
		return err
	}
	return nil
}

// portalURL is the address operators open after joining the access point
func portalURL(host string, port int) string {
	if port == 80 {
		return "http://" + host + "/"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(port)) + "/"
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("softap-server %s\n", version.Full())
		fmt.Printf("  %s\n", version.Platform())
	},
}
