package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/muurk/softap/internal/discovery"
	"github.com/muurk/softap/internal/portalclient"
	"github.com/muurk/softap/internal/ui"
)

// Common flags
var (
	portalURL   string
	instance    string
	scanTimeout time.Duration
	jsonOutput  bool
	quickScan   bool
)

// Provision flags
var (
	ssid     string
	password string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&portalURL, "url", "", "Portal URL, e.g. http://192.168.0.2 (skips discovery)")
	rootCmd.PersistentFlags().StringVar(&instance, "instance", "", "mDNS instance name to pick when several portals answer")
	rootCmd.PersistentFlags().DurationVar(&scanTimeout, "timeout", discovery.DefaultScanTimeout, "mDNS discovery timeout")

	scanCmd.Flags().BoolVar(&quickScan, "quick", false, "Fast scan with a short fixed timeout (ignores --timeout)")

	statusCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the raw status JSON")

	provisionCmd.Flags().StringVar(&ssid, "ssid", "", "Name of the network the device should join")
	provisionCmd.Flags().StringVar(&password, "password", "", "Network password (prompted when omitted; empty for open networks)")
	_ = provisionCmd.MarkFlagRequired("ssid")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(provisionCmd)
	rootCmd.AddCommand(watchCmd)
}

// scanCmd discovers portals on the network
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for provisioning portals",
	Long: `Scan for provisioning portals using mDNS/DNS-SD discovery.

Portals advertise themselves as HTTP services with a "svc=softap" TXT
record. Other HTTP services on the network are ignored.`,
	Example: `  # Scan for 5 seconds (default)
  softap-cfg scan

  # Fast scan when the portal is known to be up
  softap-cfg scan --quick

  # Longer scan for busy networks
  softap-cfg scan --timeout 15s`,
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	var (
		portals []*discovery.Portal
		err     error
	)
	if quickScan {
		fmt.Printf("Quick scan for provisioning portals (timeout: %s)...\n\n", discovery.QuickScanTimeout)
		portals, err = discovery.QuickScan(cmd.Context())
	} else {
		fmt.Printf("Scanning for provisioning portals (timeout: %s)...\n\n", scanTimeout)
		scanner := discovery.NewScanner()
		scanner.Timeout = scanTimeout
		portals, err = scanner.Scan(cmd.Context())
	}
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	ui.NewPrinter(os.Stdout).PrintPortals(portals)
	if len(portals) == 0 {
		fmt.Println("\nTroubleshooting:")
		fmt.Println("  - Join the device's setup Wi-Fi network first")
		fmt.Println("  - Check that your firewall allows mDNS (UDP port 5353)")
		fmt.Println("  - Use --url to address the portal directly")
	}
	return nil
}

// statusCmd prints a portal's provisioning state
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show a portal's provisioning state",
	Example: `  # Status of the only portal on the network
  softap-cfg status

  # Status of a specific portal, as JSON
  softap-cfg status --url http://192.168.0.2 --json`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	client, err := newClient(cmd.Context())
	if err != nil {
		return err
	}

	status, err := client.Status(cmd.Context())
	if err != nil {
		return reportFailure("Could not read portal status", err)
	}

	if jsonOutput {
		data, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	params := []ui.Param{
		{Key: "State", Value: status.State},
		{Key: "AP address", Value: status.APAddress},
	}
	if status.SSID != "" {
		params = append(params, ui.Param{Key: "Network", Value: status.SSID})
	}
	if status.ClientAddress != "" {
		params = append(params, ui.Param{Key: "Client addr", Value: status.ClientAddress})
	}
	params = append(params,
		ui.Param{Key: "Changed", Value: status.ChangedAt},
		ui.Param{Key: "Version", Value: status.Version},
	)
	ui.NewPrinter(os.Stdout).PrintHeader("Portal status", client.BaseURL, params...)
	return nil
}

// provisionCmd sends credentials to a portal
var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Send Wi-Fi credentials to a device",
	Long: `Send the name and password of a Wi-Fi network to a device.

The portal answers once the device has joined the network or given up.
That can take as long as the device's retry policy allows. When the
attempt fails the device keeps its setup network up, so the command can be
run again with corrected credentials.`,
	Example: `  # Prompt for the password
  softap-cfg provision --ssid Home-Wifi

  # Open network on a specific portal
  softap-cfg provision --url http://192.168.0.2 --ssid Guest --password ""`,
	RunE: runProvision,
}

func runProvision(cmd *cobra.Command, args []string) error {
	pw := password
	if !cmd.Flags().Changed("password") {
		var err error
		if pw, err = readPassword(os.Stdin, os.Stderr); err != nil {
			return err
		}
	}

	if errs := portalclient.ValidateCredentials(ssid, pw); len(errs) > 0 {
		return errors.Join(errs...)
	}

	client, err := newClient(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("Sending credentials for %q to %s...\n", ssid, client.BaseURL)
	fmt.Println("The device is trying to join the network; this can take up to a minute.")
	fmt.Println()

	result, err := client.Provision(cmd.Context(), ssid, pw)
	if err != nil {
		return reportFailure("Provisioning failed", err)
	}

	ui.NewPrinter(os.Stdout).PrintSuccess("Device provisioned",
		ui.Param{Key: "Network", Value: result.SSID},
		ui.Param{Key: "Portal", Value: client.BaseURL},
	)
	return nil
}

// readPassword prompts without echo on a terminal and reads one line
// otherwise
func readPassword(in *os.File, prompt io.Writer) (string, error) {
	fd := int(in.Fd())
	if term.IsTerminal(fd) {
		_, _ = fmt.Fprint(prompt, "Wi-Fi password (empty for open network): ")
		data, err := term.ReadPassword(fd)
		_, _ = fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(data), nil
	}
	return readLine(in)
}

// readLine reads a single line, as piped input
func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// watchCmd follows a portal's state live
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow a portal's state until the device is provisioned",
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	client, err := newClient(cmd.Context())
	if err != nil {
		return err
	}

	stream, err := client.Events(cmd.Context())
	if err != nil {
		return reportFailure("Could not open event stream", err)
	}
	defer func() { _ = stream.Close() }()

	final, err := tea.NewProgram(ui.NewWatchModel(stream, client.BaseURL), tea.WithContext(cmd.Context())).Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("watch failed: %w", err)
	}
	if m, ok := final.(ui.WatchModel); ok && m.Err != nil && !m.Done && !m.Quitting {
		return fmt.Errorf("event stream ended: %w", m.Err)
	}
	return nil
}

// newClient builds a client from --url or, failing that, mDNS discovery
func newClient(ctx context.Context) (*portalclient.Client, error) {
	if portalURL != "" {
		return portalclient.NewClientWithURL(portalURL), nil
	}

	fmt.Println("No portal URL specified, attempting auto-discovery...")
	scanner := discovery.NewScanner()
	scanner.Timeout = scanTimeout
	portal, err := scanner.WaitForPortal(ctx, instance)
	if err != nil {
		return nil, fmt.Errorf("discovery failed: %w. Use --url to specify the portal manually", err)
	}
	fmt.Printf("Found portal: %s\n\n", portal)
	return portalclient.NewClientWithURL(portal.BaseURL()), nil
}

// reportFailure prints an error box with a hint and returns a short error
func reportFailure(title string, err error) error {
	ui.NewPrinter(os.Stderr).PrintError(title, err, portalclient.GetTroubleshootingHint(err))
	return errors.New(strings.ToLower(title))
}
