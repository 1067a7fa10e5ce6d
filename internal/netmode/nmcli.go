package netmode

import (
	"bytes"
	"context"
	"fmt"
	"net/netip"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/softap/internal/logging"
)

const (
	// DefaultAPConnectionName is the NetworkManager profile created for the AP
	DefaultAPConnectionName = "softap-provisioning"

	// nmStateConnected is NM_DEVICE_STATE_ACTIVATED
	nmStateConnected = 100

	// defaultNMCLIWait bounds a single "device wifi connect" call
	defaultNMCLIWait = 20 * time.Second
)

// Runner executes a command and returns its combined output
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec
type ExecRunner struct{}

// Run implements Runner
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("%s %s: %w: %s", name, args[0], err, strings.TrimSpace(string(out)))
	}
	return out, nil
}

// NMCLIRadio drives NetworkManager through nmcli. The AP and the client run
// on separate interfaces (e.g. a virtual uap0 next to wlan0).
type NMCLIRadio struct {
	APInterface      string
	ClientInterface  string
	APConnectionName string
	Wait             time.Duration
	Runner           Runner
}

// NewNMCLIRadio creates an nmcli-backed radio
func NewNMCLIRadio(apIface, clientIface string) *NMCLIRadio {
	return &NMCLIRadio{
		APInterface:      apIface,
		ClientInterface:  clientIface,
		APConnectionName: DefaultAPConnectionName,
		Wait:             defaultNMCLIWait,
		Runner:           ExecRunner{},
	}
}

func (r *NMCLIRadio) run(ctx context.Context, args ...string) ([]byte, error) {
	logging.Debug("Running nmcli", zap.Strings("args", redactArgs(args)))
	return r.Runner.Run(ctx, "nmcli", args...)
}

// StartAP implements Radio
func (r *NMCLIRadio) StartAP(ctx context.Context, cfg APConfig) error {
	args, err := r.apProfileArgs(cfg)
	if err != nil {
		return err
	}

	// A stale profile from a previous run would make "add" create a duplicate
	_, _ = r.run(ctx, "connection", "delete", r.APConnectionName)

	if _, err := r.run(ctx, args...); err != nil {
		return fmt.Errorf("failed to create access point profile: %w", err)
	}
	if _, err := r.run(ctx, "connection", "up", r.APConnectionName); err != nil {
		return fmt.Errorf("failed to activate access point: %w", err)
	}
	return nil
}

func (r *NMCLIRadio) apProfileArgs(cfg APConfig) ([]string, error) {
	prefix, err := cfg.IP.Prefix()
	if err != nil {
		return nil, err
	}

	args := []string{
		"connection", "add",
		"type", "wifi",
		"ifname", r.APInterface,
		"con-name", r.APConnectionName,
		"autoconnect", "no",
		"ssid", cfg.SSID,
		"802-11-wireless.mode", "ap",
		"802-11-wireless.band", "bg",
		"802-11-wireless.channel", strconv.Itoa(cfg.Channel),
		"ipv4.method", "shared",
		"ipv4.addresses", prefix.String(),
		"ipv4.gateway", cfg.IP.Gateway.String(),
	}
	if cfg.Security == SecurityWPA2AESPSK {
		args = append(args,
			"wifi-sec.key-mgmt", "wpa-psk",
			"wifi-sec.proto", "rsn",
			"wifi-sec.pairwise", "ccmp",
			"wifi-sec.group", "ccmp",
			"wifi-sec.psk", cfg.Password,
		)
	}
	return args, nil
}

// Connect implements Radio
func (r *NMCLIRadio) Connect(ctx context.Context, cfg ClientConfig) (netip.Addr, error) {
	wait := r.Wait
	if wait <= 0 {
		wait = defaultNMCLIWait
	}

	args := []string{
		"--wait", strconv.Itoa(int(wait / time.Second)),
		"device", "wifi", "connect", cfg.SSID,
	}
	if cfg.Password != "" {
		args = append(args, "password", cfg.Password)
	}
	args = append(args, "ifname", r.ClientInterface)

	if _, err := r.run(ctx, args...); err != nil {
		return netip.Addr{}, err
	}
	return r.Addr(ctx, InterfaceClient)
}

// Disconnect implements Radio
func (r *NMCLIRadio) Disconnect(ctx context.Context) error {
	_, err := r.run(ctx, "device", "disconnect", r.ClientInterface)
	return err
}

// IsConnected implements Radio
func (r *NMCLIRadio) IsConnected(ctx context.Context) (bool, error) {
	out, err := r.run(ctx, "-g", "GENERAL.STATE", "device", "show", r.ClientInterface)
	if err != nil {
		return false, err
	}
	state, err := parseDeviceState(out)
	if err != nil {
		return false, err
	}
	return state == nmStateConnected, nil
}

// Addr implements Radio
func (r *NMCLIRadio) Addr(ctx context.Context, iface Interface) (netip.Addr, error) {
	name := r.ClientInterface
	if iface == InterfaceAP {
		name = r.APInterface
	}

	out, err := r.run(ctx, "-g", "IP4.ADDRESS", "device", "show", name)
	if err != nil {
		return netip.Addr{}, err
	}
	return parseIP4Address(out)
}

// parseDeviceState parses "100 (connected)"
func parseDeviceState(out []byte) (int, error) {
	field := strings.Fields(string(bytes.TrimSpace(out)))
	if len(field) == 0 {
		return 0, fmt.Errorf("empty GENERAL.STATE output")
	}
	state, err := strconv.Atoi(field[0])
	if err != nil {
		return 0, fmt.Errorf("unexpected GENERAL.STATE %q: %w", field[0], err)
	}
	return state, nil
}

// parseIP4Address parses "192.168.0.2/24 | 10.0.0.1/8" and returns the first address
func parseIP4Address(out []byte) (netip.Addr, error) {
	line := strings.TrimSpace(string(out))
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	first := strings.TrimSpace(strings.Split(line, "|")[0])
	if first == "" {
		return netip.Addr{}, ErrNoAddress
	}

	prefix, err := netip.ParsePrefix(first)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("unexpected IP4.ADDRESS %q: %w", first, err)
	}
	return prefix.Addr(), nil
}

// redactArgs hides values that follow password-bearing keys
func redactArgs(args []string) []string {
	out := make([]string, len(args))
	copy(out, args)
	for i := 0; i < len(out)-1; i++ {
		if out[i] == "password" || out[i] == "wifi-sec.psk" {
			out[i+1] = "********"
		}
	}
	return out
}
