package config

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/muurk/softap/internal/netmode"
)

// CurrentVersion is the config file schema version
const CurrentVersion = 1

// Radio backends
const (
	BackendSim   = "sim"
	BackendNMCLI = "nmcli"
)

// Config is the softap-server configuration file
type Config struct {
	Version     int               `yaml:"version"`
	LogLevel    string            `yaml:"log_level,omitempty"`
	AccessPoint AccessPointConfig `yaml:"access_point"`
	HTTP        HTTPConfig        `yaml:"http"`
	Retry       RetryConfig       `yaml:"retry"`
	Radio       RadioConfig       `yaml:"radio"`
	MDNS        MDNSConfig        `yaml:"mdns"`
}

// AccessPointConfig describes the provisioning network the device hosts.
// Its password is the setup network's password, not a client credential.
type AccessPointConfig struct {
	SSID     string `yaml:"ssid"`
	Password string `yaml:"password"`
	Security string `yaml:"security"` // "wpa2_aes_psk" or "open"
	Channel  int    `yaml:"channel"`
	Address  string `yaml:"address"`
	Netmask  string `yaml:"netmask"`
	Gateway  string `yaml:"gateway"`
}

// HTTPConfig controls the portal listener
type HTTPConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// RetryConfig bounds the client connection loop
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Interval    time.Duration `yaml:"interval"`
}

// RadioConfig selects and configures the Wi-Fi backend
type RadioConfig struct {
	Backend         string `yaml:"backend"` // "sim" or "nmcli"
	APInterface     string `yaml:"ap_interface,omitempty"`
	ClientInterface string `yaml:"client_interface,omitempty"`

	// Networks are the networks the simulated radio pretends to see.
	// Ignored by the nmcli backend.
	Networks []SimNetworkConfig `yaml:"networks,omitempty"`
}

// SimNetworkConfig is one simulated network
type SimNetworkConfig struct {
	SSID         string `yaml:"ssid"`
	Password     string `yaml:"password,omitempty"`
	Address      string `yaml:"address,omitempty"`
	FailAttempts int    `yaml:"fail_attempts,omitempty"`
}

// MDNSConfig controls portal advertisement
type MDNSConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Instance  string `yaml:"instance,omitempty"`  // Defaults to softap-<hostname>
	Interface string `yaml:"interface,omitempty"` // Defaults to all interfaces
}

// Default returns the configuration used when no file exists
func Default() *Config {
	return &Config{
		Version:  CurrentVersion,
		LogLevel: "info",
		AccessPoint: AccessPointConfig{
			SSID:     "SoftAP-Provision",
			Password: "softap1234",
			Security: string(netmode.SecurityWPA2AESPSK),
			Channel:  1,
			Address:  "192.168.0.2",
			Netmask:  "255.255.255.0",
			Gateway:  "192.168.0.2",
		},
		HTTP: HTTPConfig{
			Port: 80,
		},
		Retry: RetryConfig{
			MaxAttempts: netmode.DefaultMaxAttempts,
			Interval:    netmode.DefaultRetryInterval,
		},
		Radio: RadioConfig{
			Backend:         BackendSim,
			APInterface:     "uap0",
			ClientInterface: "wlan0",
			Networks: []SimNetworkConfig{
				{SSID: "Home-Wifi", Password: "p@ssw0rd"},
			},
		},
		MDNS: MDNSConfig{
			Enabled: true,
		},
	}
}

// Validate checks the whole file and reports every problem at once
func (c *Config) Validate() error {
	var errs []error

	if c.Version != CurrentVersion {
		errs = append(errs, fmt.Errorf("unsupported config version: %d (expected %d)", c.Version, CurrentVersion))
	}
	if _, err := c.APConfig(); err != nil {
		errs = append(errs, err)
	}
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port must be 0-65535, got %d", c.HTTP.Port))
	}
	if err := c.RetryPolicy().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("retry: %w", err))
	}

	switch c.Radio.Backend {
	case BackendSim:
		for i, n := range c.Radio.Networks {
			if n.SSID == "" {
				errs = append(errs, fmt.Errorf("radio.networks[%d]: ssid is required", i))
			}
			if n.Address != "" {
				if _, err := netip.ParseAddr(n.Address); err != nil {
					errs = append(errs, fmt.Errorf("radio.networks[%d]: %w", i, err))
				}
			}
		}
	case BackendNMCLI:
		if c.Radio.APInterface == "" || c.Radio.ClientInterface == "" {
			errs = append(errs, errors.New("radio: nmcli backend needs ap_interface and client_interface"))
		}
	default:
		errs = append(errs, fmt.Errorf("radio.backend must be %q or %q, got %q", BackendSim, BackendNMCLI, c.Radio.Backend))
	}

	return errors.Join(errs...)
}

// APConfig converts the access_point section
func (c *Config) APConfig() (netmode.APConfig, error) {
	ap := c.AccessPoint

	security, err := netmode.ParseSecurity(ap.Security)
	if err != nil {
		return netmode.APConfig{}, fmt.Errorf("access_point.security: %w", err)
	}

	var ip netmode.IPSettings
	for _, f := range []struct {
		name  string
		value string
		dst   *netip.Addr
	}{
		{"address", ap.Address, &ip.Address},
		{"netmask", ap.Netmask, &ip.Netmask},
		{"gateway", ap.Gateway, &ip.Gateway},
	} {
		addr, err := netip.ParseAddr(strings.TrimSpace(f.value))
		if err != nil {
			return netmode.APConfig{}, fmt.Errorf("access_point.%s: %w", f.name, err)
		}
		*f.dst = addr
	}

	cfg := netmode.APConfig{
		SSID:     ap.SSID,
		Password: ap.Password,
		Security: security,
		Channel:  ap.Channel,
		IP:       ip,
	}
	if err := cfg.Validate(); err != nil {
		return netmode.APConfig{}, fmt.Errorf("access_point: %w", err)
	}
	return cfg, nil
}

// RetryPolicy converts the retry section
func (c *Config) RetryPolicy() netmode.RetryPolicy {
	return netmode.RetryPolicy{
		MaxAttempts: c.Retry.MaxAttempts,
		Interval:    c.Retry.Interval,
	}
}

// NewRadio builds the configured radio backend
func (c *Config) NewRadio() (netmode.Radio, error) {
	switch c.Radio.Backend {
	case BackendSim:
		networks := make([]netmode.SimNetwork, 0, len(c.Radio.Networks))
		for _, n := range c.Radio.Networks {
			sn := netmode.SimNetwork{
				SSID:         n.SSID,
				Password:     n.Password,
				FailAttempts: n.FailAttempts,
			}
			if n.Address != "" {
				addr, err := netip.ParseAddr(n.Address)
				if err != nil {
					return nil, fmt.Errorf("radio network %q: %w", n.SSID, err)
				}
				sn.Addr = addr
			}
			networks = append(networks, sn)
		}
		return netmode.NewSimRadio(networks...), nil
	case BackendNMCLI:
		return netmode.NewNMCLIRadio(c.Radio.APInterface, c.Radio.ClientInterface), nil
	default:
		return nil, fmt.Errorf("unknown radio backend %q", c.Radio.Backend)
	}
}
