package config

import (
	"strings"
	"testing"
	"time"

	"github.com/muurk/softap/internal/netmode"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}

	ap, err := cfg.APConfig()
	if err != nil {
		t.Fatalf("APConfig() error = %v", err)
	}
	if ap.SSID != "SoftAP-Provision" || ap.Channel != 1 || ap.Security != netmode.SecurityWPA2AESPSK {
		t.Errorf("APConfig() = %+v, want the default provisioning network", ap)
	}
	if ap.IP.Address.String() != "192.168.0.2" || ap.IP.Gateway.String() != "192.168.0.2" {
		t.Errorf("AP addresses = %s gw %s, want 192.168.0.2", ap.IP.Address, ap.IP.Gateway)
	}
	if n, _ := ap.IP.PrefixLen(); n != 24 {
		t.Errorf("AP prefix length = %d, want 24", n)
	}

	if got := cfg.RetryPolicy(); got != netmode.DefaultRetryPolicy() {
		t.Errorf("RetryPolicy() = %+v, want %+v", got, netmode.DefaultRetryPolicy())
	}
	if cfg.HTTP.Port != 80 {
		t.Errorf("HTTP.Port = %d, want 80", cfg.HTTP.Port)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"bad version", func(c *Config) { c.Version = 2 }, "unsupported config version"},
		{"empty AP SSID", func(c *Config) { c.AccessPoint.SSID = "" }, "access_point"},
		{"short AP password", func(c *Config) { c.AccessPoint.Password = "short" }, "password"},
		{"open AP needs no password", func(c *Config) { c.AccessPoint.Security = "open"; c.AccessPoint.Password = "" }, ""},
		{"bad channel", func(c *Config) { c.AccessPoint.Channel = 15 }, "channel"},
		{"bad security", func(c *Config) { c.AccessPoint.Security = "wep" }, "access_point.security"},
		{"bad address", func(c *Config) { c.AccessPoint.Address = "192.168.0" }, "access_point.address"},
		{"non-contiguous netmask", func(c *Config) { c.AccessPoint.Netmask = "255.0.255.0" }, "contiguous"},
		{"bad port", func(c *Config) { c.HTTP.Port = 70000 }, "http.port"},
		{"zero attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }, "retry"},
		{"negative interval", func(c *Config) { c.Retry.Interval = -time.Second }, "retry"},
		{"unknown backend", func(c *Config) { c.Radio.Backend = "hostapd" }, "radio.backend"},
		{"nmcli without interfaces", func(c *Config) { c.Radio.Backend = BackendNMCLI; c.Radio.APInterface = "" }, "ap_interface"},
		{"sim network without ssid", func(c *Config) { c.Radio.Networks = []SimNetworkConfig{{}} }, "ssid is required"},
		{"sim network bad address", func(c *Config) { c.Radio.Networks = []SimNetworkConfig{{SSID: "x", Address: "nope"}} }, "radio.networks[0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()

			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.HTTP.Port = -1
	cfg.Retry.MaxAttempts = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want error")
	}
	for _, want := range []string{"http.port", "retry"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate() error = %v, missing %q", err, want)
		}
	}
}

func TestNewRadio(t *testing.T) {
	t.Run("sim", func(t *testing.T) {
		cfg := Default()
		cfg.Radio.Networks = []SimNetworkConfig{{SSID: "Lab", Password: "pw", Address: "10.9.9.9"}}

		radio, err := cfg.NewRadio()
		if err != nil {
			t.Fatalf("NewRadio() error = %v", err)
		}
		sim, ok := radio.(*netmode.SimRadio)
		if !ok {
			t.Fatalf("NewRadio() = %T, want *netmode.SimRadio", radio)
		}
		addr, err := sim.Connect(t.Context(), netmode.ClientConfig{SSID: "Lab", Password: "pw"})
		if err != nil || addr.String() != "10.9.9.9" {
			t.Errorf("Connect() = %s, %v; want 10.9.9.9", addr, err)
		}
	})

	t.Run("nmcli", func(t *testing.T) {
		cfg := Default()
		cfg.Radio.Backend = BackendNMCLI

		radio, err := cfg.NewRadio()
		if err != nil {
			t.Fatalf("NewRadio() error = %v", err)
		}
		nm, ok := radio.(*netmode.NMCLIRadio)
		if !ok {
			t.Fatalf("NewRadio() = %T, want *netmode.NMCLIRadio", radio)
		}
		if nm.APInterface != "uap0" || nm.ClientInterface != "wlan0" {
			t.Errorf("interfaces = %s/%s, want uap0/wlan0", nm.APInterface, nm.ClientInterface)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		cfg := Default()
		cfg.Radio.Backend = "bogus"
		if _, err := cfg.NewRadio(); err == nil {
			t.Error("NewRadio() expected error")
		}
	})
}
