package netmode

import (
	"context"
	"errors"
	"fmt"
	"math/bits"
	"net/netip"
	"strings"
)

// Interface selects which side of the concurrent AP+client radio to query
type Interface int

const (
	InterfaceAP Interface = iota
	InterfaceClient
)

// String returns the interface role name
func (i Interface) String() string {
	switch i {
	case InterfaceAP:
		return "ap"
	case InterfaceClient:
		return "client"
	default:
		return fmt.Sprintf("interface(%d)", int(i))
	}
}

// Security is a Wi-Fi security type
type Security string

const (
	SecurityOpen       Security = "open"
	SecurityWPA2AESPSK Security = "wpa2_aes_psk"
)

// ParseSecurity validates a security type name from configuration
func ParseSecurity(s string) (Security, error) {
	switch Security(strings.ToLower(strings.TrimSpace(s))) {
	case SecurityOpen:
		return SecurityOpen, nil
	case SecurityWPA2AESPSK, "wpa2":
		return SecurityWPA2AESPSK, nil
	default:
		return "", fmt.Errorf("unsupported security type %q (expected open or wpa2_aes_psk)", s)
	}
}

// IPSettings is a static IPv4 configuration
type IPSettings struct {
	Address netip.Addr
	Netmask netip.Addr
	Gateway netip.Addr
}

// PrefixLen converts the dotted netmask to a prefix length
func (s IPSettings) PrefixLen() (int, error) {
	if !s.Netmask.Is4() {
		return 0, fmt.Errorf("netmask %s is not IPv4", s.Netmask)
	}
	b := s.Netmask.As4()
	mask := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	ones := bits.LeadingZeros32(^mask)
	if bits.TrailingZeros32(mask) != 32-ones {
		return 0, fmt.Errorf("netmask %s is not contiguous", s.Netmask)
	}
	return ones, nil
}

// Prefix returns Address/PrefixLen
func (s IPSettings) Prefix() (netip.Prefix, error) {
	n, err := s.PrefixLen()
	if err != nil {
		return netip.Prefix{}, err
	}
	return netip.PrefixFrom(s.Address, n), nil
}

// APConfig describes the provisioning access point
type APConfig struct {
	SSID     string
	Password string
	Security Security
	Channel  int
	IP       IPSettings
}

// Validate checks the access point settings before they reach the radio
func (c APConfig) Validate() error {
	if c.SSID == "" || len(c.SSID) > 32 {
		return fmt.Errorf("access point SSID must be 1-32 bytes, got %d", len(c.SSID))
	}
	if c.Security == SecurityWPA2AESPSK && (len(c.Password) < 8 || len(c.Password) > 63) {
		return fmt.Errorf("access point WPA2 password must be 8-63 characters, got %d", len(c.Password))
	}
	if c.Channel < 1 || c.Channel > 14 {
		return fmt.Errorf("access point channel must be 1-14, got %d", c.Channel)
	}
	if !c.IP.Address.Is4() || !c.IP.Gateway.Is4() {
		return errors.New("access point address and gateway must be IPv4")
	}
	if _, err := c.IP.PrefixLen(); err != nil {
		return err
	}
	return nil
}

// ClientConfig describes the network to join in client mode
type ClientConfig struct {
	SSID     string
	Password string
	Security Security
}

// Radio is the Wi-Fi connection manager the controller drives
type Radio interface {
	// StartAP brings the radio up in access-point role
	StartAP(ctx context.Context, cfg APConfig) error

	// Connect makes one attempt to join a network as a client. It returns
	// the negotiated address, or the zero Addr if the radio cannot report it
	// directly.
	Connect(ctx context.Context, cfg ClientConfig) (netip.Addr, error)

	// Disconnect leaves the current client network
	Disconnect(ctx context.Context) error

	// IsConnected reports whether the client side is associated
	IsConnected(ctx context.Context) (bool, error)

	// Addr returns the IPv4 address of one side of the radio
	Addr(ctx context.Context, iface Interface) (netip.Addr, error)
}

// Radio errors shared by the implementations
var (
	ErrNetworkNotFound = errors.New("network not found")
	ErrAuthFailed      = errors.New("authentication failed")
	ErrNoAddress       = errors.New("interface has no IPv4 address")
)

// RadioError wraps a failed radio operation
type RadioError struct {
	Op       string // "start_ap", "ap_address", "connect"
	Attempts int    // Connection attempts made, for Op "connect"
	Err      error
}

// Error implements the error interface
func (e *RadioError) Error() string {
	if e.Attempts > 0 {
		return fmt.Sprintf("radio %s failed after %d attempt(s): %v", e.Op, e.Attempts, e.Err)
	}
	return fmt.Sprintf("radio %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *RadioError) Unwrap() error {
	return e.Err
}
