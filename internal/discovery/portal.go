package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Portal is a provisioning portal found on the local network
type Portal struct {
	// Instance is the mDNS service instance name (e.g., "softap-kitchen")
	Instance string

	// Hostname is the mDNS hostname (e.g., "kitchen.local.")
	Hostname string

	// IP is the portal address, IPv4 when the portal advertises one
	IP string

	// Port is the HTTP port (typically 80)
	Port int

	// Path is the page path from the "path" TXT record
	Path string

	// State is the provisioning state from the "state" TXT record
	State string

	// Metadata contains all TXT record data
	Metadata map[string]string

	// DiscoveredAt is when the portal was seen
	DiscoveredAt time.Time
}

// String returns a human-readable representation of the portal
func (p *Portal) String() string {
	return fmt.Sprintf("%s (%s) at %s [%s]", p.Instance, p.Hostname, net.JoinHostPort(p.IP, strconv.Itoa(p.Port)), p.State)
}

// BaseURL returns the HTTP base URL of the portal
func (p *Portal) BaseURL() string {
	return "http://" + net.JoinHostPort(p.IP, strconv.Itoa(p.Port))
}

// GetMetadata retrieves a TXT value by key, or "" if absent
func (p *Portal) GetMetadata(key string) string {
	if p.Metadata == nil {
		return ""
	}
	return p.Metadata[key]
}
