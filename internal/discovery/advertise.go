package discovery

import (
	"fmt"
	"net"
	"os"
	"strings"
	"sync"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/softap/internal/logging"
	"github.com/muurk/softap/internal/version"
)

// maxInstanceNameLen is the DNS label limit for the instance name
const maxInstanceNameLen = 63

// Advertiser publishes the portal as an mDNS service
type Advertiser struct {
	// Instance is the service instance name
	Instance string

	// Interface limits announcements to one network interface (e.g. the AP
	// interface). Empty means all interfaces.
	Interface string

	mu     sync.Mutex
	server *zeroconf.Server
	port   int
}

// NewAdvertiser creates an advertiser. An empty instance name is derived
// from the hostname.
func NewAdvertiser(instance, iface string) *Advertiser {
	if instance == "" {
		instance = DefaultInstanceName()
	}
	return &Advertiser{
		Instance:  instance,
		Interface: iface,
	}
}

// DefaultInstanceName returns "softap-<hostname>"
func DefaultInstanceName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "device"
	}
	if i := strings.IndexByte(host, '.'); i > 0 {
		host = host[:i]
	}
	name := "softap-" + host
	if len(name) > maxInstanceNameLen {
		name = name[:maxInstanceNameLen]
	}
	return name
}

// TXTRecords builds the TXT strings for a portal in the given state
func TXTRecords(state string) []string {
	return []string{
		"svc=" + ServiceMarker,
		"path=/",
		"state=" + state,
		"version=" + version.Version,
	}
}

func (a *Advertiser) interfaces() ([]net.Interface, error) {
	if a.Interface == "" {
		return nil, nil
	}
	iface, err := net.InterfaceByName(a.Interface)
	if err != nil {
		return nil, fmt.Errorf("mDNS interface %q: %w", a.Interface, err)
	}
	return []net.Interface{*iface}, nil
}

// Announce registers the service on port, replacing any earlier registration
func (a *Advertiser) Announce(port int, state string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}

	ifaces, err := a.interfaces()
	if err != nil {
		return err
	}

	server, err := zeroconf.Register(
		a.Instance,
		ServiceType,
		ServiceDomain,
		port,
		TXTRecords(state),
		ifaces,
	)
	if err != nil {
		return fmt.Errorf("failed to register mDNS service: %w", err)
	}

	a.server = server
	a.port = port
	logging.Info("Advertising portal over mDNS",
		zap.String("instance", a.Instance),
		zap.String("service", ServiceType),
		zap.Int("port", port),
		zap.String("state", state),
	)
	return nil
}

// SetState updates the "state" TXT record
func (a *Advertiser) SetState(state string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server == nil {
		return
	}
	a.server.SetText(TXTRecords(state))
	logging.Debug("Updated mDNS state", zap.String("state", state))
}

// Port returns the announced port, or 0 when not announcing
func (a *Advertiser) Port() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.port
}

// Shutdown withdraws the announcement
func (a *Advertiser) Shutdown() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
		a.port = 0
	}
}
