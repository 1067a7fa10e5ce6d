package discovery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	// ServiceType is the mDNS service type portals advertise
	ServiceType = "_http._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// ServiceMarker is the "svc" TXT value that tells portals apart from
	// other HTTP services
	ServiceMarker = "softap"

	// DefaultScanTimeout is the default timeout for portal discovery
	DefaultScanTimeout = 5 * time.Second

	// QuickScanTimeout is the timeout used by QuickScan
	QuickScanTimeout = 3 * time.Second

	// DefaultPort is the HTTP port assumed when an entry carries none
	DefaultPort = 80
)

// ErrNoPortal is returned when a wait for any portal times out
var ErrNoPortal = errors.New("no provisioning portal found")

// Scanner handles mDNS portal discovery
type Scanner struct {
	// Timeout is the maximum time to wait for portals
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// Scan collects every portal that answers before the timeout
func (s *Scanner) Scan(ctx context.Context) ([]*Portal, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	var (
		mu      sync.Mutex
		portals []*Portal
		seen    = make(map[string]bool)
		done    = make(chan struct{})
	)

	go func() {
		defer close(done)
		for entry := range entries {
			p := parseServiceEntry(entry)
			if p == nil {
				continue
			}
			mu.Lock()
			if !seen[p.Instance] {
				seen[p.Instance] = true
				portals = append(portals, p)
			}
			mu.Unlock()
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()
	// The resolver closes entries once the context is done
	select {
	case <-done:
	case <-time.After(time.Second):
	}

	mu.Lock()
	defer mu.Unlock()
	return append([]*Portal(nil), portals...), nil
}

// WaitForPortal waits for the portal with the given instance name. An empty
// name matches the first portal found.
func (s *Scanner) WaitForPortal(ctx context.Context, instance string) (*Portal, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	found := make(chan *Portal, 1)

	go func() {
		for entry := range entries {
			p := parseServiceEntry(entry)
			if p != nil && (instance == "" || p.Instance == instance) {
				found <- p
				cancel()
				return
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	select {
	case p := <-found:
		return p, nil
	case <-ctx.Done():
		select {
		case p := <-found:
			return p, nil
		default:
		}
		if instance == "" {
			return nil, fmt.Errorf("%w within %s", ErrNoPortal, s.Timeout)
		}
		return nil, fmt.Errorf("portal %q not found within %s", instance, s.Timeout)
	}
}

// parseServiceEntry converts a zeroconf service entry to a Portal.
// Returns nil if the entry is not a provisioning portal.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Portal {
	if entry == nil {
		return nil
	}

	metadata := parseTXT(entry.Text)
	if metadata["svc"] != ServiceMarker {
		return nil
	}

	// Prefer IPv4
	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	path := metadata["path"]
	if path == "" {
		path = "/"
	}

	return &Portal{
		Instance:     entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         port,
		Path:         path,
		State:        metadata["state"],
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

// parseTXT splits "key=value" TXT strings. A key without '=' maps to "".
func parseTXT(text []string) map[string]string {
	metadata := make(map[string]string, len(text))
	for _, txt := range text {
		key, value, _ := strings.Cut(txt, "=")
		metadata[key] = value
	}
	return metadata
}

// QuickScan performs a fast scan with QuickScanTimeout
func QuickScan(ctx context.Context) ([]*Portal, error) {
	scanner := NewScanner()
	scanner.Timeout = QuickScanTimeout
	return scanner.Scan(ctx)
}
