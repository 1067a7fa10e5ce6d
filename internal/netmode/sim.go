package netmode

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/softap/internal/logging"
)

// SimNetwork is a network the simulated radio can join
type SimNetwork struct {
	SSID     string
	Password string

	// Addr is handed out on a successful join. The zero value picks an
	// address from 10.42.0.0/24.
	Addr netip.Addr

	// FailAttempts makes the first N join attempts fail, to exercise retries
	FailAttempts int
}

// SimRadio is an in-memory Radio. It never touches real hardware.
type SimRadio struct {
	mu         sync.Mutex
	networks   map[string]SimNetwork
	attempts   map[string]int
	apUp       bool
	apAddr     netip.Addr
	clientAddr netip.Addr
	connected  bool
	nextHost   byte

	// ConnectDelay simulates association time per attempt
	ConnectDelay time.Duration

	// StartAPErr, if set, is returned by StartAP
	StartAPErr error
}

// NewSimRadio creates a simulated radio that knows the given networks
func NewSimRadio(networks ...SimNetwork) *SimRadio {
	r := &SimRadio{
		networks: make(map[string]SimNetwork),
		attempts: make(map[string]int),
		nextHost: 10,
	}
	for _, n := range networks {
		r.networks[n.SSID] = n
	}
	return r
}

// StartAP implements Radio
func (r *SimRadio) StartAP(_ context.Context, cfg APConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.StartAPErr != nil {
		return r.StartAPErr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	r.apUp = true
	r.apAddr = cfg.IP.Address
	logging.Debug("Simulated access point up", zap.String("ssid", cfg.SSID))
	return nil
}

// Connect implements Radio
func (r *SimRadio) Connect(ctx context.Context, cfg ClientConfig) (netip.Addr, error) {
	if r.ConnectDelay > 0 {
		if err := Sleep(ctx, r.ConnectDelay); err != nil {
			return netip.Addr{}, err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.attempts[cfg.SSID]++
	n, ok := r.networks[cfg.SSID]
	if !ok {
		return netip.Addr{}, fmt.Errorf("%w: %q", ErrNetworkNotFound, cfg.SSID)
	}
	if r.attempts[cfg.SSID] <= n.FailAttempts {
		return netip.Addr{}, fmt.Errorf("simulated association timeout (attempt %d)", r.attempts[cfg.SSID])
	}
	if n.Password != cfg.Password {
		return netip.Addr{}, ErrAuthFailed
	}

	addr := n.Addr
	if !addr.IsValid() {
		addr = netip.AddrFrom4([4]byte{10, 42, 0, r.nextHost})
		r.nextHost++
	}
	r.clientAddr = addr
	r.connected = true
	return addr, nil
}

// Disconnect implements Radio
func (r *SimRadio) Disconnect(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.connected {
		return errors.New("not connected")
	}
	r.connected = false
	r.clientAddr = netip.Addr{}
	return nil
}

// IsConnected implements Radio
func (r *SimRadio) IsConnected(_ context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connected, nil
}

// Addr implements Radio
func (r *SimRadio) Addr(_ context.Context, iface Interface) (netip.Addr, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch iface {
	case InterfaceAP:
		if !r.apUp {
			return netip.Addr{}, fmt.Errorf("%w: access point is down", ErrNoAddress)
		}
		return r.apAddr, nil
	case InterfaceClient:
		if !r.connected {
			return netip.Addr{}, fmt.Errorf("%w: client is not connected", ErrNoAddress)
		}
		return r.clientAddr, nil
	default:
		return netip.Addr{}, fmt.Errorf("unknown interface %s", iface)
	}
}

// Attempts returns how many times Connect was called for ssid
func (r *SimRadio) Attempts(ssid string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempts[ssid]
}
