package netmode

import (
	"context"
	"fmt"
	"net/netip"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/softap/internal/logging"
	"github.com/muurk/softap/internal/provision"
)

const (
	// DefaultMaxAttempts is the default number of client connection attempts
	DefaultMaxAttempts = 10

	// DefaultRetryInterval is the default delay between connection attempts
	DefaultRetryInterval = 1 * time.Second
)

// RetryPolicy bounds the client connection loop
type RetryPolicy struct {
	// MaxAttempts is the total number of Connect calls, including the first
	MaxAttempts int

	// Interval is the fixed delay between two attempts. There is no delay
	// after the final attempt.
	Interval time.Duration
}

// DefaultRetryPolicy returns the policy used when configuration is silent
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		Interval:    DefaultRetryInterval,
	}
}

// Validate rejects policies that would never attempt or never wait sanely
func (p RetryPolicy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("retry policy needs at least one attempt, got %d", p.MaxAttempts)
	}
	if p.Interval < 0 {
		return fmt.Errorf("retry interval must not be negative, got %s", p.Interval)
	}
	return nil
}

// MaxDuration is the longest ConnectAsClient can block in delays alone
func (p RetryPolicy) MaxDuration() time.Duration {
	if p.MaxAttempts < 2 {
		return 0
	}
	return time.Duration(p.MaxAttempts-1) * p.Interval
}

// SleepFunc is the delay primitive used between attempts
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep waits for d or until ctx is done
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ConnectResult describes a successful client connection
type ConnectResult struct {
	Addr     netip.Addr
	Attempts int
}

// Controller owns the access point and client mode transitions
type Controller struct {
	radio  Radio
	ap     APConfig
	policy RetryPolicy
	sleep  SleepFunc
}

// Option configures a Controller
type Option func(*Controller)

// WithSleep replaces the delay primitive (tests use a recording fake)
func WithSleep(sleep SleepFunc) Option {
	return func(c *Controller) {
		c.sleep = sleep
	}
}

// NewController creates a controller for radio
func NewController(radio Radio, ap APConfig, policy RetryPolicy, opts ...Option) (*Controller, error) {
	if radio == nil {
		return nil, fmt.Errorf("radio is required")
	}
	if err := ap.Validate(); err != nil {
		return nil, fmt.Errorf("invalid access point config: %w", err)
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	c := &Controller{
		radio:  radio,
		ap:     ap,
		policy: policy,
		sleep:  Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Policy returns the controller's retry policy
func (c *Controller) Policy() RetryPolicy {
	return c.policy
}

// AccessPoint returns the access point settings
func (c *Controller) AccessPoint() APConfig {
	return c.ap
}

// StartAccessPoint brings up the provisioning access point and returns the
// address assigned to it.
func (c *Controller) StartAccessPoint(ctx context.Context) (netip.Addr, error) {
	logging.Info("Starting access point",
		zap.String("ssid", c.ap.SSID),
		zap.Int("channel", c.ap.Channel),
		zap.String("security", string(c.ap.Security)),
		zap.String("address", c.ap.IP.Address.String()),
	)

	if err := c.radio.StartAP(ctx, c.ap); err != nil {
		return netip.Addr{}, &RadioError{Op: "start_ap", Err: err}
	}

	addr, err := c.radio.Addr(ctx, InterfaceAP)
	if err != nil {
		return netip.Addr{}, &RadioError{Op: "ap_address", Err: err}
	}

	logging.Info("Access point started", zap.String("address", addr.String()))
	return addr, nil
}

// ConnectAsClient joins the network named by creds. Any existing client
// association is dropped first. It returns on the first successful attempt,
// or with a *RadioError wrapping the last failure once the policy is
// exhausted.
func (c *Controller) ConnectAsClient(ctx context.Context, creds provision.Credentials) (ConnectResult, error) {
	connected, err := c.radio.IsConnected(ctx)
	if err != nil {
		logging.Warn("Could not query client association state", zap.Error(err))
	}
	if connected {
		logging.Info("Disconnecting from current network before reconnecting")
		if err := c.radio.Disconnect(ctx); err != nil {
			logging.Warn("Disconnect failed", zap.Error(err))
		}
	}

	cfg := ClientConfig{
		SSID:     creds.SSID,
		Password: creds.Password,
		Security: SecurityWPA2AESPSK,
	}

	var lastErr error
	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		addr, err := c.radio.Connect(ctx, cfg)
		if err == nil {
			if !addr.IsValid() {
				addr, err = c.radio.Addr(ctx, InterfaceClient)
			}
		}
		if err == nil {
			logging.Info("Successfully connected to Wi-Fi network",
				zap.String("ssid", cfg.SSID),
				zap.String("address", addr.String()),
				zap.Int("attempt", attempt),
			)
			return ConnectResult{Addr: addr, Attempts: attempt}, nil
		}

		lastErr = err
		logging.Warn("Connection to Wi-Fi network failed",
			zap.String("ssid", cfg.SSID),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.policy.MaxAttempts),
			zap.Duration("retry_interval", c.policy.Interval),
			zap.Error(err),
		)

		if attempt == c.policy.MaxAttempts {
			break
		}
		if err := c.sleep(ctx, c.policy.Interval); err != nil {
			return ConnectResult{Attempts: attempt}, &RadioError{Op: "connect", Attempts: attempt, Err: err}
		}
	}

	return ConnectResult{Attempts: c.policy.MaxAttempts}, &RadioError{
		Op:       "connect",
		Attempts: c.policy.MaxAttempts,
		Err:      lastErr,
	}
}
