package portal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/softap/internal/logging"
	"github.com/muurk/softap/internal/provision"
)

// DefaultShutdownTimeout bounds graceful shutdown
const DefaultShutdownTimeout = 10 * time.Second

// Config holds the portal server configuration
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	Pages           Pages
}

// Announcer publishes the portal on the local network
type Announcer interface {
	Announce(port int, state string) error
	SetState(state string)
	Shutdown()
}

// AccessPoint brings up the provisioning network. *netmode.Controller
// implements it.
type AccessPoint interface {
	Connector
	StartAccessPoint(ctx context.Context) (netip.Addr, error)
}

// Server runs the provisioning portal
type Server struct {
	config    Config
	tracker   *provision.Tracker
	ap        AccessPoint
	announcer Announcer

	mu         sync.Mutex
	listener   net.Listener
	httpServer *http.Server
	stopFollow func()
}

// New creates a portal server. announcer may be nil.
func New(config Config, tracker *provision.Tracker, ap AccessPoint, announcer Announcer) (*Server, error) {
	if tracker == nil || ap == nil {
		return nil, errors.New("tracker and access point are required")
	}
	if config.Port < 0 || config.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d", config.Port)
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = DefaultShutdownTimeout
	}
	if config.Pages.Startup == nil || config.Pages.DeviceData == nil {
		config.Pages = DefaultPages()
	}

	return &Server{
		config:    config,
		tracker:   tracker,
		ap:        ap,
		announcer: announcer,
	}, nil
}

// Handler returns the portal's routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/{$}", ResourceHTTPHandler{
		Handler: NewDispatcher(s.tracker, s.ap, s.config.Pages),
	})
	mux.Handle("GET /status", statusHandler(s.tracker))
	mux.Handle("GET /events", eventsHandler(s.tracker))
	return mux
}

// Addr returns the listener address once the server is listening
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Start brings up the access point, serves the portal and blocks until ctx
// is cancelled, a shutdown signal arrives or the listener fails. An access
// point failure is returned before anything is served.
func (s *Server) Start(ctx context.Context) error {
	// Registered before the listener is published so that a signal sent
	// once Addr is non-nil is always caught
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	apAddr, err := s.ap.StartAccessPoint(ctx)
	if err != nil {
		return fmt.Errorf("failed to start access point: %w", err)
	}
	if err := s.tracker.MarkAPActive(apAddr); err != nil {
		return err
	}

	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var stopFollow func()
	s.mu.Lock()
	announcer := s.announcer
	s.mu.Unlock()
	if announcer != nil {
		events, cancel := s.tracker.Subscribe(eventBuffer)
		port := listener.Addr().(*net.TCPAddr).Port
		if err := announcer.Announce(port, s.tracker.State().String()); err != nil {
			logging.Warn("mDNS announcement failed, continuing without it", zap.Error(err))
			cancel()
			announcer = nil
		} else {
			stopFollow = cancel
			go followState(announcer, events)
		}
	}

	// Addr reports non-nil only once Shutdown can see everything to stop
	s.mu.Lock()
	s.listener = listener
	s.httpServer = httpServer
	s.announcer = announcer
	s.stopFollow = stopFollow
	s.mu.Unlock()

	logging.Info("Provisioning portal listening",
		zap.String("addr", listener.Addr().String()),
		zap.String("ap_address", apAddr.String()),
	)

	errChan := make(chan error, 1)
	go func() {
		errChan <- httpServer.Serve(listener)
	}()

	select {
	case <-sigChan:
		logging.Info("Shutdown signal received, stopping portal...")
	case <-ctx.Done():
		logging.Info("Context cancelled, stopping portal...")
	case err := <-errChan:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("portal server failed: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// followState keeps the mDNS TXT record in step with the tracker
func followState(announcer Announcer, events <-chan provision.Event) {
	for ev := range events {
		announcer.SetState(ev.State.String())
	}
}

// Shutdown gracefully stops the portal. Open event streams are hijacked
// connections and are not waited for.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down portal...")

	s.mu.Lock()
	stopFollow := s.stopFollow
	announcer := s.announcer
	httpServer := s.httpServer
	s.stopFollow = nil
	s.mu.Unlock()

	if stopFollow != nil {
		stopFollow()
	}
	if announcer != nil {
		announcer.Shutdown()
	}

	var err error
	if httpServer != nil {
		if err = httpServer.Shutdown(ctx); err != nil {
			logging.Warn("Shutdown timeout, forcing close", zap.Error(err))
			_ = httpServer.Close()
		}
	}

	logging.Sync()
	return err
}
