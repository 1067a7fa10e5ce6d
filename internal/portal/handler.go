package portal

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/muurk/softap/internal/logging"
	"github.com/muurk/softap/internal/netmode"
	"github.com/muurk/softap/internal/provision"
)

// Status is the outcome a resource handler reports to the engine
type Status int

const (
	StatusSuccess Status = iota
	StatusError
)

// String returns the status name
func (s Status) String() string {
	if s == StatusSuccess {
		return "success"
	}
	return "error"
}

// Request is one inbound request as seen by a resource handler
type Request struct {
	ID         string
	Method     string
	Path       string
	Query      string
	RemoteAddr string
	Body       []byte
}

// ResponseStream is the sink a resource handler writes to. WriteStatus must
// be called before the first WritePayload.
type ResponseStream interface {
	WriteStatus(code int)
	WritePayload(p []byte) error
	Flush() error
}

// ResourceHandler produces the response for a registered path
type ResourceHandler interface {
	Handle(ctx context.Context, req *Request, stream ResponseStream) Status
}

// Connector joins a client network. *netmode.Controller implements it.
type Connector interface {
	ConnectAsClient(ctx context.Context, creds provision.Credentials) (netmode.ConnectResult, error)
}

// Dispatcher is the resource handler registered for "/"
type Dispatcher struct {
	tracker   *provision.Tracker
	connector Connector
	pages     Pages
}

// NewDispatcher creates the "/" handler
func NewDispatcher(tracker *provision.Tracker, connector Connector, pages Pages) *Dispatcher {
	return &Dispatcher{
		tracker:   tracker,
		connector: connector,
		pages:     pages,
	}
}

// Handle implements ResourceHandler
func (d *Dispatcher) Handle(ctx context.Context, req *Request, stream ResponseStream) Status {
	switch req.Method {
	case http.MethodGet:
		return d.handleGet(req, stream)
	case http.MethodPost:
		return d.handlePost(ctx, req, stream)
	default:
		logging.Warn("Unsupported method",
			zap.String("request_id", req.ID),
			zap.String("method", req.Method),
			zap.String("path", req.Path),
		)
		stream.WriteStatus(http.StatusMethodNotAllowed)
		return StatusError
	}
}

func (d *Dispatcher) handleGet(req *Request, stream ResponseStream) Status {
	page := d.pages.Startup
	if d.tracker.Configured() {
		page = d.pages.DeviceData
	}

	stream.WriteStatus(http.StatusOK)
	if err := stream.WritePayload(page); err != nil {
		logging.Warn("Failed to write page",
			zap.String("request_id", req.ID),
			zap.Error(asTransportError("page write failed", err)),
		)
	}
	return StatusSuccess
}

func (d *Dispatcher) handlePost(ctx context.Context, req *Request, stream ResponseStream) Status {
	if d.tracker.Configured() {
		stream.WriteStatus(http.StatusNoContent)
		return StatusSuccess
	}

	creds, err := extractCredentials(req.Body)
	switch {
	case err == nil:
	case errors.Is(err, provision.ErrMissingSSIDToken):
		logging.Info("Ignoring form without SSID field", zap.String("request_id", req.ID))
		stream.WriteStatus(http.StatusNoContent)
		return StatusSuccess
	case provision.IsInputTooLarge(err):
		logging.Warn("Rejecting oversized credentials",
			zap.String("request_id", req.ID),
			zap.Error(err),
		)
		return writeFinal(req, stream, http.StatusRequestEntityTooLarge, provision.TooLargeFragment())
	default:
		logging.Warn("Rejecting malformed form", zap.String("request_id", req.ID), zap.Error(err))
		stream.WriteStatus(http.StatusNoContent)
		return StatusSuccess
	}

	attemptID, err := d.tracker.BeginConnect(creds.SSID)
	if err != nil {
		if errors.Is(err, provision.ErrAlreadyConfigured) {
			stream.WriteStatus(http.StatusNoContent)
			return StatusSuccess
		}
		logging.Warn("Provisioning unavailable",
			zap.String("request_id", req.ID),
			zap.Error(err),
		)
		return writeFinal(req, stream, http.StatusServiceUnavailable, provision.BusyFragment())
	}

	logging.Info("Provisioning request received",
		zap.String("request_id", req.ID),
		zap.String("attempt_id", attemptID),
		zap.String("ssid", creds.SSID),
	)

	stream.WriteStatus(http.StatusOK)
	if err := stream.WritePayload(provision.ProgressFragment()); err != nil {
		logging.Warn("Failed to write progress notice",
			zap.String("request_id", req.ID),
			zap.Error(asTransportError("progress write failed", err)),
		)
	} else if err := stream.Flush(); err != nil {
		logging.Debug("Progress flush failed", zap.String("request_id", req.ID), zap.Error(err))
	}

	// The browser going away must not abandon a half-finished association
	res, connErr := d.connector.ConnectAsClient(context.WithoutCancel(ctx), creds)
	connected := connErr == nil
	if connected {
		if err := d.tracker.CompleteConnect(res.Addr); err != nil {
			logging.Error("Failed to record connection", zap.Error(err))
		}
	} else {
		logging.Warn("Provisioning attempt failed",
			zap.String("attempt_id", attemptID),
			zap.String("ssid", creds.SSID),
			zap.Error(connErr),
		)
		if err := d.tracker.FailConnect(connErr.Error()); err != nil {
			logging.Error("Failed to record connection failure", zap.Error(err))
		}
	}

	fragment, err := provision.ResultFragment(creds.SSID, connected)
	if err != nil {
		logging.Error("Failed to build result fragment", zap.String("request_id", req.ID), zap.Error(err))
		return StatusError
	}
	logging.LogRawBytes("Result fragment", fragment)
	if err := stream.WritePayload(fragment); err != nil {
		logging.Warn("Failed to write result",
			zap.String("request_id", req.ID),
			zap.Error(asTransportError("result write failed", err)),
		)
		return StatusError
	}
	return StatusSuccess
}

// extractCredentials runs the decode and extract stages on a raw form body
func extractCredentials(body []byte) (provision.Credentials, error) {
	var creds provision.Credentials

	form, err := provision.Decode(body)
	if err != nil {
		return creds, err
	}
	if err := creds.Extract(form); err != nil {
		return creds, err
	}
	return creds, nil
}

// asTransportError tags a stream write failure for logging. Errors the
// stream already tagged pass through unchanged.
func asTransportError(message string, err error) error {
	if provision.IsTransportError(err) {
		return err
	}
	return provision.NewTransportError(message, err)
}

// writeFinal writes a complete single-fragment response
func writeFinal(req *Request, stream ResponseStream, code int, fragment []byte) Status {
	stream.WriteStatus(code)
	if err := stream.WritePayload(fragment); err != nil {
		logging.Warn("Failed to write response",
			zap.String("request_id", req.ID),
			zap.Int("status", code),
			zap.Error(asTransportError("response write failed", err)),
		)
		return StatusError
	}
	return StatusSuccess
}
