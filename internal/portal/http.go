package portal

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/muurk/softap/internal/logging"
	"github.com/muurk/softap/internal/provision"
	"github.com/muurk/softap/internal/version"
)

const contentTypeHTML = "text/html; charset=utf-8"

// httpStream adapts http.ResponseWriter to ResponseStream
type httpStream struct {
	w       http.ResponseWriter
	rc      *http.ResponseController
	status  int
	written int
}

func newHTTPStream(w http.ResponseWriter) *httpStream {
	return &httpStream{w: w, rc: http.NewResponseController(w)}
}

// WriteStatus implements ResponseStream
func (s *httpStream) WriteStatus(code int) {
	if s.status != 0 {
		return
	}
	s.status = code

	h := s.w.Header()
	switch code {
	case http.StatusNoContent:
	case http.StatusMethodNotAllowed:
		h.Set("Allow", "GET, POST")
	default:
		h.Set("Content-Type", contentTypeHTML)
		h.Set("Cache-Control", "no-store")
	}
	s.w.WriteHeader(code)
}

// WritePayload implements ResponseStream
func (s *httpStream) WritePayload(p []byte) error {
	if s.status == 0 {
		s.WriteStatus(http.StatusOK)
	}
	n, err := s.w.Write(p)
	s.written += n
	if err != nil {
		return provision.NewTransportError("response write failed", err)
	}
	return nil
}

// Flush implements ResponseStream
func (s *httpStream) Flush() error {
	return s.rc.Flush()
}

// ResourceHTTPHandler adapts a ResourceHandler to net/http
type ResourceHTTPHandler struct {
	Handler ResourceHandler
}

// ServeHTTP implements http.Handler
func (h ResourceHTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req := &Request{
		ID:         uuid.NewString(),
		Method:     r.Method,
		Path:       r.URL.Path,
		Query:      r.URL.RawQuery,
		RemoteAddr: r.RemoteAddr,
	}

	if r.Method == http.MethodPost {
		// One byte past the limit is enough for the decoder to report it
		body, err := io.ReadAll(io.LimitReader(r.Body, provision.MaxBodySize+1))
		if err != nil {
			logging.Warn("Failed to read request body",
				zap.String("request_id", req.ID),
				zap.Error(err),
			)
			http.Error(w, "failed to read request body", http.StatusBadRequest)
			return
		}
		req.Body = body
	}

	logging.LogHTTPRequest(req.ID, req.RemoteAddr, req.Method, req.Path, len(req.Body))

	stream := newHTTPStream(w)
	status := h.Handler.Handle(r.Context(), req, stream)
	if stream.status == 0 {
		stream.WriteStatus(http.StatusInternalServerError)
	}

	logging.LogHTTPResponse(req.ID, req.RemoteAddr, stream.status, stream.written)
	if status != StatusSuccess {
		logging.Debug("Handler reported failure",
			zap.String("request_id", req.ID),
			zap.String("status", status.String()),
		)
	}
}

// StatusResponse is the JSON body of GET /status
type StatusResponse struct {
	State                  string `json:"state"`
	Configured             bool   `json:"configured"`
	APAddress              string `json:"ap_address,omitempty"`
	ClientAddress          string `json:"client_address,omitempty"`
	SSID                   string `json:"ssid,omitempty"`
	AttemptID              string `json:"attempt_id,omitempty"`
	ReconfigurationRequest string `json:"reconfiguration_request"`
	ChangedAt              string `json:"changed_at"`
	Version                string `json:"version"`
}

// NewStatusResponse converts a tracker snapshot to its JSON form
func NewStatusResponse(snap provision.Snapshot) StatusResponse {
	resp := StatusResponse{
		State:                  snap.State.String(),
		Configured:             snap.State == provision.Configured,
		SSID:                   snap.SSID,
		AttemptID:              snap.AttemptID,
		ReconfigurationRequest: snap.Reconfig.String(),
		ChangedAt:              snap.ChangedAt.UTC().Format(time.RFC3339),
		Version:                version.Version,
	}
	if snap.APAddr.IsValid() {
		resp.APAddress = snap.APAddr.String()
	}
	if snap.ClientAddr.IsValid() {
		resp.ClientAddress = snap.ClientAddr.String()
	}
	return resp
}

// statusHandler serves GET /status
func statusHandler(tracker *provision.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		if err := json.NewEncoder(w).Encode(NewStatusResponse(tracker.Snapshot())); err != nil {
			logging.Warn("Failed to write status",
				zap.String("remote_addr", r.RemoteAddr),
				zap.Error(err),
			)
		}
	}
}
