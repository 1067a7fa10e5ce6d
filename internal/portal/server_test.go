package portal

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/muurk/softap/internal/netmode"
	"github.com/muurk/softap/internal/provision"
)

func testAPConfig() netmode.APConfig {
	return netmode.APConfig{
		SSID:     "SoftAP-Provision",
		Password: "softap1234",
		Security: netmode.SecurityWPA2AESPSK,
		Channel:  1,
		IP: netmode.IPSettings{
			Address: netip.MustParseAddr("192.168.0.2"),
			Netmask: netip.MustParseAddr("255.255.255.0"),
			Gateway: netip.MustParseAddr("192.168.0.2"),
		},
	}
}

func noSleep(context.Context, time.Duration) error { return nil }

// newTestPortal wires a simulated radio that knows one network
func newTestPortal(t *testing.T) (*httptest.Server, *provision.Tracker) {
	t.Helper()

	radio := netmode.NewSimRadio(netmode.SimNetwork{SSID: "Home-Wifi", Password: "p@ss"})
	ctrl, err := netmode.NewController(radio, testAPConfig(), netmode.RetryPolicy{MaxAttempts: 3, Interval: time.Second}, netmode.WithSleep(noSleep))
	if err != nil {
		t.Fatalf("NewController() error = %v", err)
	}

	tracker := provision.NewTracker()
	srv, err := New(Config{}, tracker, ctrl, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	addr, err := ctrl.StartAccessPoint(context.Background())
	if err != nil {
		t.Fatalf("StartAccessPoint() error = %v", err)
	}
	if err := tracker.MarkAPActive(addr); err != nil {
		t.Fatalf("MarkAPActive() error = %v", err)
	}

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, tracker
}

func postForm(t *testing.T, url, body string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Post(url, "application/x-www-form-urlencoded", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body error = %v", err)
	}
	return resp, string(data)
}

func getBody(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body error = %v", err)
	}
	return resp, string(data)
}

func TestPortal_ProvisionOverHTTP(t *testing.T) {
	ts, tracker := newTestPortal(t)

	resp, body := getBody(t, ts.URL+"/")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, `name="SSID"`) {
		t.Fatalf("GET / = %d, want the startup page", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != contentTypeHTML {
		t.Errorf("Content-Type = %q, want %q", ct, contentTypeHTML)
	}

	resp, body = postForm(t, ts.URL+"/", "SSID=Home%2DWifi&PASSWORD=p%40ss")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST / status = %d, want 200", resp.StatusCode)
	}
	want := provision.ConnectInProgress + provision.ResponsePrefix + "Home-Wifi" + provision.SuccessSuffix
	if body != want {
		t.Errorf("POST / body = %q, want %q", body, want)
	}
	if !tracker.Configured() {
		t.Fatal("device not configured")
	}

	_, body = getBody(t, ts.URL+"/")
	if !strings.Contains(body, "This device is provisioned") {
		t.Error("GET / after provisioning did not return the device data page")
	}

	resp, body = postForm(t, ts.URL+"/", "SSID=Other&PASSWORD=x")
	if resp.StatusCode != http.StatusNoContent || body != "" {
		t.Errorf("POST after provisioning = %d %q, want 204 and no body", resp.StatusCode, body)
	}
}

func TestPortal_FailureFragmentEscapesSSID(t *testing.T) {
	ts, tracker := newTestPortal(t)

	_, body := postForm(t, ts.URL+"/", "SSID=%3Ci%3Eevil&PASSWORD=x")
	if strings.Contains(body, "<i>") {
		t.Errorf("SSID markup reflected unescaped: %q", body)
	}
	if !strings.Contains(body, "&lt;i&gt;evil") {
		t.Errorf("body = %q, want the SSID kept as escaped text", body)
	}
	if !strings.HasSuffix(body, provision.FailureSuffix) {
		t.Errorf("body = %q, want failure fragment", body)
	}
	if tracker.State() != provision.APActive {
		t.Errorf("state = %s, want ap_active", tracker.State())
	}
}

func TestPortal_OversizedBody(t *testing.T) {
	ts, _ := newTestPortal(t)

	resp, body := postForm(t, ts.URL+"/", "SSID=Home&PASSWORD="+strings.Repeat("x", 2048))
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", resp.StatusCode)
	}
	if body != provision.TooLargeMessage {
		t.Errorf("body = %q, want too-large fragment", body)
	}
}

func TestPortal_MethodNotAllowed(t *testing.T) {
	ts, _ := newTestPortal(t)

	req, err := http.NewRequest(http.MethodPut, ts.URL+"/", strings.NewReader("SSID=a&P=b"))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT error = %v", err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusMethodNotAllowed || len(data) != 0 {
		t.Errorf("PUT / = %d with %d body bytes, want 405 and no body", resp.StatusCode, len(data))
	}
	if allow := resp.Header.Get("Allow"); allow != "GET, POST" {
		t.Errorf("Allow = %q, want \"GET, POST\"", allow)
	}
}

func TestPortal_UnknownPath(t *testing.T) {
	ts, _ := newTestPortal(t)

	resp, _ := getBody(t, ts.URL+"/favicon.ico")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET /favicon.ico = %d, want 404", resp.StatusCode)
	}
}

func TestPortal_Status(t *testing.T) {
	ts, tracker := newTestPortal(t)
	tracker.SetReconfigurationRequest(provision.ReconfigPositive)

	resp, body := getBody(t, ts.URL+"/status")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /status = %d", resp.StatusCode)
	}

	var st StatusResponse
	if err := json.Unmarshal([]byte(body), &st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if st.State != "ap_active" || st.Configured || st.APAddress != "192.168.0.2" {
		t.Errorf("status = %+v, want ap_active at 192.168.0.2", st)
	}
	if st.ReconfigurationRequest != "positive" {
		t.Errorf("reconfiguration_request = %q, want positive", st.ReconfigurationRequest)
	}

	postForm(t, ts.URL+"/", "SSID=Home-Wifi&PASSWORD=p@ss")

	_, body = getBody(t, ts.URL+"/status")
	st = StatusResponse{}
	if err := json.Unmarshal([]byte(body), &st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if st.State != "configured" || !st.Configured || st.SSID != "Home-Wifi" || st.ClientAddress == "" {
		t.Errorf("status after provisioning = %+v", st)
	}
}

func TestPortal_Events(t *testing.T) {
	ts, _ := newTestPortal(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var initial EventMessage
	if err := conn.ReadJSON(&initial); err != nil {
		t.Fatalf("read initial event: %v", err)
	}
	if initial.Status.State != "ap_active" {
		t.Errorf("initial state = %q, want ap_active", initial.Status.State)
	}

	postForm(t, ts.URL+"/", "SSID=Home-Wifi&PASSWORD=p@ss")

	var states []string
	for len(states) < 2 {
		var ev EventMessage
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("read event: %v", err)
		}
		states = append(states, ev.Status.State)
	}
	if states[0] != "connecting" || states[1] != "configured" {
		t.Errorf("event states = %v, want [connecting configured]", states)
	}
}

// fakeAccessPoint reports a fixed StartAccessPoint result
type fakeAccessPoint struct {
	fakeConnector
	err error
}

func (f *fakeAccessPoint) StartAccessPoint(context.Context) (netip.Addr, error) {
	if f.err != nil {
		return netip.Addr{}, f.err
	}
	return netip.MustParseAddr("192.168.0.2"), nil
}

// recordingAnnouncer keeps every state it is told about
type recordingAnnouncer struct {
	mu       sync.Mutex
	port     int
	states   []string
	shutdown bool
	err      error
}

func (a *recordingAnnouncer) Announce(port int, state string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.port = port
	a.states = append(a.states, state)
	return nil
}

func (a *recordingAnnouncer) SetState(state string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.states = append(a.states, state)
}

func (a *recordingAnnouncer) Shutdown() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.shutdown = true
}

func TestServer_StartFailsWithoutAccessPoint(t *testing.T) {
	cause := errors.New("radio missing")
	tracker := provision.NewTracker()
	srv, err := New(Config{Host: "127.0.0.1"}, tracker, &fakeAccessPoint{err: cause}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	err = srv.Start(context.Background())
	if !errors.Is(err, cause) {
		t.Fatalf("Start() error = %v, want %v", err, cause)
	}
	if tracker.State() != provision.Unconfigured {
		t.Errorf("state = %s, want unconfigured", tracker.State())
	}
	if srv.Addr() != nil {
		t.Error("server listened despite access point failure")
	}
}

func TestServer_StartAndShutdown(t *testing.T) {
	tracker := provision.NewTracker()
	announcer := &recordingAnnouncer{}
	srv, err := New(Config{Host: "127.0.0.1", Port: 0}, tracker, &fakeAccessPoint{}, announcer)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)
	go func() { errChan <- srv.Start(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for srv.Addr() == nil {
		if time.Now().After(deadline) {
			t.Fatal("server never started listening")
		}
		time.Sleep(5 * time.Millisecond)
	}

	resp, body := getBody(t, "http://"+srv.Addr().String()+"/")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "<form") {
		t.Errorf("GET / = %d, want startup page", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-errChan:
		if err != nil {
			t.Errorf("Start() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return after cancel")
	}

	announcer.mu.Lock()
	defer announcer.mu.Unlock()
	if !announcer.shutdown {
		t.Error("announcer was not shut down")
	}
	if len(announcer.states) == 0 || announcer.states[0] != "ap_active" {
		t.Errorf("announced states = %v, want ap_active first", announcer.states)
	}
}

// startServer runs srv.Start in the background and waits until it listens
func startServer(t *testing.T, ctx context.Context, srv *Server) <-chan error {
	t.Helper()
	errChan := make(chan error, 1)
	go func() { errChan <- srv.Start(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for srv.Addr() == nil {
		if time.Now().After(deadline) {
			t.Fatal("server never started listening")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return errChan
}

func waitStopped(t *testing.T, errChan <-chan error) {
	t.Helper()
	select {
	case err := <-errChan:
		if err != nil {
			t.Errorf("Start() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return")
	}
}

func TestServer_ShutdownFromAnotherGoroutine(t *testing.T) {
	tests := []struct {
		name      string
		announcer *recordingAnnouncer
	}{
		{"announcing", &recordingAnnouncer{}},
		{"announcement failed", &recordingAnnouncer{err: errors.New("no multicast")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, err := New(Config{Host: "127.0.0.1"}, provision.NewTracker(), &fakeAccessPoint{}, tt.announcer)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			errChan := startServer(t, context.Background(), srv)

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				t.Errorf("Shutdown() error = %v", err)
			}
			waitStopped(t, errChan)

			tt.announcer.mu.Lock()
			defer tt.announcer.mu.Unlock()
			if wantShutdown := tt.announcer.err == nil; tt.announcer.shutdown != wantShutdown {
				t.Errorf("announcer shutdown = %v, want %v", tt.announcer.shutdown, wantShutdown)
			}
		})
	}
}

func TestServer_StopsOnInterrupt(t *testing.T) {
	srv, err := New(Config{Host: "127.0.0.1"}, provision.NewTracker(), &fakeAccessPoint{}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	errChan := startServer(t, context.Background(), srv)

	self, err := os.FindProcess(os.Getpid())
	if err != nil {
		t.Fatalf("FindProcess() error = %v", err)
	}
	if err := self.Signal(os.Interrupt); err != nil {
		t.Skipf("cannot signal own process: %v", err)
	}
	waitStopped(t, errChan)
}
