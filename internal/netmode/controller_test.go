package netmode

import (
	"context"
	"errors"
	"net/netip"
	"testing"
	"time"

	"github.com/muurk/softap/internal/provision"
)

func testAPConfig() APConfig {
	return APConfig{
		SSID:     "SoftAP-Provision",
		Password: "softap1234",
		Security: SecurityWPA2AESPSK,
		Channel:  1,
		IP: IPSettings{
			Address: netip.MustParseAddr("192.168.0.2"),
			Netmask: netip.MustParseAddr("255.255.255.0"),
			Gateway: netip.MustParseAddr("192.168.0.2"),
		},
	}
}

// fakeRadio fails the first failFor Connect calls
type fakeRadio struct {
	failFor      int
	calls        int
	connected    bool
	disconnects  int
	startErr     error
	addrErr      error
	connectAddr  netip.Addr
	clientAddr   netip.Addr
	lastClient   ClientConfig
	connectedErr error
}

func (f *fakeRadio) StartAP(context.Context, APConfig) error { return f.startErr }

func (f *fakeRadio) Connect(_ context.Context, cfg ClientConfig) (netip.Addr, error) {
	f.calls++
	f.lastClient = cfg
	if f.calls <= f.failFor {
		return netip.Addr{}, errors.New("association failed")
	}
	f.connected = true
	return f.connectAddr, nil
}

func (f *fakeRadio) Disconnect(context.Context) error {
	f.disconnects++
	f.connected = false
	return nil
}

func (f *fakeRadio) IsConnected(context.Context) (bool, error) {
	return f.connected, f.connectedErr
}

func (f *fakeRadio) Addr(_ context.Context, iface Interface) (netip.Addr, error) {
	if f.addrErr != nil {
		return netip.Addr{}, f.addrErr
	}
	if iface == InterfaceAP {
		return netip.MustParseAddr("192.168.0.2"), nil
	}
	return f.clientAddr, nil
}

type sleepRecorder struct {
	delays []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return nil
}

func newTestController(t *testing.T, radio Radio, policy RetryPolicy) (*Controller, *sleepRecorder) {
	t.Helper()
	rec := &sleepRecorder{}
	ctrl, err := NewController(radio, testAPConfig(), policy, WithSleep(rec.sleep))
	if err != nil {
		t.Fatalf("NewController() error = %v", err)
	}
	return ctrl, rec
}

func TestConnectAsClient_RetriesUntilSuccess(t *testing.T) {
	tests := []struct {
		name       string
		failFor    int
		wantCalls  int
		wantSleeps int
	}{
		{"first attempt", 0, 1, 0},
		{"third attempt", 2, 3, 2},
		{"last attempt", 9, 10, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			radio := &fakeRadio{
				failFor:     tt.failFor,
				connectAddr: netip.MustParseAddr("10.0.0.42"),
			}
			ctrl, rec := newTestController(t, radio, DefaultRetryPolicy())

			res, err := ctrl.ConnectAsClient(context.Background(), provision.Credentials{SSID: "Home", Password: "secret"})
			if err != nil {
				t.Fatalf("ConnectAsClient() error = %v", err)
			}
			if res.Attempts != tt.wantCalls || radio.calls != tt.wantCalls {
				t.Errorf("attempts = %d (radio saw %d), want %d", res.Attempts, radio.calls, tt.wantCalls)
			}
			if len(rec.delays) != tt.wantSleeps {
				t.Errorf("sleeps = %d, want %d", len(rec.delays), tt.wantSleeps)
			}
			if res.Addr.String() != "10.0.0.42" {
				t.Errorf("Addr = %s, want 10.0.0.42", res.Addr)
			}
			if radio.lastClient.Security != SecurityWPA2AESPSK {
				t.Errorf("Security = %q, want %q", radio.lastClient.Security, SecurityWPA2AESPSK)
			}
		})
	}
}

func TestConnectAsClient_Exhausted(t *testing.T) {
	radio := &fakeRadio{failFor: 100}
	policy := RetryPolicy{MaxAttempts: 4, Interval: 250 * time.Millisecond}
	ctrl, rec := newTestController(t, radio, policy)

	_, err := ctrl.ConnectAsClient(context.Background(), provision.Credentials{SSID: "Home"})
	if err == nil {
		t.Fatal("ConnectAsClient() expected error")
	}

	var radioErr *RadioError
	if !errors.As(err, &radioErr) {
		t.Fatalf("error type = %T, want *RadioError", err)
	}
	if radioErr.Op != "connect" || radioErr.Attempts != 4 {
		t.Errorf("RadioError = %+v, want Op=connect Attempts=4", radioErr)
	}
	if radio.calls != 4 {
		t.Errorf("radio calls = %d, want 4", radio.calls)
	}
	if len(rec.delays) != 3 {
		t.Fatalf("sleeps = %d, want 3 (no delay after the final attempt)", len(rec.delays))
	}
	for _, d := range rec.delays {
		if d != 250*time.Millisecond {
			t.Errorf("delay = %s, want 250ms", d)
		}
	}
}

func TestConnectAsClient_DisconnectsFirst(t *testing.T) {
	radio := &fakeRadio{connected: true, connectAddr: netip.MustParseAddr("10.0.0.5")}
	ctrl, _ := newTestController(t, radio, DefaultRetryPolicy())

	if _, err := ctrl.ConnectAsClient(context.Background(), provision.Credentials{SSID: "Home"}); err != nil {
		t.Fatalf("ConnectAsClient() error = %v", err)
	}
	if radio.disconnects != 1 {
		t.Errorf("disconnects = %d, want 1", radio.disconnects)
	}
}

func TestConnectAsClient_QueriesAddressWhenConnectOmitsIt(t *testing.T) {
	radio := &fakeRadio{clientAddr: netip.MustParseAddr("10.1.2.3")}
	ctrl, _ := newTestController(t, radio, DefaultRetryPolicy())

	res, err := ctrl.ConnectAsClient(context.Background(), provision.Credentials{SSID: "Home"})
	if err != nil {
		t.Fatalf("ConnectAsClient() error = %v", err)
	}
	if res.Addr.String() != "10.1.2.3" {
		t.Errorf("Addr = %s, want 10.1.2.3", res.Addr)
	}
}

func TestConnectAsClient_CancelledDuringDelay(t *testing.T) {
	radio := &fakeRadio{failFor: 100}
	ctrl, err := NewController(radio, testAPConfig(), RetryPolicy{MaxAttempts: 5, Interval: time.Hour})
	if err != nil {
		t.Fatalf("NewController() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = ctrl.ConnectAsClient(ctx, provision.Credentials{SSID: "Home"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if radio.calls != 1 {
		t.Errorf("radio calls = %d, want 1", radio.calls)
	}
}

func TestStartAccessPoint(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		ctrl, _ := newTestController(t, &fakeRadio{}, DefaultRetryPolicy())
		addr, err := ctrl.StartAccessPoint(context.Background())
		if err != nil {
			t.Fatalf("StartAccessPoint() error = %v", err)
		}
		if addr.String() != "192.168.0.2" {
			t.Errorf("addr = %s, want 192.168.0.2", addr)
		}
	})

	t.Run("radio failure", func(t *testing.T) {
		cause := errors.New("no such device")
		ctrl, _ := newTestController(t, &fakeRadio{startErr: cause}, DefaultRetryPolicy())
		_, err := ctrl.StartAccessPoint(context.Background())

		var radioErr *RadioError
		if !errors.As(err, &radioErr) || radioErr.Op != "start_ap" {
			t.Fatalf("error = %v, want RadioError with Op start_ap", err)
		}
		if !errors.Is(err, cause) {
			t.Errorf("error does not wrap cause")
		}
	})

	t.Run("address failure", func(t *testing.T) {
		ctrl, _ := newTestController(t, &fakeRadio{addrErr: ErrNoAddress}, DefaultRetryPolicy())
		_, err := ctrl.StartAccessPoint(context.Background())
		if !errors.Is(err, ErrNoAddress) {
			t.Fatalf("error = %v, want ErrNoAddress", err)
		}
	})
}

func TestNewController_Validation(t *testing.T) {
	badAP := testAPConfig()
	badAP.Channel = 0

	tests := []struct {
		name   string
		radio  Radio
		ap     APConfig
		policy RetryPolicy
	}{
		{"nil radio", nil, testAPConfig(), DefaultRetryPolicy()},
		{"bad channel", &fakeRadio{}, badAP, DefaultRetryPolicy()},
		{"zero attempts", &fakeRadio{}, testAPConfig(), RetryPolicy{MaxAttempts: 0, Interval: time.Second}},
		{"negative interval", &fakeRadio{}, testAPConfig(), RetryPolicy{MaxAttempts: 1, Interval: -time.Second}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewController(tt.radio, tt.ap, tt.policy); err == nil {
				t.Error("NewController() expected error")
			}
		})
	}
}

func TestRetryPolicy_MaxDuration(t *testing.T) {
	if got := DefaultRetryPolicy().MaxDuration(); got != 9*time.Second {
		t.Errorf("MaxDuration() = %s, want 9s", got)
	}
	if got := (RetryPolicy{MaxAttempts: 1, Interval: time.Minute}).MaxDuration(); got != 0 {
		t.Errorf("MaxDuration() = %s, want 0", got)
	}
}

func TestIPSettings_PrefixLen(t *testing.T) {
	tests := []struct {
		mask    string
		want    int
		wantErr bool
	}{
		{"255.255.255.0", 24, false},
		{"255.255.0.0", 16, false},
		{"255.255.255.255", 32, false},
		{"0.0.0.0", 0, false},
		{"255.0.255.0", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.mask, func(t *testing.T) {
			s := IPSettings{Netmask: netip.MustParseAddr(tt.mask)}
			got, err := s.PrefixLen()
			if (err != nil) != tt.wantErr {
				t.Fatalf("PrefixLen() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("PrefixLen() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseSecurity(t *testing.T) {
	for in, want := range map[string]Security{
		"open":         SecurityOpen,
		"WPA2":         SecurityWPA2AESPSK,
		"wpa2_aes_psk": SecurityWPA2AESPSK,
	} {
		got, err := ParseSecurity(in)
		if err != nil || got != want {
			t.Errorf("ParseSecurity(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseSecurity("wep"); err == nil {
		t.Error("ParseSecurity(wep) expected error")
	}
}
