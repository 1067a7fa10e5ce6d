package provision

import (
	"errors"
	"net/netip"
	"sync"
	"testing"
)

var (
	apAddr     = netip.MustParseAddr("192.168.0.2")
	clientAddr = netip.MustParseAddr("10.1.2.3")
)

func TestTracker_HappyPath(t *testing.T) {
	tr := NewTracker()
	if tr.State() != Unconfigured {
		t.Fatalf("initial state = %s, want unconfigured", tr.State())
	}

	if err := tr.MarkAPActive(apAddr); err != nil {
		t.Fatalf("MarkAPActive() error = %v", err)
	}

	id, err := tr.BeginConnect("Home")
	if err != nil {
		t.Fatalf("BeginConnect() error = %v", err)
	}
	if id == "" {
		t.Error("BeginConnect() should return an attempt ID")
	}
	if tr.State() != Connecting {
		t.Errorf("state = %s, want connecting", tr.State())
	}

	if err := tr.CompleteConnect(clientAddr); err != nil {
		t.Fatalf("CompleteConnect() error = %v", err)
	}
	if !tr.Configured() {
		t.Error("Configured() = false after successful connection")
	}

	snap := tr.Snapshot()
	if snap.SSID != "Home" || snap.APAddr != apAddr || snap.ClientAddr != clientAddr || snap.AttemptID != id {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestTracker_FailureReturnsToAPActive(t *testing.T) {
	tr := NewTracker()
	_ = tr.MarkAPActive(apAddr)

	for i := 0; i < 3; i++ {
		if _, err := tr.BeginConnect("Home"); err != nil {
			t.Fatalf("attempt %d: BeginConnect() error = %v", i, err)
		}
		if err := tr.FailConnect("exhausted"); err != nil {
			t.Fatalf("attempt %d: FailConnect() error = %v", i, err)
		}
		if tr.State() != APActive {
			t.Fatalf("attempt %d: state = %s, want ap_active", i, tr.State())
		}
	}
}

func TestTracker_ConfiguredIsTerminal(t *testing.T) {
	tr := NewTracker()
	_ = tr.MarkAPActive(apAddr)
	_, _ = tr.BeginConnect("Home")
	_ = tr.CompleteConnect(clientAddr)

	if _, err := tr.BeginConnect("Other"); !errors.Is(err, ErrAlreadyConfigured) {
		t.Errorf("BeginConnect() after configured error = %v", err)
	}
	if err := tr.FailConnect("x"); !IsStateError(err) {
		t.Errorf("FailConnect() after configured error = %v", err)
	}
	if err := tr.MarkAPActive(apAddr); !IsStateError(err) {
		t.Errorf("MarkAPActive() after configured error = %v", err)
	}

	tr.SetReconfigurationRequest(ReconfigPositive)
	if !tr.Configured() {
		t.Error("reconfiguration flag must not change the state")
	}
	if tr.ReconfigurationRequest() != ReconfigPositive {
		t.Errorf("ReconfigurationRequest() = %s", tr.ReconfigurationRequest())
	}
}

func TestTracker_RejectsOutOfOrder(t *testing.T) {
	tr := NewTracker()

	if _, err := tr.BeginConnect("Home"); !IsStateError(err) {
		t.Errorf("BeginConnect() before AP error = %v", err)
	}
	if err := tr.CompleteConnect(clientAddr); !IsStateError(err) {
		t.Errorf("CompleteConnect() without attempt error = %v", err)
	}
}

func TestTracker_SingleAttemptInFlight(t *testing.T) {
	tr := NewTracker()
	_ = tr.MarkAPActive(apAddr)

	const n = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners, busy := 0, 0

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := tr.BeginConnect("Home")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners++
			case errors.Is(err, ErrBusy):
				busy++
			}
		}()
	}
	wg.Wait()

	if winners != 1 || busy != n-1 {
		t.Errorf("winners = %d, busy = %d; want 1 and %d", winners, busy, n-1)
	}
}

func TestTracker_Subscribe(t *testing.T) {
	tr := NewTracker()
	events, cancel := tr.Subscribe(8)
	defer cancel()

	_ = tr.MarkAPActive(apAddr)
	_, _ = tr.BeginConnect("Home")

	first := <-events
	if first.From != Unconfigured || first.State != APActive || first.Seq != 1 {
		t.Errorf("first event = %+v", first)
	}
	second := <-events
	if second.From != APActive || second.State != Connecting || second.SSID != "Home" {
		t.Errorf("second event = %+v", second)
	}

	cancel()
	if _, ok := <-events; ok {
		t.Error("channel should be closed after cancel")
	}
	cancel()
}

func TestTracker_SlowSubscriberDoesNotBlock(t *testing.T) {
	tr := NewTracker()
	_, cancel := tr.Subscribe(1)
	defer cancel()

	_ = tr.MarkAPActive(apAddr)
	_, _ = tr.BeginConnect("Home")
	_ = tr.FailConnect("x")

	if tr.State() != APActive {
		t.Errorf("state = %s", tr.State())
	}
}

func TestStateString(t *testing.T) {
	names := map[State]string{
		Unconfigured: "unconfigured",
		APActive:     "ap_active",
		Connecting:   "connecting",
		Configured:   "configured",
	}
	for s, want := range names {
		if s.String() != want {
			t.Errorf("%d.String() = %s, want %s", int(s), s.String(), want)
		}
	}
}
