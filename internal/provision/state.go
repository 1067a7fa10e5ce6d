package provision

import (
	"fmt"
	"net/netip"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/muurk/softap/internal/logging"
)

// State is the device-level provisioning state
type State int

const (
	// Unconfigured is the state at process start, before the AP is up
	Unconfigured State = iota
	// APActive means the access point is serving the provisioning page
	APActive
	// Connecting means a client-mode connection attempt is in flight
	Connecting
	// Configured means the device joined the target network. It is terminal.
	Configured
)

// String returns the wire name of the state
func (s State) String() string {
	switch s {
	case Unconfigured:
		return "unconfigured"
	case APActive:
		return "ap_active"
	case Connecting:
		return "connecting"
	case Configured:
		return "configured"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ReconfigRequest is the tri-state re-provisioning intent flag. It is stored
// and reported, but no transition reads it: there is no path from
// Configured back to APActive.
type ReconfigRequest int8

const (
	ReconfigNegative ReconfigRequest = -1
	ReconfigUnset    ReconfigRequest = 0
	ReconfigPositive ReconfigRequest = 1
)

// String returns the wire name of the flag
func (r ReconfigRequest) String() string {
	switch r {
	case ReconfigNegative:
		return "negative"
	case ReconfigPositive:
		return "positive"
	default:
		return "unset"
	}
}

// Snapshot is a consistent copy of the tracker's state
type Snapshot struct {
	State      State
	SSID       string // Network of the current or last attempt
	AttemptID  string // Identifier of the current or last attempt
	APAddr     netip.Addr
	ClientAddr netip.Addr
	Reconfig   ReconfigRequest
	ChangedAt  time.Time
}

// Event is published to subscribers on every state change
type Event struct {
	Seq    uint64
	From   State
	Detail string
	Snapshot
}

// Tracker owns the process-wide provisioning state
type Tracker struct {
	mu      sync.Mutex
	snap    Snapshot
	seq     uint64
	subs    map[int]chan Event
	nextSub int

	now func() time.Time
}

// NewTracker creates a tracker in the Unconfigured state
func NewTracker() *Tracker {
	t := &Tracker{
		subs: make(map[int]chan Event),
		now:  time.Now,
	}
	t.snap.ChangedAt = t.now()
	return t
}

// Snapshot returns a copy of the current state
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snap
}

// State returns the current state
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snap.State
}

// Configured reports whether a client connection has ever succeeded
func (t *Tracker) Configured() bool {
	return t.State() == Configured
}

// MarkAPActive records that the access point is up at addr
func (t *Tracker) MarkAPActive(addr netip.Addr) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.snap.State != Unconfigured {
		return NewStateError(fmt.Sprintf("cannot start access point from %s", t.snap.State), nil)
	}
	t.snap.APAddr = addr
	t.transition(APActive, "access point started")
	return nil
}

// BeginConnect moves APActive to Connecting and returns the new attempt ID.
// It fails with ErrBusy while another attempt is running and with
// ErrAlreadyConfigured once the device is provisioned.
func (t *Tracker) BeginConnect(ssid string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.snap.State {
	case APActive:
	case Connecting:
		return "", NewStateError("connection attempt already running", ErrBusy)
	case Configured:
		return "", NewStateError("device already provisioned", ErrAlreadyConfigured)
	default:
		return "", NewStateError(fmt.Sprintf("cannot connect from %s", t.snap.State), nil)
	}

	t.snap.SSID = ssid
	t.snap.AttemptID = uuid.NewString()
	t.transition(Connecting, "connecting to "+ssid)
	return t.snap.AttemptID, nil
}

// CompleteConnect moves Connecting to Configured
func (t *Tracker) CompleteConnect(addr netip.Addr) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.snap.State != Connecting {
		return NewStateError(fmt.Sprintf("no attempt to complete in %s", t.snap.State), nil)
	}
	t.snap.ClientAddr = addr
	t.transition(Configured, "joined "+t.snap.SSID)
	return nil
}

// FailConnect moves Connecting back to APActive so the page can be retried
func (t *Tracker) FailConnect(reason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.snap.State != Connecting {
		return NewStateError(fmt.Sprintf("no attempt to fail in %s", t.snap.State), nil)
	}
	t.snap.ClientAddr = netip.Addr{}
	t.transition(APActive, reason)
	return nil
}

// SetReconfigurationRequest stores the re-provisioning intent flag
func (t *Tracker) SetReconfigurationRequest(r ReconfigRequest) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.Reconfig = r
}

// ReconfigurationRequest returns the stored re-provisioning intent flag
func (t *Tracker) ReconfigurationRequest() ReconfigRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snap.Reconfig
}

// Subscribe registers for state change events. The channel is buffered;
// events are dropped for a subscriber whose buffer is full. Call the
// returned function to unsubscribe.
func (t *Tracker) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	t.mu.Lock()
	id := t.nextSub
	t.nextSub++
	t.subs[id] = ch
	t.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.subs, id)
			t.mu.Unlock()
			close(ch)
		})
	}
}

// transition must be called with t.mu held
func (t *Tracker) transition(to State, detail string) {
	from := t.snap.State
	t.snap.State = to
	t.snap.ChangedAt = t.now()
	t.seq++

	logging.LogStateTransition(from.String(), to.String())

	ev := Event{Seq: t.seq, From: from, Detail: detail, Snapshot: t.snap}
	for _, ch := range t.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
