package provision

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// MaxFragmentSize is the capacity of the response fragment buffer
const MaxFragmentSize = 512

// Fixed fragments streamed back to the browser. The result fragment is
// ResponsePrefix + ssid + (SuccessSuffix | FailureSuffix).
const (
	ConnectInProgress = `<p id="wifi-progress">Connecting to the Wi-Fi network. This can take up to a minute, please keep this page open.</p>`

	ResponsePrefix = `<p id="wifi-result">Wi-Fi network <b>`

	SuccessSuffix = `</b> joined. The device is now provisioned; reconnect your phone or laptop to your usual network.</p>`

	FailureSuffix = `</b> could not be joined. Check the network name and password, reconnect to the setup network and try again.</p>`

	BusyMessage = `<p id="wifi-busy">Another connection attempt is in progress. Try again in a moment.</p>`

	TooLargeMessage = `<p id="wifi-result">The network name or password is too long. Names are at most 32 bytes and passwords at most 64 bytes.</p>`
)

var (
	ssidPolicyOnce sync.Once
	ssidPolicy     *bluemonday.Policy
)

// ssidSanitizer returns a strict policy: no markup survives, text is escaped.
// Callers escape the SSID first so that '<' in a network name stays text.
func ssidSanitizer() *bluemonday.Policy {
	ssidPolicyOnce.Do(func() {
		ssidPolicy = bluemonday.StrictPolicy()
	})
	return ssidPolicy
}

// ProgressFragment returns the "connection in progress" notice
func ProgressFragment() []byte {
	return []byte(ConnectInProgress)
}

// BusyFragment returns the notice for a POST that raced another attempt
func BusyFragment() []byte {
	return []byte(BusyMessage)
}

// TooLargeFragment returns the failure fragment for oversized credentials
func TooLargeFragment() []byte {
	return []byte(TooLargeMessage)
}

// ResultFragment assembles the terminal success or failure fragment for ssid.
// The SSID is reflected into HTML as escaped text.
func ResultFragment(ssid string, connected bool) ([]byte, error) {
	suffix := FailureSuffix
	if connected {
		suffix = SuccessSuffix
	}

	safe := ssidSanitizer().Sanitize(html.EscapeString(ssid))

	size := len(ResponsePrefix) + len(safe) + len(suffix)
	if size > MaxFragmentSize {
		return nil, NewInputTooLargeError("response fragment", size, MaxFragmentSize)
	}

	var b strings.Builder
	b.Grow(size)
	b.WriteString(ResponsePrefix)
	b.WriteString(safe)
	b.WriteString(suffix)
	return []byte(b.String()), nil
}
