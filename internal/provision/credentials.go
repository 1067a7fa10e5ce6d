package provision

import "bytes"

const (
	// MaxSSIDLen is the capacity of the SSID field (802.11 limit)
	MaxSSIDLen = 32

	// MaxPasswordLen is the capacity of the password field (64 hex digits
	// for a raw WPA2 PSK)
	MaxPasswordLen = 64

	// ssidToken is the literal the form body must start with
	ssidToken = "SSID"
)

// Credentials holds the target network credentials extracted from one POST.
// Values are request scoped and never persisted.
type Credentials struct {
	SSID     string
	Password string
}

// Extract parses a decoded form body of the shape
// "SSID=<ssid>&<anything>=<password>" into c.
//
// Fields are located by position, not by name: the first value is the SSID,
// the value after the first '&' is the password. On any error c is left
// untouched, so a rejected body never clobbers earlier values.
func (c *Credentials) Extract(form []byte) error {
	if !bytes.HasPrefix(form, []byte(ssidToken)) {
		return NewMalformedError("form body does not start with "+ssidToken, ErrMissingSSIDToken)
	}

	eq := bytes.IndexByte(form, '=')
	if eq < 0 {
		return NewMalformedError("SSID field has no value", ErrMissingSSIDToken)
	}
	rest := form[eq+1:]

	ssid := rest
	var password []byte
	if amp := bytes.IndexByte(rest, '&'); amp >= 0 {
		ssid = rest[:amp]
		password = passwordField(rest[amp+1:])
	}

	if len(ssid) > MaxSSIDLen {
		return NewInputTooLargeError("ssid", len(ssid), MaxSSIDLen)
	}
	if len(password) > MaxPasswordLen {
		return NewInputTooLargeError("password", len(password), MaxPasswordLen)
	}

	c.SSID = string(ssid)
	c.Password = string(password)
	return nil
}

// passwordField skips the field name and returns the value up to the next
// '&' or the end of input. A field without '=' has an empty value.
func passwordField(field []byte) []byte {
	eq := bytes.IndexByte(field, '=')
	if eq < 0 {
		return nil
	}
	value := field[eq+1:]
	if amp := bytes.IndexByte(value, '&'); amp >= 0 {
		value = value[:amp]
	}
	return value
}

// Redacted returns a copy safe for logging
func (c Credentials) Redacted() Credentials {
	if c.Password == "" {
		return c
	}
	return Credentials{SSID: c.SSID, Password: "********"}
}
