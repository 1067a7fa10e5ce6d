package portalclient

import (
	"fmt"
	"strings"

	"github.com/muurk/softap/internal/provision"
)

// ValidateSSID validates a target network SSID.
// SSIDs must be non-empty and fit the portal's 32 byte field. The portal
// splits fields on '&' after decoding, so the SSID cannot contain one.
func ValidateSSID(ssid string) error {
	if ssid == "" {
		return NewValidationError("SSID cannot be empty")
	}
	if len(ssid) > provision.MaxSSIDLen {
		return NewValidationError(fmt.Sprintf("SSID too long (max %d bytes): %d bytes", provision.MaxSSIDLen, len(ssid)))
	}
	if strings.ContainsRune(ssid, '&') {
		return NewValidationError("SSID cannot contain '&'")
	}
	return nil
}

// ValidatePassword validates a target network password.
// An empty password selects an open network.
func ValidatePassword(password string) error {
	if len(password) > provision.MaxPasswordLen {
		return NewValidationError(fmt.Sprintf("password too long (max %d bytes): %d bytes", provision.MaxPasswordLen, len(password)))
	}
	if strings.ContainsRune(password, '&') {
		return NewValidationError("password cannot contain '&'")
	}
	if password != "" && len(password) < 8 {
		return NewValidationError(fmt.Sprintf("WPA2 password too short (min 8 chars): %d chars", len(password)))
	}
	return nil
}

// ValidateCredentials validates both fields and returns every problem found
func ValidateCredentials(ssid, password string) []error {
	var errs []error
	if err := ValidateSSID(ssid); err != nil {
		errs = append(errs, err)
	}
	if err := ValidatePassword(password); err != nil {
		errs = append(errs, err)
	}
	return errs
}
