package portal

import (
	_ "embed"
)

// The pages are kept as separate files so they can be edited as HTML
var (
	//go:embed web/startup.html
	startupPage []byte

	//go:embed web/device_data.html
	deviceDataPage []byte
)

// Pages are the static payloads served for GET /
type Pages struct {
	// Startup is served until the device is provisioned
	Startup []byte

	// DeviceData is served once the device is provisioned
	DeviceData []byte
}

// DefaultPages returns the embedded pages
func DefaultPages() Pages {
	return Pages{
		Startup:    startupPage,
		DeviceData: deviceDataPage,
	}
}
