package ui

import (
	"github.com/muurk/softap/internal/version"
)

// BannerInfo is what an operator needs to reach the portal
type BannerInfo struct {
	SSID     string // Provisioning network name
	Password string // Provisioning network password, empty for open networks
	Security string
	URL      string // Portal URL
	Instance string // mDNS instance name, empty when not advertising
}

// NewBanner builds the startup banner that tells the operator which network
// to join and which page to open
func NewBanner(info BannerInfo) *Header {
	password := info.Password
	if password == "" {
		password = "(open network)"
	}

	params := []Param{
		{Key: "Network", Value: info.SSID},
		{Key: "Password", Value: password},
	}
	if info.Security != "" {
		params = append(params, Param{Key: "Security", Value: info.Security})
	}
	params = append(params, Param{Key: "Open", Value: info.URL})
	if info.Instance != "" {
		params = append(params, Param{Key: "mDNS", Value: info.Instance})
	}

	return NewHeader("Provisioning portal", "softap-server "+version.Version, params...)
}

// RenderBanner renders the startup banner at the given width
func RenderBanner(info BannerInfo, width int) string {
	return NewBanner(info).SetWidth(width).Render()
}
