// Package netmode moves the device between access-point and client mode.
//
// The Controller owns two operations:
//
//   - StartAccessPoint brings up the provisioning access point with static
//     IPv4 settings and returns its address. Failure is fatal for the
//     server; nothing can be provisioned without the AP.
//   - ConnectAsClient joins the target network with WPA2-AES-PSK, retrying
//     under a RetryPolicy (fixed attempt count, fixed delay between
//     attempts). It blocks for up to MaxAttempts x Interval.
//
// The radio itself sits behind the Radio interface. Two implementations are
// provided: SimRadio, an in-memory radio driven by configuration (useful on
// development machines and in tests), and NMCLIRadio, which drives
// NetworkManager through the nmcli command line.
//
// # Usage Example
//
//	radio := netmode.NewSimRadio(netmode.SimNetwork{SSID: "Home", Password: "hunter22"})
//	ctrl, err := netmode.NewController(radio, apConfig, netmode.DefaultRetryPolicy())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	addr, err := ctrl.StartAccessPoint(ctx)
//	...
//	res, err := ctrl.ConnectAsClient(ctx, provision.Credentials{SSID: "Home", Password: "hunter22"})
package netmode
