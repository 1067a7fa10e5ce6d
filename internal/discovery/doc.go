// Package discovery announces provisioning portals over mDNS and finds them.
//
// A portal advertises itself as an "_http._tcp" service. Plenty of other
// devices do the same, so portals carry a "svc=softap" TXT record and the
// scanner ignores entries without it.
//
// # TXT Records
//
//	svc=softap           marker
//	path=/               page path
//	state=ap_active      provisioning state, updated on every transition
//	version=v1.2.3       server version
//
// # Usage Example
//
//	// Device side
//	adv := discovery.NewAdvertiser("", "uap0")
//	if err := adv.Announce(80, "ap_active"); err != nil {
//	    log.Fatal(err)
//	}
//	defer adv.Shutdown()
//
//	// Operator side
//	portals, err := discovery.NewScanner().Scan(ctx)
//	for _, p := range portals {
//	    fmt.Println(p)
//	}
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - The operator must be joined to the portal's access point
// - Firewall must allow mDNS (UDP port 5353)
package discovery
