// Package portalclient is the operator-side client for a provisioning
// portal.
//
// It fetches the portal's state, submits credentials the same way the
// portal's own page does, and follows the state event stream.
//
// # Basic Usage
//
//	client := portalclient.NewClient("192.168.0.2", 80)
//
//	status, err := client.Status(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(status.State)
//
//	result, err := client.Provision(ctx, "Home-Wifi", "p@ssw0rd")
//	if portalclient.IsProvisioningFailed(err) {
//	    fmt.Println(portalclient.GetTroubleshootingHint(err))
//	}
//
// # Retries
//
// GET requests are retried with exponential backoff on network errors and
// 5xx responses. Provisioning is never retried: the device runs its own
// bounded retry loop behind a single POST.
package portalclient
