// Package portal serves the provisioning web page and runs the request
// pipeline behind it.
//
// # Routes
//
//	GET  /        startup page, or the device data page once provisioned
//	POST /        SSID=<ssid>&PASSWORD=<password> (URL-encoded, SSID first)
//	GET  /status  JSON snapshot of the provisioning state
//	GET  /events  WebSocket stream of state changes (JSON)
//
// # POST Pipeline
//
// The Dispatcher decodes the body, extracts the credentials, streams a
// "connecting" notice, then blocks on the Connector until the client
// connection succeeds or the retry policy is exhausted, and finally streams
// the result fragment. Responses:
//
//	200  progress notice followed by the success or failure fragment
//	204  body has no SSID field, or the device is already provisioned
//	405  method other than GET or POST (no body)
//	413  SSID or password longer than its buffer
//	503  another attempt is already running
//
// The connection attempt is detached from the request context, so a browser
// that disconnects mid-attempt does not abort it.
//
// # Usage Example
//
//	tracker := provision.NewTracker()
//	srv, err := portal.New(portal.Config{Port: 80}, tracker, controller, advertiser)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
package portal
