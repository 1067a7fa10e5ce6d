// Package provision implements the data side of the captive-page
// provisioning pipeline: decoding the browser's form body, extracting the
// target network credentials, building the HTML fragments sent back to the
// browser and tracking the device's provisioning state.
//
// # Pipeline
//
//	raw body --Decode--> SSID=Home-Wifi&PASSWORD=p@ss
//	         --Credentials.Extract--> {SSID: "Home-Wifi", Password: "p@ss"}
//	         --(network controller)--> ok / failed
//	         --ResultFragment--> <p ...>Home-Wifi ... connected</p>
//
// Every buffer has a fixed capacity (MaxBodySize, MaxSSIDLen,
// MaxPasswordLen, MaxFragmentSize). Exceeding one yields an error of type
// ErrTypeInputTooLarge instead of a silent truncation.
//
// # State
//
// Tracker holds the process-wide state (Unconfigured, APActive, Connecting,
// Configured). It is safe for concurrent use and is the only shared mutable
// value in the pipeline; credentials and fragments are request scoped.
package provision
