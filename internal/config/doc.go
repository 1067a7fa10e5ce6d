// Package config loads and saves the softap-server configuration file.
//
// The file is YAML. Every field has a default (see Default), so a missing
// file or a file that sets only a few fields is fine. Unknown fields are
// rejected to catch typos.
//
// # Configuration File Location
//
//   - Linux: $XDG_CONFIG_HOME/softap/config.yaml or $HOME/.config/softap/config.yaml
//   - macOS: $HOME/.config/softap/config.yaml
//   - Windows: %LOCALAPPDATA%\softap\config.yaml
//
// # Example
//
//	version: 1
//	log_level: info
//	access_point:
//	  ssid: SoftAP-Provision
//	  password: softap1234
//	  security: wpa2_aes_psk
//	  channel: 1
//	  address: 192.168.0.2
//	  netmask: 255.255.255.0
//	  gateway: 192.168.0.2
//	http:
//	  port: 80
//	retry:
//	  max_attempts: 10
//	  interval: 1s
//	radio:
//	  backend: nmcli
//	  ap_interface: uap0
//	  client_interface: wlan0
//	mdns:
//	  enabled: true
//
// # Security
//
// Credentials for the networks the device joins are NEVER stored. They
// reach the device through the provisioning page and are dropped after the
// connection attempt. The access_point password protects only the setup
// network.
package config
