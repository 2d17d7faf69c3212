// Package config defines the configuration for a party node.
//
// Regardless of how the node is started, directly from Go code or as a
// standalone process from the command line, it uses the Config object defined
// in this package to store and forward configuration options. On top of these
// configuration options, the node relies on a data directory, defined by
// Config.DataDir, where it expects to find a few additional files:
//
//  priv_key // a plain text file containing the raw private key of the device (cf. party keygen).
//  party.toml // (optional) configuration file read by the CLI.
//  cert.pem, key.pem // (optional) TLS certificate and key of the WAMP server.
package config
