// Package commands defines the wasteboz CLI.
//
// Commands
//
//   - lookup   Print EWC codes for a description or a photo
//   - tui      Interactive terminal lookup
//
// The root command loads configuration and builds the gateway before any
// subcommand runs; both subcommands drive a single in-memory session.
package commands
