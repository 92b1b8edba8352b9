// Package cmd implements the command-line interface of tKV.
// It provides a hierarchical command structure with operations
// for running the server and interacting with it as a client.
//
// The package is organized into several subpackages:
//
//   - kv: Commands for store operations (get, set, del, keys, drop, etc.)
//   - serve: Commands for starting and configuring the tKV server
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See tkv -help for a list of all commands.
package cmd
