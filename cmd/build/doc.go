// Package main hosts the build CLI entrypoint and command graph.
//
// The root command takes the positional arguments <target> <version> and runs
// the release pipeline from internal/release. Subcommands cover preflight
// checks, configuration scaffolding, and the release history ledger.
// Configuration resolution and logger setup live in commandContext so each
// command only wires flags to internal packages.
package main
