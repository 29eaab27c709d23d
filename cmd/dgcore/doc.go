// Package dgcore provides the command-line interface for the dg-core
// daemon. It configures subcommands (serve, scan, redact, policy, tail,
// etc.), parses flags, and executes the selected command.
//
// Typical usage from a main package:
//
//	package main
//	import "github.com/HPNChanel/data-guardian/cmd/dgcore"
//	func main() { dgcore.Execute() }
package dgcore
