// Package main is the single-binary entrypoint for Keybeat: the daemon,
// the relay and the CLI all live behind one executable.
package main

import "github.com/keybeat-app/keybeat/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
