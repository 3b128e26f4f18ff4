// Package main is the benchforge entry point. All logic lives in
// internal/; this binary only wires the command tree.
package main

import "github.com/probelab/benchforge/internal/cli"

func main() {
	cli.Execute()
}
