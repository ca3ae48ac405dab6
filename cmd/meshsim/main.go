package main

import (
	"github.com/go-meshsim/meshsim/internal/cli"
)

// Build information, injected at compile time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.SetVersionInfo(version, commit, date)
	cli.Execute()
}
