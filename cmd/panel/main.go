package main

import (
	"github.com/nghyane/proxypanel/internal/buildinfo"
	"github.com/nghyane/proxypanel/internal/cli"
	"github.com/nghyane/proxypanel/internal/logging"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func init() {
	logging.SetupBaseLogger()
	buildinfo.Version = Version
	buildinfo.Commit = Commit
	buildinfo.BuildDate = BuildDate
}

func main() {
	cli.Execute()
}
