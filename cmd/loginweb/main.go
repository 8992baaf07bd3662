// loginweb - organizer tooling for the loginweb event platform
package main

import (
	"os"

	"github.com/hrhgit/loginweb-cli/internal/cli"
	"github.com/hrhgit/loginweb-cli/internal/version"
)

// Version information, overridden via LDFLAGS for releases.
var (
	Version   = "v1.0.0"
	BuildTime = "2026-08-30"
)

func main() {
	version.Version = Version
	version.BuildTime = BuildTime

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
