// cmd/azon-seeker/main.go
package main

import (
	"fmt"
	"os"

	"github.com/primedigitaltech/azon-seeker/internal/engine"
	clierrors "github.com/primedigitaltech/azon-seeker/internal/errors"
)

// Build information, set by ldflags
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// hasFlag checks if a flag is present in command line arguments
func hasFlag(flag string) bool {
	for _, arg := range os.Args {
		if arg == flag {
			return true
		}
	}
	return false
}

func main() {
	engine.Version = version
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprint(os.Stderr, clierrors.FormatForCLI(err, hasFlag("--debug")))
		os.Exit(clierrors.ExitCode(err))
	}
}
