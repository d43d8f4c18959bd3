// Command facter-lookup answers fact lookups from a cached facter run.
package main

import (
	"fmt"
	"os"

	"github.com/rshade/facter-lookup/internal/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev" //nolint:gochecknoglobals // Set by the linker

func run(args []string) error {
	root := cli.NewRootCmd(version)
	root.SetArgs(args)
	return root.Execute()
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.ExitCode(err))
	}
}
