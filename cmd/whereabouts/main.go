// Command whereabouts resolves user context and filters actions against it.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/whereabouts/internal/cli"
)

func main() {
	if err := cli.LoadEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not load .env: %v\n", err)
	}

	// Subcommands silence cobra's error printing; report here on stderr so
	// JSON on stdout stays parseable.
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
