// Command assetsync replicates content assets between instances.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/assetsync/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
