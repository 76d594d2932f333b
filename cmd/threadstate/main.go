// Command threadstate inspects and changes per-thread conversation state.
package main

import (
	"os"

	"github.com/roach88/threadstate/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
