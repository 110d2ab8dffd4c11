// Command zkclaim proves and verifies two-phase insurance claims against a
// zero-knowledge verification relay.
package main

import (
	"context"
	"os"

	"github.com/roach88/zkclaim/internal/cli"
)

func main() {
	os.Exit(cli.Execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
