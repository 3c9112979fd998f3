package main

import (
	"fmt"
	"os"

	"github.com/babar-dev/babar/internal/cli"
)

var version = "0.1.0-dev"

func main() {
	if err := cli.LoadEnv("."); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	if err := cli.NewRootCommand(version).Execute(); err != nil {
		os.Exit(1)
	}
}
