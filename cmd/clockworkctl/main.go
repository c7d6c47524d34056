package main

import (
	"fmt"
	"os"

	"github.com/justlikeclockwork/clockwork/internal/ctl"
)

func main() {
	if err := ctl.NewRootCmd(ctl.OpenBackend, os.Stdin, os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
