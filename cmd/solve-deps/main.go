// Command solve-deps resolves the dependency graph declared by a project's
// ./manifest against an installed package tree and, optionally, a remote
// registry.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
)

func main() {
	wd, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to get working directory:", err)
		os.Exit(1)
	}
	c := &Config{
		Args:       os.Args,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		WorkingDir: wd,
	}
	os.Exit(c.Run(context.Background()))
}

// Config specifies a full configuration for one solve-deps invocation,
// following the same shape golang-dep's own command entry point uses so
// that Run is deterministic and testable without touching package-level
// globals.
type Config struct {
	WorkingDir     string
	Args           []string
	Stdout, Stderr io.Writer
}
