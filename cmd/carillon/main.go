package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// exitInterrupted matches the shell convention for SIGINT.
const exitInterrupted = 130

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	root := newRootCommand()
	root.SetArgs(args)
	err := root.Execute()
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	default:
		fmt.Fprintf(os.Stderr, "carillon: %v\n", err)
		return 1
	}
}
