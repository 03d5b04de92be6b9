// Package main provides the entry point for the wcfm archiver.
package main

import (
	"fmt"
	"os"

	"github.com/maauso/wcfm-archiver/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
