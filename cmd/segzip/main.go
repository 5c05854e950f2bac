// Package main is the entry point for segzip, a gzip tool built on segio
// sources and sinks.
//
// Usage:
//
//	segzip [flags] <command> [args]
//
// Commands:
//
//	compress    - Compress a file into the gzip format
//	decompress  - Decompress a gzip file
//	cat         - Decompress a gzip file to stdout
package main

import (
	"fmt"
	"os"

	"github.com/xDarkicex/segio/cmd/segzip/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
