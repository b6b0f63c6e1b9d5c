// Command dbpilot serves the dbpilot HTTP API and offers a few direct
// commands against saved connection profiles.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

// Version is set at build time.
var Version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.New(color.FgRed, color.Bold).Sprint("Error: ")+err.Error())
		os.Exit(1)
	}
}
