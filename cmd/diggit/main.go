// Package main provides the entry point for the diggit CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/directional-star/diggit/cmd/diggit/commands"
	"github.com/directional-star/diggit/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	err := commands.NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
