// Package main provides the voiceover command line tool.
package main

import (
	"os"

	"github.com/maauso/voiceover-api/internal/cli"
)

func main() {
	if err := cli.CreateRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
