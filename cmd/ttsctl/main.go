package main

import (
	"os"

	"github.com/audioforge/ttsgate/cmd/ttsctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
