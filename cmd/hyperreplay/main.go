package main

import (
	"os"

	"github.com/hyperreplay/hyperreplay/cmd/hyperreplay/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
