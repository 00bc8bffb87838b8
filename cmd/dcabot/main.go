package main

import (
	"os"

	"dcabot/cmd/dcabot/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
