package main

import (
	"os"

	"waba-integration/cmd/wabactl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
