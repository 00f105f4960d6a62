package main

import (
	"os"

	"github.com/eigerco/arbiter/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
