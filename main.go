package main

import (
	"os"

	"github.com/cvlens/cvlens/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
