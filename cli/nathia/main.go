package main

import (
	"os"

	nathiacmder "github.com/nossamaternidade/nathia/cmd/nathia"
)

func main() {
	cmd := nathiacmder.NewNathiaCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
