package main

import (
	"os"

	"github.com/cadrehq/cadre/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
