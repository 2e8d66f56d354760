package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/uiforge/uiforge/internal/cli"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	// Provider API keys may live in a local .env; absence is fine.
	_ = godotenv.Load()

	cli.SetVersion(Version)
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
