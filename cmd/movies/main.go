package main

import (
	"os"

	"github.com/wonny/movies/cmd/movies/commands"
)

// main is the entry point for the movies CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/movies [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
