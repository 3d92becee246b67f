package main

import (
	"github.com/joho/godotenv"

	"github.com/nondescript74/keeptrack-cli/cmd/keeptrack"
)

func main() {
	// Optional .env with KEEPTRACK_DB / KEEPTRACK_LEGACY overrides.
	_ = godotenv.Load()
	keeptrack.Execute()
}
