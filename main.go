package main

import (
	"context"

	"github.com/joho/godotenv"

	"editorial-cache/internal/cli"
)

func main() {
	// A missing .env file is fine; the environment still applies.
	_ = godotenv.Load()

	cli.ExecuteContext(context.Background())
}
