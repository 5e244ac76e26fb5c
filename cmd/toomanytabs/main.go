package main

import (
	"log"

	"github.com/MrSnakeDoc/toomanytabs/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		log.Fatalf("❌ toomanytabs failed to start: %v", err)
	}
}
