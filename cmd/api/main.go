package main

import (
	"context"
	"log"

	"lyceum/internal/app/bootstrap"
)

// API process entrypoint.
// Data flow:
// 1) Load config.
// 2) Build app wiring (ports + adapters + use cases).
// 3) Start HTTP server.
//
//	@title			Lyceum API
//	@version		1.0
//	@description	Course access consistency engine: roles, claims, and enrollment review.
//	@BasePath		/
func main() {
	log.Println("lyceum api starting")
	app, err := bootstrap.BuildAPI()
	if err != nil {
		log.Fatalf("bootstrap api failed: %v", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Printf("api shutdown close failed: %v", err)
		}
	}()

	if err := app.Run(context.Background()); err != nil {
		log.Fatalf("lyceum api stopped with error: %v", err)
	}
}
