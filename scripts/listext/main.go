// listext lists the Vertex AI extensions registered in the configured
// project, the quickest way to check whether any managed extensions are
// deployed alongside the agents.
//
// Usage (run from the repo root):
//
//	go run scripts/listext/main.go
//
// Requires GOOGLE_CLOUD_PROJECT and Application Default Credentials
// (gcloud auth application-default login). VERTEX_LOCATION defaults to
// us-central1.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sanity-io/litter"

	"github.com/chainsignal-io/chainsignal/internal/config"
	"github.com/chainsignal-io/chainsignal/internal/vertex"
)

func main() {
	_ = godotenv.Load()

	project, err := config.Require("GOOGLE_CLOUD_PROJECT")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	location := os.Getenv("VERTEX_LOCATION")
	if location == "" {
		location = "us-central1"
	}

	ctx := context.Background()
	client, err := vertex.NewClient(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	exts, err := client.ListExtensions(ctx, project, location)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if len(exts) == 0 {
		fmt.Printf("No extensions registered in %s/%s\n", project, location)
		return
	}

	fmt.Printf("%d extension(s) in %s/%s:\n", len(exts), project, location)
	litter.Dump(exts)
}
