// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Default model used by both agents when no override is set.
const DefaultModel = "gemini-2.0-flash-001"

// Config holds all application configuration.
type Config struct {
	// Google Cloud settings.
	ProjectID      string // GOOGLE_CLOUD_PROJECT; empty means development mode.
	PubSubTopic    string // Target topic for normalized events.
	VertexLocation string // Region of the managed extensions registry.

	// Model settings.
	CollectorModel string // Model id for the data collector agent.
	RootModel      string // Model id for the root orchestrator agent.
	GoogleAPIKey   string // API key for the Gemini model endpoint.

	// Provider API credentials. Any of these may be empty; the matching
	// source reports itself as not configured instead of failing.
	NOAAAPIKey          string
	GDELTAPIKey         string
	MarineTrafficAPIKey string
	FREDAPIKey          string
	TwitterBearerToken  string

	// Collection settings.
	CollectionFrequency time.Duration // Advertised cadence, surfaced in prompts.
	ArtifactDir         string        // Directory served by the artifact read tool.

	// Server settings.
	Port int

	// OTEL settings.
	OTELEndpoint string
	ServiceName  string

	LogLevel string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	cfg := Config{
		ProjectID:           envStr("GOOGLE_CLOUD_PROJECT", ""),
		PubSubTopic:         envStr("PUBSUB_TOPIC", "raw_events"),
		VertexLocation:      envStr("VERTEX_LOCATION", "us-central1"),
		CollectorModel:      envStr("DATA_COLLECTOR_MODEL", DefaultModel),
		RootModel:           envStr("ROOT_AGENT_MODEL", DefaultModel),
		GoogleAPIKey:        envStr("GOOGLE_API_KEY", ""),
		NOAAAPIKey:          envStr("NOAA_API_KEY", ""),
		GDELTAPIKey:         envStr("GDELT_API_KEY", ""),
		MarineTrafficAPIKey: envStr("MARINETRAFFIC_API_KEY", ""),
		FREDAPIKey:          envStr("FRED_API_KEY", ""),
		TwitterBearerToken:  envStr("TWITTER_BEARER_TOKEN", ""),
		CollectionFrequency: time.Duration(envInt("COLLECTION_FREQUENCY", 300)) * time.Second,
		ArtifactDir:         envStr("ARTIFACT_DIR", "artifacts"),
		Port:                envInt("PORT", 4000),
		OTELEndpoint:        envStr("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ServiceName:         envStr("OTEL_SERVICE_NAME", "chainsignal"),
		LogLevel:            envStr("CHAINSIGNAL_LOG_LEVEL", "info"),
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("config: invalid PORT %d", cfg.Port)
	}
	if cfg.CollectionFrequency <= 0 {
		return Config{}, fmt.Errorf("config: COLLECTION_FREQUENCY must be positive")
	}

	return cfg, nil
}

// Require returns the value of the named environment variable. Unlike the
// defaulting accessors, an unset variable is a configuration error.
func Require(name string) (string, error) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return "", fmt.Errorf("config: required environment variable %s is not set", name)
	}
	return v, nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
