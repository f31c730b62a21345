package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PubSubTopic != "raw_events" {
		t.Errorf("PubSubTopic = %q, want %q", cfg.PubSubTopic, "raw_events")
	}
	if cfg.CollectorModel != DefaultModel {
		t.Errorf("CollectorModel = %q, want %q", cfg.CollectorModel, DefaultModel)
	}
	if cfg.RootModel != DefaultModel {
		t.Errorf("RootModel = %q, want %q", cfg.RootModel, DefaultModel)
	}
	if cfg.CollectionFrequency != 300*time.Second {
		t.Errorf("CollectionFrequency = %v, want 300s", cfg.CollectionFrequency)
	}
	if cfg.VertexLocation != "us-central1" {
		t.Errorf("VertexLocation = %q, want us-central1", cfg.VertexLocation)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PUBSUB_TOPIC", "staging_events")
	t.Setenv("DATA_COLLECTOR_MODEL", "gemini-2.5-pro")
	t.Setenv("COLLECTION_FREQUENCY", "60")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PubSubTopic != "staging_events" {
		t.Errorf("PubSubTopic = %q", cfg.PubSubTopic)
	}
	if cfg.CollectorModel != "gemini-2.5-pro" {
		t.Errorf("CollectorModel = %q", cfg.CollectorModel)
	}
	if cfg.CollectionFrequency != time.Minute {
		t.Errorf("CollectionFrequency = %v", cfg.CollectionFrequency)
	}
}

func TestRequire(t *testing.T) {
	t.Setenv("CHAINSIGNAL_TEST_VAR", "some value")
	got, err := Require("CHAINSIGNAL_TEST_VAR")
	if err != nil {
		t.Fatalf("Require: %v", err)
	}
	if got != "some value" {
		t.Errorf("Require = %q, want %q", got, "some value")
	}

	// A set-but-empty variable is still set.
	t.Setenv("CHAINSIGNAL_TEST_EMPTY", "")
	if _, err := Require("CHAINSIGNAL_TEST_EMPTY"); err != nil {
		t.Errorf("Require on empty value: %v", err)
	}

	_, err = Require("CHAINSIGNAL_TEST_MISSING")
	if err == nil {
		t.Fatal("Require on missing variable: want error")
	}
	if !strings.Contains(err.Error(), "CHAINSIGNAL_TEST_MISSING") {
		t.Errorf("error %q does not name the variable", err)
	}
}
