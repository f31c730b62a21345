package orchestrator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chainsignal-io/chainsignal/internal/collector"
	"github.com/chainsignal-io/chainsignal/internal/event"
	"github.com/chainsignal-io/chainsignal/internal/publish"
	"github.com/chainsignal-io/chainsignal/internal/session"
	"github.com/chainsignal-io/chainsignal/internal/source"
)

type fakePublisher struct {
	calls int
}

func (f *fakePublisher) Publish(_ context.Context, events []event.Event, _ int) (publish.Result, error) {
	f.calls++
	return publish.Result{Published: len(events), Total: len(events), Topic: "raw_events"}, nil
}

// newTestCollector wires a collector where NOAA and Twitter answer and the
// rest fail fast.
func newTestCollector(t *testing.T) *collector.Collector {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/alerts/active", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"features": [
			{"properties": {"event": "Typhoon Warning", "severity": "Severe", "headline": "Typhoon approaching"},
			 "geometry": {"type": "Point", "coordinates": [121.47, 31.23]}}
		]}`))
	})
	mux.HandleFunc("/api/v2/doc/doc", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"articles": []}`))
	})
	mux.HandleFunc("/2/tweets/search/recent", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": []}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return &collector.Collector{
		NOAA:        &source.NOAAClient{BaseURL: srv.URL},
		GDELT:       &source.GDELTClient{BaseURL: srv.URL},
		Marine:      &source.MarineTrafficClient{BaseURL: srv.URL, Pacing: -1},
		FRED:        &source.FREDClient{BaseURL: srv.URL, Pacing: -1},
		Twitter:     &source.TwitterClient{BaseURL: srv.URL, BearerToken: "tok"},
		Publisher:   &fakePublisher{},
		SourcePause: -1,
	}
}

func decodeResult(t *testing.T, text string) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		t.Fatalf("tool result not JSON: %v\n%s", err, text)
	}
	return out
}

func TestTriggerDataCollectionUpdatesSystem(t *testing.T) {
	c := newTestCollector(t)
	st := session.New()
	tool := &TriggerDataCollectionTool{c: c}

	res, err := tool.Execute(context.Background(), json.RawMessage(`{}`), st, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %v", res.Content)
	}

	payload := decodeResult(t, res.Content[0].TextPart.Text)
	if payload["status"] != "success" || payload["sources_requested"] != "all" {
		t.Errorf("payload = %v", payload)
	}
	if payload["events_collected"] != float64(1) {
		t.Errorf("events_collected = %v", payload["events_collected"])
	}

	ss := st.System
	if ss == nil || ss.CollectionCycles != 1 {
		t.Fatalf("system status = %+v", ss)
	}
	if ss.Health != "healthy" || ss.TotalEventsProcessed != 1 {
		t.Errorf("health = %q, processed = %d", ss.Health, ss.TotalEventsProcessed)
	}
	if ss.LastCollectionTime == nil {
		t.Error("last collection time not set")
	}
}

func TestGetSystemStatusDetails(t *testing.T) {
	st := session.New()
	st.EnsureSystem()
	st.System.CollectionCycles = 3
	st.System.Health = "healthy"
	st.API["NOAA"] = session.StatusConnected
	st.LastCollection = &session.CollectionSummary{
		CollectionID:     "collect_1",
		SourcesProcessed: []string{"NOAA"},
		TotalEvents:      5,
		Errors:           []string{"GDELT: rate limit exceeded"},
		Duration:         1.5,
		StartTime:        time.Now().UTC(),
	}

	tool := &GetSystemStatusTool{}
	res, err := tool.Execute(context.Background(), nil, st, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	payload := decodeResult(t, res.Content[0].TextPart.Text)
	if payload["collection_cycles"] != float64(3) {
		t.Errorf("collection_cycles = %v", payload["collection_cycles"])
	}
	api, ok := payload["api_status"].(map[string]any)
	if !ok || api["NOAA"] != session.StatusConnected {
		t.Errorf("api_status = %v", payload["api_status"])
	}
	summary, ok := payload["last_collection_summary"].(map[string]any)
	if !ok || summary["total_events"] != float64(5) || summary["errors"] != float64(1) {
		t.Errorf("last_collection_summary = %v", payload["last_collection_summary"])
	}
}

func TestGetSystemStatusWithoutDetails(t *testing.T) {
	st := session.New()
	st.EnsureSystem()

	tool := &GetSystemStatusTool{}
	res, err := tool.Execute(context.Background(), json.RawMessage(`{"include_details": false}`), st, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	payload := decodeResult(t, res.Content[0].TextPart.Text)
	if _, ok := payload["api_status"]; ok {
		t.Error("api_status present despite include_details=false")
	}
}

func TestEmergencyResponse(t *testing.T) {
	c := newTestCollector(t)
	st := session.New()
	tool := &EmergencyResponseTool{c: c}

	res, err := tool.Execute(context.Background(),
		json.RawMessage(`{"crisis_type": "natural_disaster", "geographic_focus": "Taiwan"}`), st, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	payload := decodeResult(t, res.Content[0].TextPart.Text)
	keywords, ok := payload["keywords_used"].([]any)
	if !ok {
		t.Fatalf("keywords_used = %v", payload["keywords_used"])
	}
	// Seven natural disaster keywords plus the geographic focus.
	if len(keywords) != 8 || keywords[len(keywords)-1] != "Taiwan" {
		t.Errorf("keywords = %v", keywords)
	}

	if !st.System.EmergencyActive {
		t.Error("emergency not marked active")
	}
	if st.Emergency == nil || st.Emergency.CrisisType != "natural_disaster" {
		t.Errorf("emergency state = %+v", st.Emergency)
	}
}

func TestEmergencyResponseUnknownCrisisType(t *testing.T) {
	c := newTestCollector(t)
	tool := &EmergencyResponseTool{c: c}

	res, err := tool.Execute(context.Background(),
		json.RawMessage(`{"crisis_type": "alien_invasion"}`), session.New(), nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	payload := decodeResult(t, res.Content[0].TextPart.Text)
	if keywords, _ := payload["keywords_used"].([]any); len(keywords) != 0 {
		t.Errorf("keywords = %v, want none for unknown type", keywords)
	}
}

func TestReadArtifactTool(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "report.json"), []byte(`{"events": 12}`), 0o644); err != nil {
		t.Fatal(err)
	}
	tool := &ReadArtifactTool{Dir: dir}

	res, err := tool.Execute(context.Background(), json.RawMessage(`{"filename": "report.json"}`), nil, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.IsError || res.Content[0].TextPart.Text != `{"events": 12}` {
		t.Errorf("result = %+v", res)
	}

	// Missing artifacts are soft errors.
	res, err = tool.Execute(context.Background(), json.RawMessage(`{"filename": "missing.json"}`), nil, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.IsError || !strings.Contains(res.Content[0].TextPart.Text, "not found") {
		t.Errorf("result = %+v", res)
	}

	// Path escapes are clamped to the artifact directory.
	res, err = tool.Execute(context.Background(), json.RawMessage(`{"filename": "../report.json"}`), nil, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.IsError {
		t.Errorf("base-named artifact should resolve inside the directory: %+v", res.Content)
	}
}

func TestRenderSystemStatus(t *testing.T) {
	ss := session.NewSystemStatus()
	ss.EmergencyActive = true
	ss.CollectionCycles = 2

	got := renderSystemStatus(ss)
	for _, want := range []string{
		"- Collection cycles completed: 2",
		"- Emergency mode: ACTIVE",
		"- System health: healthy",
		"- Last collection: Never",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("status missing %q:\n%s", want, got)
		}
	}
}

func TestGlobalInstruction(t *testing.T) {
	got := GlobalInstruction("proj-1", 300*time.Second)
	for _, want := range []string{"Project ID: proj-1", "Collection frequency: 300 seconds", "**Current Mode:** Production"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q:\n%s", want, got)
		}
	}

	got = GlobalInstruction("", 300*time.Second)
	if !strings.Contains(got, "NOT CONFIGURED") || !strings.Contains(got, "Development/Testing") {
		t.Errorf("unconfigured mode not reported:\n%s", got)
	}
}
