package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	llmagent "github.com/hoangvvo/llm-sdk/agent-go"
	llmsdk "github.com/hoangvvo/llm-sdk/sdk-go"

	"github.com/chainsignal-io/chainsignal/internal/collector"
	"github.com/chainsignal-io/chainsignal/internal/fsutil"
	"github.com/chainsignal-io/chainsignal/internal/session"
)

// CrisisKeywords maps a crisis type to the search keywords an emergency sweep
// should focus on. Unknown types produce an empty list; the geographic focus
// is always appended when given.
var CrisisKeywords = map[string][]string{
	"natural_disaster": {"earthquake", "tsunami", "hurricane", "typhoon", "flood", "wildfire", "volcano"},
	"geopolitical":     {"war", "conflict", "sanctions", "border closure", "trade dispute", "embargo"},
	"economic":         {"recession", "inflation", "currency crisis", "market crash", "bank failure"},
	"pandemic":         {"outbreak", "lockdown", "quarantine", "travel ban", "factory closure"},
	"cyber":            {"cyber attack", "ransomware", "data breach", "system outage", "network failure"},
	"logistics":        {"port strike", "shipping delay", "rail disruption", "trucker strike", "fuel shortage"},
}

// Tools returns the orchestrator's tool list.
func Tools(c *collector.Collector, artifactDir string, log *slog.Logger) []llmagent.AgentTool[*session.State] {
	return []llmagent.AgentTool[*session.State]{
		&TriggerDataCollectionTool{c: c},
		&GetSystemStatusTool{},
		&EmergencyResponseTool{c: c},
		&ReadArtifactTool{Dir: artifactDir, Logger: log},
	}
}

func jsonResult(v any) (llmagent.AgentToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return llmagent.AgentToolResult{}, err
	}
	return llmagent.AgentToolResult{
		Content: []llmsdk.Part{llmsdk.NewTextPart(string(data))},
	}, nil
}

func errorResult(format string, args ...any) (llmagent.AgentToolResult, error) {
	return llmagent.AgentToolResult{
		Content: []llmsdk.Part{llmsdk.NewTextPart(fmt.Sprintf(format, args...))},
		IsError: true,
	}, nil
}

// TriggerDataCollectionTool runs a collection cycle through the data
// collector and folds the outcome into the system status.
type TriggerDataCollectionTool struct {
	c *collector.Collector
}

func (t *TriggerDataCollectionTool) Name() string { return "trigger_data_collection" }

func (t *TriggerDataCollectionTool) Description() string {
	return "Trigger data collection from the specified sources and update system statistics."
}

func (t *TriggerDataCollectionTool) Parameters() llmsdk.JSONSchema {
	return llmsdk.JSONSchema{
		"type": "object",
		"properties": map[string]any{
			"sources": map[string]any{
				"type":        "string",
				"description": `Comma separated source names, or "all" for the default sweep.`,
			},
			"emergency_mode": map[string]any{
				"type":        "boolean",
				"description": "Run with raised per-source limits.",
			},
		},
		"required":             []string{},
		"additionalProperties": false,
	}
}

func (t *TriggerDataCollectionTool) Execute(ctx context.Context, paramsJSON json.RawMessage, st *session.State, _ *llmagent.RunState) (llmagent.AgentToolResult, error) {
	params := struct {
		Sources       string `json:"sources"`
		EmergencyMode bool   `json:"emergency_mode"`
	}{Sources: "all"}
	if len(paramsJSON) > 0 {
		if err := json.Unmarshal(paramsJSON, &params); err != nil {
			return llmagent.AgentToolResult{}, err
		}
	}
	if params.Sources == "" {
		params.Sources = "all"
	}

	st.EnsureSystem()
	res := t.c.CollectAll(ctx, st, params.Sources, params.EmergencyMode)

	now := time.Now().UTC()
	ss := st.System
	ss.CollectionCycles++
	ss.LastCollectionTime = &now
	if len(res.SourcesProcessed) > 0 {
		ss.TotalEventsProcessed += res.TotalEvents
		ss.Health = "healthy"
	} else {
		ss.Health = "degraded"
	}

	return jsonResult(map[string]any{
		"status":             "success",
		"collection_results": res,
		"sources_requested":  params.Sources,
		"emergency_mode":     params.EmergencyMode,
		"events_collected":   res.TotalEvents,
		"sources_processed":  res.SourcesProcessed,
		"errors":             res.Errors,
	})
}

// GetSystemStatusTool reports system health and collection statistics.
type GetSystemStatusTool struct{}

func (t *GetSystemStatusTool) Name() string { return "get_system_status" }

func (t *GetSystemStatusTool) Description() string {
	return "Get current system status, health, and collection statistics."
}

func (t *GetSystemStatusTool) Parameters() llmsdk.JSONSchema {
	return llmsdk.JSONSchema{
		"type": "object",
		"properties": map[string]any{
			"include_details": map[string]any{
				"type":        "boolean",
				"description": "Include per-provider API status and the last collection summary.",
			},
		},
		"required":             []string{},
		"additionalProperties": false,
	}
}

func (t *GetSystemStatusTool) Execute(_ context.Context, paramsJSON json.RawMessage, st *session.State, _ *llmagent.RunState) (llmagent.AgentToolResult, error) {
	params := struct {
		IncludeDetails *bool `json:"include_details"`
	}{}
	if len(paramsJSON) > 0 {
		if err := json.Unmarshal(paramsJSON, &params); err != nil {
			return llmagent.AgentToolResult{}, err
		}
	}
	includeDetails := params.IncludeDetails == nil || *params.IncludeDetails

	st.EnsureSystem()
	ss := st.System

	status := map[string]any{
		"timestamp":              time.Now().UTC().Format(time.RFC3339),
		"system_health":          ss.Health,
		"uptime_since":           ss.StartTime.UTC().Format(time.RFC3339),
		"collection_cycles":      ss.CollectionCycles,
		"total_events_processed": ss.TotalEventsProcessed,
		"emergency_active":       ss.EmergencyActive,
	}
	if ss.LastCollectionTime != nil {
		status["last_collection"] = ss.LastCollectionTime.UTC().Format(time.RFC3339)
	}

	if includeDetails {
		if st.API != nil {
			status["api_status"] = st.API
		}
		if st.LastCollection != nil {
			status["last_collection_summary"] = map[string]any{
				"sources_processed": st.LastCollection.SourcesProcessed,
				"total_events":      st.LastCollection.TotalEvents,
				"errors":            len(st.LastCollection.Errors),
				"duration":          st.LastCollection.Duration,
			}
		}
	}

	return jsonResult(status)
}

// EmergencyResponseTool activates crisis monitoring: it expands the crisis
// type into search keywords and runs an emergency collection sweep.
type EmergencyResponseTool struct {
	c *collector.Collector
}

func (t *EmergencyResponseTool) Name() string { return "emergency_response" }

func (t *EmergencyResponseTool) Description() string {
	return "Trigger emergency response mode for a crisis: expand crisis keywords and run an emergency collection."
}

func (t *EmergencyResponseTool) Parameters() llmsdk.JSONSchema {
	return llmsdk.JSONSchema{
		"type": "object",
		"properties": map[string]any{
			"crisis_type": map[string]any{
				"type":        "string",
				"description": "Type of crisis: natural_disaster, geopolitical, economic, pandemic, cyber, or logistics.",
			},
			"geographic_focus": map[string]any{
				"type":        "string",
				"description": "Geographic area to focus monitoring on.",
			},
		},
		"required":             []string{"crisis_type"},
		"additionalProperties": false,
	}
}

func (t *EmergencyResponseTool) Execute(ctx context.Context, paramsJSON json.RawMessage, st *session.State, _ *llmagent.RunState) (llmagent.AgentToolResult, error) {
	var params struct {
		CrisisType      string `json:"crisis_type"`
		GeographicFocus string `json:"geographic_focus"`
	}
	if err := json.Unmarshal(paramsJSON, &params); err != nil {
		return llmagent.AgentToolResult{}, err
	}

	keywords := append([]string(nil), CrisisKeywords[params.CrisisType]...)
	if params.GeographicFocus != "" {
		keywords = append(keywords, params.GeographicFocus)
	}

	st.EnsureSystem()
	res := t.c.EmergencyCollect(ctx, st, keywords, params.GeographicFocus, 0)

	if st.Emergency != nil {
		st.Emergency.CrisisType = params.CrisisType
	}
	st.System.EmergencyActive = true

	return jsonResult(map[string]any{
		"status":             "success",
		"crisis_type":        params.CrisisType,
		"geographic_focus":   params.GeographicFocus,
		"keywords_used":      keywords,
		"collection_results": res,
		"response_time":      "immediate",
		"next_collection":    "continuous monitoring activated",
	})
}

// ReadArtifactTool loads a stored artifact so the model can reference prior
// reports. Reads never interrupt the run; failures come back as soft errors.
type ReadArtifactTool struct {
	Dir    string
	Logger *slog.Logger
}

func (t *ReadArtifactTool) Name() string { return "artifact_read" }

func (t *ReadArtifactTool) Description() string {
	return "Read a stored artifact file by name and return its contents."
}

func (t *ReadArtifactTool) Parameters() llmsdk.JSONSchema {
	return llmsdk.JSONSchema{
		"type": "object",
		"properties": map[string]any{
			"filename": map[string]any{
				"type":        "string",
				"description": "Artifact file name, e.g. collection_report.json.",
			},
		},
		"required":             []string{"filename"},
		"additionalProperties": false,
	}
}

func (t *ReadArtifactTool) Execute(_ context.Context, paramsJSON json.RawMessage, _ *session.State, _ *llmagent.RunState) (llmagent.AgentToolResult, error) {
	var params struct {
		Filename string `json:"filename"`
	}
	if err := json.Unmarshal(paramsJSON, &params); err != nil {
		return llmagent.AgentToolResult{}, err
	}

	// Artifact names must stay inside the artifact directory.
	name := filepath.Base(params.Filename)
	data, err := fsutil.ReadFileBytes(filepath.Join(t.Dir, name))
	if err != nil {
		log := t.Logger
		if log == nil {
			log = slog.Default()
		}
		if errors.Is(err, os.ErrNotExist) {
			log.Warn("artifact not found", "filename", name)
			return errorResult("Artifact %q not found", name)
		}
		log.Error("artifact read failed", "filename", name, "error", err)
		return errorResult("Error reading artifact %q: %v", name, err)
	}

	return llmagent.AgentToolResult{
		Content: []llmsdk.Part{llmsdk.NewTextPart(string(data))},
	}, nil
}
