package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	llmagent "github.com/hoangvvo/llm-sdk/agent-go"
	llmsdk "github.com/hoangvvo/llm-sdk/sdk-go"

	"github.com/chainsignal-io/chainsignal/internal/event"
	"github.com/chainsignal-io/chainsignal/internal/publish"
	"github.com/chainsignal-io/chainsignal/internal/session"
	"github.com/chainsignal-io/chainsignal/internal/source"
)

// Tools returns the collector agent's tool list in registration order.
func Tools(c *Collector) []llmagent.AgentTool[*session.State] {
	return []llmagent.AgentTool[*session.State]{
		&FetchNOAATool{c: c},
		&FetchGDELTTool{c: c},
		&FetchMarineTrafficTool{c: c},
		&FetchFREDTool{c: c},
		&FetchTwitterTool{c: c},
		&NormalizeToGeoJSONTool{},
		&PublishToPubSubTool{c: c},
		&CollectAllSourcesTool{c: c},
		&EmergencyCollectTool{c: c},
	}
}

// jsonResult wraps a serializable value as a successful tool result.
func jsonResult(v any) (llmagent.AgentToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return llmagent.AgentToolResult{}, err
	}
	return llmagent.AgentToolResult{
		Content: []llmsdk.Part{llmsdk.NewTextPart(string(data))},
	}, nil
}

// errorResult reports a failure to the model without interrupting the run.
func errorResult(err error) (llmagent.AgentToolResult, error) {
	return llmagent.AgentToolResult{
		Content: []llmsdk.Part{llmsdk.NewTextPart(fmt.Sprintf("Error: %v", err))},
		IsError: true,
	}, nil
}

// fetchResult is the common payload of the per-source fetch tools.
type fetchResult struct {
	Status          string        `json:"status"`
	Source          string        `json:"source"`
	EventsCollected int           `json:"events_collected"`
	Events          []event.Event `json:"events"`
	Timestamp       string        `json:"timestamp"`
}

func newFetchResult(sourceName string, events []event.Event) fetchResult {
	if events == nil {
		events = []event.Event{}
	}
	return fetchResult{
		Status:          "success",
		Source:          sourceName,
		EventsCollected: len(events),
		Events:          events,
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
	}
}

// FetchNOAATool pulls active weather alerts.
type FetchNOAATool struct {
	c *Collector
}

func (t *FetchNOAATool) Name() string { return "fetch_from_noaa" }

func (t *FetchNOAATool) Description() string {
	return "Fetch weather alerts and natural disaster data from the NOAA API and normalize them into supply chain events."
}

func (t *FetchNOAATool) Parameters() llmsdk.JSONSchema {
	return llmsdk.JSONSchema{
		"type": "object",
		"properties": map[string]any{
			"alert_types": map[string]any{
				"type":        "string",
				"description": "Comma separated alert types of interest, e.g. hurricane,flood,earthquake.",
			},
			"region": map[string]any{
				"type":        "string",
				"description": "Two-letter NWS area code to scope the alerts, or empty for all regions.",
			},
		},
		"required":             []string{},
		"additionalProperties": false,
	}
}

func (t *FetchNOAATool) Execute(ctx context.Context, paramsJSON json.RawMessage, st *session.State, _ *llmagent.RunState) (llmagent.AgentToolResult, error) {
	var params struct {
		AlertTypes string `json:"alert_types"`
		Region     string `json:"region"`
	}
	if len(paramsJSON) > 0 {
		if err := json.Unmarshal(paramsJSON, &params); err != nil {
			return llmagent.AgentToolResult{}, err
		}
	}

	st.EnsureDefaults()
	events, err := t.c.NOAA.Fetch(ctx, source.NOAAOptions{AlertTypes: params.AlertTypes, Region: params.Region})
	if err != nil {
		st.API["NOAA"] = source.StatusOf(err)
		return errorResult(err)
	}
	st.API["NOAA"] = session.StatusConnected
	return jsonResult(newFetchResult("NOAA", events))
}

// FetchGDELTTool pulls recent supply chain news.
type FetchGDELTTool struct {
	c *Collector
}

func (t *FetchGDELTTool) Name() string { return "fetch_from_gdelt" }

func (t *FetchGDELTTool) Description() string {
	return "Fetch global news sentiment and event data about supply chain disruptions from GDELT."
}

func (t *FetchGDELTTool) Parameters() llmsdk.JSONSchema {
	return llmsdk.JSONSchema{
		"type": "object",
		"properties": map[string]any{
			"timespan": map[string]any{
				"type":        "string",
				"description": "GDELT timespan expression such as 24h or 7d. Defaults to 24h.",
			},
			"max_records": map[string]any{
				"type":        "integer",
				"description": "Maximum articles to fetch, capped at 100.",
			},
		},
		"required":             []string{},
		"additionalProperties": false,
	}
}

func (t *FetchGDELTTool) Execute(ctx context.Context, paramsJSON json.RawMessage, st *session.State, _ *llmagent.RunState) (llmagent.AgentToolResult, error) {
	var params struct {
		Timespan   string `json:"timespan"`
		MaxRecords int    `json:"max_records"`
	}
	if len(paramsJSON) > 0 {
		if err := json.Unmarshal(paramsJSON, &params); err != nil {
			return llmagent.AgentToolResult{}, err
		}
	}

	st.EnsureDefaults()
	events, err := t.c.GDELT.Fetch(ctx, source.GDELTOptions{Timespan: params.Timespan, MaxRecords: params.MaxRecords})
	if err != nil {
		st.API["GDELT"] = source.StatusOf(err)
		return errorResult(err)
	}
	st.API["GDELT"] = session.StatusConnected
	return jsonResult(newFetchResult("GDELT", events))
}

// FetchMarineTrafficTool checks vessel congestion at monitored ports.
type FetchMarineTrafficTool struct {
	c *Collector
}

func (t *FetchMarineTrafficTool) Name() string { return "fetch_from_marinetraffic" }

func (t *FetchMarineTrafficTool) Description() string {
	return "Check vessel density around major ports via MarineTraffic and report congestion events."
}

func (t *FetchMarineTrafficTool) Parameters() llmsdk.JSONSchema {
	return llmsdk.JSONSchema{
		"type":                 "object",
		"properties":           map[string]any{},
		"required":             []string{},
		"additionalProperties": false,
	}
}

func (t *FetchMarineTrafficTool) Execute(ctx context.Context, _ json.RawMessage, st *session.State, _ *llmagent.RunState) (llmagent.AgentToolResult, error) {
	st.EnsureDefaults()
	events, err := t.c.Marine.Fetch(ctx)
	if err != nil {
		st.API["MarineTraffic"] = source.StatusOf(err)
		return errorResult(err)
	}
	st.API["MarineTraffic"] = session.StatusConnected
	return jsonResult(newFetchResult("MarineTraffic", events))
}

// FetchFREDTool checks economic indicators for significant moves.
type FetchFREDTool struct {
	c *Collector
}

func (t *FetchFREDTool) Name() string { return "fetch_from_fred" }

func (t *FetchFREDTool) Description() string {
	return "Fetch economic indicators from FRED and flag significant changes that affect supply chains."
}

func (t *FetchFREDTool) Parameters() llmsdk.JSONSchema {
	return llmsdk.JSONSchema{
		"type": "object",
		"properties": map[string]any{
			"change_threshold": map[string]any{
				"type":        "number",
				"description": "Percent change that counts as significant. Defaults to 2.0.",
			},
		},
		"required":             []string{},
		"additionalProperties": false,
	}
}

func (t *FetchFREDTool) Execute(ctx context.Context, paramsJSON json.RawMessage, st *session.State, _ *llmagent.RunState) (llmagent.AgentToolResult, error) {
	var params struct {
		ChangeThreshold float64 `json:"change_threshold"`
	}
	if len(paramsJSON) > 0 {
		if err := json.Unmarshal(paramsJSON, &params); err != nil {
			return llmagent.AgentToolResult{}, err
		}
	}

	st.EnsureDefaults()
	events, err := t.c.FRED.Fetch(ctx, params.ChangeThreshold)
	if err != nil {
		st.API["FRED"] = source.StatusOf(err)
		return errorResult(err)
	}
	st.API["FRED"] = session.StatusConnected
	return jsonResult(newFetchResult("FRED", events))
}

// FetchTwitterTool searches recent tweets for supply chain signals.
type FetchTwitterTool struct {
	c *Collector
}

func (t *FetchTwitterTool) Name() string { return "fetch_from_twitter" }

func (t *FetchTwitterTool) Description() string {
	return "Search recent tweets for real-time supply chain signals and keep the relevant ones."
}

func (t *FetchTwitterTool) Parameters() llmsdk.JSONSchema {
	return llmsdk.JSONSchema{
		"type": "object",
		"properties": map[string]any{
			"max_results": map[string]any{
				"type":        "integer",
				"description": "Maximum tweets to examine, capped at 50.",
			},
			"include_retweets": map[string]any{
				"type":        "boolean",
				"description": "Keep retweets in the search. Off by default.",
			},
		},
		"required":             []string{},
		"additionalProperties": false,
	}
}

func (t *FetchTwitterTool) Execute(ctx context.Context, paramsJSON json.RawMessage, st *session.State, _ *llmagent.RunState) (llmagent.AgentToolResult, error) {
	var params struct {
		MaxResults      int  `json:"max_results"`
		IncludeRetweets bool `json:"include_retweets"`
	}
	if len(paramsJSON) > 0 {
		if err := json.Unmarshal(paramsJSON, &params); err != nil {
			return llmagent.AgentToolResult{}, err
		}
	}

	st.EnsureDefaults()
	events, err := t.c.Twitter.Fetch(ctx, source.TwitterOptions{
		MaxResults:      params.MaxResults,
		IncludeRetweets: params.IncludeRetweets,
	})
	if err != nil {
		st.API["Twitter"] = source.StatusOf(err)
		return errorResult(err)
	}
	st.API["Twitter"] = session.StatusConnected
	return jsonResult(newFetchResult("Twitter", events))
}

// NormalizeToGeoJSONTool converts loose event data into a GeoJSON feature.
type NormalizeToGeoJSONTool struct{}

func (t *NormalizeToGeoJSONTool) Name() string { return "normalize_to_geojson" }

func (t *NormalizeToGeoJSONTool) Description() string {
	return "Convert event data carrying a geometry or a lat/lon location into a GeoJSON feature."
}

func (t *NormalizeToGeoJSONTool) Parameters() llmsdk.JSONSchema {
	return llmsdk.JSONSchema{
		"type": "object",
		"properties": map[string]any{
			"event_data": map[string]any{
				"type":        "object",
				"description": "Event payload with geometry or location, plus optional properties, source and event_type.",
			},
		},
		"required":             []string{"event_data"},
		"additionalProperties": false,
	}
}

func (t *NormalizeToGeoJSONTool) Execute(_ context.Context, paramsJSON json.RawMessage, _ *session.State, _ *llmagent.RunState) (llmagent.AgentToolResult, error) {
	var params struct {
		EventData event.FeatureInput `json:"event_data"`
	}
	if err := json.Unmarshal(paramsJSON, &params); err != nil {
		return llmagent.AgentToolResult{}, err
	}

	feature, err := params.EventData.ToGeoJSON()
	if err != nil {
		if errors.Is(err, event.ErrNoGeometry) {
			return jsonResult(map[string]any{
				"status":  "warning",
				"message": "No geometry data available for GeoJSON conversion",
			})
		}
		return errorResult(err)
	}

	return jsonResult(map[string]any{
		"status":  "success",
		"geojson": feature,
	})
}

// PublishToPubSubTool ships a list of events to the raw events topic.
type PublishToPubSubTool struct {
	c *Collector
}

func (t *PublishToPubSubTool) Name() string { return "publish_to_pubsub" }

func (t *PublishToPubSubTool) Description() string {
	return "Publish normalized events to the raw events Pub/Sub topic in batches."
}

func (t *PublishToPubSubTool) Parameters() llmsdk.JSONSchema {
	return llmsdk.JSONSchema{
		"type": "object",
		"properties": map[string]any{
			"events": map[string]any{
				"type":        "array",
				"description": "Normalized events to publish.",
				"items":       map[string]any{"type": "object"},
			},
			"batch_size": map[string]any{
				"type":        "integer",
				"description": "Events per batch. Defaults to 10.",
			},
		},
		"required":             []string{"events"},
		"additionalProperties": false,
	}
}

func (t *PublishToPubSubTool) Execute(ctx context.Context, paramsJSON json.RawMessage, st *session.State, _ *llmagent.RunState) (llmagent.AgentToolResult, error) {
	var params struct {
		Events    []event.Event `json:"events"`
		BatchSize int           `json:"batch_size"`
	}
	if err := json.Unmarshal(paramsJSON, &params); err != nil {
		return llmagent.AgentToolResult{}, err
	}

	if len(params.Events) == 0 {
		return jsonResult(map[string]any{
			"status":  "warning",
			"message": "No events provided for publishing",
		})
	}

	res, err := t.c.Publisher.Publish(ctx, params.Events, params.BatchSize)
	if err != nil {
		return errorResult(err)
	}

	st.EnsureDefaults()
	st.Collection.TotalEventsPublished += res.Published

	return jsonResult(struct {
		Status string `json:"status"`
		publish.Result
		Timestamp string `json:"timestamp"`
	}{
		Status:    "success",
		Result:    res,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// CollectAllSourcesTool runs a full collection cycle.
type CollectAllSourcesTool struct {
	c *Collector
}

func (t *CollectAllSourcesTool) Name() string { return "collect_all_sources" }

func (t *CollectAllSourcesTool) Description() string {
	return "Collect from the configured sources in sequence, publish the results, and update the collection statistics."
}

func (t *CollectAllSourcesTool) Parameters() llmsdk.JSONSchema {
	return llmsdk.JSONSchema{
		"type": "object",
		"properties": map[string]any{
			"sources": map[string]any{
				"type":        "string",
				"description": `Comma separated source names, or "all" for the default sweep.`,
			},
			"emergency_mode": map[string]any{
				"type":        "boolean",
				"description": "Raise per-source limits for crisis response.",
			},
		},
		"required":             []string{},
		"additionalProperties": false,
	}
}

func (t *CollectAllSourcesTool) Execute(ctx context.Context, paramsJSON json.RawMessage, st *session.State, _ *llmagent.RunState) (llmagent.AgentToolResult, error) {
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

	return jsonResult(t.c.CollectAll(ctx, st, params.Sources, params.EmergencyMode))
}

// EmergencyCollectTool runs an enhanced sweep for an active crisis.
type EmergencyCollectTool struct {
	c *Collector
}

func (t *EmergencyCollectTool) Name() string { return "emergency_collect" }

func (t *EmergencyCollectTool) Description() string {
	return "Trigger emergency data collection with crisis keywords, a geographic focus, and raised limits."
}

func (t *EmergencyCollectTool) Parameters() llmsdk.JSONSchema {
	return llmsdk.JSONSchema{
		"type": "object",
		"properties": map[string]any{
			"crisis_keywords": map[string]any{
				"type":        "array",
				"description": "Keywords describing the crisis. Only the first ten are used.",
				"items":       map[string]any{"type": "string"},
			},
			"geographic_focus": map[string]any{
				"type":        "string",
				"description": "Region code or name to scope weather alerts.",
			},
			"max_events_per_source": map[string]any{
				"type":        "integer",
				"description": "Per-source event cap. Defaults to 200.",
			},
		},
		"required":             []string{"crisis_keywords"},
		"additionalProperties": false,
	}
}

func (t *EmergencyCollectTool) Execute(ctx context.Context, paramsJSON json.RawMessage, st *session.State, _ *llmagent.RunState) (llmagent.AgentToolResult, error) {
	var params struct {
		CrisisKeywords     []string `json:"crisis_keywords"`
		GeographicFocus    string   `json:"geographic_focus"`
		MaxEventsPerSource int      `json:"max_events_per_source"`
	}
	if err := json.Unmarshal(paramsJSON, &params); err != nil {
		return llmagent.AgentToolResult{}, err
	}

	return jsonResult(t.c.EmergencyCollect(ctx, st, params.CrisisKeywords, params.GeographicFocus, params.MaxEventsPerSource))
}
