// Package collector implements the data collection agent: the provider fetch
// tools, the collection orchestration that runs them in sequence, and the
// agent definition itself.
package collector

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/chainsignal-io/chainsignal/internal/event"
	"github.com/chainsignal-io/chainsignal/internal/publish"
	"github.com/chainsignal-io/chainsignal/internal/session"
	"github.com/chainsignal-io/chainsignal/internal/source"
)

var tracer = otel.Tracer("github.com/chainsignal-io/chainsignal/internal/collector")

// AllSources is the set collected when "all" is requested. MarineTraffic is
// excluded from the default sweep and only polled when named explicitly, since
// most deployments run without a key for it.
var AllSources = []string{"NOAA", "GDELT", "FRED", "Twitter"}

// Emergency collections pull more tweets than routine ones.
const (
	routineTweetLimit   = 100
	emergencyTweetLimit = 200

	emergencyBatchSize = 5
	maxCrisisKeywords  = 10
)

// Collector bundles the provider clients and the publisher behind the agent
// tools.
type Collector struct {
	NOAA    *source.NOAAClient
	GDELT   *source.GDELTClient
	Marine  *source.MarineTrafficClient
	FRED    *source.FREDClient
	Twitter *source.TwitterClient

	Publisher publish.Publisher
	Logger    *slog.Logger

	// SourcePause spaces sequential source fetches. Negative disables it;
	// zero means the half second default.
	SourcePause time.Duration
}

func (c *Collector) log() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c *Collector) pause() time.Duration {
	if c.SourcePause != 0 {
		return c.SourcePause
	}
	return 500 * time.Millisecond
}

// SourceResult is the per-provider slice of a collection result.
type SourceResult struct {
	Status          string `json:"status"`
	EventsCollected int    `json:"events_collected"`
	Message         string `json:"message,omitempty"`
}

// CollectionResult is the full outcome of one collection cycle.
type CollectionResult struct {
	CollectionID     string                  `json:"collection_id"`
	StartTime        time.Time               `json:"start_time"`
	EndTime          time.Time               `json:"end_time"`
	EmergencyMode    bool                    `json:"emergency_mode"`
	SourcesRequested string                  `json:"sources_requested"`
	SourcesProcessed []string                `json:"sources_processed"`
	TotalEvents      int                     `json:"total_events_collected"`
	Errors           []string                `json:"errors"`
	SourceResults    map[string]SourceResult `json:"source_results"`
	PublishResult    *publish.Result         `json:"publish_result,omitempty"`
	Duration         float64                 `json:"duration_seconds"`
}

// EmergencyResult is the outcome of an emergency collection sweep.
type EmergencyResult struct {
	EmergencyID        string          `json:"emergency_id"`
	StartTime          time.Time       `json:"start_time"`
	EndTime            time.Time       `json:"end_time"`
	CrisisKeywords     []string        `json:"crisis_keywords"`
	GeographicFocus    string          `json:"geographic_focus"`
	SourcesProcessed   []string        `json:"sources_processed"`
	TotalEvents        int             `json:"total_events_collected"`
	HighPriorityEvents int             `json:"high_priority_events"`
	Errors             []string        `json:"errors"`
	PublishResult      *publish.Result `json:"publish_result,omitempty"`
	Duration           float64         `json:"duration_seconds"`
}

// fetchSource dispatches to the client for a provider name. The second return
// reports whether the name is known.
func (c *Collector) fetchSource(ctx context.Context, name string, emergency bool) ([]event.Event, bool, error) {
	switch name {
	case "NOAA":
		events, err := c.NOAA.Fetch(ctx, source.NOAAOptions{})
		return events, true, err
	case "GDELT":
		events, err := c.GDELT.Fetch(ctx, source.GDELTOptions{})
		return events, true, err
	case "MarineTraffic":
		events, err := c.Marine.Fetch(ctx)
		return events, true, err
	case "FRED":
		events, err := c.FRED.Fetch(ctx, 0)
		return events, true, err
	case "Twitter":
		limit := routineTweetLimit
		if emergency {
			limit = emergencyTweetLimit
		}
		events, err := c.Twitter.Fetch(ctx, source.TwitterOptions{MaxResults: limit})
		return events, true, err
	default:
		return nil, false, nil
	}
}

// CollectAll runs one collection cycle: fetch each requested source in
// sequence, publish everything collected, and fold the outcome into the
// session state. Source failures are recorded, never fatal.
func (c *Collector) CollectAll(ctx context.Context, st *session.State, sources string, emergencyMode bool) *CollectionResult {
	ctx, span := tracer.Start(ctx, "collector.collect_all", trace.WithAttributes(
		attribute.String("sources", sources),
		attribute.Bool("emergency_mode", emergencyMode),
	))
	defer span.End()

	st.EnsureDefaults()
	start := time.Now().UTC()
	res := &CollectionResult{
		CollectionID:     fmt.Sprintf("collect_%d", start.Unix()),
		StartTime:        start,
		EmergencyMode:    emergencyMode,
		SourcesRequested: sources,
		SourcesProcessed: []string{},
		Errors:           []string{},
		SourceResults:    map[string]SourceResult{},
	}
	c.log().Info("starting collection",
		"collection_id", res.CollectionID, "sources", sources, "emergency_mode", emergencyMode)

	var active []string
	if sources == "all" {
		active = AllSources
	} else {
		for _, s := range strings.Split(sources, ",") {
			active = append(active, strings.TrimSpace(s))
		}
	}

	var all []event.Event
	for _, name := range active {
		events, known, err := c.fetchSource(ctx, name, emergencyMode)
		if !known {
			continue
		}
		if err != nil {
			st.API[name] = source.StatusOf(err)
			res.Errors = append(res.Errors, err.Error())
			res.SourceResults[name] = SourceResult{Status: "error", Message: err.Error()}
		} else {
			st.API[name] = session.StatusConnected
			res.SourcesProcessed = append(res.SourcesProcessed, name)
			res.TotalEvents += len(events)
			res.SourceResults[name] = SourceResult{Status: "success", EventsCollected: len(events)}
			all = append(all, events...)
		}

		if err := sleep(ctx, c.pause()); err != nil {
			res.Errors = append(res.Errors, err.Error())
			break
		}
	}

	if len(all) > 0 {
		pr, err := c.Publisher.Publish(ctx, all, publish.DefaultBatchSize)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("publish: %v", err))
		} else {
			res.PublishResult = &pr
		}
	}

	cs := st.Collection
	cs.TotalCollections++
	if len(res.SourcesProcessed) > 0 {
		cs.SuccessfulCollections++
	} else {
		cs.FailedCollections++
	}
	cs.TotalEventsPublished += res.TotalEvents
	cs.LastCollectionTime = &start
	cs.ActiveSources = res.SourcesProcessed
	cs.ErrorCount += len(res.Errors)

	res.EndTime = time.Now().UTC()
	res.Duration = res.EndTime.Sub(start).Seconds()
	st.LastCollection = &session.CollectionSummary{
		CollectionID:     res.CollectionID,
		SourcesProcessed: res.SourcesProcessed,
		TotalEvents:      res.TotalEvents,
		Errors:           res.Errors,
		Duration:         res.Duration,
		StartTime:        start,
	}

	span.SetAttributes(
		attribute.Int("events_collected", res.TotalEvents),
		attribute.Int("errors", len(res.Errors)),
	)
	c.log().Info("collection completed",
		"collection_id", res.CollectionID,
		"events", res.TotalEvents,
		"sources_processed", len(res.SourcesProcessed),
		"errors", len(res.Errors))
	return res
}

// EmergencyCollect sweeps the fast-signal sources (GDELT, Twitter with
// retweets, NOAA scoped to the crisis region), publishes the haul most severe
// first in small batches, and marks the session as being in an emergency.
func (c *Collector) EmergencyCollect(ctx context.Context, st *session.State, crisisKeywords []string, geographicFocus string, maxEventsPerSource int) *EmergencyResult {
	ctx, span := tracer.Start(ctx, "collector.emergency_collect", trace.WithAttributes(
		attribute.String("geographic_focus", geographicFocus),
	))
	defer span.End()

	st.EnsureDefaults()
	if maxEventsPerSource <= 0 {
		maxEventsPerSource = emergencyTweetLimit
	}
	if len(crisisKeywords) > maxCrisisKeywords {
		crisisKeywords = crisisKeywords[:maxCrisisKeywords]
	}

	start := time.Now().UTC()
	res := &EmergencyResult{
		EmergencyID:      fmt.Sprintf("emergency_%d", start.Unix()),
		StartTime:        start,
		CrisisKeywords:   crisisKeywords,
		GeographicFocus:  geographicFocus,
		SourcesProcessed: []string{},
		Errors:           []string{},
	}
	c.log().Info("emergency collection triggered",
		"emergency_id", res.EmergencyID,
		"keywords", len(crisisKeywords),
		"geographic_focus", geographicFocus)

	var all []event.Event
	collect := func(name string, events []event.Event, err error) {
		if err != nil {
			st.API[name] = source.StatusOf(err)
			res.Errors = append(res.Errors, err.Error())
			return
		}
		st.API[name] = session.StatusConnected
		res.SourcesProcessed = append(res.SourcesProcessed, name)
		res.TotalEvents += len(events)
		for _, ev := range events {
			if ev.Severity == event.SeverityHigh || ev.Severity == event.SeverityCritical {
				res.HighPriorityEvents++
			}
		}
		all = append(all, events...)
	}

	events, err := c.GDELT.Fetch(ctx, source.GDELTOptions{MaxRecords: maxEventsPerSource})
	collect("GDELT", events, err)

	events, err = c.Twitter.Fetch(ctx, source.TwitterOptions{
		MaxResults:      maxEventsPerSource,
		IncludeRetweets: true,
	})
	collect("Twitter", events, err)

	events, err = c.NOAA.Fetch(ctx, source.NOAAOptions{Region: geographicFocus})
	collect("NOAA", events, err)

	if len(all) > 0 {
		event.SortByPriority(all)
		pr, err := c.Publisher.Publish(ctx, all, emergencyBatchSize)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("publish: %v", err))
		} else {
			res.PublishResult = &pr
		}
	}

	st.Emergency = &session.EmergencyState{
		GeographicFocus: geographicFocus,
		Keywords:        crisisKeywords,
		ActivatedAt:     start,
	}

	res.EndTime = time.Now().UTC()
	res.Duration = res.EndTime.Sub(start).Seconds()
	span.SetAttributes(
		attribute.Int("events_collected", res.TotalEvents),
		attribute.Int("high_priority_events", res.HighPriorityEvents),
	)
	c.log().Info("emergency collection completed",
		"emergency_id", res.EmergencyID,
		"events", res.TotalEvents,
		"high_priority", res.HighPriorityEvents)
	return res
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
