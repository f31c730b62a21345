package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/chainsignal-io/chainsignal/internal/event"
	"github.com/chainsignal-io/chainsignal/internal/session"
)

const noaaBaseURL = "https://api.weather.gov"

// Alert event names that matter for supply chain monitoring. Anything else in
// the active alerts feed is dropped.
var noaaRelevantEvents = []string{
	"hurricane", "typhoon", "flood", "earthquake",
	"wildfire", "tornado", "blizzard", "ice storm",
}

// NOAAClient fetches active weather alerts from the National Weather Service.
// The alerts endpoint is unauthenticated but requires a User-Agent.
type NOAAClient struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// NOAAOptions narrow an alert fetch.
type NOAAOptions struct {
	// AlertTypes is a comma separated hint recorded in logs. The feed itself
	// is filtered by noaaRelevantEvents, not by this value.
	AlertTypes string
	// Region is a two-letter NWS area code. Empty or "global" fetches all
	// active alerts.
	Region string
}

// Fetch returns supply chain relevant weather alerts as normalized events.
func (c *NOAAClient) Fetch(ctx context.Context, opts NOAAOptions) ([]event.Event, error) {
	log := logger(c.Logger)
	log.Info("fetching NOAA alerts", "alert_types", opts.AlertTypes, "region", opts.Region)

	base := c.BaseURL
	if base == "" {
		base = noaaBaseURL
	}
	u, err := url.Parse(base + "/alerts/active")
	if err != nil {
		return nil, newError("NOAA", session.StatusError, err)
	}
	if opts.Region != "" && opts.Region != "global" {
		q := u.Query()
		q.Set("area", opts.Region)
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, newError("NOAA", session.StatusError, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := httpClient(c.HTTPClient).Do(req)
	if err != nil {
		return nil, transportError("NOAA", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newError("NOAA", session.StatusError,
			fmt.Errorf("request failed with status %d", resp.StatusCode))
	}

	var payload struct {
		Features []struct {
			Properties map[string]any  `json:"properties"`
			Geometry   json.RawMessage `json:"geometry"`
		} `json:"features"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, newError("NOAA", session.StatusError, fmt.Errorf("decode response: %w", err))
	}

	var events []event.Event
	for _, alert := range payload.Features {
		name := strings.ToLower(stringProp(alert.Properties, "event"))
		if !containsAny(name, noaaRelevantEvents) {
			continue
		}

		ev := event.New("NOAA", "weather_"+strings.ReplaceAll(name, " ", "_"))
		ev.Location = noaaLocation(alert.Geometry)
		ev.Severity = event.MapNOAASeverity(stringProp(alert.Properties, "severity"))
		ev.Description = stringPropOr(alert.Properties, "headline", "Weather alert")
		ev.Metadata = map[string]any{
			"urgency":   alert.Properties["urgency"],
			"certainty": alert.Properties["certainty"],
			"areas":     alert.Properties["areaDesc"],
		}
		ev.Raw = alert.Properties
		events = append(events, ev)
	}

	log.Info("collected weather events from NOAA", "count", len(events))
	return events, nil
}

// noaaLocation pulls a representative point from an alert geometry. Polygons
// contribute their first vertex, points their own coordinates.
func noaaLocation(raw json.RawMessage) *event.Location {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var g struct {
		Coordinates []json.RawMessage `json:"coordinates"`
	}
	if err := json.Unmarshal(raw, &g); err != nil || len(g.Coordinates) == 0 {
		return nil
	}

	var ring [][]float64
	if err := json.Unmarshal(g.Coordinates[0], &ring); err == nil && len(ring) > 0 && len(ring[0]) >= 2 {
		return &event.Location{Lat: ring[0][1], Lon: ring[0][0]}
	}

	if len(g.Coordinates) >= 2 {
		var lon, lat float64
		if json.Unmarshal(g.Coordinates[0], &lon) == nil && json.Unmarshal(g.Coordinates[1], &lat) == nil {
			return &event.Location{Lat: lat, Lon: lon}
		}
	}
	return nil
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func stringProp(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}

func stringPropOr(m map[string]any, key, fallback string) string {
	if v, ok := m[key].(string); ok && v != "" {
		return v
	}
	return fallback
}
