package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/chainsignal-io/chainsignal/internal/event"
	"github.com/chainsignal-io/chainsignal/internal/session"
)

const (
	gdeltBaseURL = "https://api.gdeltproject.org"

	// Kept deliberately simple: complex boolean queries make the doc API
	// answer with an HTML error page instead of JSON.
	gdeltQuery = "supply chain OR semiconductor OR chip shortage"

	gdeltMaxRecords = 100
)

// GDELTClient fetches news articles from the GDELT document API.
type GDELTClient struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// GDELTOptions narrow a news fetch.
type GDELTOptions struct {
	// Timespan is a GDELT timespan expression, for example "24h".
	Timespan string
	// MaxRecords caps the article count. Values above 100 are clamped; zero
	// means the full 100.
	MaxRecords int
}

// Fetch returns recent supply chain news as normalized events. GDELT signals
// overload by answering with HTML, which reports as an api_limit status.
func (c *GDELTClient) Fetch(ctx context.Context, opts GDELTOptions) ([]event.Event, error) {
	log := logger(c.Logger)

	timespan := opts.Timespan
	if timespan == "" {
		timespan = "24h"
	}
	maxRecords := opts.MaxRecords
	if maxRecords <= 0 || maxRecords > gdeltMaxRecords {
		maxRecords = gdeltMaxRecords
	}
	log.Info("fetching GDELT articles",
		"keywords", len(SupplyChainKeywords), "timespan", timespan, "max_records", maxRecords)

	base := c.BaseURL
	if base == "" {
		base = gdeltBaseURL
	}
	q := url.Values{}
	q.Set("query", gdeltQuery)
	q.Set("mode", "ArtList")
	q.Set("format", "json")
	q.Set("timespan", timespan)
	q.Set("maxrecords", strconv.Itoa(maxRecords))
	q.Set("sort", "DateDesc")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/api/v2/doc/doc?"+q.Encode(), nil)
	if err != nil {
		return nil, newError("GDELT", session.StatusError, err)
	}

	resp, err := httpClient(c.HTTPClient).Do(req)
	if err != nil {
		return nil, transportError("GDELT", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, newError("GDELT", session.StatusRateLimited, errors.New("rate limit exceeded"))
	case resp.StatusCode != http.StatusOK:
		return nil, newError("GDELT", session.StatusError,
			fmt.Errorf("request failed with status %d", resp.StatusCode))
	}

	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "application/json") {
		return nil, newError("GDELT", session.StatusAPILimit,
			fmt.Errorf("returned %q instead of JSON (possible rate limit)", ct))
	}

	var payload struct {
		Articles []gdeltArticle `json:"articles"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, newError("GDELT", session.StatusError, fmt.Errorf("decode response: %w", err))
	}

	var events []event.Event
	for _, a := range payload.Articles {
		ev := event.New("GDELT", "news_event")
		ev.Location = a.location()
		ev.Severity = event.GDELTSeverityFromTone(a.toneValue())
		ev.Description = a.Title
		if ev.Description == "" {
			ev.Description = "Supply chain news event"
		}
		ev.Metadata = map[string]any{
			"url":      a.URL,
			"domain":   a.Domain,
			"language": a.Language,
			"tone":     a.toneValue(),
		}
		ev.Raw = a.raw()
		events = append(events, ev)
	}

	log.Info("collected news events from GDELT", "count", len(events))
	return events, nil
}

// gdeltArticle tolerates the API's loose typing: tone and the geo fields
// arrive as strings or numbers depending on the article.
type gdeltArticle struct {
	Title         string          `json:"title"`
	URL           string          `json:"url"`
	Domain        string          `json:"domain"`
	Language      string          `json:"language"`
	Tone          json.RawMessage `json:"tone"`
	SocialGeoLat  json.RawMessage `json:"socialgeolat"`
	SocialGeoLong json.RawMessage `json:"socialgeolong"`
}

func (a gdeltArticle) toneValue() float64 {
	v, _ := looseFloat(a.Tone)
	return v
}

func (a gdeltArticle) location() *event.Location {
	lat, okLat := looseFloat(a.SocialGeoLat)
	lon, okLon := looseFloat(a.SocialGeoLong)
	if !okLat || !okLon {
		return nil
	}
	return &event.Location{Lat: lat, Lon: lon}
}

func (a gdeltArticle) raw() map[string]any {
	return map[string]any{
		"title":    a.Title,
		"url":      a.URL,
		"domain":   a.Domain,
		"language": a.Language,
		"tone":     a.toneValue(),
	}
}

// looseFloat parses a JSON value that may be a number, a quoted number, or
// absent.
func looseFloat(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}
