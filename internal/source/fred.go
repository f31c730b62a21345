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
	"time"

	"github.com/chainsignal-io/chainsignal/internal/event"
	"github.com/chainsignal-io/chainsignal/internal/session"
)

const fredBaseURL = "https://api.stlouisfed.org"

// DefaultChangeThreshold is the percent move in an indicator that produces an
// event.
const DefaultChangeThreshold = 2.0

type fredIndicator struct {
	seriesID string
	name     string
}

var fredIndicators = []fredIndicator{
	{seriesID: "CPIAUCSL", name: "Consumer Price Index"},
	{seriesID: "UNRATE", name: "Unemployment Rate"},
}

// Geographic center of the contiguous US; FRED series are national.
var usCentroid = event.Location{Lat: 39.8283, Lon: -98.5795}

// FREDClient watches economic indicators through the St. Louis Fed API.
type FREDClient struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Logger     *slog.Logger

	// Pacing is the delay between series requests. Negative disables it;
	// zero means the half second default.
	Pacing time.Duration
}

// Fetch checks each indicator's latest observations and emits an event when
// the most recent change exceeds the threshold. A non-positive threshold
// means DefaultChangeThreshold. Unparseable or rejected series are logged and
// skipped.
func (c *FREDClient) Fetch(ctx context.Context, changeThreshold float64) ([]event.Event, error) {
	log := logger(c.Logger)

	if c.APIKey == "" {
		return nil, newError("FRED", session.StatusNotConfigured,
			errors.New("API key not configured"))
	}
	if changeThreshold <= 0 {
		changeThreshold = DefaultChangeThreshold
	}
	log.Info("fetching FRED indicators", "change_threshold", changeThreshold)

	base := c.BaseURL
	if base == "" {
		base = fredBaseURL
	}
	pacing := c.Pacing
	if pacing == 0 {
		pacing = 500 * time.Millisecond
	}

	var events []event.Event
	for _, ind := range fredIndicators {
		q := url.Values{}
		q.Set("series_id", ind.seriesID)
		q.Set("api_key", c.APIKey)
		q.Set("file_type", "json")
		q.Set("limit", "5")
		q.Set("sort_order", "desc")

		req, err := http.NewRequestWithContext(ctx, http.MethodGet,
			base+"/fred/series/observations?"+q.Encode(), nil)
		if err != nil {
			return nil, newError("FRED", session.StatusError, err)
		}

		resp, err := httpClient(c.HTTPClient).Do(req)
		if err != nil {
			return nil, transportError("FRED", err)
		}

		switch resp.StatusCode {
		case http.StatusOK:
			var payload struct {
				Observations []map[string]any `json:"observations"`
			}
			err := json.NewDecoder(resp.Body).Decode(&payload)
			resp.Body.Close()
			if err != nil {
				log.Warn("undecodable FRED response", "series_id", ind.seriesID, "error", err)
				continue
			}
			if ev, ok := indicatorEvent(ind, payload.Observations, changeThreshold); ok {
				events = append(events, ev)
			}
		case http.StatusBadRequest:
			resp.Body.Close()
			log.Warn("invalid FRED series", "series_id", ind.seriesID)
		default:
			resp.Body.Close()
			log.Warn("FRED request failed", "series_id", ind.seriesID, "status", resp.StatusCode)
		}

		if err := sleepCtx(ctx, pacing); err != nil {
			return nil, transportError("FRED", err)
		}
	}

	log.Info("collected economic events from FRED", "count", len(events))
	return events, nil
}

// indicatorEvent compares the two latest observations of a series and builds
// an event when the move is significant.
func indicatorEvent(ind fredIndicator, observations []map[string]any, threshold float64) (event.Event, bool) {
	if len(observations) < 2 {
		return event.Event{}, false
	}
	current, okCur := observationValue(observations[0])
	previous, okPrev := observationValue(observations[1])
	if !okCur || !okPrev || previous == 0 {
		return event.Event{}, false
	}

	changePct := (current - previous) / previous * 100
	if abs(changePct) <= threshold {
		return event.Event{}, false
	}

	ev := event.New("FRED", "economic_indicator")
	loc := usCentroid
	ev.Location = &loc
	ev.Severity = event.SeverityMedium
	if abs(changePct) > 5.0 {
		ev.Severity = event.SeverityHigh
	}
	ev.Description = fmt.Sprintf("Significant change in %s: %.2f%%", ind.name, changePct)
	ev.Metadata = map[string]any{
		"indicator_name": ind.name,
		"series_id":      ind.seriesID,
		"current_value":  current,
		"previous_value": previous,
		"change_percent": changePct,
	}
	ev.Raw = observations[0]
	return ev, true
}

func observationValue(obs map[string]any) (float64, bool) {
	s, ok := obs["value"].(string)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
