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
	"time"

	"github.com/chainsignal-io/chainsignal/internal/event"
	"github.com/chainsignal-io/chainsignal/internal/session"
)

const (
	marineTrafficBaseURL = "https://services.marinetraffic.com"

	congestionThreshold = 50
	severeCongestion    = 100
)

// Port is a monitored harbor area.
type Port struct {
	Name string
	Lat  float64
	Lon  float64
}

// MonitoredPorts lists the harbors checked for vessel congestion. Only the
// first two are polled per fetch to stay under the API quota.
var MonitoredPorts = []Port{
	{Name: "Shanghai", Lat: 31.2304, Lon: 121.4737},
	{Name: "Singapore", Lat: 1.2966, Lon: 103.7764},
	{Name: "Rotterdam", Lat: 51.9244, Lon: 4.4777},
}

// MarineTrafficClient checks vessel density around major ports using the
// MarineTraffic export API.
type MarineTrafficClient struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Logger     *slog.Logger

	// Pacing is the delay between port requests. Negative disables it; zero
	// means the one second default.
	Pacing time.Duration
}

// Fetch polls the monitored ports and emits a congestion event for each port
// whose vessel count exceeds the threshold. Individual port failures are
// logged and skipped; an auth failure aborts the whole fetch.
func (c *MarineTrafficClient) Fetch(ctx context.Context) ([]event.Event, error) {
	log := logger(c.Logger)

	if c.APIKey == "" {
		return nil, newError("MarineTraffic", session.StatusNotConfigured,
			errors.New("API key not configured"))
	}

	base := c.BaseURL
	if base == "" {
		base = marineTrafficBaseURL
	}
	pacing := c.Pacing
	if pacing == 0 {
		pacing = time.Second
	}

	var events []event.Event
	for _, port := range MonitoredPorts[:2] {
		q := url.Values{}
		q.Set("timespan", "60")
		q.Set("minlat", formatCoord(port.Lat-0.1))
		q.Set("maxlat", formatCoord(port.Lat+0.1))
		q.Set("minlon", formatCoord(port.Lon-0.1))
		q.Set("maxlon", formatCoord(port.Lon+0.1))

		endpoint := fmt.Sprintf("%s/api/exportvessels/%s/v:3/protocol:jsono?%s", base, c.APIKey, q.Encode())
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, newError("MarineTraffic", session.StatusError, err)
		}

		resp, err := httpClient(c.HTTPClient).Do(req)
		if err != nil {
			return nil, transportError("MarineTraffic", err)
		}

		switch resp.StatusCode {
		case http.StatusOK:
			var vessels []map[string]any
			err := json.NewDecoder(resp.Body).Decode(&vessels)
			resp.Body.Close()
			if err != nil {
				log.Warn("undecodable MarineTraffic response", "port", port.Name, "error", err)
				continue
			}
			if ev, ok := congestionEvent(port, vessels); ok {
				events = append(events, ev)
			}
		case http.StatusUnauthorized:
			resp.Body.Close()
			return nil, newError("MarineTraffic", session.StatusAuthFailed,
				errors.New("authentication failed"))
		default:
			resp.Body.Close()
			log.Warn("MarineTraffic request failed", "port", port.Name, "status", resp.StatusCode)
		}

		if err := sleepCtx(ctx, pacing); err != nil {
			return nil, transportError("MarineTraffic", err)
		}
	}

	log.Info("collected shipping events from MarineTraffic", "count", len(events))
	return events, nil
}

func congestionEvent(port Port, vessels []map[string]any) (event.Event, bool) {
	count := len(vessels)
	if count <= congestionThreshold {
		return event.Event{}, false
	}

	ev := event.New("MarineTraffic", "port_congestion")
	ev.Location = &event.Location{Lat: port.Lat, Lon: port.Lon}
	ev.Severity = event.SeverityMedium
	if count > severeCongestion {
		ev.Severity = event.SeverityHigh
	}
	ev.Description = fmt.Sprintf("High vessel traffic detected at %s port: %d vessels", port.Name, count)
	ev.Metadata = map[string]any{
		"port_name":            port.Name,
		"vessel_count":         count,
		"congestion_threshold": congestionThreshold,
	}
	sample := vessels
	if len(sample) > 5 {
		sample = sample[:5]
	}
	ev.Raw = map[string]any{"vessels": sample}
	return ev, true
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
