package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/chainsignal-io/chainsignal/internal/event"
	"github.com/chainsignal-io/chainsignal/internal/session"
)

func TestStatusOf(t *testing.T) {
	err := newError("GDELT", session.StatusRateLimited, errors.New("slow down"))
	if got := StatusOf(err); got != session.StatusRateLimited {
		t.Errorf("StatusOf = %q, want %q", got, session.StatusRateLimited)
	}
	if got := StatusOf(errors.New("plain")); got != session.StatusError {
		t.Errorf("StatusOf(plain) = %q, want %q", got, session.StatusError)
	}
}

func TestNOAAFetch(t *testing.T) {
	var gotUA, gotArea string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotArea = r.URL.Query().Get("area")
		w.Header().Set("Content-Type", "application/geo+json")
		w.Write([]byte(`{"features": [
			{"properties": {"event": "Hurricane Warning", "severity": "Extreme", "headline": "Hurricane inbound", "urgency": "Immediate", "certainty": "Observed", "areaDesc": "Gulf Coast"},
			 "geometry": {"type": "Polygon", "coordinates": [[[-90.1, 29.9], [-90.2, 30.0]]]}},
			{"properties": {"event": "Dust Advisory", "severity": "Minor"}, "geometry": null},
			{"properties": {"event": "Flood Watch", "severity": "Moderate"},
			 "geometry": {"type": "Point", "coordinates": [4.47, 51.92]}}
		]}`))
	}))
	defer srv.Close()

	c := &NOAAClient{BaseURL: srv.URL}
	events, err := c.Fetch(context.Background(), NOAAOptions{Region: "FL"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if gotUA != userAgent {
		t.Errorf("User-Agent = %q, want %q", gotUA, userAgent)
	}
	if gotArea != "FL" {
		t.Errorf("area = %q, want FL", gotArea)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2 (dust advisory filtered)", len(events))
	}

	hurricane := events[0]
	if hurricane.Type != "weather_hurricane_warning" {
		t.Errorf("type = %q", hurricane.Type)
	}
	if hurricane.Severity != event.SeverityCritical {
		t.Errorf("severity = %q, want critical", hurricane.Severity)
	}
	if hurricane.Description != "Hurricane inbound" {
		t.Errorf("description = %q", hurricane.Description)
	}
	if hurricane.Location == nil || hurricane.Location.Lat != 29.9 || hurricane.Location.Lon != -90.1 {
		t.Errorf("location = %+v, want first polygon vertex", hurricane.Location)
	}

	flood := events[1]
	if flood.Location == nil || flood.Location.Lat != 51.92 || flood.Location.Lon != 4.47 {
		t.Errorf("point location = %+v", flood.Location)
	}
}

func TestNOAAFetchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := &NOAAClient{BaseURL: srv.URL}
	_, err := c.Fetch(context.Background(), NOAAOptions{})
	if err == nil {
		t.Fatal("want error")
	}
	if got := StatusOf(err); got != session.StatusError {
		t.Errorf("status = %q, want %q", got, session.StatusError)
	}
}

func TestGDELTFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("mode") != "ArtList" || q.Get("format") != "json" || q.Get("sort") != "DateDesc" {
			t.Errorf("unexpected query: %v", q)
		}
		if !strings.Contains(q.Get("query"), "supply chain") {
			t.Errorf("query param = %q", q.Get("query"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"articles": [
			{"title": "Port closure disrupts shipping", "url": "https://example.com/a", "domain": "example.com",
			 "language": "English", "tone": "-6.5", "socialgeolat": "31.23", "socialgeolong": "121.47"},
			{"title": "Chip factory expands", "tone": 1.2}
		]}`))
	}))
	defer srv.Close()

	c := &GDELTClient{BaseURL: srv.URL}
	events, err := c.Fetch(context.Background(), GDELTOptions{Timespan: "24h", MaxRecords: 10})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Severity != event.SeverityCritical {
		t.Errorf("severity = %q, want critical for tone -6.5", events[0].Severity)
	}
	if events[0].Location == nil || events[0].Location.Lat != 31.23 {
		t.Errorf("location = %+v", events[0].Location)
	}
	if events[1].Severity != event.SeverityLow {
		t.Errorf("severity = %q, want low for positive tone", events[1].Severity)
	}
	if events[1].Location != nil {
		t.Errorf("location = %+v, want nil without geo fields", events[1].Location)
	}
}

func TestGDELTHTMLResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>rate limited</html>"))
	}))
	defer srv.Close()

	c := &GDELTClient{BaseURL: srv.URL}
	_, err := c.Fetch(context.Background(), GDELTOptions{})
	if got := StatusOf(err); got != session.StatusAPILimit {
		t.Errorf("status = %q, want %q (err: %v)", got, session.StatusAPILimit, err)
	}
}

func TestGDELTRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := &GDELTClient{BaseURL: srv.URL}
	_, err := c.Fetch(context.Background(), GDELTOptions{})
	if got := StatusOf(err); got != session.StatusRateLimited {
		t.Errorf("status = %q, want %q", got, session.StatusRateLimited)
	}
}

func TestGDELTFetchLogsMonitoringScope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"articles": []}`))
	}))
	defer srv.Close()

	if len(SupplyChainKeywords) == 0 {
		t.Fatal("monitoring vocabulary is empty")
	}

	var buf bytes.Buffer
	c := &GDELTClient{BaseURL: srv.URL, Logger: slog.New(slog.NewTextHandler(&buf, nil))}
	if _, err := c.Fetch(context.Background(), GDELTOptions{}); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	want := fmt.Sprintf("keywords=%d", len(SupplyChainKeywords))
	if !strings.Contains(buf.String(), want) {
		t.Errorf("fetch log missing %q:\n%s", want, buf.String())
	}
}

func TestMarineTrafficNotConfigured(t *testing.T) {
	c := &MarineTrafficClient{}
	_, err := c.Fetch(context.Background())
	if got := StatusOf(err); got != session.StatusNotConfigured {
		t.Errorf("status = %q, want %q", got, session.StatusNotConfigured)
	}
}

func TestMarineTrafficCongestion(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/api/exportvessels/test-key/") {
			t.Errorf("path = %q", r.URL.Path)
		}
		calls++
		w.Header().Set("Content-Type", "application/json")
		if calls == 1 {
			// 120 vessels at the first port.
			w.Write([]byte("[" + strings.Repeat(`{"SHIP_ID":"1"},`, 119) + `{"SHIP_ID":"1"}]`))
			return
		}
		w.Write([]byte(`[{"SHIP_ID":"2"}]`))
	}))
	defer srv.Close()

	c := &MarineTrafficClient{BaseURL: srv.URL, APIKey: "test-key", Pacing: -1}
	events, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if calls != 2 {
		t.Errorf("polled %d ports, want 2", calls)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	ev := events[0]
	if ev.Type != "port_congestion" || ev.Severity != event.SeverityHigh {
		t.Errorf("type/severity = %q/%q", ev.Type, ev.Severity)
	}
	if ev.Metadata["vessel_count"] != 120 {
		t.Errorf("vessel_count = %v", ev.Metadata["vessel_count"])
	}
	if sample := ev.Raw["vessels"].([]map[string]any); len(sample) != 5 {
		t.Errorf("raw vessel sample = %d entries, want 5", len(sample))
	}
}

func TestMarineTrafficAuthFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := &MarineTrafficClient{BaseURL: srv.URL, APIKey: "bad", Pacing: -1}
	_, err := c.Fetch(context.Background())
	if got := StatusOf(err); got != session.StatusAuthFailed {
		t.Errorf("status = %q, want %q", got, session.StatusAuthFailed)
	}
}

func TestFREDFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("api_key") != "fred-key" {
			t.Errorf("api_key = %q", r.URL.Query().Get("api_key"))
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("series_id") {
		case "CPIAUCSL":
			// 6.67% jump, above the severe threshold.
			w.Write([]byte(`{"observations": [{"date": "2026-08-01", "value": "320.0"}, {"date": "2026-07-01", "value": "300.0"}]}`))
		case "UNRATE":
			w.Write([]byte(`{"observations": [{"date": "2026-08-01", "value": "4.01"}, {"date": "2026-07-01", "value": "4.00"}]}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	c := &FREDClient{BaseURL: srv.URL, APIKey: "fred-key", Pacing: -1}
	events, err := c.Fetch(context.Background(), 0)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1 (UNRATE change below threshold)", len(events))
	}
	ev := events[0]
	if ev.Severity != event.SeverityHigh {
		t.Errorf("severity = %q, want high for >5%% move", ev.Severity)
	}
	if ev.Metadata["series_id"] != "CPIAUCSL" {
		t.Errorf("series_id = %v", ev.Metadata["series_id"])
	}
	if ev.Location == nil || ev.Location.Lat != 39.8283 {
		t.Errorf("location = %+v, want US centroid", ev.Location)
	}
}

func TestFREDNotConfigured(t *testing.T) {
	c := &FREDClient{}
	_, err := c.Fetch(context.Background(), 2.0)
	if got := StatusOf(err); got != session.StatusNotConfigured {
		t.Errorf("status = %q, want %q", got, session.StatusNotConfigured)
	}
}

func TestTwitterFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		if q := r.URL.Query().Get("query"); !strings.Contains(q, "-is:retweet") {
			t.Errorf("query = %q, want retweets excluded", q)
		}
		w.Header().Set("Content-Type", "application/json")
		long := strings.Repeat("supply chain port shipping disruption ", 10)
		w.Write([]byte(`{"data": [
			{"id": "1", "text": "semiconductor supply chain failure at major port", "author_id": "42", "created_at": "2026-08-20T10:00:00Z"},
			{"id": "2", "text": "nice weather today"},
			{"id": "3", "text": "` + long + `", "author_id": "7", "created_at": "2026-08-20T11:00:00Z"}
		]}`))
	}))
	defer srv.Close()

	c := &TwitterClient{BaseURL: srv.URL, BearerToken: "tok"}
	events, err := c.Fetch(context.Background(), TwitterOptions{})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2 (irrelevant tweet dropped)", len(events))
	}
	first := events[0]
	if first.Metadata["tweet_id"] != "1" || first.Metadata["author_id"] != "42" {
		t.Errorf("metadata = %v", first.Metadata)
	}
	if first.Timestamp.IsZero() || first.Timestamp.Hour() != 10 {
		t.Errorf("timestamp = %v, want tweet created_at", first.Timestamp)
	}
	if got := events[1].Description; len(got) != 203 || !strings.HasSuffix(got, "...") {
		t.Errorf("long tweet not truncated: %d bytes", len(got))
	}
}

func TestTruncateRuneBoundary(t *testing.T) {
	long := strings.Repeat("港", 205)

	got := truncate(long, 200)
	if !utf8.ValidString(got) {
		t.Fatal("truncation produced invalid UTF-8")
	}
	if n := utf8.RuneCountInString(got); n != 203 {
		t.Errorf("got %d runes, want 200 plus ellipsis", n)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("missing ellipsis: %q", got[len(got)-9:])
	}

	if got := truncate("short", 200); got != "short" {
		t.Errorf("short text changed: %q", got)
	}
}

func TestTwitterNotConfigured(t *testing.T) {
	c := &TwitterClient{}
	_, err := c.Fetch(context.Background(), TwitterOptions{})
	if got := StatusOf(err); got != session.StatusNotConfigured {
		t.Errorf("status = %q, want %q", got, session.StatusNotConfigured)
	}
}
