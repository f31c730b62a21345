// Package event defines the normalized supply chain risk event record and
// the per-source severity heuristics applied during ingestion.
package event

import (
	"sort"
	"strings"
	"time"
)

// Severity classifies how disruptive an event is expected to be.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank orders severities for prioritized publishing. Unknown values rank
// lowest.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 1
	}
}

// Location is a WGS84 point.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Event is the normalized record every source produces and the publisher
// ships downstream.
type Event struct {
	Source      string         `json:"source"`
	Type        string         `json:"event_type"`
	Timestamp   time.Time      `json:"timestamp"`
	Location    *Location      `json:"location,omitempty"`
	Severity    Severity       `json:"severity"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Raw         map[string]any `json:"raw_data,omitempty"`
	ImpactScore *float64       `json:"impact_score,omitempty"`
}

// New returns an event stamped now with the default severity.
func New(source, eventType string) Event {
	return Event{
		Source:    source,
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Severity:  SeverityMedium,
	}
}

// MapNOAASeverity translates NOAA alert severity levels to the common scale.
func MapNOAASeverity(noaaSeverity string) Severity {
	switch strings.ToLower(noaaSeverity) {
	case "extreme":
		return SeverityCritical
	case "severe":
		return SeverityHigh
	case "moderate":
		return SeverityMedium
	case "minor":
		return SeverityLow
	default:
		return SeverityMedium
	}
}

// GDELTSeverityFromTone maps an article tone score to severity. GDELT tone is
// negative for bad news; the thresholds follow the collection heuristics.
func GDELTSeverityFromTone(tone float64) Severity {
	switch {
	case tone < -5:
		return SeverityCritical
	case tone < -2:
		return SeverityHigh
	case tone < 0:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

var (
	negativeWords = []string{"crisis", "disaster", "emergency", "critical", "severe", "failure", "collapse", "shutdown"}
	urgentWords   = []string{"breaking", "urgent", "alert", "warning", "immediate"}

	highValueTerms = []string{"supply chain", "port", "factory", "shipping", "logistics", "manufacturing"}
)

// TextSeverity scores free text (tweets, headlines) by counting negative and
// urgency terms.
func TextSeverity(text string) Severity {
	lower := strings.ToLower(text)

	negative := 0
	for _, w := range negativeWords {
		if strings.Contains(lower, w) {
			negative++
		}
	}
	urgent := 0
	for _, w := range urgentWords {
		if strings.Contains(lower, w) {
			urgent++
		}
	}

	switch {
	case negative >= 2 || urgent >= 2:
		return SeverityCritical
	case negative >= 1 && urgent >= 1:
		return SeverityHigh
	case negative >= 1 || urgent >= 1:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// RelevanceScore rates how relevant free text is to the supplied keywords on
// a 0-10 scale. Keyword hits score two points each (capped at 8) and the
// presence of any core supply chain term adds two more.
func RelevanceScore(text string, keywords []string) int {
	lower := strings.ToLower(text)

	matches := 0
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			matches++
		}
	}
	score := min(matches*2, 8)

	for _, term := range highValueTerms {
		if strings.Contains(lower, term) {
			score += 2
			break
		}
	}

	return min(score, 10)
}

// SortByPriority orders events so the most severe publish first.
func SortByPriority(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Severity.Rank() > events[j].Severity.Rank()
	})
}
