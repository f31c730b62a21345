// Package session holds the mutable state threaded through agent runs as the
// agent context value. A State is owned by exactly one run at a time; the
// hosted runtime executes tools sequentially within a run, so access is not
// synchronized.
package session

import "time"

// Connection status values reported per provider in the APIStatus record.
const (
	StatusUnknown       = "unknown"
	StatusConnected     = "connected"
	StatusError         = "error"
	StatusRateLimited   = "rate_limited"
	StatusTimeout       = "timeout"
	StatusNotConfigured = "not_configured"
	StatusAuthFailed    = "auth_failed"
	StatusAPILimit      = "api_limit"
)

// Providers lists the monitored data providers in reporting order.
var Providers = []string{"NOAA", "GDELT", "MarineTraffic", "FRED", "Twitter"}

// CollectionStatus tracks collector activity across runs of one session.
type CollectionStatus struct {
	Initialized           bool       `json:"initialized"`
	TotalCollections      int        `json:"total_collections"`
	SuccessfulCollections int        `json:"successful_collections"`
	FailedCollections     int        `json:"failed_collections"`
	TotalEventsPublished  int        `json:"total_events_published"`
	LastCollectionTime    *time.Time `json:"last_collection_time"`
	ActiveSources         []string   `json:"active_sources"`
	ErrorCount            int        `json:"error_count"`
}

// NewCollectionStatus returns the default collection status record.
func NewCollectionStatus() *CollectionStatus {
	return &CollectionStatus{
		Initialized:   true,
		ActiveSources: []string{},
	}
}

// APIStatus maps provider names to their last observed connection status.
type APIStatus map[string]string

// NewAPIStatus returns the default record: every provider unknown.
func NewAPIStatus() APIStatus {
	s := make(APIStatus, len(Providers))
	for _, p := range Providers {
		s[p] = StatusUnknown
	}
	return s
}

// Get returns the status for a provider, defaulting to unknown.
func (s APIStatus) Get(provider string) string {
	if v, ok := s[provider]; ok {
		return v
	}
	return StatusUnknown
}

// SystemStatus tracks orchestrator-level health across a session.
type SystemStatus struct {
	Initialized          bool       `json:"initialized"`
	StartTime            time.Time  `json:"start_time"`
	CollectionCycles     int        `json:"collection_cycles"`
	TotalEventsProcessed int        `json:"total_events_processed"`
	LastCollectionTime   *time.Time `json:"last_collection_timestamp"`
	EmergencyActive      bool       `json:"emergency_active"`
	Health               string     `json:"system_health"`
	LastError            string     `json:"last_error,omitempty"`
	LastErrorTime        *time.Time `json:"last_error_timestamp,omitempty"`
}

// NewSystemStatus returns the default system status record.
func NewSystemStatus() *SystemStatus {
	return &SystemStatus{
		Initialized: true,
		StartTime:   time.Now().UTC(),
		Health:      "healthy",
	}
}

// CollectionSummary is the condensed result of the most recent collection,
// kept in state for status reporting.
type CollectionSummary struct {
	CollectionID     string    `json:"collection_id"`
	SourcesProcessed []string  `json:"sources_processed"`
	TotalEvents      int       `json:"total_events"`
	Errors           []string  `json:"errors"`
	Duration         float64   `json:"duration_seconds"`
	StartTime        time.Time `json:"start_time"`
}

// EmergencyState records an active emergency response.
type EmergencyState struct {
	CrisisType      string    `json:"crisis_type"`
	GeographicFocus string    `json:"geographic_focus"`
	Keywords        []string  `json:"keywords"`
	ActivatedAt     time.Time `json:"activated_at"`
}

// State is the per-session container passed to instructions and tools.
type State struct {
	Collection *CollectionStatus
	API        APIStatus
	System     *SystemStatus

	LastCollection *CollectionSummary
	Emergency      *EmergencyState

	// ArtifactDir is the directory artifact reads resolve against.
	ArtifactDir string
}

// New returns a State with both collector records populated.
func New() *State {
	s := &State{}
	s.EnsureDefaults()
	return s
}

// EnsureDefaults creates the collection and API status records with their
// default shapes when absent. Records already present are left untouched.
func (s *State) EnsureDefaults() {
	if s.Collection == nil {
		s.Collection = NewCollectionStatus()
	}
	if s.API == nil {
		s.API = NewAPIStatus()
	}
}

// EnsureSystem creates the orchestrator system record when absent.
func (s *State) EnsureSystem() {
	if s.System == nil {
		s.System = NewSystemStatus()
	}
}
