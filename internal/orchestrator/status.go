package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	llmagent "github.com/hoangvvo/llm-sdk/agent-go"

	"github.com/chainsignal-io/chainsignal/internal/session"
)

// SystemToolkit injects the deployment context and live system status into the
// prompt before every run, and initializes the system status record when
// absent.
type SystemToolkit struct {
	ProjectID string
	Frequency time.Duration
}

func (t *SystemToolkit) CreateSession(_ context.Context, st *session.State) (llmagent.ToolkitSession[*session.State], error) {
	st.EnsureSystem()
	prompt := GlobalInstruction(t.ProjectID, t.Frequency) + "\n\n" + renderSystemStatus(st.System)
	return &systemSession{prompt: prompt}, nil
}

type systemSession struct {
	prompt string
}

func (s *systemSession) SystemPrompt() *string { return &s.prompt }

func (s *systemSession) Tools() []llmagent.AgentTool[*session.State] { return nil }

func (s *systemSession) Close(context.Context) error { return nil }

func renderSystemStatus(ss *session.SystemStatus) string {
	lastCollection := "Never"
	if ss.LastCollectionTime != nil {
		lastCollection = ss.LastCollectionTime.UTC().Format(time.RFC3339)
	}
	emergency := "Inactive"
	if ss.EmergencyActive {
		emergency = "ACTIVE"
	}

	var b strings.Builder
	b.WriteString("**Current System Status:**\n")
	fmt.Fprintf(&b, "- System uptime since: %s\n", ss.StartTime.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "- Collection cycles completed: %d\n", ss.CollectionCycles)
	fmt.Fprintf(&b, "- Total events processed: %d\n", ss.TotalEventsProcessed)
	fmt.Fprintf(&b, "- Last collection: %s\n", lastCollection)
	fmt.Fprintf(&b, "- Emergency mode: %s\n", emergency)
	fmt.Fprintf(&b, "- System health: %s", ss.Health)
	return b.String()
}
