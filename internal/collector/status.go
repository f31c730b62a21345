package collector

import (
	"context"
	"fmt"
	"strings"

	llmagent "github.com/hoangvvo/llm-sdk/agent-go"

	"github.com/chainsignal-io/chainsignal/internal/session"
)

// StatusToolkit injects the live collection and API connection status into the
// system prompt before every run. Creating the toolkit session also populates
// the session's status records with their default shapes.
type StatusToolkit struct {
	Topic     string
	ProjectID string
}

func (t *StatusToolkit) CreateSession(_ context.Context, st *session.State) (llmagent.ToolkitSession[*session.State], error) {
	st.EnsureDefaults()
	return &statusSession{prompt: renderStatus(st, t.Topic, t.ProjectID)}, nil
}

// statusSession caches the rendered prompt so the session surface stays
// synchronous.
type statusSession struct {
	prompt string
}

func (s *statusSession) SystemPrompt() *string {
	if s.prompt == "" {
		return nil
	}
	return &s.prompt
}

func (s *statusSession) Tools() []llmagent.AgentTool[*session.State] { return nil }

func (s *statusSession) Close(context.Context) error { return nil }

// renderStatus formats the status block appended to the instructions.
func renderStatus(st *session.State, topic, projectID string) string {
	cs := st.Collection

	// The success ratio denominator is never zero so a fresh session reads
	// "0/1" rather than dividing by nothing.
	denominator := cs.TotalCollections
	if denominator == 0 {
		denominator = 1
	}

	lastCollection := "Never"
	if cs.LastCollectionTime != nil {
		lastCollection = cs.LastCollectionTime.UTC().Format("2006-01-02T15:04:05Z")
	}

	var b strings.Builder
	b.WriteString("**Current Collection Status:**\n")
	fmt.Fprintf(&b, "- Total collections: %d\n", cs.TotalCollections)
	fmt.Fprintf(&b, "- Success rate: %d/%d\n", cs.SuccessfulCollections, denominator)
	fmt.Fprintf(&b, "- Events published: %d\n", cs.TotalEventsPublished)
	fmt.Fprintf(&b, "- Last collection: %s\n", lastCollection)
	fmt.Fprintf(&b, "- Error count: %d\n", cs.ErrorCount)
	b.WriteString("\n**API Connection Status:**\n")
	for _, provider := range session.Providers {
		fmt.Fprintf(&b, "- %s: %s\n", provider, st.API.Get(provider))
	}
	fmt.Fprintf(&b, "\n**Target Pub/Sub Topic:** %s\n", topic)
	fmt.Fprintf(&b, "**Project ID:** %s", projectID)
	return b.String()
}
