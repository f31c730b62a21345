// Package orchestrator implements the root agent that coordinates the data
// collector: triggering collections, reporting system status, and activating
// emergency response.
package orchestrator

import (
	"log/slog"
	"time"

	llmagent "github.com/hoangvvo/llm-sdk/agent-go"
	llmsdk "github.com/hoangvvo/llm-sdk/sdk-go"

	"github.com/chainsignal-io/chainsignal/internal/collector"
	"github.com/chainsignal-io/chainsignal/internal/session"
)

// AgentName identifies the orchestrator in traces.
const AgentName = "supply_chain_orchestrator"

// Temperature matches the collector's: orchestration decisions should be
// deterministic.
const Temperature = 0.1

// Config carries the deployment context the orchestrator reports to the
// model.
type Config struct {
	ProjectID   string
	Frequency   time.Duration
	ArtifactDir string
	Logger      *slog.Logger
}

// New builds the root orchestrator agent. Extra toolkits, such as per-request
// MCP servers, are appended after the system toolkit.
func New(model llmsdk.LanguageModel, c *collector.Collector, cfg Config, extra ...llmagent.Toolkit[*session.State]) *llmagent.Agent[*session.State] {
	instructions := Instructions
	toolkits := append([]llmagent.Toolkit[*session.State]{&SystemToolkit{ProjectID: cfg.ProjectID, Frequency: cfg.Frequency}}, extra...)
	return llmagent.NewAgent(AgentName, model,
		llmagent.WithInstructions(llmagent.InstructionParam[*session.State]{String: &instructions}),
		llmagent.WithTools(Tools(c, cfg.ArtifactDir, cfg.Logger)...),
		llmagent.WithToolkits(toolkits...),
		llmagent.WithTemperature[*session.State](Temperature),
	)
}
