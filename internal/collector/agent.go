package collector

import (
	llmagent "github.com/hoangvvo/llm-sdk/agent-go"
	llmsdk "github.com/hoangvvo/llm-sdk/sdk-go"

	"github.com/chainsignal-io/chainsignal/internal/session"
)

// AgentName identifies the collector agent in traces and delegation tools.
const AgentName = "supply_chain_data_collector"

// Temperature keeps tool-call arguments deterministic; collection is not a
// creative task.
const Temperature = 0.1

// New builds the data collector agent: fixed instructions, the nine
// collection tools, and the status toolkit that prepends live session status
// to every run. Extra toolkits, such as per-request MCP servers, are appended
// after the status toolkit.
func New(model llmsdk.LanguageModel, c *Collector, topic, projectID string, extra ...llmagent.Toolkit[*session.State]) *llmagent.Agent[*session.State] {
	instructions := Instructions
	toolkits := append([]llmagent.Toolkit[*session.State]{&StatusToolkit{Topic: topic, ProjectID: projectID}}, extra...)
	return llmagent.NewAgent(AgentName, model,
		llmagent.WithInstructions(llmagent.InstructionParam[*session.State]{String: &instructions}),
		llmagent.WithTools(Tools(c)...),
		llmagent.WithToolkits(toolkits...),
		llmagent.WithTemperature[*session.State](Temperature),
	)
}
