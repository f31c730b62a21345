// Package server exposes the orchestrator and collector agents over HTTP:
// blocking runs, SSE streaming runs, and a tool listing.
package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	llmagent "github.com/hoangvvo/llm-sdk/agent-go"
	llmmcp "github.com/hoangvvo/llm-sdk/agent-go/mcp"
	llmsdk "github.com/hoangvvo/llm-sdk/sdk-go"

	"github.com/chainsignal-io/chainsignal/internal/collector"
	"github.com/chainsignal-io/chainsignal/internal/orchestrator"
	"github.com/chainsignal-io/chainsignal/internal/session"
)

// Config carries the deployment settings the server passes through to the
// agents it builds.
type Config struct {
	ProjectID   string
	Topic       string
	Frequency   time.Duration
	ArtifactDir string
	Logger      *slog.Logger

	// AllowStdioMCP permits per-request stdio MCP servers. Off by default:
	// a stdio server executes an arbitrary local command.
	AllowStdioMCP bool
}

// Server routes agent runs. Session state is kept in memory per session id so
// collection counters and API statuses survive across runs.
type Server struct {
	rootModel      llmsdk.LanguageModel
	collectorModel llmsdk.LanguageModel
	c              *collector.Collector
	cfg            Config
	log            *slog.Logger

	mu       sync.Mutex
	sessions map[string]*runSession
}

// runSession serializes runs that share one session state. The agent tools
// mutate the state without locking, so two concurrent runs on the same
// session would race.
type runSession struct {
	mu    sync.Mutex
	state *session.State
}

// New builds a server around the given models and collector wiring. The two
// agents may run on different models.
func New(rootModel, collectorModel llmsdk.LanguageModel, c *collector.Collector, cfg Config) *Server {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		rootModel:      rootModel,
		collectorModel: collectorModel,
		c:              c,
		cfg:            cfg,
		log:            log,
		sessions:       make(map[string]*runSession),
	}
}

// Handler returns the HTTP routing for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Handle CORS preflight
	mux.HandleFunc("OPTIONS /", func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("POST /run", func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)
		s.runHandler(w, r)
	})

	mux.HandleFunc("POST /run-stream", func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)
		s.runStreamHandler(w, r)
	})

	mux.HandleFunc("GET /tools", func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)
		s.listToolsHandler(w)
	})

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"ok"}`)
	})

	return mux
}

// RunBody is the request payload for /run and /run-stream.
type RunBody struct {
	// Agent selects "orchestrator" (default) or "collector".
	Agent string `json:"agent,omitempty"`
	Input string `json:"input"`
	// SessionID resumes a previous session's state when set.
	SessionID  string             `json:"session_id,omitempty"`
	MCPServers []llmmcp.MCPParams `json:"mcp_servers,omitempty"`
}

// RunResponse is the /run reply.
type RunResponse struct {
	RunID     string `json:"run_id"`
	SessionID string `json:"session_id"`
	Agent     string `json:"agent"`
	Output    string `json:"output"`
}

func (s *Server) runHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRun(w, r)
	if !ok {
		return
	}

	agent, agentName, err := s.buildAgent(req.Agent, req.MCPServers)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sessionID, rs := s.session(req.SessionID)
	rs.mu.Lock()
	defer rs.mu.Unlock()

	runID := "run_" + uuid.NewString()
	s.log.Info("agent run", "run_id", runID, "session_id", sessionID, "agent", agentName)

	resp, err := agent.Run(r.Context(), llmagent.AgentRequest[*session.State]{
		Context: rs.state,
		Input: []llmagent.AgentItem{
			llmagent.NewAgentItemMessage(llmsdk.NewUserMessage(llmsdk.NewTextPart(req.Input))),
		},
	})
	if err != nil {
		s.log.Error("agent run failed", "run_id", runID, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(RunResponse{
		RunID:     runID,
		SessionID: sessionID,
		Agent:     agentName,
		Output:    responseText(resp.Content),
	}); err != nil {
		s.log.Error("encode run response", "run_id", runID, "error", err)
	}
}

func (s *Server) runStreamHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRun(w, r)
	if !ok {
		return
	}

	agent, agentName, err := s.buildAgent(req.Agent, req.MCPServers)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sessionID, rs := s.session(req.SessionID)
	rs.mu.Lock()
	defer rs.mu.Unlock()

	runID := "run_" + uuid.NewString()
	s.log.Info("agent stream run", "run_id", runID, "session_id", sessionID, "agent", agentName)

	stream, err := agent.RunStream(r.Context(), llmagent.AgentRequest[*session.State]{
		Context: rs.state,
		Input: []llmagent.AgentItem{
			llmagent.NewAgentItemMessage(llmsdk.NewUserMessage(llmsdk.NewTextPart(req.Input))),
		},
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	for stream.Next() {
		event := stream.Current()
		data, err := json.Marshal(event)
		if err != nil {
			writeSSEError(w, flusher, err)
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	if err := stream.Err(); err != nil {
		writeSSEError(w, flusher, err)
	}
}

func (s *Server) listToolsHandler(w http.ResponseWriter) {
	var tools []map[string]string
	for _, tool := range orchestrator.Tools(s.c, s.cfg.ArtifactDir, s.log) {
		tools = append(tools, map[string]string{
			"agent":       "orchestrator",
			"name":        tool.Name(),
			"description": tool.Description(),
		})
	}
	for _, tool := range collector.Tools(s.c) {
		tools = append(tools, map[string]string{
			"agent":       "collector",
			"name":        tool.Name(),
			"description": tool.Description(),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(tools); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) decodeRun(w http.ResponseWriter, r *http.Request) (RunBody, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return RunBody{}, false
	}
	defer r.Body.Close()

	var req RunBody
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return RunBody{}, false
	}
	if strings.TrimSpace(req.Input) == "" {
		http.Error(w, "input is required", http.StatusBadRequest)
		return RunBody{}, false
	}
	return req, true
}

// buildAgent constructs the requested agent, extended with MCP toolkits for
// any servers named in the request.
func (s *Server) buildAgent(name string, mcpServers []llmmcp.MCPParams) (*llmagent.Agent[*session.State], string, error) {
	var extra []llmagent.Toolkit[*session.State]
	for _, params := range mcpServers {
		if _, ok := params.StdioParams(); ok && !s.cfg.AllowStdioMCP {
			return nil, "", fmt.Errorf("stdio MCP servers are not allowed")
		}
		extra = append(extra, llmmcp.NewMCPToolkit(llmmcp.StaticMCPInit[*session.State](params)))
	}

	switch name {
	case "", "orchestrator":
		agent := orchestrator.New(s.rootModel, s.c, orchestrator.Config{
			ProjectID:   s.cfg.ProjectID,
			Frequency:   s.cfg.Frequency,
			ArtifactDir: s.cfg.ArtifactDir,
			Logger:      s.log,
		}, extra...)
		return agent, "orchestrator", nil
	case "collector":
		agent := collector.New(s.collectorModel, s.c, s.cfg.Topic, s.cfg.ProjectID, extra...)
		return agent, "collector", nil
	default:
		return nil, "", fmt.Errorf("unknown agent %q", name)
	}
}

// session returns the state for the given id, creating a fresh session when
// the id is empty or unknown.
func (s *Server) session(id string) (string, *runSession) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == "" {
		id = "sess_" + uuid.NewString()
	}
	rs, ok := s.sessions[id]
	if !ok {
		rs = &runSession{state: session.New()}
		s.sessions[id] = rs
	}
	return id, rs
}

func responseText(parts []llmsdk.Part) string {
	var b strings.Builder
	for _, part := range parts {
		if part.TextPart != nil {
			b.WriteString(part.TextPart.Text)
		}
	}
	return b.String()
}

func writeSSEError(w http.ResponseWriter, flusher http.Flusher, err error) {
	data, _ := json.Marshal(map[string]string{"event": "error", "error": err.Error()})
	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}

func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
}
