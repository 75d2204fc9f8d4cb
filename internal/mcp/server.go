package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/arturoeanton/launchpad-match/internal/domain"
	"github.com/arturoeanton/launchpad-match/internal/service"
)

// Matcher is the match surface exposed to agents.
type Matcher interface {
	Match(ctx context.Context, candidateID string, limit int) (*service.MatchOutcome, error)
	Fallback(ctx context.Context, candidateID string, limit int) (*service.MatchOutcome, error)
}

// CandidateGetter loads a candidate profile.
type CandidateGetter interface {
	Get(ctx context.Context, id string) (*domain.Candidate, error)
}

// Server implements the Model Context Protocol (MCP) server.
// It exposes job matching as tools for external AI agents.
type Server struct {
	matches    Matcher
	candidates CandidateGetter
	port       string
	logger     *zap.Logger
	httpServer *http.Server
}

// NewServer creates a new MCP server.
func NewServer(matches Matcher, candidates CandidateGetter, port string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{matches: matches, candidates: candidates, port: port, logger: logger}
}

// Tool represents an MCP tool definition.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// JSONRPCRequest represents a JSON-RPC 2.0 request.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// JSONRPCResponse represents a JSON-RPC 2.0 response.
type JSONRPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

// RPCError represents a JSON-RPC error.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Handler returns the MCP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/mcp", s.handleRPC)
	mux.HandleFunc("/mcp/sse", s.handleSSE)
	return mux
}

// Start begins the MCP server on the configured port and blocks until it
// stops. A clean Shutdown returns nil.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("MCP server starting", zap.String("port", s.port))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops a started server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req JSONRPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, nil, -32700, "parse error")
		return
	}

	var result interface{}
	var err error

	switch req.Method {
	case "tools/list":
		result = s.listTools()
	case "tools/call":
		result, err = s.callTool(r.Context(), req.Params)
	case "initialize":
		result = map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"serverInfo": map[string]string{
				"name":    "launchpad-match",
				"version": "1.0.0",
			},
			"capabilities": map[string]interface{}{
				"tools": map[string]bool{"listChanged": false},
			},
		}
	default:
		writeError(w, req.ID, -32601, "method not found")
		return
	}

	if err != nil {
		s.logger.Debug("MCP tool call failed", zap.Error(err))
		writeError(w, req.ID, -32603, err.Error())
		return
	}

	writeResult(w, req.ID, result)
}

func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Send initial endpoint message
	fmt.Fprintf(w, "event: endpoint\ndata: /mcp\n\n")
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	// Keep connection alive
	<-r.Context().Done()
}

var matchSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"candidate_id": {"type": "string", "description": "Candidate ID"},
		"limit": {"type": "integer", "description": "Maximum number of jobs, default 10"}
	},
	"required": ["candidate_id"]
}`)

func (s *Server) listTools() map[string]interface{} {
	tools := []Tool{
		{
			Name:        "match_jobs",
			Description: "Rank open jobs for a candidate by semantic similarity blended with rule-based signals",
			InputSchema: matchSchema,
		},
		{
			Name:        "fallback_match",
			Description: "Rank jobs for a candidate using skill and location rules only",
			InputSchema: matchSchema,
		},
		{
			Name:        "get_candidate",
			Description: "Fetch a candidate profile",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"candidate_id": {"type": "string", "description": "Candidate ID"}
				},
				"required": ["candidate_id"]
			}`),
		},
	}
	return map[string]interface{}{"tools": tools}
}

func (s *Server) callTool(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var req struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	var args struct {
		CandidateID string `json:"candidate_id"`
		Limit       int    `json:"limit"`
	}
	if len(req.Arguments) > 0 {
		if err := json.Unmarshal(req.Arguments, &args); err != nil {
			return nil, fmt.Errorf("invalid arguments: %w", err)
		}
	}
	if strings.TrimSpace(args.CandidateID) == "" {
		return nil, errors.New("candidate_id is required")
	}

	switch req.Name {
	case "match_jobs", "fallback_match":
		run := s.matches.Match
		if req.Name == "fallback_match" {
			run = s.matches.Fallback
		}
		out, err := run(ctx, args.CandidateID, args.Limit)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"content": []map[string]interface{}{
				{"type": "text", "text": summarize(out)},
			},
			"matches": out.Matches,
			"mode":    out.Mode,
		}, nil

	case "get_candidate":
		c, err := s.candidates.Get(ctx, args.CandidateID)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"content": []map[string]interface{}{
				{"type": "text", "text": fmt.Sprintf("%s (%s), %s. Skills: %s", c.Name, c.Location, c.Education, strings.Join(c.Skills, ", "))},
			},
			"candidate": c,
		}, nil

	default:
		return nil, fmt.Errorf("unknown tool: %s", req.Name)
	}
}

// summarize renders the matches as one line per job.
func summarize(out *service.MatchOutcome) string {
	if len(out.Matches) == 0 {
		return fmt.Sprintf("No matching jobs found (%s mode).", out.Mode)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d matching jobs (%s mode):\n", len(out.Matches), out.Mode)
	for i, m := range out.Matches {
		fmt.Fprintf(&b, "%d. %s", i+1, m.Job.Title)
		if m.Job.Company != "" {
			fmt.Fprintf(&b, " at %s", m.Job.Company)
		}
		fmt.Fprintf(&b, ", score %.1f", m.Score)
		if len(m.Reasons) > 0 {
			fmt.Fprintf(&b, ": %s", strings.Join(m.Reasons, "; "))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := JSONRPCResponse{JSONRPC: "2.0", ID: id, Result: result}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func writeError(w http.ResponseWriter, id interface{}, code int, message string) {
	resp := JSONRPCResponse{JSONRPC: "2.0", ID: id, Error: &RPCError{Code: code, Message: message}}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
