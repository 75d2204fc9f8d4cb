package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/arturoeanton/launchpad-match/internal/domain"
	"github.com/arturoeanton/launchpad-match/internal/port"
	"github.com/arturoeanton/launchpad-match/internal/service"
)

type fakeMatcher struct {
	lastMode  string
	lastLimit int
}

func (f *fakeMatcher) outcome(mode, id string, limit int) (*service.MatchOutcome, error) {
	f.lastMode, f.lastLimit = mode, limit
	if id != "c1" {
		return nil, port.ErrCandidateNotFound
	}
	return &service.MatchOutcome{
		Candidate: &domain.Candidate{ID: id},
		Matches: []domain.MatchResult{{
			Job:     domain.Job{ID: "j1", Title: "Go Dev", Company: "Acme"},
			Score:   72.5,
			Reasons: []string{"💼 Experience level matches"},
		}},
		Mode: mode,
	}, nil
}

func (f *fakeMatcher) Match(_ context.Context, id string, limit int) (*service.MatchOutcome, error) {
	return f.outcome(domain.MatchModeSemantic, id, limit)
}

func (f *fakeMatcher) Fallback(_ context.Context, id string, limit int) (*service.MatchOutcome, error) {
	return f.outcome(domain.MatchModeFallback, id, limit)
}

type fakeCandidates struct{}

func (fakeCandidates) Get(_ context.Context, id string) (*domain.Candidate, error) {
	if id != "c1" {
		return nil, port.ErrCandidateNotFound
	}
	return &domain.Candidate{ID: id, Name: "Ada", Location: "Boston", Skills: []string{"Go"}}, nil
}

func rpc(t *testing.T, srv *httptest.Server, method string, params any) JSONRPCResponse {
	t.Helper()
	raw, _ := json.Marshal(params)
	body, _ := json.Marshal(JSONRPCRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: raw})
	resp, err := http.Post(srv.URL+"/mcp", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out JSONRPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	return out
}

func newTestServer(t *testing.T) (*httptest.Server, *fakeMatcher) {
	m := &fakeMatcher{}
	srv := httptest.NewServer(NewServer(m, fakeCandidates{}, "0", nil).Handler())
	t.Cleanup(srv.Close)
	return srv, m
}

func TestToolsList(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := rpc(t, srv, "tools/list", nil)
	data, _ := json.Marshal(resp.Result)
	for _, name := range []string{"match_jobs", "fallback_match", "get_candidate"} {
		if !strings.Contains(string(data), `"`+name+`"`) {
			t.Fatalf("tool %s missing from %s", name, data)
		}
	}
}

func TestToolCalls(t *testing.T) {
	tests := []struct {
		name     string
		tool     string
		args     map[string]any
		wantText string
		wantErr  bool
		wantMode string
	}{
		{name: "match", tool: "match_jobs", args: map[string]any{"candidate_id": "c1", "limit": 3}, wantText: "1. Go Dev at Acme, score 72.5", wantMode: domain.MatchModeSemantic},
		{name: "fallback", tool: "fallback_match", args: map[string]any{"candidate_id": "c1"}, wantText: "fallback mode", wantMode: domain.MatchModeFallback},
		{name: "candidate", tool: "get_candidate", args: map[string]any{"candidate_id": "c1"}, wantText: "Ada (Boston)"},
		{name: "unknown candidate", tool: "match_jobs", args: map[string]any{"candidate_id": "zz"}, wantErr: true},
		{name: "missing id", tool: "get_candidate", args: map[string]any{}, wantErr: true},
		{name: "unknown tool", tool: "search_code", args: map[string]any{"candidate_id": "c1"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, m := newTestServer(t)
			resp := rpc(t, srv, "tools/call", map[string]any{"name": tt.tool, "arguments": tt.args})
			if tt.wantErr {
				if resp.Error == nil || resp.Error.Code != -32603 {
					t.Fatalf("expected tool error, got %+v", resp)
				}
				return
			}
			if resp.Error != nil {
				t.Fatalf("unexpected error: %+v", resp.Error)
			}
			data, _ := json.Marshal(resp.Result)
			if !strings.Contains(string(data), tt.wantText) {
				t.Fatalf("result %s does not contain %q", data, tt.wantText)
			}
			if tt.wantMode != "" && m.lastMode != tt.wantMode {
				t.Fatalf("mode = %q, want %q", m.lastMode, tt.wantMode)
			}
		})
	}
}

func TestUnknownMethodAndVerb(t *testing.T) {
	srv, _ := newTestServer(t)
	if resp := rpc(t, srv, "resources/list", nil); resp.Error == nil || resp.Error.Code != -32601 {
		t.Fatalf("expected method not found, got %+v", resp)
	}
	resp, err := http.Get(srv.URL + "/mcp")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("GET /mcp status = %d", resp.StatusCode)
	}
}
