// Package server exposes an agent pod over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/boat-builder/opspod"
)

const maxRequestBytes = 4 << 20

// TurnRequest is the body of POST /v1/turns. Messages, when present, replace
// the stored history of the session.
type TurnRequest struct {
	SessionID string           `json:"session_id,omitempty" jsonschema:"description=Conversation id; a new one is assigned when empty"`
	Messages  []opspod.Message `json:"messages,omitempty" jsonschema:"description=Prior conversation; roles human or assistant"`
	Input     string           `json:"input" jsonschema:"required,description=The new human message"`
}

type TurnResponse struct {
	SessionID string           `json:"session_id"`
	Input     []opspod.Message `json:"input"`
	Output    []opspod.Message `json:"output"`
	Warning   string           `json:"warning,omitempty"`
	CostUSD   *float64         `json:"cost_usd,omitempty"`
}

type ToolInfo struct {
	Skill       string         `json:"skill"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type Server struct {
	pod    *opspod.Pod
	mux    *http.ServeMux
	logger *slog.Logger
}

func New(pod *opspod.Pod, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{pod: pod, mux: http.NewServeMux(), logger: logger}
	s.mux.HandleFunc("POST /v1/turns", s.handleTurn)
	s.mux.HandleFunc("GET /v1/turns/schema", s.handleTurnSchema)
	s.mux.HandleFunc("GET /v1/tools", s.handleTools)
	s.mux.HandleFunc("GET /v1/stream", s.handleStream)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleTurnSchema(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, opspod.SchemaMap(opspod.GenerateSchema[TurnRequest]()))
}

func (s *Server) handleTools(w http.ResponseWriter, _ *http.Request) {
	tools := []ToolInfo{}
	for _, skill := range s.pod.Agent.Skills() {
		for _, tool := range skill.Tools {
			tools = append(tools, ToolInfo{
				Skill:       skill.Name,
				Name:        tool.Name(),
				Description: tool.Description(),
				Parameters:  tool.Parameters(),
			})
		}
	}
	writeJSON(w, http.StatusOK, tools)
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	var req TurnRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	prior, err := normalize(req.Messages)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	session := s.pod.NewSession(r.Context(), req.SessionID)
	defer session.Close()

	var result *opspod.TurnResult
	if req.Messages != nil {
		result, err = session.TurnWith(r.Context(), prior, req.Input)
	} else {
		result, err = session.Turn(r.Context(), req.Input)
	}
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, opspod.ErrNoMessage):
			status = http.StatusBadRequest
		case errors.Is(err, opspod.ErrAgentExecutionFailed):
			status = http.StatusBadGateway
		}
		s.logger.Error("Turn failed", "sessionID", session.ID(), "error", err)
		respondError(w, status, err.Error())
		return
	}

	resp := TurnResponse{SessionID: session.ID(), Input: result.Input, Output: result.Output}
	if result.Warning != nil {
		resp.Warning = result.Warning.Error()
	}
	if cost, ok := session.Cost(); ok {
		resp.CostUSD = &cost.TotalCost
	}
	writeJSON(w, http.StatusOK, resp)
}

// normalize maps role aliases such as "user" and "ai" onto message roles.
func normalize(msgs []opspod.Message) ([]opspod.Message, error) {
	out := make([]opspod.Message, 0, len(msgs))
	for _, m := range msgs {
		role, err := opspod.ParseRole(string(m.Role))
		if err != nil {
			return nil, err
		}
		m.Role = role
		out = append(out, m)
	}
	return out, nil
}

func respondError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
