// Package httpapi exposes the assessment pipeline over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"creditlens/internal/pipeline"
	"creditlens/internal/store"
)

// Runner executes one assessment. *pipeline.Orchestrator satisfies it.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
}

// Archive persists finished runs. *store.Store satisfies it; nil disables
// persistence and the history endpoint reports it as unavailable.
type Archive interface {
	Save(res pipeline.Result) (int64, error)
	History(entityName string, limit int) ([]store.Record, error)
}

type Server struct {
	runner  Runner
	archive Archive
}

func NewServer(runner Runner, archive Archive) http.Handler {
	s := &Server{runner: runner, archive: archive}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/entities/analyze", s.handleAnalyze)
	mux.HandleFunc("/v1/entities/history", s.handleHistory)
	mux.HandleFunc("/v1/health", s.handleHealth)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"ok": false,
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}

func methodOnly(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	blob, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, 400, "invalid_input", err.Error())
		return
	}
	var req pipeline.Request
	if err := json.Unmarshal(blob, &req); err != nil {
		writeError(w, 400, "invalid_input", "malformed JSON body: "+err.Error())
		return
	}

	res, err := s.runner.Run(r.Context(), req)
	if err != nil {
		if errors.Is(err, pipeline.ErrInvalidInput) {
			writeError(w, 400, "invalid_input", err.Error())
			return
		}
		var se *pipeline.StageError
		if errors.As(err, &se) {
			// Only profile acquisition is fatal mid-run; without it there
			// is no subject to score.
			writeError(w, 502, "upstream_failed", se.Error())
			return
		}
		writeError(w, 500, "internal", err.Error())
		return
	}

	if s.archive != nil {
		if _, err := s.archive.Save(res); err != nil {
			log.Printf("httpapi archive save failed entity=%q err=%v", res.EntityName, err)
		}
	}
	writeJSON(w, 200, res)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	if s.archive == nil {
		writeError(w, 503, "unavailable", "persistence disabled")
		return
	}
	entity := strings.TrimSpace(r.URL.Query().Get("entity"))
	if entity == "" {
		writeError(w, 400, "invalid_input", "entity query parameter required")
		return
	}
	limit := 20
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	records, err := s.archive.History(entity, limit)
	if err != nil {
		writeError(w, 500, "internal", err.Error())
		return
	}
	writeJSON(w, 200, map[string]any{"entity_name": entity, "assessments": records})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true, "persistence": s.archive != nil})
}
