package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"creditlens/internal/pipeline"
	"creditlens/internal/risk"
	"creditlens/internal/store"
)

type stubRunner struct {
	res pipeline.Result
	err error
}

func (s stubRunner) Run(ctx context.Context, req pipeline.Request) (pipeline.Result, error) {
	if s.err != nil {
		return pipeline.Result{}, s.err
	}
	if err := req.Validate(); err != nil {
		return pipeline.Result{}, err
	}
	return s.res, nil
}

type stubArchive struct {
	saved   []pipeline.Result
	history []store.Record
	err     error
}

func (s *stubArchive) Save(res pipeline.Result) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.saved = append(s.saved, res)
	return int64(len(s.saved)), nil
}

func (s *stubArchive) History(entityName string, limit int) ([]store.Record, error) {
	return s.history, s.err
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAnalyzeSuccess(t *testing.T) {
	archive := &stubArchive{}
	h := NewServer(stubRunner{res: pipeline.Result{
		EntityName: "PT Contoh",
		Assessment: risk.Assessment{RiskScore: 12.3, RiskTier: risk.TierLow},
	}}, archive)

	rec := doRequest(t, h, http.MethodPost, "/v1/entities/analyze", `{"entity_name":"PT Contoh"}`)
	if rec.Code != 200 {
		t.Fatalf("status: %d body=%s", rec.Code, rec.Body.String())
	}
	var res pipeline.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if res.EntityName != "PT Contoh" || res.Assessment.RiskScore != 12.3 {
		t.Fatalf("response: %+v", res)
	}
	if len(archive.saved) != 1 {
		t.Fatalf("expected 1 archived run, got %d", len(archive.saved))
	}
}

func TestAnalyzeInvalidInput(t *testing.T) {
	h := NewServer(stubRunner{}, nil)

	rec := doRequest(t, h, http.MethodPost, "/v1/entities/analyze", `{"entity_name":"X"}`)
	if rec.Code != 400 {
		t.Fatalf("status: %d", rec.Code)
	}
	if rec = doRequest(t, h, http.MethodPost, "/v1/entities/analyze", `not json`); rec.Code != 400 {
		t.Fatalf("malformed body status: %d", rec.Code)
	}
}

func TestAnalyzeUpstreamFailure(t *testing.T) {
	h := NewServer(stubRunner{err: &pipeline.StageError{Stage: "profile", Err: errors.New("provider down")}}, nil)

	rec := doRequest(t, h, http.MethodPost, "/v1/entities/analyze", `{"entity_name":"PT Contoh"}`)
	if rec.Code != 502 {
		t.Fatalf("status: %d body=%s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "upstream_failed") {
		t.Fatalf("body: %s", rec.Body.String())
	}
}

func TestAnalyzeArchiveFailureIsNotFatal(t *testing.T) {
	archive := &stubArchive{err: errors.New("disk full")}
	h := NewServer(stubRunner{res: pipeline.Result{EntityName: "PT Contoh"}}, archive)

	rec := doRequest(t, h, http.MethodPost, "/v1/entities/analyze", `{"entity_name":"PT Contoh"}`)
	if rec.Code != 200 {
		t.Fatalf("persistence failure must not fail the request: %d", rec.Code)
	}
}

func TestAnalyzeMethodNotAllowed(t *testing.T) {
	h := NewServer(stubRunner{}, nil)
	if rec := doRequest(t, h, http.MethodGet, "/v1/entities/analyze", ""); rec.Code != 405 {
		t.Fatalf("status: %d", rec.Code)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	archive := &stubArchive{history: []store.Record{{EntityName: "PT Contoh", RiskScore: 55}}}
	h := NewServer(stubRunner{}, archive)

	rec := doRequest(t, h, http.MethodGet, "/v1/entities/history?entity=PT+Contoh&limit=5", "")
	if rec.Code != 200 {
		t.Fatalf("status: %d", rec.Code)
	}
	var payload struct {
		EntityName  string         `json:"entity_name"`
		Assessments []store.Record `json:"assessments"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.EntityName != "PT Contoh" || len(payload.Assessments) != 1 {
		t.Fatalf("payload: %+v", payload)
	}
}

func TestHistoryRequiresEntity(t *testing.T) {
	h := NewServer(stubRunner{}, &stubArchive{})
	if rec := doRequest(t, h, http.MethodGet, "/v1/entities/history", ""); rec.Code != 400 {
		t.Fatalf("status: %d", rec.Code)
	}
}

func TestHistoryWithoutArchive(t *testing.T) {
	h := NewServer(stubRunner{}, nil)
	if rec := doRequest(t, h, http.MethodGet, "/v1/entities/history?entity=PT+Contoh", ""); rec.Code != 503 {
		t.Fatalf("status: %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	h := NewServer(stubRunner{}, &stubArchive{})
	rec := doRequest(t, h, http.MethodGet, "/v1/health", "")
	if rec.Code != 200 || !strings.Contains(rec.Body.String(), `"persistence":true`) {
		t.Fatalf("health: %d %s", rec.Code, rec.Body.String())
	}
}
