package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/deusflow/musive/internal/app"
	"github.com/deusflow/musive/internal/news"
	"github.com/deusflow/musive/internal/storage"
)

type fakeRunner struct {
	digest news.Digest
	err    error
	last   news.Digest
}

func (f fakeRunner) Preview(context.Context) (news.Digest, error) {
	return f.digest, f.err
}

func (f fakeRunner) Last() news.Digest {
	return f.last
}

type fakeHistory struct {
	runs      []storage.DigestRun
	err       error
	lastLimit int
}

func (f *fakeHistory) Recent(_ context.Context, limit int) ([]storage.DigestRun, error) {
	f.lastLimit = limit
	return f.runs, f.err
}

type fakeStats map[string]interface{}

func (f fakeStats) GetStats() map[string]interface{} { return f }

func serve(t *testing.T, runner Runner, path string) *httptest.ResponseRecorder {
	t.Helper()
	return serveDeps(t, Deps{Runner: runner}, path)
}

func serveDeps(t *testing.T, deps Deps, path string) *httptest.ResponseRecorder {
	t.Helper()
	router := NewRouter(NewHandler(deps, nil))
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestGetDigest(t *testing.T) {
	runner := fakeRunner{digest: news.Digest{Items: []news.Item{
		{Source: "NME", Title: "Tour", InterestLevel: 90, Published: time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)},
		{Source: "Billboard", Title: "Album", InterestLevel: 70},
	}}}

	w := serve(t, runner, "/api/digest")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body struct {
		Count int `json:"count"`
		Data  []struct {
			Source        string `json:"source"`
			Title         string `json:"title"`
			PubDate       string `json:"pubDate"`
			InterestLevel int    `json:"interestLevel"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body.Count != 2 || len(body.Data) != 2 {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
	if body.Data[0].Title != "Tour" || body.Data[0].InterestLevel != 90 || body.Data[0].PubDate == "" {
		t.Errorf("unexpected first item: %+v", body.Data[0])
	}
}

func TestGetDigestEmpty(t *testing.T) {
	w := serve(t, fakeRunner{}, "/api/digest")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := w.Body.String(); got != `{"count":0,"data":[]}` {
		t.Errorf("unexpected body %s", got)
	}
}

func TestGetDigestBusy(t *testing.T) {
	w := serve(t, fakeRunner{err: app.ErrRunInProgress}, "/api/digest")
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
}

func TestGetDigestFailure(t *testing.T) {
	w := serve(t, fakeRunner{err: errors.New("panic in run")}, "/api/digest")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	w := serve(t, fakeRunner{}, "/metrics")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var stats map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if _, ok := stats["digests_delivered"]; !ok {
		t.Error("metrics should include delivery counters")
	}
}

func TestHealthEndpoint(t *testing.T) {
	w := serve(t, fakeRunner{}, "/health")
	if w.Code != http.StatusOK && w.Code != http.StatusServiceUnavailable {
		t.Fatalf("unexpected status %d", w.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if _, ok := body["status"]; !ok {
		t.Error("health body should include status")
	}
}

func TestGetLastDigest(t *testing.T) {
	w := serve(t, fakeRunner{}, "/api/digest/last")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 before any run, got %d", w.Code)
	}

	last := news.Digest{RunID: "run-7", Items: []news.Item{{Title: "Tour", InterestLevel: 80}}}
	w = serve(t, fakeRunner{last: last}, "/api/digest/last")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		RunID string      `json:"runId"`
		Count int         `json:"count"`
		Data  []news.Item `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body.RunID != "run-7" || body.Count != 1 || body.Data[0].Title != "Tour" {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

func TestGetHistory(t *testing.T) {
	history := &fakeHistory{runs: []storage.DigestRun{{ID: "run-1", Size: 15}, {ID: "run-0", Size: 12}}}
	deps := Deps{Runner: fakeRunner{}, History: history}

	w := serveDeps(t, deps, "/api/history?limit=500")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if history.lastLimit != 100 {
		t.Errorf("limit should be capped at 100, got %d", history.lastLimit)
	}
	var body struct {
		Count int                 `json:"count"`
		Data  []storage.DigestRun `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body.Count != 2 || body.Data[0].ID != "run-1" {
		t.Errorf("unexpected body: %s", w.Body.String())
	}

	if w := serveDeps(t, deps, "/api/history?limit=abc"); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad limit, got %d", w.Code)
	}

	history.err = errors.New("connection refused")
	if w := serveDeps(t, deps, "/api/history"); w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 on query failure, got %d", w.Code)
	}
	if history.lastLimit != 7 {
		t.Errorf("default limit should be 7, got %d", history.lastLimit)
	}
}

func TestHistoryRouteRequiresDatabase(t *testing.T) {
	if w := serve(t, fakeRunner{}, "/api/history"); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 without history store, got %d", w.Code)
	}
}

func TestMetricsIncludeBudget(t *testing.T) {
	deps := Deps{Runner: fakeRunner{}, Stats: fakeStats{"judge_calls_used": 12, "judge_calls_limit": 100}}
	w := serveDeps(t, deps, "/metrics")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var stats map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if stats["judge_calls_used"] != float64(12) || stats["judge_calls_limit"] != float64(100) {
		t.Errorf("budget stats missing: %v", stats)
	}
	if _, ok := stats["digests_delivered"]; !ok {
		t.Error("pipeline counters should remain")
	}
}
