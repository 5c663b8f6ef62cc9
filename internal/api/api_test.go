package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kevinmichaelchen/star-sync/internal/ledger"
	"github.com/kevinmichaelchen/star-sync/internal/models"
	"github.com/kevinmichaelchen/star-sync/internal/pipeline"
)

type fakeSyncer struct {
	state  *ledger.Ledger
	out    pipeline.Outcome
	err    error
	forced []bool
}

func (f *fakeSyncer) RunCycle(_ context.Context, force bool) (pipeline.Outcome, error) {
	f.forced = append(f.forced, force)
	return f.out, f.err
}

func (f *fakeSyncer) State() *ledger.Ledger { return f.state }

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestHealth(t *testing.T) {
	rec := do(t, NewHandler(&fakeSyncer{}), http.MethodGet, "/health")
	if rec.Code != http.StatusOK || rec.Body.String() != `{"status":"ok"}` {
		t.Errorf("got %d %s", rec.Code, rec.Body.String())
	}
}

func TestStatus(t *testing.T) {
	l := ledger.New()
	l.LastSync = time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	l.AIEnabled = true
	l.Repos["1"] = ledger.Entry{ID: "1", Tags: []string{"cli"}}
	l.Repos["2"] = ledger.Entry{ID: "2"}
	l.Handles["siyuan"] = "doc-1"
	l.Stats = models.Stats{Added: 2}

	rec := do(t, NewHandler(&fakeSyncer{state: l}), http.MethodGet, "/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var got StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Repos != 2 || got.Labeled != 1 || !got.AIEnabled || got.Handles["siyuan"] != "doc-1" || got.Stats.Added != 2 {
		t.Errorf("status = %+v", got)
	}
	if !got.LastSync.Equal(l.LastSync) {
		t.Errorf("lastSync = %v", got.LastSync)
	}
}

func TestStatusEmptyLedger(t *testing.T) {
	rec := do(t, NewHandler(&fakeSyncer{}), http.MethodGet, "/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestSync(t *testing.T) {
	f := &fakeSyncer{out: pipeline.Outcome{RunID: "run-1", Repos: 3}}
	h := NewHandler(f)

	rec := do(t, h, http.MethodPost, "/sync?force=true")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var out pipeline.Outcome
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil || out.RunID != "run-1" || out.Repos != 3 {
		t.Errorf("outcome = %+v, err = %v", out, err)
	}

	do(t, h, http.MethodPost, "/sync")
	if len(f.forced) != 2 || !f.forced[0] || f.forced[1] {
		t.Errorf("force flags = %v", f.forced)
	}
}

func TestSyncErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target string
		want   int
	}{
		{"in progress", pipeline.ErrCycleInProgress, "/sync", http.StatusConflict},
		{"failure", errors.New("fetch failed"), "/sync", http.StatusInternalServerError},
		{"bad force", nil, "/sync?force=maybe", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, NewHandler(&fakeSyncer{err: tt.err}), http.MethodPost, tt.target)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestSyncRequiresPost(t *testing.T) {
	rec := do(t, NewHandler(&fakeSyncer{}), http.MethodGet, "/sync")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d", rec.Code)
	}
}
