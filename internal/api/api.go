// Package api serves the HTTP endpoints used by `star-sync serve` to
// trigger a cycle and report on the last one.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kevinmichaelchen/star-sync/internal/ledger"
	"github.com/kevinmichaelchen/star-sync/internal/logging"
	"github.com/kevinmichaelchen/star-sync/internal/models"
	"github.com/kevinmichaelchen/star-sync/internal/pipeline"
)

// Syncer runs cycles and exposes the current ledger.
type Syncer interface {
	RunCycle(ctx context.Context, force bool) (pipeline.Outcome, error)
	State() *ledger.Ledger
}

type StatusResponse struct {
	LastSync  time.Time         `json:"lastSync,omitzero"`
	Repos     int               `json:"repos"`
	Labeled   int               `json:"labeled"`
	AIEnabled bool              `json:"aiEnabled"`
	Stats     models.Stats      `json:"stats"`
	Handles   map[string]string `json:"handles,omitempty"`
}

func NewHandler(s Syncer) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)
	r.Get("/status", handleStatus(s))
	r.Post("/sync", handleSync(s))

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleStatus(s Syncer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, Status(s.State()))
	}
}

// Status summarizes a ledger for display.
func Status(l *ledger.Ledger) StatusResponse {
	if l == nil {
		return StatusResponse{}
	}
	labeled := 0
	for _, e := range l.Repos {
		if e.HasLabels() {
			labeled++
		}
	}
	return StatusResponse{
		LastSync:  l.LastSync,
		Repos:     len(l.Repos),
		Labeled:   labeled,
		AIEnabled: l.AIEnabled,
		Stats:     l.Stats,
		Handles:   l.Handles,
	}
}

func handleSync(s Syncer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		force := false
		if v := r.URL.Query().Get("force"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				httpError(w, http.StatusBadRequest, "invalid force value %q", v)
				return
			}
			force = b
		}

		// Cycles run to completion even if the client disconnects.
		out, err := s.RunCycle(context.WithoutCancel(r.Context()), force)
		switch {
		case errors.Is(err, pipeline.ErrCycleInProgress):
			httpError(w, http.StatusConflict, "%v", err)
		case err != nil:
			slog.Error("triggered sync failed", logging.ErrorAttrs("sync", err)...)
			httpError(w, http.StatusInternalServerError, "sync failed: %v", err)
		default:
			writeJSON(w, http.StatusOK, out)
		}
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, format string, args ...any) {
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"message": fmt.Sprintf(format, args...),
			"code":    code,
		},
	})
}
