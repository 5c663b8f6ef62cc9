// Package pipeline runs sync cycles: fetch stars, enrich them against the
// ledger, publish to every target and persist the next ledger.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/kevinmichaelchen/star-sync/internal/config"
	"github.com/kevinmichaelchen/star-sync/internal/enrich"
	"github.com/kevinmichaelchen/star-sync/internal/github"
	"github.com/kevinmichaelchen/star-sync/internal/ledger"
	"github.com/kevinmichaelchen/star-sync/internal/logging"
	"github.com/kevinmichaelchen/star-sync/internal/models"
	"github.com/kevinmichaelchen/star-sync/internal/publish"
	"golang.org/x/sync/semaphore"
)

const rawCacheFile = "starred_repos.json"

// ErrCycleInProgress is returned when a cycle is triggered while another
// one is still running in this process.
var ErrCycleInProgress = errors.New("sync cycle already in progress")

// Fetcher lists the authenticated user's starred repos.
type Fetcher interface {
	FetchStarred(ctx context.Context) ([]github.StarRecord, error)
}

// Target receives the enriched repos of a cycle and returns a handle that
// locates what it wrote. prev is the ledger before this cycle.
type Target interface {
	Name() string
	Sync(ctx context.Context, repos []models.Repo, aiEnabled bool, syncedAt time.Time, prev *ledger.Ledger) (string, error)
}

// Outcome summarizes one RunCycle call.
type Outcome struct {
	RunID   string            `json:"runId"`
	Skipped bool              `json:"skipped"`
	Repos   int               `json:"repos"`
	Stats   models.Stats      `json:"stats"`
	Handles map[string]string `json:"handles,omitempty"`
	Failed  []string          `json:"failed,omitempty"`
}

type Runner struct {
	fetcher   Fetcher
	engine    *enrich.Engine
	targets   []Target
	statePath string
	cacheDir  string
	loc       *time.Location
	aiEnabled bool

	guard *semaphore.Weighted
	mu    sync.RWMutex
	state *ledger.Ledger

	now    func() time.Time
	logger *slog.Logger
}

// NewRunner loads the ledger from cfg.StateFile and prepares a runner.
func NewRunner(cfg *config.Config, fetcher Fetcher, engine *enrich.Engine, targets []Target) *Runner {
	return &Runner{
		fetcher:   fetcher,
		engine:    engine,
		targets:   targets,
		statePath: cfg.StateFile,
		cacheDir:  cfg.CacheDir,
		loc:       loadLocation(cfg.Timezone),
		aiEnabled: cfg.AIAvailable(),
		guard:     semaphore.NewWeighted(1),
		state:     ledger.Load(cfg.StateFile),
		now:       time.Now,
		logger:    slog.Default(),
	}
}

func loadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		slog.Warn("unknown time zone, using UTC", "tz", name, "error", err)
		return time.UTC
	}
	return loc
}

// State returns the ledger as of the last completed cycle. Callers must not
// modify it.
func (r *Runner) State() *ledger.Ledger {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// SyncedToday reports whether the last completed cycle fell on the current
// calendar day in the runner's time zone.
func (r *Runner) SyncedToday() bool {
	return sameDay(r.State().LastSync, r.now(), r.loc)
}

func sameDay(a, b time.Time, loc *time.Location) bool {
	if a.IsZero() {
		return false
	}
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// RunCycle runs one sync cycle. Unless force is set, a cycle is skipped when
// one already completed today. A fetch failure, cancellation of ctx or a
// failed ledger write aborts the cycle without touching the ledger file.
// Target failures are logged and leave that target's previous handle in place.
func (r *Runner) RunCycle(ctx context.Context, force bool) (Outcome, error) {
	if !r.guard.TryAcquire(1) {
		r.logger.Warn("sync already running, skipping trigger")
		return Outcome{}, ErrCycleInProgress
	}
	defer r.guard.Release(1)

	out := Outcome{RunID: uuid.NewString()}
	log := r.logger.With("run", out.RunID)
	start := r.now()

	prev := r.State()
	if !force && sameDay(prev.LastSync, start, r.loc) {
		log.Info("already synced today, skipping", "lastSync", prev.LastSync)
		out.Skipped = true
		return out, nil
	}

	log.Info("fetching starred repos")
	records, err := r.fetcher.FetchStarred(ctx)
	if err != nil {
		return out, fmt.Errorf("fetching starred repos: %w", err)
	}
	r.writeRawCache(log, records)

	repos := github.Normalize(records, start)
	log.Info("fetched starred repos", "records", len(records), "repos", len(repos))

	res := r.engine.WithLogger(log).Enrich(ctx, repos, prev, r.aiEnabled)
	if err := ctx.Err(); err != nil {
		return out, fmt.Errorf("cycle interrupted: %w", err)
	}
	out.Repos = len(res.Repos)
	out.Stats = res.Stats

	handles := make(map[string]string, len(r.targets))
	for _, t := range r.targets {
		handle, err := t.Sync(ctx, res.Repos, r.aiEnabled, start, prev)
		switch {
		case errors.Is(err, publish.ErrNotConfigured):
			log.Warn("target not configured, skipping", "target", t.Name())
		case err != nil:
			log.Error("target sync failed", logging.ErrorAttrs(t.Name(), err)...)
			out.Failed = append(out.Failed, t.Name())
		case handle != "":
			handles[t.Name()] = handle
		}
	}
	out.Handles = handles
	if err := ctx.Err(); err != nil {
		return out, fmt.Errorf("cycle interrupted: %w", err)
	}

	next := ledger.BuildNext(res.Repos, prev, handles, res.Stats, r.aiEnabled, r.now())
	if err := next.Save(r.statePath); err != nil {
		return out, fmt.Errorf("saving ledger: %w", err)
	}

	r.mu.Lock()
	r.state = next
	r.mu.Unlock()

	log.Info("sync complete",
		"repos", out.Repos,
		"added", res.Stats.Added,
		"removed", res.Stats.Removed,
		"aiUpdated", res.Stats.AIUpdated,
		"fallback", res.Stats.Fallback,
		"failedTargets", len(out.Failed),
		"took", time.Since(start).Round(time.Millisecond),
	)
	return out, nil
}

func (r *Runner) writeRawCache(log *slog.Logger, records []github.StarRecord) {
	if r.cacheDir == "" {
		return
	}
	path := filepath.Join(r.cacheDir, rawCacheFile)
	if err := writeCache(path, records); err != nil {
		log.Warn("could not write raw cache", "path", path, "error", err)
	}
}

func writeCache(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
