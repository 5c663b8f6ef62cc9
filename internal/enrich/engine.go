// Package enrich decides, per starred repo, whether previously computed AI
// labels are still valid, classifies the ones that are not, and falls back
// to deterministic labels when classification fails.
package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kevinmichaelchen/star-sync/internal/ledger"
	"github.com/kevinmichaelchen/star-sync/internal/logging"
	"github.com/kevinmichaelchen/star-sync/internal/models"
)

const (
	DefaultBatchSize  = 20
	DefaultBatchDelay = 400 * time.Millisecond
)

// Classifier produces tags and technologies for a batch of repos. Results
// are matched back by ID; order is not significant. Any failure, including a
// malformed response, is reported as an error.
type Classifier interface {
	Classify(ctx context.Context, batch []models.ClassifyInput) ([]models.Metadata, error)
}

// Engine enriches a cycle's repos. It keeps no state between calls; every
// decision is recomputed from the ledger and the current data.
type Engine struct {
	classifier Classifier
	batchSize  int
	delay      time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
	logger     *slog.Logger
}

// NewEngine creates an Engine. A nil classifier means AI is unavailable and
// every repo is carried from history. batchSize and delay fall back to
// DefaultBatchSize and DefaultBatchDelay when <= 0.
func NewEngine(classifier Classifier, batchSize int, delay time.Duration) *Engine {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if delay <= 0 {
		delay = DefaultBatchDelay
	}
	return &Engine{
		classifier: classifier,
		batchSize:  batchSize,
		delay:      delay,
		sleep:      sleepCtx,
		logger:     slog.Default(),
	}
}

// WithLogger returns a copy of e that logs to l.
func (e *Engine) WithLogger(l *slog.Logger) *Engine {
	cp := *e
	cp.logger = l
	return &cp
}

// Result is the enriched repo sequence, in input order, plus cycle statistics.
type Result struct {
	Repos []models.Repo
	Stats models.Stats
}

type state int

const (
	unclassified state = iota
	stale
	fresh
)

func decide(hist *ledger.Entry, current models.Repo) state {
	if hist == nil || !hist.HasLabels() {
		return unclassified
	}
	if Fingerprint(current) != hist.AIFingerprint {
		return stale
	}
	return fresh
}

// Enrich assigns labels to every repo. The input slice is not modified.
//
// With aiEnabled false (or no classifier) every repo is carried from the
// ledger and no classification call is made. Otherwise repos whose ledger
// entry is missing, unlabeled or stale are classified in fixed-size batches,
// in input order, with a delay between batches.
func (e *Engine) Enrich(ctx context.Context, repos []models.Repo, prev *ledger.Ledger, aiEnabled bool) Result {
	out := make([]models.Repo, len(repos))
	hists := make([]*ledger.Entry, len(repos))
	var stats models.Stats
	var pending []int

	aiOn := aiEnabled && e.classifier != nil
	if !aiOn {
		e.logger.Info("AI disabled, using historical labels")
	}

	for i, r := range repos {
		if h, ok := prev.Lookup(r.ID); ok {
			hists[i] = &h
		}

		if !aiOn {
			out[i] = assign(r, hists[i], models.ProvenanceCarried, nil)
			if hists[i] != nil {
				stats.Carried++
			}
			continue
		}

		switch decide(hists[i], r) {
		case fresh:
			out[i] = assign(r, hists[i], models.ProvenanceCarried, nil)
			stats.Carried++
		case stale:
			e.logger.Debug("repo changed, regenerating labels", "repo", r.FullName)
			fallthrough
		default:
			out[i] = assign(r, hists[i], models.ProvenanceNone, nil)
			pending = append(pending, i)
		}
	}

	stats.Pending = len(pending)
	if len(pending) > 0 {
		e.classifyPending(ctx, repos, hists, pending, out, &stats)
	}

	prevIDs := prev.IDs()
	current := make(map[string]bool, len(out))
	for _, r := range out {
		current[r.ID] = true
		if !prevIDs[r.ID] {
			stats.Added++
		}
	}
	for id := range prevIDs {
		if !current[id] {
			stats.Removed++
		}
	}

	return Result{Repos: out, Stats: stats}
}

func (e *Engine) classifyPending(ctx context.Context, repos []models.Repo, hists []*ledger.Entry, pending []int, out []models.Repo, stats *models.Stats) {
	total := (len(pending) + e.batchSize - 1) / e.batchSize
	e.logger.Info("classifying repos", "pending", len(pending), "batches", total)

	for b := 0; b < total; b++ {
		if b > 0 {
			if err := e.sleep(ctx, e.delay); err != nil {
				e.logger.Warn("classification interrupted, remaining repos keep historical labels",
					"batch", b+1, "batches", total, "error", err)
				return
			}
		}

		start := b * e.batchSize
		end := min(start+e.batchSize, len(pending))
		idx := pending[start:end]
		stats.Batches++

		inputs := make([]models.ClassifyInput, len(idx))
		byID := make(map[string]int, len(idx))
		for j, i := range idx {
			inputs[j] = classifyInput(repos[i])
			byID[repos[i].ID] = i
		}

		e.logger.Info("classifying batch", "batch", b+1, "batches", total, "from", start+1, "to", end)

		metas, err := e.classifier.Classify(ctx, inputs)
		if err != nil {
			e.logger.Warn("classification failed, using default labels",
				logging.ErrorAttrs(fmt.Sprintf("batch %d/%d", b+1, total), err)...)
			for _, i := range idx {
				out[i] = assign(repos[i], hists[i], models.ProvenanceDefault, nil)
				stats.Fallback++
			}
			continue
		}

		answered := make(map[int]bool, len(idx))
		for _, m := range metas {
			i, ok := byID[m.ID]
			if !ok {
				e.logger.Warn("classifier returned an id that was not requested", "id", m.ID, "batch", b+1)
				continue
			}
			if answered[i] {
				continue
			}
			answered[i] = true
			out[i] = assign(repos[i], hists[i], models.ProvenanceClassified, &m)
			stats.AIUpdated++
		}
		if missing := len(idx) - len(answered); missing > 0 {
			e.logger.Warn("classifier omitted repos, they will be retried next cycle", "missing", missing, "batch", b+1)
		}

		e.logger.Info("batch complete", "batch", b+1, "batches", total, "ai_updated", stats.AIUpdated)
	}
}

// assign sets r's labels according to how they were obtained this cycle.
//
//   - classified: the classifier's labels, sanitized, with local defaults
//     standing in for an empty field; the fingerprint is recomputed.
//   - default: local defaults, or history when the defaults are empty; no
//     fingerprint is committed so the repo is retried next cycle.
//   - carried / none: history verbatim (empty without history).
func assign(r models.Repo, hist *ledger.Entry, how models.Provenance, meta *models.Metadata) models.Repo {
	var histTags, histTech []string
	var histFP string
	if hist != nil {
		histTags, histTech, histFP = hist.Tags, hist.Technologies, hist.AIFingerprint
	}

	switch how {
	case models.ProvenanceClassified:
		r.Tags = Sanitize(meta.Tags, DefaultTags(r))
		r.Technologies = Sanitize(meta.Technologies, DefaultTechnologies(r))
		r.AIFingerprint = Fingerprint(r)
	case models.ProvenanceDefault:
		r.Tags = Sanitize(DefaultTags(r), cloneStrings(histTags))
		r.Technologies = Sanitize(DefaultTechnologies(r), cloneStrings(histTech))
		r.AIFingerprint = ""
	default:
		r.Tags = cloneStrings(histTags)
		r.Technologies = cloneStrings(histTech)
		r.AIFingerprint = histFP
	}

	r.Provenance = how
	return r
}

func classifyInput(r models.Repo) models.ClassifyInput {
	return models.ClassifyInput{
		ID:          r.ID,
		Name:        r.Name,
		FullName:    r.FullName,
		Description: r.Description,
		Language:    r.Language,
		Topics:      r.Topics,
		Archived:    r.Archived,
	}
}

func cloneStrings(s []string) []string {
	if len(s) == 0 {
		return []string{}
	}
	return append([]string(nil), s...)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
