package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/kevinmichaelchen/star-sync/internal/config"
	"github.com/kevinmichaelchen/star-sync/internal/ledger"
	"github.com/kevinmichaelchen/star-sync/internal/models"
	"github.com/kevinmichaelchen/star-sync/internal/publish"
	"github.com/kevinmichaelchen/star-sync/internal/render"
	"github.com/kevinmichaelchen/star-sync/internal/surrealdb"
)

// DocumentTarget renders the repos into a document, keeps a local copy of
// it in the cache directory, and hands it to a publisher.
type DocumentTarget struct {
	name      string
	render    render.Func
	publisher publish.Publisher
	cachePath string
}

func NewDocumentTarget(name string, fn render.Func, p publish.Publisher, cachePath string) *DocumentTarget {
	return &DocumentTarget{name: name, render: fn, publisher: p, cachePath: cachePath}
}

func (d *DocumentTarget) Name() string { return d.name }

func (d *DocumentTarget) Sync(ctx context.Context, repos []models.Repo, aiEnabled bool, syncedAt time.Time, prev *ledger.Ledger) (string, error) {
	doc := d.render(repos, aiEnabled, syncedAt)
	if d.cachePath != "" {
		if err := writeDocument(d.cachePath, doc); err != nil {
			slog.Warn("could not write local document", "target", d.name, "path", d.cachePath, "error", err)
		}
	}
	return d.publisher.Publish(ctx, doc, prev)
}

func writeDocument(path, doc string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(doc), 0o644)
}

// BuildTargets returns the targets named in cfg.Targets, in order.
// Unknown names are logged and ignored.
func BuildTargets(cfg *config.Config) []Target {
	var targets []Target
	for _, name := range cfg.Targets {
		switch name {
		case config.TargetSiYuan:
			targets = append(targets, NewDocumentTarget(name, render.Table,
				publish.NewSiYuan(cfg), filepath.Join(cfg.CacheDir, "siyuan_table.md")))
		case config.TargetObsidian:
			targets = append(targets, NewDocumentTarget(name, render.VaultTable,
				publish.NewObsidian(cfg), filepath.Join(cfg.CacheDir, "obsidian_table.md")))
		case config.TargetLogseq:
			targets = append(targets, NewDocumentTarget(name, render.Outline,
				publish.NewLogseq(cfg), filepath.Join(cfg.CacheDir, "logseq_blocks.md")))
		case config.TargetSurreal:
			targets = append(targets, surrealdb.NewTarget(cfg))
		default:
			slog.Warn("unknown sync target, ignoring", "target", name)
		}
	}
	return targets
}
