package publish

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/kevinmichaelchen/star-sync/internal/config"
	"github.com/kevinmichaelchen/star-sync/internal/ledger"
)

// File publishes a document as a markdown file under a root directory,
// such as an Obsidian vault or a Logseq graph. The handle is the absolute
// file path.
type File struct {
	name     string
	root     string
	relPath  string
	fallback string
}

func NewObsidian(cfg *config.Config) *File {
	return &File{
		name:     config.TargetObsidian,
		root:     cfg.ObsidianVaultPath,
		relPath:  cfg.ObsidianFilePath,
		fallback: "GitHub/Stars.md",
	}
}

func NewLogseq(cfg *config.Config) *File {
	return &File{
		name:     config.TargetLogseq,
		root:     cfg.LogseqGraphPath,
		relPath:  cfg.LogseqPagePath,
		fallback: "pages/github-stars.md",
	}
}

// Path resolves the destination file, ensuring a .md extension.
func (f *File) Path() (string, error) {
	rel := strings.TrimSpace(f.relPath)
	if rel == "" {
		rel = f.fallback
	}
	if !strings.HasSuffix(strings.ToLower(rel), ".md") {
		rel += ".md"
	}
	if filepath.IsAbs(rel) {
		return filepath.Clean(rel), nil
	}
	return filepath.Abs(filepath.Join(f.root, rel))
}

func (f *File) Publish(_ context.Context, doc string, _ *ledger.Ledger) (string, error) {
	if strings.TrimSpace(f.root) == "" {
		return "", ErrNotConfigured
	}

	path, err := f.Path()
	if err != nil {
		return "", fmt.Errorf("resolving %s path: %w", f.name, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating %s directory: %w", f.name, err)
	}
	if err := ledger.WriteFileAtomic(path, []byte(doc), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}

	slog.Info("wrote document", "target", f.name, "path", path)
	return path, nil
}
