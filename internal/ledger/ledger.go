// Package ledger holds the single persisted state file that tracks each
// starred repo's classification history and the last sync's metadata.
package ledger

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/kevinmichaelchen/star-sync/internal/models"
)

const CurrentVersion = "2"

// Entry is the persisted subset of a repo.
type Entry struct {
	ID            string    `json:"id"`
	FullName      string    `json:"fullName"`
	UpdatedAt     time.Time `json:"updatedAt"`
	Tags          []string  `json:"tags,omitempty"`
	Technologies  []string  `json:"technologies,omitempty"`
	AIFingerprint string    `json:"aiFingerprint,omitempty"`
}

// HasLabels reports whether the entry carries any tags or technologies.
func (e Entry) HasLabels() bool {
	return len(e.Tags) > 0 || len(e.Technologies) > 0
}

type Ledger struct {
	Version   string            `json:"version"`
	Repos     map[string]Entry  `json:"repos"`
	LastSync  time.Time         `json:"lastSync,omitzero"`
	Handles   map[string]string `json:"handles,omitempty"`
	Stats     models.Stats      `json:"stats"`
	AIEnabled bool              `json:"aiEnabled"`

	// Written by earlier releases that only published to SiYuan.
	LegacySiYuanDocID string `json:"siyuanDocId,omitempty"`
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{
		Version: CurrentVersion,
		Repos:   make(map[string]Entry),
		Handles: make(map[string]string),
	}
}

// Lookup returns the entry for id. A nil ledger has no entries.
func (l *Ledger) Lookup(id string) (Entry, bool) {
	if l == nil {
		return Entry{}, false
	}
	e, ok := l.Repos[id]
	return e, ok
}

// Handle returns the remembered destination handle for target.
func (l *Ledger) Handle(target string) string {
	if l == nil {
		return ""
	}
	return l.Handles[target]
}

// IDs returns the set of repo ids tracked by the ledger.
func (l *Ledger) IDs() map[string]bool {
	ids := make(map[string]bool)
	if l == nil {
		return ids
	}
	for id := range l.Repos {
		ids[id] = true
	}
	return ids
}

// Load reads the ledger at path. A missing file yields an empty ledger; an
// unreadable or corrupt one is logged and also yields an empty ledger, so
// Load never fails.
func Load(path string) *Ledger {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("reading ledger failed, starting from empty state", "path", path, "error", err)
		}
		return New()
	}

	var l Ledger
	if err := json.Unmarshal(data, &l); err != nil {
		slog.Warn("ledger is corrupt, starting from empty state", "path", path, "error", err)
		return New()
	}

	migrate(&l)
	return &l
}

// Save replaces the ledger file at path with l. The data is written to a
// temp file in the same directory and renamed into place, so readers see
// either the old or the new ledger, never a partial one.
func (l *Ledger) Save(path string) error {
	if l.Version == "" {
		l.Version = CurrentVersion
	}
	if l.Repos == nil {
		l.Repos = make(map[string]Entry)
	}

	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding ledger: %w", err)
	}
	return WriteFileAtomic(path, data, 0o644)
}

// WriteFileAtomic writes data to a temp file beside path and renames it over path.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

func migrate(l *Ledger) {
	if l.Repos == nil {
		l.Repos = make(map[string]Entry)
	}
	if l.Handles == nil {
		l.Handles = make(map[string]string)
	}
	if l.LegacySiYuanDocID != "" {
		if _, ok := l.Handles["siyuan"]; !ok {
			l.Handles["siyuan"] = l.LegacySiYuanDocID
		}
		l.LegacySiYuanDocID = ""
	}
	// Entries keyed by id but written without one.
	for id, e := range l.Repos {
		if e.ID == "" {
			e.ID = id
			l.Repos[id] = e
		}
	}
	l.Version = CurrentVersion
}
