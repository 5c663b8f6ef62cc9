package ledger

import (
	"reflect"
	"testing"
	"time"

	"github.com/kevinmichaelchen/star-sync/internal/models"
)

func TestBuildNext(t *testing.T) {
	prev := New()
	prev.Handles["siyuan"] = "doc-old"
	prev.Handles["obsidian"] = "/vault/Stars.md"
	prev.Repos["A"] = Entry{ID: "A", FullName: "o/a", Tags: []string{"old"}}
	prev.Repos["B"] = Entry{ID: "B", FullName: "o/b", Tags: []string{"db"}, Technologies: []string{"Rust"}, AIFingerprint: "fp-b"}

	now := time.Date(2026, 5, 2, 3, 4, 5, 0, time.UTC)
	repos := []models.Repo{
		{ID: "B", FullName: "o/b"}, // no labels this cycle
		{ID: "C", FullName: "o/c", Tags: []string{"web"}, Technologies: []string{"TS"}, AIFingerprint: "fp-c"},
		{ID: "D", FullName: "o/d"},
	}
	stats := models.Stats{Added: 2, Removed: 1}

	next := BuildNext(repos, prev, map[string]string{"siyuan": "doc-new", "logseq": ""}, stats, true, now)

	if _, ok := next.Repos["A"]; ok {
		t.Error("A is no longer starred and should be dropped")
	}
	b := next.Repos["B"]
	if !reflect.DeepEqual(b.Tags, []string{"db"}) || b.AIFingerprint != "fp-b" {
		t.Errorf("B should carry previous labels, got %+v", b)
	}
	c := next.Repos["C"]
	if !reflect.DeepEqual(c.Technologies, []string{"TS"}) || c.AIFingerprint != "fp-c" {
		t.Errorf("C should take fresh labels, got %+v", c)
	}
	d := next.Repos["D"]
	if d.HasLabels() || d.AIFingerprint != "" {
		t.Errorf("D has no history and should have no labels, got %+v", d)
	}

	if next.Handle("siyuan") != "doc-new" {
		t.Errorf("siyuan handle = %q, want doc-new", next.Handle("siyuan"))
	}
	if next.Handle("obsidian") != "/vault/Stars.md" {
		t.Errorf("obsidian handle should be carried, got %q", next.Handle("obsidian"))
	}
	if _, ok := next.Handles["logseq"]; ok {
		t.Error("empty handle should not be recorded")
	}
	if !next.LastSync.Equal(now) || next.Stats != stats || !next.AIEnabled {
		t.Errorf("top-level fields wrong: %+v", next)
	}
}

func TestBuildNextDoesNotAliasRepoSlices(t *testing.T) {
	repos := []models.Repo{{ID: "X", Tags: []string{"a"}}}
	next := BuildNext(repos, nil, nil, models.Stats{}, false, time.Now())
	repos[0].Tags[0] = "mutated"
	if next.Repos["X"].Tags[0] != "a" {
		t.Error("ledger entry shares backing array with the repo")
	}
}
