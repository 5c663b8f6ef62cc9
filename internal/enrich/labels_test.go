package enrich

import (
	"reflect"
	"testing"
	"time"

	"github.com/kevinmichaelchen/star-sync/internal/models"
)

func sampleRepo() models.Repo {
	return models.Repo{
		ID:          "1",
		FullName:    "acme/rocket",
		Name:        "rocket",
		Description: "A fast launcher",
		Language:    "Go",
		Topics:      []string{"cli", "devtools", "automation"},
		Stars:       10,
		UpdatedAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestFingerprintDeterministic(t *testing.T) {
	r := sampleRepo()
	if Fingerprint(r) != Fingerprint(r) {
		t.Fatal("fingerprint is not deterministic")
	}
	if len(Fingerprint(r)) != 64 {
		t.Errorf("expected 256-bit hex digest, got %q", Fingerprint(r))
	}
}

func TestFingerprintFields(t *testing.T) {
	base := Fingerprint(sampleRepo())

	changed := map[string]func(*models.Repo){
		"description": func(r *models.Repo) { r.Description = "Something else" },
		"fullName":    func(r *models.Repo) { r.FullName = "acme/rocket2" },
		"language":    func(r *models.Repo) { r.Language = "Rust" },
		"topics":      func(r *models.Repo) { r.Topics = []string{"devtools", "cli", "automation"} },
		"archived":    func(r *models.Repo) { r.Archived = true },
	}
	for name, mutate := range changed {
		r := sampleRepo()
		mutate(&r)
		if Fingerprint(r) == base {
			t.Errorf("changing %s should change the fingerprint", name)
		}
	}

	unchanged := map[string]func(*models.Repo){
		"stars":     func(r *models.Repo) { r.Stars = 9999 },
		"updatedAt": func(r *models.Repo) { r.UpdatedAt = time.Now() },
		"tags":      func(r *models.Repo) { r.Tags = []string{"x"} },
		"license":   func(r *models.Repo) { r.License = "MIT" },
	}
	for name, mutate := range unchanged {
		r := sampleRepo()
		mutate(&r)
		if Fingerprint(r) != base {
			t.Errorf("changing %s should not change the fingerprint", name)
		}
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name     string
		list     []string
		fallback []string
		want     []string
	}{
		{"trims and dedupes", []string{" a ", "b", "a", "", "  "}, nil, []string{"a", "b"}},
		{"keeps order", []string{"z", "y", "z", "x"}, nil, []string{"z", "y", "x"}},
		{"empty uses fallback", []string{" ", ""}, []string{"Go"}, []string{"Go"}},
		{"nil uses fallback", nil, []string{"Go"}, []string{"Go"}},
		{"empty fallback", nil, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.list, tt.fallback); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Sanitize(%q, %q) = %q, want %q", tt.list, tt.fallback, got, tt.want)
			}
		})
	}
}

func TestDefaults(t *testing.T) {
	r := sampleRepo()
	if got := DefaultTags(r); !reflect.DeepEqual(got, []string{"Go", "cli", "devtools"}) {
		t.Errorf("DefaultTags = %q", got)
	}
	if got := DefaultTechnologies(r); !reflect.DeepEqual(got, []string{"Go"}) {
		t.Errorf("DefaultTechnologies = %q", got)
	}

	r.Topics = []string{"go", "go"}
	r.Language = "go"
	if got := DefaultTags(r); !reflect.DeepEqual(got, []string{"go"}) {
		t.Errorf("DefaultTags should dedupe, got %q", got)
	}

	r = models.Repo{ID: "2"}
	if got := DefaultTags(r); len(got) != 0 {
		t.Errorf("DefaultTags with no data = %q", got)
	}
	if got := DefaultTechnologies(r); len(got) != 0 {
		t.Errorf("DefaultTechnologies with no language = %q", got)
	}
}
