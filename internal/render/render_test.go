package render

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/kevinmichaelchen/star-sync/internal/models"
	"gopkg.in/yaml.v3"
)

var syncedAt = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func sampleRepos() []models.Repo {
	return []models.Repo{
		{
			ID:           "1",
			Name:         "pipe|name",
			FullName:     "acme/pipe|name",
			URL:          "https://github.com/acme/pipe-name",
			Description:  "a | b\nsecond line",
			Language:     "Go",
			Topics:       []string{"cli", "devtools"},
			Tags:         []string{"command line", "tooling"},
			Technologies: []string{"Go", "Cobra"},
			UpdatedAt:    time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC),
			Archived:     true,
		},
		{
			ID:        "2",
			Name:      "bare",
			FullName:  "acme/bare",
			URL:       "https://github.com/acme/bare",
			Topics:    []string{},
			UpdatedAt: time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

func TestTable(t *testing.T) {
	out := Table(sampleRepos(), true, syncedAt)

	if !strings.HasPrefix(out, "> Last synced: 2026-03-14") {
		t.Errorf("missing sync header:\n%s", out)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	// header note, blank, column header, separator, two rows
	if len(lines) != 6 {
		t.Fatalf("got %d lines:\n%s", len(lines), out)
	}

	row := lines[4]
	for _, want := range []string{
		`[pipe\|name](https://github.com/acme/pipe-name)`,
		`a \| b second line`,
		"#cli# #devtools#",
		"#command line# #tooling#",
		"Go · Cobra",
		"2025-12-01",
		"| Yes |",
	} {
		if !strings.Contains(row, want) {
			t.Errorf("row missing %q:\n%s", want, row)
		}
	}

	bare := lines[5]
	if !strings.Contains(bare, noDescription) || !strings.Contains(bare, "| No |") {
		t.Errorf("bare row = %s", bare)
	}
	// AI enabled without labels: neutral placeholder, language fallback for tech
	if !strings.Contains(bare, "| — | — | unlabeled |") {
		t.Errorf("bare row placeholders = %s", bare)
	}
}

func TestPendingMarkerOnlyWithoutAIOrHistory(t *testing.T) {
	repos := sampleRepos()[1:]

	out := Table(repos, false, syncedAt)
	if !strings.Contains(out, "| pending | pending |") {
		t.Errorf("expected pending marker when AI is off and there is no history:\n%s", out)
	}

	out = Table(repos, true, syncedAt)
	if strings.Contains(out, pendingMarker) {
		t.Errorf("pending marker shown with AI enabled:\n%s", out)
	}
}

func TestVaultTable(t *testing.T) {
	out := VaultTable(sampleRepos(), true, syncedAt)

	if !strings.HasPrefix(out, "---\n") {
		t.Fatalf("missing frontmatter:\n%s", out)
	}
	parts := strings.SplitN(out, "---\n", 3)
	if len(parts) != 3 {
		t.Fatalf("frontmatter not closed:\n%s", out)
	}
	var fm vaultFrontmatter
	if err := yaml.Unmarshal([]byte(parts[1]), &fm); err != nil {
		t.Fatalf("frontmatter: %v", err)
	}
	if fm.Total != 2 || !fm.AIEnabled || fm.Updated != "2026-03-14" {
		t.Errorf("frontmatter = %+v", fm)
	}

	if !strings.Contains(out, "#command-line #tooling") {
		t.Errorf("obsidian tags should replace spaces:\n%s", out)
	}
	if strings.Contains(out, "#cli#") {
		t.Errorf("vault table should not use SiYuan tag syntax:\n%s", out)
	}
}

func TestOutline(t *testing.T) {
	out := Outline(sampleRepos(), true, syncedAt)

	if !strings.HasPrefix(out, "- Last synced:: 2026-03-14\n") {
		t.Errorf("header = %q", strings.SplitN(out, "\n", 2)[0])
	}
	for _, want := range []string{
		"- [[acme/pipe|name]] ([GitHub](https://github.com/acme/pipe-name))",
		"  repo:: https://github.com/acme/pipe-name",
		"  desc:: a | b second line",
		"  topics:: [[cli]] [[devtools]]",
		"  tags:: #[[command line]] #[[tooling]]",
		"  tech:: Go · Cobra",
		"  updated:: 2025-12-01",
		"  archived:: Yes",
		"  desc:: " + noDescription,
		"  topics:: —",
		"  archived:: No",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("outline missing %q:\n%s", want, out)
		}
	}
}

func TestRenderersDoNotMutateInput(t *testing.T) {
	repos := sampleRepos()
	before := sampleRepos()

	for name, fn := range map[string]Func{"table": Table, "vault": VaultTable, "outline": Outline} {
		fn(repos, true, syncedAt)
		fn(repos, false, syncedAt)
		if !reflect.DeepEqual(repos, before) {
			t.Errorf("%s mutated its input", name)
		}
	}
}

func TestHistoryHidesPendingMarker(t *testing.T) {
	r := models.Repo{ID: "3", Name: "x", FullName: "o/x", Technologies: []string{"Rust"}}
	out := Table([]models.Repo{r}, false, syncedAt)
	if strings.Contains(out, pendingMarker) {
		t.Errorf("repo with history should not show pending:\n%s", out)
	}
}
