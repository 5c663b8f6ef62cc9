// Package render turns enriched repos into the text documents each sync
// target stores. Renderers are pure: they never modify their input.
package render

import (
	"strings"
	"time"

	"github.com/kevinmichaelchen/star-sync/internal/models"
)

// Func renders repos into a document. syncedAt is stamped into the header.
type Func func(repos []models.Repo, aiEnabled bool, syncedAt time.Time) string

const (
	placeholder   = "—"
	pendingMarker = "pending"
	noDescription = "(no description)"
	noLanguage    = "unlabeled"
)

// labelCell renders labels with format. Without labels it shows the neutral
// placeholder, unless AI is disabled and the repo has no history at all, in
// which case it shows the pending marker.
func labelCell(labels []string, r models.Repo, aiEnabled bool, format func([]string) string) string {
	if len(labels) > 0 {
		return format(labels)
	}
	if aiEnabled || r.HasLabels() {
		return placeholder
	}
	return pendingMarker
}

// techCell renders technologies, falling back to the language.
func techCell(r models.Repo, aiEnabled bool) string {
	if len(r.Technologies) > 0 {
		return strings.Join(r.Technologies, " · ")
	}
	if !aiEnabled && !r.HasLabels() {
		return pendingMarker
	}
	return language(r)
}

func language(r models.Repo) string {
	if r.Language == "" {
		return noLanguage
	}
	return r.Language
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return placeholder
	}
	return t.UTC().Format("2006-01-02")
}

func escapeTable(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

func singleLine(s string) string {
	return strings.TrimSpace(strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s))
}

func wrapEach(items []string, prefix, suffix string) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = prefix + it + suffix
	}
	return strings.Join(parts, " ")
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
