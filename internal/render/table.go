package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/kevinmichaelchen/star-sync/internal/models"
	"gopkg.in/yaml.v3"
)

// Table renders the SiYuan document: a markdown table with #tag# style tags.
func Table(repos []models.Repo, aiEnabled bool, syncedAt time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "> Last synced: %s (auto-generated)\n\n", formatDate(syncedAt))
	b.WriteString("| Repository | Description | Topics | Tags | Technologies | Updated | Archived |\n")
	b.WriteString("| --- | --- | --- | --- | --- | --- | --- |\n")

	siyuanTags := func(items []string) string { return wrapEach(items, "#", "#") }

	for _, r := range repos {
		topics := placeholder
		if len(r.Topics) > 0 {
			topics = siyuanTags(r.Topics)
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s |\n",
			nameCell(r),
			descCell(r),
			escapeTable(topics),
			escapeTable(labelCell(r.Tags, r, aiEnabled, siyuanTags)),
			escapeTable(techCell(r, aiEnabled)),
			formatDate(r.UpdatedAt),
			yesNo(r.Archived),
		)
	}
	return b.String()
}

type vaultFrontmatter struct {
	Title     string   `yaml:"title"`
	Updated   string   `yaml:"updated"`
	Total     int      `yaml:"total"`
	AIEnabled bool     `yaml:"ai_enabled"`
	Tags      []string `yaml:"tags"`
}

// VaultTable renders the Obsidian note: YAML frontmatter followed by a
// markdown table with #tag style tags.
func VaultTable(repos []models.Repo, aiEnabled bool, syncedAt time.Time) string {
	var b strings.Builder

	fm, err := yaml.Marshal(vaultFrontmatter{
		Title:     "GitHub Stars",
		Updated:   formatDate(syncedAt),
		Total:     len(repos),
		AIEnabled: aiEnabled,
		Tags:      []string{"github-stars"},
	})
	if err == nil {
		b.WriteString("---\n")
		b.Write(fm)
		b.WriteString("---\n\n")
	}

	fmt.Fprintf(&b, "> Last synced: %s (auto-generated)\n\n", formatDate(syncedAt))
	b.WriteString("| Repository | Description | Tags | Technologies | Updated | Archived |\n")
	b.WriteString("| --- | --- | --- | --- | --- | --- |\n")

	for _, r := range repos {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
			nameCell(r),
			descCell(r),
			escapeTable(labelCell(r.Tags, r, aiEnabled, obsidianTags)),
			escapeTable(techCell(r, aiEnabled)),
			formatDate(r.UpdatedAt),
			yesNo(r.Archived),
		)
	}
	return b.String()
}

// obsidianTags renders #tag with whitespace replaced, since Obsidian tags
// end at the first space.
func obsidianTags(items []string) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = "#" + strings.Join(strings.Fields(it), "-")
	}
	return strings.Join(parts, " ")
}

func nameCell(r models.Repo) string {
	return fmt.Sprintf("[%s](%s)", escapeTable(r.Name), r.URL)
}

func descCell(r models.Repo) string {
	if d := singleLine(r.Description); d != "" {
		return escapeTable(d)
	}
	return noDescription
}
