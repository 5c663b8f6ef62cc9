package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/kevinmichaelchen/star-sync/internal/models"
)

// Outline renders the Logseq page: one block per repo with properties.
func Outline(repos []models.Repo, aiEnabled bool, syncedAt time.Time) string {
	blocks := make([]string, len(repos))
	for i, r := range repos {
		blocks[i] = outlineBlock(r, aiEnabled)
	}
	return fmt.Sprintf("- Last synced:: %s\n\n%s\n", formatDate(syncedAt), strings.Join(blocks, "\n\n"))
}

func outlineBlock(r models.Repo, aiEnabled bool) string {
	header := fmt.Sprintf("[[%s]]", r.FullName)
	if r.URL != "" {
		header += fmt.Sprintf(" ([GitHub](%s))", r.URL)
	}

	desc := singleLine(r.Description)
	if desc == "" {
		desc = noDescription
	}

	topics := placeholder
	if len(r.Topics) > 0 {
		topics = wrapEach(r.Topics, "[[", "]]")
	}

	lines := []string{
		"- " + header,
		"  repo:: " + r.URL,
		"  desc:: " + desc,
		"  topics:: " + topics,
		"  tags:: " + labelCell(r.Tags, r, aiEnabled, func(items []string) string { return wrapEach(items, "#[[", "]]") }),
		"  tech:: " + techCell(r, aiEnabled),
		"  updated:: " + formatDate(r.UpdatedAt),
		"  archived:: " + yesNo(r.Archived),
	}
	return strings.Join(lines, "\n")
}
