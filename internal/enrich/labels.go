package enrich

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/kevinmichaelchen/star-sync/internal/models"
)

// Fingerprint hashes the fields that influence classification. Volatile
// metrics such as stars or updatedAt do not participate.
func Fingerprint(r models.Repo) string {
	content := strings.Join([]string{
		r.FullName,
		r.Description,
		r.Language,
		strings.Join(r.Topics, "|"),
		strconv.FormatBool(r.Archived),
	}, "::")
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Sanitize trims each label, drops empties and duplicates (first occurrence
// wins) and returns fallback when nothing is left.
func Sanitize(list, fallback []string) []string {
	seen := make(map[string]bool, len(list))
	out := make([]string, 0, len(list))
	for _, item := range list {
		item = strings.TrimSpace(item)
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

// DefaultTags is the local stand-in for AI tags: the language plus up to two topics.
func DefaultTags(r models.Repo) []string {
	tags := make([]string, 0, 3)
	if r.Language != "" {
		tags = append(tags, r.Language)
	}
	n := len(r.Topics)
	if n > 2 {
		n = 2
	}
	tags = append(tags, r.Topics[:n]...)
	return Sanitize(tags, nil)
}

// DefaultTechnologies is the local stand-in for AI technologies: the language alone.
func DefaultTechnologies(r models.Repo) []string {
	return Sanitize([]string{r.Language}, nil)
}
