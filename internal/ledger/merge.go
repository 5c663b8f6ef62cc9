package ledger

import (
	"time"

	"github.com/kevinmichaelchen/star-sync/internal/models"
)

// BuildNext derives the ledger snapshot to persist after a completed cycle.
//
// Each current repo contributes its own labels when the cycle produced any;
// otherwise the previous entry's labels and fingerprint are copied forward.
// Repos no longer starred are dropped. handles holds the destinations that
// were published this cycle; targets missing from it keep their previous
// handle.
func BuildNext(repos []models.Repo, prev *Ledger, handles map[string]string, stats models.Stats, aiEnabled bool, now time.Time) *Ledger {
	next := New()
	next.LastSync = now.UTC()
	next.Stats = stats
	next.AIEnabled = aiEnabled

	for _, r := range repos {
		next.Repos[r.ID] = nextEntry(r, prev)
	}

	if prev != nil {
		for target, h := range prev.Handles {
			next.Handles[target] = h
		}
	}
	for target, h := range handles {
		if h != "" {
			next.Handles[target] = h
		}
	}

	return next
}

func nextEntry(r models.Repo, prev *Ledger) Entry {
	e := Entry{
		ID:        r.ID,
		FullName:  r.FullName,
		UpdatedAt: r.UpdatedAt,
	}

	switch old, ok := prev.Lookup(r.ID); {
	case r.HasLabels():
		e.Tags = cloneStrings(r.Tags)
		e.Technologies = cloneStrings(r.Technologies)
		e.AIFingerprint = r.AIFingerprint
	case ok:
		e.Tags = cloneStrings(old.Tags)
		e.Technologies = cloneStrings(old.Technologies)
		e.AIFingerprint = old.AIFingerprint
	}
	return e
}

func cloneStrings(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return append([]string(nil), s...)
}
