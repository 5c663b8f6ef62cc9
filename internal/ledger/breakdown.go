package ledger

import "sort"

type TagCount struct {
	Tag   string
	Count int
}

// TagBreakdown counts how many repos carry each tag, most common first.
// Ties are ordered by tag name.
func (l *Ledger) TagBreakdown() []TagCount {
	if l == nil {
		return nil
	}
	counts := map[string]int{}
	for _, e := range l.Repos {
		for _, tag := range e.Tags {
			counts[tag]++
		}
	}
	out := make([]TagCount, 0, len(counts))
	for tag, n := range counts {
		out = append(out, TagCount{Tag: tag, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	return out
}
