package selection

import (
	"sort"

	"github.com/aristath/capm/internal/domain"
)

// Entry is a ranked candidate of a group
type Entry struct {
	Index domain.StockIndex `json:"index"`
	Score float64           `json:"score"` // Determination under the run's algorithm
}

// Groups maps grouping keys to their entries, preserving the order in which
// keys were first seen
type Groups struct {
	entries map[string][]Entry
	keys    []string
}

// NewGroups creates an empty group mapping
func NewGroups() *Groups {
	return &Groups{entries: make(map[string][]Entry)}
}

// Add appends e to the group key, registering the key on first use
func (g *Groups) Add(key string, e Entry) {
	if _, ok := g.entries[key]; !ok {
		g.keys = append(g.keys, key)
	}
	g.entries[key] = append(g.entries[key], e)
}

// Keys returns the group keys in first-insertion order
func (g *Groups) Keys() []string {
	out := make([]string, len(g.keys))
	copy(out, g.keys)
	return out
}

// Entries returns the entries of a group
func (g *Groups) Entries(key string) []Entry {
	return g.entries[key]
}

// Len returns the number of groups
func (g *Groups) Len() int {
	return len(g.keys)
}

// Total returns the number of entries across all groups
func (g *Groups) Total() int {
	total := 0
	for _, entries := range g.entries {
		total += len(entries)
	}
	return total
}

// rank drops non-positive scores, sorts descending (stable on insertion
// order) and keeps at most topN entries in every group
func (g *Groups) rank(topN int) {
	for _, key := range g.keys {
		kept := make([]Entry, 0, len(g.entries[key]))
		for _, e := range g.entries[key] {
			if e.Score > 0 {
				kept = append(kept, e)
			}
		}

		sort.SliceStable(kept, func(i, j int) bool {
			return kept[i].Score > kept[j].Score
		})

		if len(kept) > topN {
			kept = kept[:topN]
		}
		g.entries[key] = kept
	}
}
