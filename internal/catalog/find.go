package catalog

import (
	"strings"

	"github.com/desertthunder/simsa/internal/models"
	"github.com/sahilm/fuzzy"
)

// index implements fuzzy.Source over lower-cased "title singer" strings.
type index struct {
	entries []models.CatalogEntry
	keys    []string
}

func newIndex(entries []models.CatalogEntry) *index {
	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = strings.ToLower(e.FilterValue())
	}
	return &index{entries: entries, keys: keys}
}

func (idx *index) String(i int) string { return idx.keys[i] }
func (idx *index) Len() int            { return len(idx.entries) }

// Find returns entries fuzzy-matching query, best match first.
// An empty query returns every entry in catalog order.
func Find(entries []models.CatalogEntry, query string) []models.CatalogEntry {
	query = strings.TrimSpace(query)
	if query == "" {
		return entries
	}

	matches := fuzzy.FindFrom(strings.ToLower(query), newIndex(entries))
	out := make([]models.CatalogEntry, 0, len(matches))
	for _, m := range matches {
		out = append(out, entries[m.Index])
	}
	return out
}
