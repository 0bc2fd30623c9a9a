package synonyms

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Table stores curated disease-name variations and the canonical category
// each one resolves to.
//
// Design principles:
// - Ordered: entries keep their first insertion position, so scans that stop at
//   the first hit are reproducible across runs
// - Many-to-one: several variations may share a category, a variation maps to
//   exactly one category (last write wins)
// - Read-only after load: the matcher and the staging processor share one Table
//   across goroutines without locking
type Table struct {
	// variation -> position in entries
	// Example: "glottic carcinoma" -> 3
	index map[string]int

	entries []Entry
}

// Entry is a single variation -> category mapping.
type Entry struct {
	Variation string // normalized variation text
	Category  string // canonical category, kept verbatim
}

// New creates an empty table.
func New() *Table {
	return &Table{index: make(map[string]int)}
}

// Normalize prepares free text for lookup: Unicode NFKC, trimmed, lowercase.
//
// Examples:
//   - Normalize("  Breast Carcinoma ") -> "breast carcinoma"
//   - Normalize("ＡＭＬ") -> "aml"
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFKC.String(s)))
}

// Add registers a variation for a category. The variation is normalized.
// Re-adding a known variation replaces its category in place and reports true.
func (t *Table) Add(variation, category string) bool {
	variation = Normalize(variation)
	if pos, ok := t.index[variation]; ok {
		t.entries[pos].Category = category
		return true
	}
	t.index[variation] = len(t.entries)
	t.entries = append(t.entries, Entry{Variation: variation, Category: category})
	return false
}

// Lookup returns the category registered for the normalized mention.
func (t *Table) Lookup(mention string) (string, bool) {
	pos, ok := t.index[Normalize(mention)]
	if !ok {
		return "", false
	}
	return t.entries[pos].Category, true
}

// Entries returns a copy of the entries in insertion order.
func (t *Table) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Each calls fn for every entry in insertion order until fn returns false.
func (t *Table) Each(fn func(Entry) bool) {
	for _, e := range t.entries {
		if !fn(e) {
			return
		}
	}
}

// Head returns at most n entries from the front of the table.
// Used to show the model a sample of curated mappings.
func (t *Table) Head(n int) []Entry {
	if n > len(t.entries) {
		n = len(t.entries)
	}
	if n <= 0 {
		return nil
	}
	out := make([]Entry, n)
	copy(out, t.entries[:n])
	return out
}

// Len returns the number of variations.
func (t *Table) Len() int {
	return len(t.entries)
}

// Categories returns the distinct categories in first-seen order.
func (t *Table) Categories() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, e := range t.entries {
		if _, ok := seen[e.Category]; ok {
			continue
		}
		seen[e.Category] = struct{}{}
		out = append(out, e.Category)
	}
	return out
}

// Stats returns statistics about the table contents.
func (t *Table) Stats() TableStats {
	return TableStats{
		Variations: len(t.entries),
		Categories: len(t.Categories()),
	}
}

// TableStats holds statistics about table contents.
type TableStats struct {
	Variations int // Number of variation keys
	Categories int // Number of distinct canonical categories
}
