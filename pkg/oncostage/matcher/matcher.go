package matcher

import (
	"fmt"
	"strings"

	"github.com/cognicore/oncostage/pkg/oncostage/internalerr"
	"github.com/cognicore/oncostage/pkg/oncostage/synonyms"
)

// overlapThreshold is exclusive: a score must be strictly greater to match.
const overlapThreshold = 0.5

// Tier names the stage of the cascade that produced a Result.
type Tier int

const (
	TierNone Tier = iota
	TierExact
	TierFuzzy
	TierKeyword
)

func (t Tier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierFuzzy:
		return "fuzzy"
	case TierKeyword:
		return "keyword"
	default:
		return "none"
	}
}

// Strategy selects how the fuzzy tier picks among qualifying entries.
type Strategy int

const (
	// FirstMatch returns the first entry, in table order, that clears the
	// threshold. Later entries are never scored.
	FirstMatch Strategy = iota
	// BestMatch scores every candidate and returns the highest score, ties going
	// to the longer variation and then to table order.
	BestMatch
)

func (s Strategy) String() string {
	if s == BestMatch {
		return "best"
	}
	return "first"
}

// ParseStrategy maps a config value to a Strategy. Empty means FirstMatch.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "first":
		return FirstMatch, nil
	case "best":
		return BestMatch, nil
	default:
		return FirstMatch, fmt.Errorf("matcher: unknown strategy %q: %w", s, internalerr.ErrInvalidConfig)
	}
}

// Result is the outcome of Match. A zero Result is the unmatched outcome.
type Result struct {
	Category  string
	Tier      Tier
	Variation string  // table entry that decided the match, empty for keyword tier
	Score     float64 // word-overlap score for the fuzzy tier, 1 for exact
}

// Matched reports whether a category was found.
func (r Result) Matched() bool {
	return r.Tier != TierNone
}

// Label returns the category, or unmatched when no category was found.
func (r Result) Label(unmatched string) string {
	if !r.Matched() {
		return unmatched
	}
	return r.Category
}

// Context is the immutable state the matcher needs: the synonym table and the
// set of known categories. Build it once at startup and share it; Match never
// mutates it, so concurrent calls need no locking.
type Context struct {
	table      *synonyms.Table
	categories []string
	known      map[string]struct{}
	strategy   Strategy
}

// NewContext builds a Context from a synonym table and the taxonomy categories.
// Every category referenced by the table is added to the known set, even when
// the taxonomy does not list it.
func NewContext(table *synonyms.Table, categories []string, strategy Strategy) *Context {
	if table == nil {
		table = synonyms.New()
	}
	c := &Context{
		table:    table,
		known:    make(map[string]struct{}, len(categories)),
		strategy: strategy,
	}
	for _, cat := range categories {
		c.addCategory(cat)
	}
	for _, cat := range table.Categories() {
		c.addCategory(cat)
	}
	return c
}

func (c *Context) addCategory(cat string) {
	if _, ok := c.known[cat]; ok {
		return
	}
	c.known[cat] = struct{}{}
	c.categories = append(c.categories, cat)
}

// Categories returns the known categories: taxonomy order first, then any
// categories only the synonym table mentions.
func (c *Context) Categories() []string {
	return append([]string(nil), c.categories...)
}

// Known reports whether category is in the known set.
func (c *Context) Known(category string) bool {
	_, ok := c.known[category]
	return ok
}

// Synonyms returns the table backing the context.
func (c *Context) Synonyms() *synonyms.Table {
	return c.table
}

// Strategy returns the fuzzy-tier strategy.
func (c *Context) Strategy() Strategy {
	return c.strategy
}

// Match resolves a free-text disease mention to a canonical category.
// Tiers run in strict order and the first success wins:
//  1. exact lookup of the normalized mention
//  2. substring containment scored by word overlap (> 0.5)
//  3. keyword clusters, most frequent category among related entries
//
// Match is total: any input, including "", yields a Result.
func (c *Context) Match(mention string) Result {
	normalized := synonyms.Normalize(mention)

	if cat, ok := c.table.Lookup(normalized); ok {
		return Result{Category: cat, Tier: TierExact, Variation: normalized, Score: 1}
	}
	if r, ok := c.matchFuzzy(normalized); ok {
		return r
	}
	if r, ok := c.matchKeyword(normalized); ok {
		return r
	}
	return Result{}
}

func (c *Context) matchFuzzy(mention string) (Result, bool) {
	mentionWords := strings.Fields(mention)

	var best Result
	found := false
	c.table.Each(func(e synonyms.Entry) bool {
		if !strings.Contains(mention, e.Variation) && !strings.Contains(e.Variation, mention) {
			return true
		}
		score := Overlap(strings.Fields(e.Variation), mentionWords)
		if score <= overlapThreshold {
			return true
		}
		candidate := Result{Category: e.Category, Tier: TierFuzzy, Variation: e.Variation, Score: score}
		if c.strategy == FirstMatch {
			best, found = candidate, true
			return false
		}
		if !found || better(candidate, best) {
			best, found = candidate, true
		}
		return true
	})
	return best, found
}

func better(a, b Result) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return len(a.Variation) > len(b.Variation)
}

// Overlap returns the number of distinct words shared by a and b divided by the
// larger of the two word counts. Zero words on both sides score 0.
func Overlap(a, b []string) float64 {
	denom := len(a)
	if len(b) > denom {
		denom = len(b)
	}
	if denom == 0 {
		return 0
	}

	inA := make(map[string]struct{}, len(a))
	for _, w := range a {
		inA[w] = struct{}{}
	}
	shared := make(map[string]struct{})
	for _, w := range b {
		if _, ok := inA[w]; ok {
			shared[w] = struct{}{}
		}
	}
	return float64(len(shared)) / float64(denom)
}

func (c *Context) matchKeyword(mention string) (Result, bool) {
	for _, cluster := range keywordClusters {
		if !cluster.Hits(mention) {
			continue
		}

		counts := make(map[string]int)
		var order []string
		c.table.Each(func(e synonyms.Entry) bool {
			if cluster.Hits(e.Variation) {
				if counts[e.Category] == 0 {
					order = append(order, e.Category)
				}
				counts[e.Category]++
			}
			return true
		})
		if len(order) == 0 {
			continue
		}

		top := order[0]
		for _, cat := range order[1:] {
			if counts[cat] > counts[top] {
				top = cat
			}
		}
		return Result{Category: top, Tier: TierKeyword}, true
	}
	return Result{}, false
}
