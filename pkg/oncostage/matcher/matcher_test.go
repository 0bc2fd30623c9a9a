package matcher

import (
	"errors"
	"testing"

	"github.com/cognicore/oncostage/pkg/oncostage/internalerr"
	"github.com/cognicore/oncostage/pkg/oncostage/synonyms"
)

func newTable(pairs ...string) *synonyms.Table {
	table := synonyms.New()
	for i := 0; i+1 < len(pairs); i += 2 {
		table.Add(pairs[i], pairs[i+1])
	}
	return table
}

func TestMatchExactPrecedence(t *testing.T) {
	// "lung carcinoma" would also fuzzy-match the first entry and hit the lung
	// cluster, but the exact entry must win.
	table := newTable(
		"carcinoma of lung", "Lung",
		"lung carcinoma", "Lung Special",
	)
	ctx := NewContext(table, nil, FirstMatch)

	res := ctx.Match("  Lung Carcinoma ")
	if res.Tier != TierExact || res.Category != "Lung Special" {
		t.Errorf("Match = %+v, want exact Lung Special", res)
	}
	if res.Score != 1 {
		t.Errorf("exact score = %v, want 1", res.Score)
	}
}

func TestMatchTotality(t *testing.T) {
	ctx := NewContext(newTable("glottic carcinoma", "Larynx"), []string{"Larynx"}, FirstMatch)

	for _, mention := range []string{"", "   ", "???", "glottic", "a b c d e f g", "ＧＬＯＴＴＩＣ ＣＡＲＣＩＮＯＭＡ"} {
		res := ctx.Match(mention)
		if res.Matched() && !ctx.Known(res.Category) {
			t.Errorf("Match(%q) returned unknown category %q", mention, res.Category)
		}
	}
	if res := ctx.Match(""); res.Matched() {
		t.Errorf("empty mention should be unmatched, got %+v", res)
	}
}

func TestMatchThresholdIsStrict(t *testing.T) {
	// 1 shared word / max(2, 1) = 0.5, which must not match.
	ctx := NewContext(newTable("wilms tumor", "Wilms"), nil, FirstMatch)
	if res := ctx.Match("wilms"); res.Matched() {
		t.Errorf("score 0.5 must not match, got %+v", res)
	}

	// Same shape with a stem that has a keyword cluster: the fuzzy tier still
	// declines, so any match comes from the keyword tier.
	ctx = NewContext(newTable("lung cancer", "Lung"), nil, FirstMatch)
	res := ctx.Match("lung")
	if res.Tier == TierFuzzy {
		t.Errorf("fuzzy tier must not accept 0.5, got %+v", res)
	}
	if res.Tier != TierKeyword || res.Category != "Lung" {
		t.Errorf("expected keyword rescue to Lung, got %+v", res)
	}
}

func TestMatchFuzzyAboveThreshold(t *testing.T) {
	ctx := NewContext(newTable("squamous cell carcinoma of larynx", "Larynx"), nil, FirstMatch)

	// mention contained in variation: 4 shared / max(5, 4) = 0.8
	res := ctx.Match("squamous cell carcinoma of")
	if res.Tier != TierFuzzy || res.Category != "Larynx" {
		t.Fatalf("Match = %+v, want fuzzy Larynx", res)
	}
	if res.Score != 0.8 {
		t.Errorf("score = %v, want 0.8", res.Score)
	}

	// variation contained in mention
	ctx = NewContext(newTable("glottic carcinoma", "Larynx"), nil, FirstMatch)
	res = ctx.Match("invasive glottic carcinoma")
	if res.Tier != TierFuzzy || res.Category != "Larynx" {
		t.Errorf("Match = %+v, want fuzzy Larynx", res)
	}
}

func TestMatchFuzzyNeedsSubstring(t *testing.T) {
	// All words shared but neither string contains the other.
	ctx := NewContext(newTable("carcinoma glottic", "Larynx"), nil, FirstMatch)
	if res := ctx.Match("glottic carcinoma"); res.Matched() {
		t.Errorf("no substring relation should not match, got %+v", res)
	}
}

func TestMatchFirstVersusBest(t *testing.T) {
	// First entry: 4 shared / max(4, 5) = 0.8, clears the threshold and wins.
	table := newTable(
		"tonsil squamous carcinoma stage", "Oropharynx (HPV-)",
		"tonsil squamous carcinoma", "Oropharynx (HPV+)",
	)
	if res := NewContext(table, nil, FirstMatch).Match("tonsil squamous carcinoma stage iii"); res.Category != "Oropharynx (HPV-)" {
		t.Errorf("FirstMatch = %+v", res)
	}

	// "tonsil squamous" scores 2/4 = 0.5 and is skipped.
	table = newTable(
		"tonsil squamous", "Short",
		"tonsil squamous carcinoma", "Long",
	)
	if res := NewContext(table, nil, FirstMatch).Match("tonsil squamous carcinoma left"); res.Category != "Long" {
		t.Errorf("FirstMatch should skip sub-threshold entries, got %+v", res)
	}

	// mention "oral tongue squamous carcinoma" (4 words):
	//   "tongue squamous carcinoma"            3/4 = 0.75
	//   "oral tongue squamous carcinoma right" 4/5 = 0.80
	//   "oral tongue squamous"                 3/4 = 0.75
	table = newTable(
		"tongue squamous carcinoma", "First",
		"oral tongue squamous carcinoma right", "Other",
		"oral tongue squamous", "Third",
	)
	mention := "oral tongue squamous carcinoma"
	if res := NewContext(table, nil, FirstMatch).Match(mention); res.Category != "First" {
		t.Errorf("FirstMatch = %+v, want First", res)
	}
	if res := NewContext(table, nil, BestMatch).Match(mention); res.Category != "Other" || res.Score != 0.8 {
		t.Errorf("BestMatch = %+v, want Other", res)
	}
}

func TestMatchBestTieBreaksOnLength(t *testing.T) {
	table := newTable(
		"a b c", "Short",
		"b c dd", "Long",
	)
	// mention "a b c dd": "a b c" 3/4, "b c dd" 3/4; longer variation wins.
	if res := NewContext(table, nil, BestMatch).Match("a b c dd"); res.Category != "Long" {
		t.Errorf("BestMatch tie = %+v, want Long", res)
	}
	if res := NewContext(table, nil, FirstMatch).Match("a b c dd"); res.Category != "Short" {
		t.Errorf("FirstMatch tie = %+v, want Short", res)
	}
}

func TestMatchKeywordRescue(t *testing.T) {
	ctx := NewContext(newTable("liver cancer", "Liver"), []string{"Liver"}, FirstMatch)

	res := ctx.Match("hepatocellular carcinoma")
	if res.Tier != TierKeyword || res.Category != "Liver" {
		t.Errorf("Match = %+v, want keyword Liver", res)
	}
}

func TestMatchKeywordMostFrequent(t *testing.T) {
	table := newTable(
		"renal pelvis carcinoma", "Renal Pelvis and Ureter",
		"kidney cancer", "Kidney",
		"renal cell carcinoma", "Kidney",
		"nephroblastoma", "Kidney",
	)
	res := NewContext(table, nil, FirstMatch).Match("clear cell renal tumour")
	if res.Tier != TierKeyword || res.Category != "Kidney" {
		t.Errorf("Match = %+v, want keyword Kidney", res)
	}
}

func TestMatchKeywordTieFirstEncountered(t *testing.T) {
	table := newTable(
		"gastric adenocarcinoma", "Stomach",
		"stomach lymphoma", "Lymphoma",
	)
	res := NewContext(table, nil, FirstMatch).Match("gastroesophageal junction tumour")
	if res.Category != "Stomach" {
		t.Errorf("tie should go to first encountered, got %+v", res)
	}
}

func TestMatchKeywordFallsThroughEmptyCluster(t *testing.T) {
	// Mention hits the breast cluster (ductal) and the thyroid cluster
	// (papillary); only thyroid has table entries.
	table := newTable("thyroid cancer", "Thyroid")
	res := NewContext(table, nil, FirstMatch).Match("papillary ductal neoplasm")
	if res.Tier != TierKeyword || res.Category != "Thyroid" {
		t.Errorf("Match = %+v, want keyword Thyroid", res)
	}
}

func TestMatchUnmatched(t *testing.T) {
	ctx := NewContext(newTable("glottic carcinoma", "Larynx"), nil, FirstMatch)
	res := ctx.Match("osteosarcoma")
	if res.Matched() {
		t.Errorf("expected unmatched, got %+v", res)
	}
	if got := res.Label("Not in AJCC 8th Edition"); got != "Not in AJCC 8th Edition" {
		t.Errorf("Label = %q", got)
	}
	if res.Tier.String() != "none" {
		t.Errorf("Tier.String() = %q", res.Tier.String())
	}
}

func TestMatchBuiltinFallback(t *testing.T) {
	loaded := synonyms.Load("", []string{"Breast Cancer Category"})
	ctx := NewContext(loaded.Table, []string{"Breast Cancer Category"}, FirstMatch)

	res := ctx.Match("breast carcinoma")
	if !res.Matched() || res.Category != "Breast Cancer Category" {
		t.Errorf("Match = %+v, want Breast Cancer Category", res)
	}
}

func TestMatchNoCategories(t *testing.T) {
	loaded := synonyms.Load("", nil)
	ctx := NewContext(loaded.Table, nil, FirstMatch)
	for _, mention := range []string{"breast carcinoma", "lung cancer", "hepatocellular carcinoma", ""} {
		if res := ctx.Match(mention); res.Matched() {
			t.Errorf("Match(%q) = %+v, want unmatched", mention, res)
		}
	}
}

func TestContextKnownCategories(t *testing.T) {
	table := newTable("glottic carcinoma", "Larynx", "merkel cell carcinoma", "Merkel Cell")
	ctx := NewContext(table, []string{"Larynx", "Lip and Oral Cavity"}, FirstMatch)

	cats := ctx.Categories()
	want := []string{"Larynx", "Lip and Oral Cavity", "Merkel Cell"}
	if len(cats) != len(want) {
		t.Fatalf("Categories() = %v, want %v", cats, want)
	}
	for i := range want {
		if cats[i] != want[i] {
			t.Errorf("Categories()[%d] = %q, want %q", i, cats[i], want[i])
		}
	}
	if !ctx.Known("Merkel Cell") {
		t.Error("synonym-only category should be known")
	}
}

func TestNewContextNilTable(t *testing.T) {
	ctx := NewContext(nil, nil, FirstMatch)
	if res := ctx.Match("anything"); res.Matched() {
		t.Errorf("nil table should never match, got %+v", res)
	}
}

func TestOverlap(t *testing.T) {
	tests := []struct {
		a, b []string
		want float64
	}{
		{[]string{"lung", "cancer"}, []string{"lung"}, 0.5},
		{[]string{"a", "a", "b"}, []string{"a"}, 1.0 / 3.0},
		{nil, nil, 0},
		{[]string{"x"}, nil, 0},
	}
	for _, tt := range tests {
		if got := Overlap(tt.a, tt.b); got != tt.want {
			t.Errorf("Overlap(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestParseStrategy(t *testing.T) {
	if s, err := ParseStrategy(""); err != nil || s != FirstMatch {
		t.Errorf("ParseStrategy('') = %v, %v", s, err)
	}
	if s, err := ParseStrategy("Best"); err != nil || s != BestMatch {
		t.Errorf("ParseStrategy('Best') = %v, %v", s, err)
	}
	if _, err := ParseStrategy("greedy"); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("unknown strategy should be ErrInvalidConfig, got %v", err)
	}
}

func TestClustersCopy(t *testing.T) {
	clusters := Clusters()
	clusters[0].Variants[0] = "changed"
	if keywordClusters[0].Variants[0] != "mammary" {
		t.Error("Clusters() must return a copy")
	}
}
