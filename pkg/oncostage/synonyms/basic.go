package synonyms

import "strings"

// basicStems lists common cancers and the synonyms registered for them when no
// curated mapping source is available. Order matters: it fixes insertion order.
var basicStems = []struct {
	stem       string
	variations []string
}{
	{"breast", []string{"breast cancer", "breast carcinoma", "mammary carcinoma"}},
	{"lung", []string{"lung cancer", "lung carcinoma", "bronchogenic carcinoma"}},
	{"colorectal", []string{"colon cancer", "rectal cancer", "colorectal carcinoma"}},
	{"prostate", []string{"prostate cancer", "prostatic carcinoma", "prostatic adenocarcinoma"}},
	{"melanoma", []string{"malignant melanoma", "skin melanoma", "cutaneous melanoma"}},
	{"leukemia", []string{"acute leukemia", "chronic leukemia", "aml", "cll"}},
	{"lymphoma", []string{"hodgkin lymphoma", "non-hodgkin lymphoma", "lymphoma"}},
}

// BasicMappings derives a fallback table from the known category names.
// For each stem, the first category whose name contains the stem receives all of
// the stem's synonyms. Stems without a matching category are skipped, so an empty
// category list yields an empty table.
func BasicMappings(categories []string) *Table {
	t := New()
	for _, s := range basicStems {
		category, ok := firstContaining(categories, s.stem)
		if !ok {
			continue
		}
		for _, v := range s.variations {
			t.Add(v, category)
		}
	}
	return t
}

func firstContaining(categories []string, stem string) (string, bool) {
	for _, c := range categories {
		if strings.Contains(strings.ToLower(c), stem) {
			return c, true
		}
	}
	return "", false
}
