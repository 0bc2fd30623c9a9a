package matcher

import "strings"

// Cluster groups a canonical stem with lexical variants that name the same
// organ or disease family, including Latin/Greek roots that share no substring
// with the stem ("liver" / "hepatocellular").
type Cluster struct {
	Stem     string
	Variants []string
}

// keywordClusters is evaluated in order; the first cluster that resolves wins.
var keywordClusters = []Cluster{
	{"breast", []string{"mammary", "ductal", "lobular"}},
	{"lung", []string{"pulmonary", "bronch", "respiratory"}},
	{"colon", []string{"colorectal", "rectal", "bowel", "intestinal"}},
	{"stomach", []string{"gastric", "gastroesophageal"}},
	{"liver", []string{"hepatic", "hepatocellular", "hepato"}},
	{"pancreas", []string{"pancreatic", "islet cell"}},
	{"kidney", []string{"renal", "nephro"}},
	{"prostate", []string{"prostatic", "psa"}},
	{"bladder", []string{"urothelial", "transitional cell"}},
	{"brain", []string{"cerebral", "glio", "neural", "cns"}},
	{"lymphoma", []string{"lymphatic", "hodgkin", "non-hodgkin"}},
	{"leukemia", []string{"myeloid", "lymphoblastic", "hematologic"}},
	{"melanoma", []string{"skin cancer", "dermal", "cutaneous"}},
	{"thyroid", []string{"thyroidal", "papillary", "follicular"}},
}

// Clusters returns a copy of the built-in keyword clusters.
func Clusters() []Cluster {
	out := make([]Cluster, len(keywordClusters))
	for i, c := range keywordClusters {
		out[i] = Cluster{Stem: c.Stem, Variants: append([]string(nil), c.Variants...)}
	}
	return out
}

// Hits reports whether text contains the stem or any variant as a substring.
// text must already be lowercase.
func (c Cluster) Hits(text string) bool {
	if strings.Contains(text, c.Stem) {
		return true
	}
	for _, v := range c.Variants {
		if strings.Contains(text, v) {
			return true
		}
	}
	return false
}
