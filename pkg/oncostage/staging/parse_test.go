package staging

import (
	"errors"
	"strings"
	"testing"

	"github.com/cognicore/oncostage/pkg/oncostage/internalerr"
)

func TestParseIdentification(t *testing.T) {
	resp := `Here is my assessment.
**Cancer Type:** Supraglottic squamous cell carcinoma
- Cancer Category: Head and Neck
TNM Values: cT3 cN1 cM0
Proceed with Staging: Yes.`

	id, err := ParseIdentification(resp, AJCC8.Unmatched)
	if err != nil {
		t.Fatalf("ParseIdentification: %v", err)
	}
	want := Identification{
		CancerType: "Supraglottic squamous cell carcinoma",
		Category:   "Head and Neck",
		TNM:        "cT3 cN1 cM0",
		Proceed:    true,
	}
	if id != want {
		t.Errorf("got %+v, want %+v", id, want)
	}
}

func TestParseIdentificationDefaults(t *testing.T) {
	id, err := ParseIdentification("Cancer Type: Wilms tumor\nTNM Values:", Toronto.Unmatched)
	if err != nil {
		t.Fatalf("ParseIdentification: %v", err)
	}
	if id.Category != Toronto.Unmatched || id.TNM != TNMNotProvided || id.Proceed {
		t.Errorf("defaults not applied: %+v", id)
	}
}

func TestParseIdentificationMissingType(t *testing.T) {
	_, err := ParseIdentification("Cancer Category: Breast\nProceed with Staging: Yes", AJCC8.Unmatched)
	if !errors.Is(err, internalerr.ErrUnparsedResponse) {
		t.Errorf("expected ErrUnparsedResponse, got %v", err)
	}
}

func TestIsYes(t *testing.T) {
	tests := map[string]bool{
		"Yes":               true,
		"yes.":              true,
		"YES (covered)":     true,
		"No":                false,
		"":                  false,
		"Yesterday":         false,
		"No, not in AJCC 8": false,
	}
	for in, want := range tests {
		if got := isYes(in); got != want {
			t.Errorf("isYes(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParseStage(t *testing.T) {
	resp := `Clinical Stage: Stage III
Pathologic Stage: Stage II
Explanation: The tumor is T3.
Nodes are N1.

Clinical Stage: ignored after explanation`

	st := ParseStage(resp)
	if st.Clinical != "Stage III" || st.Pathologic != "Stage II" {
		t.Errorf("stages = %q / %q", st.Clinical, st.Pathologic)
	}
	if !strings.HasPrefix(st.Explanation, "The tumor is T3.\nNodes are N1.") {
		t.Errorf("explanation = %q", st.Explanation)
	}
	if !strings.HasSuffix(st.Explanation, "ignored after explanation") {
		t.Error("explanation should run to the end of the response")
	}
}

func TestParseStageMissing(t *testing.T) {
	st := ParseStage("no structured output")
	if st.Clinical != StageUndetermined || st.Pathologic != StageUndetermined || st.Explanation != "" {
		t.Errorf("defaults = %+v", st)
	}
}

func TestTrimSignature(t *testing.T) {
	report := "Final stage: IIA.\n\n" + SignatureBlock + "\n\nSigned"
	if got := TrimSignature(report); got != "Final stage: IIA." {
		t.Errorf("TrimSignature = %q", got)
	}
	if got := TrimSignature("  plain  "); got != "  plain  " {
		t.Errorf("report without signature must be unchanged, got %q", got)
	}
}
