package staging

import (
	"fmt"
	"strings"

	"github.com/cognicore/oncostage/pkg/oncostage/internalerr"
)

// Defaults used when a response omits a field.
const (
	TNMNotProvided    = "Not provided"
	StageUndetermined = "Not determined"
	NotApplicable     = "Not applicable"
)

// Identification is the parsed answer of the identify step.
type Identification struct {
	CancerType string
	Category   string
	TNM        string
	Proceed    bool
}

// StageResult is the parsed answer of the stage calculation step.
type StageResult struct {
	Clinical    string
	Pathologic  string
	Explanation string
}

// field returns the value of a "Label: value" line. Leading list markers and
// markdown emphasis around the label are ignored.
func field(line, label string) (string, bool) {
	line = strings.TrimLeft(strings.TrimSpace(line), "-*# ")
	if len(line) < len(label) || !strings.EqualFold(line[:len(label)], label) {
		return "", false
	}
	value := strings.TrimLeft(line[len(label):], "* ")
	return strings.TrimSpace(value), true
}

// ParseIdentification reads the Cancer Type, Cancer Category, TNM Values and
// Proceed with Staging lines. A response without a cancer type is an error.
func ParseIdentification(resp string, unmatched string) (Identification, error) {
	id := Identification{Category: unmatched, TNM: TNMNotProvided}
	for _, line := range strings.Split(resp, "\n") {
		if v, ok := field(line, "Cancer Type:"); ok {
			id.CancerType = v
		} else if v, ok := field(line, "Cancer Category:"); ok {
			id.Category = v
		} else if v, ok := field(line, "TNM Values:"); ok {
			id.TNM = v
		} else if v, ok := field(line, "Proceed with Staging:"); ok {
			id.Proceed = isYes(v)
		}
	}
	if id.CancerType == "" {
		return id, fmt.Errorf("staging: cancer type not identified: %w", internalerr.ErrUnparsedResponse)
	}
	if id.TNM == "" {
		id.TNM = TNMNotProvided
	}
	return id, nil
}

// isYes accepts "Yes" optionally followed by punctuation or a remark.
func isYes(v string) bool {
	words := strings.Fields(v)
	if len(words) == 0 {
		return false
	}
	return strings.EqualFold(strings.TrimRight(words[0], ".,;:!"), "yes")
}

// ParseStage reads the Clinical Stage and Pathologic Stage lines. The
// explanation runs from the Explanation line to the end of the response.
func ParseStage(resp string) StageResult {
	st := StageResult{Clinical: StageUndetermined, Pathologic: StageUndetermined}
	lines := strings.Split(resp, "\n")
	for i, line := range lines {
		if v, ok := field(line, "Clinical Stage:"); ok {
			st.Clinical = v
		} else if v, ok := field(line, "Pathologic Stage:"); ok {
			st.Pathologic = v
		} else if v, ok := field(line, "Explanation:"); ok {
			rest := append([]string{v}, lines[i+1:]...)
			st.Explanation = strings.TrimSpace(strings.Join(rest, "\n"))
			break
		}
	}
	return st
}

// SignatureBlock is boilerplate the report step tends to append. It and
// everything after it are removed by TrimSignature.
const SignatureBlock = "This report is generated for inclusion in the patient's medical records and should be reviewed in conjunction with all other clinical information available for comprehensive care planning."

// TrimSignature cuts the report at SignatureBlock.
func TrimSignature(report string) string {
	if i := strings.Index(report, SignatureBlock); i >= 0 {
		return strings.TrimSpace(report[:i])
	}
	return report
}
