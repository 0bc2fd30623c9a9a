package staging

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cognicore/oncostage/pkg/oncostage/synonyms"
)

// mappingExamples is how many synonym entries the identify prompt shows.
const mappingExamples = 20

func identifyPrompt(sys System, note string, categories []string, examples []synonyms.Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the medical note below and identify the specific cancer type covered by the %s staging system.\n", sys.Label)
	b.WriteString("If several cancers are mentioned, select the primary diagnosis.\n")
	b.WriteString("Extract any TNM values mentioned in the note (for example T2N1M0). If none are mentioned, write 'Not provided'.\n\n")
	fmt.Fprintf(&b, "Check that the cancer belongs to one of the %s categories listed below. ", sys.Label)
	fmt.Fprintf(&b, "Diseases often appear under other names, so look for the broader category. ")
	fmt.Fprintf(&b, "If it belongs to none of them, answer '%s' and do not proceed with staging.\n\n", sys.Unmatched)

	b.WriteString("Medical Note:\n")
	b.WriteString(note)
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "Available Cancer Categories in %s:\n%s\n\n", sys.Label, strings.Join(categories, ", "))

	if len(examples) > 0 {
		b.WriteString("Disease Mapping Examples:\n")
		for _, e := range examples {
			fmt.Fprintf(&b, "- '%s' maps to category '%s'\n", e.Variation, e.Category)
		}
		b.WriteString("\n")
	}

	b.WriteString("Your response must follow this format:\n")
	b.WriteString("Cancer Type: [identified cancer type]\n")
	fmt.Fprintf(&b, "Cancer Category: [the category it belongs to, or '%s']\n", sys.Unmatched)
	b.WriteString("TNM Values: [extracted TNM values or 'Not provided']\n")
	fmt.Fprintf(&b, "Proceed with Staging: [Yes/No] (Yes only if the cancer is covered by %s)\n", sys.Label)
	return b.String()
}

func analyzePrompt(sys System, note string, id Identification, clinical, pathologic map[string]any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the medical note to identify which %s staging criteria for %s (category %s) are present.\n",
		sys.Label, id.CancerType, id.Category)
	b.WriteString("Distinguish clinical criteria (exam, imaging, pre-surgical findings) from pathologic criteria (surgical findings, pathology reports).\n\n")
	b.WriteString("Medical Note:\n")
	b.WriteString(note)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "TNM Values (if provided): %s\n\n", id.TNM)
	fmt.Fprintf(&b, "Clinical Criteria to check for %s:\n%s\n\n", id.CancerType, renderCriteria(clinical))
	fmt.Fprintf(&b, "Pathologic Criteria to check for %s:\n%s\n\n", id.CancerType, renderCriteria(pathologic))
	b.WriteString("Your analysis should cover:\n")
	b.WriteString("1. Evidence for the T category (tumor size, extent, invasion)\n")
	b.WriteString("2. Evidence for the N category (lymph node involvement)\n")
	b.WriteString("3. Evidence for the M category (distant metastasis)\n")
	b.WriteString("4. Any other relevant staging factors\n\n")
	b.WriteString("For each criterion, say whether it is a clinical or a pathologic finding and quote the supporting text from the note.\n")
	return b.String()
}

func calculatePrompt(sys System, note string, id Identification, analysis string, clinical, pathologic map[string]any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Using the criteria analysis and the %s stage groupings for %s (category %s), determine the clinical stage and the pathologic stage when there is enough information.\n\n",
		sys.Label, id.CancerType, id.Category)
	b.WriteString("Medical Note:\n")
	b.WriteString(note)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "TNM Values (if provided): %s\n\n", id.TNM)
	fmt.Fprintf(&b, "Criteria Analysis:\n%s\n\n", analysis)
	fmt.Fprintf(&b, "Clinical Stage Groupings for %s:\n%s\n\n", id.CancerType, renderCriteria(clinical))
	fmt.Fprintf(&b, "Pathologic Stage Groupings for %s:\n%s\n\n", id.CancerType, renderCriteria(pathologic))
	b.WriteString("Your response must follow this format:\n")
	b.WriteString("Clinical Stage: [determined stage or 'Insufficient information']\n")
	b.WriteString("Pathologic Stage: [determined stage or 'Insufficient information']\n")
	b.WriteString("Explanation: [how the stage was determined from the criteria present]\n")
	return b.String()
}

func reportPrompt(note string, id Identification, st StageResult, analysis string) string {
	var b strings.Builder
	b.WriteString("Write a professionally formatted cancer staging report for the patient's medical record, based on the analysis of the medical note.\n\n")
	b.WriteString("Patient Information:\n[relevant non-identifying patient information from the note]\n\n")
	fmt.Fprintf(&b, "Diagnosis: %s (Category: %s)\n\n", id.CancerType, id.Category)
	fmt.Fprintf(&b, "TNM Values: %s\n\n", id.TNM)
	fmt.Fprintf(&b, "Clinical Stage: %s\n\n", st.Clinical)
	fmt.Fprintf(&b, "Pathologic Stage: %s\n\n", st.Pathologic)
	fmt.Fprintf(&b, "Criteria Analysis Summary:\n%s\n\n", analysis)
	fmt.Fprintf(&b, "Stage Determination:\n%s\n\n", st.Explanation)
	b.WriteString("The report should include:\n")
	b.WriteString("1. A brief summary of the case\n")
	b.WriteString("2. The TNM classification (clinical and/or pathologic)\n")
	b.WriteString("3. The overall stage (clinical and/or pathologic)\n")
	b.WriteString("4. Key findings that determined the stage\n")
	b.WriteString("5. Important prognostic factors\n")
	b.WriteString("6. Limitations or uncertainties in the staging\n\n")
	b.WriteString("Medical Note:\n")
	b.WriteString(note)
	b.WriteString("\n")
	return b.String()
}

// renderCriteria prints criteria as indented JSON with sorted keys.
func renderCriteria(criteria map[string]any) string {
	if len(criteria) == 0 {
		return "{}"
	}
	out, err := json.MarshalIndent(criteria, "", "  ")
	if err != nil {
		return fmt.Sprint(criteria)
	}
	return string(out)
}
