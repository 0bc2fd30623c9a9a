package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// WriteMarkdown renders the narrative report. A single row uses the
// single-note layout unless the report is a Batch; several rows add a summary
// table and list every note at the end.
func (r Report) WriteMarkdown(w io.Writer) error {
	bw := bufio.NewWriter(w)
	multi := r.Batch || len(r.Rows) > 1

	date := ""
	if len(r.Rows) > 0 {
		date = r.Rows[0].Date
	}
	if multi {
		bw.WriteString("# Cancer Staging Report - Multiple Notes\n\n")
		fmt.Fprintf(bw, "**Date of Extraction:** %s\n\n", date)
		fmt.Fprintf(bw, "**Number of Notes Processed:** %d\n\n", len(r.Rows))
	} else {
		bw.WriteString("# Cancer Staging Report\n\n")
		fmt.Fprintf(bw, "**Date of Extraction:** %s\n\n", date)
	}

	r.writeTerminology(bw)

	if multi {
		bw.WriteString("## Summary of Results\n\n")
		bw.WriteString("| Medical Note | Disease | Category | Clinical Stage | Pathologic Stage |\n")
		bw.WriteString("|-------------|---------|----------|----------------|------------------|\n")
		for _, row := range r.Rows {
			fmt.Fprintf(bw, "| %s | %s | %s | %s | %s |\n",
				cell(row.Note), cell(row.Disease), cell(row.Category), cell(row.ClinicalStage), cell(row.PathologicStage))
		}
		bw.WriteString("\n## Detailed Results\n\n")
	} else {
		bw.WriteString("## Patient Information and Staging Results\n\n")
	}

	for _, row := range r.Rows {
		writeDetails(bw, row)
	}

	if multi {
		bw.WriteString("## Complete Medical Notes\n\n")
		for _, n := range r.Notes {
			fmt.Fprintf(bw, "### %s\n\n```\n%s\n```\n\n", n.Name, n.Text)
		}
	} else {
		bw.WriteString("## Complete Medical Note\n\n```\n")
		if len(r.Notes) > 0 {
			bw.WriteString(r.Notes[0].Text)
		}
		bw.WriteString("\n```\n")
	}
	return bw.Flush()
}

func (r Report) writeTerminology(bw *bufio.Writer) {
	label := r.SystemLabel
	if label == "" {
		label = "AJCC 8th Edition"
	}
	bw.WriteString("## Understanding Cancer Staging Terminology\n\n")
	bw.WriteString("This report uses the following terms for cancer staging:\n\n")
	bw.WriteString("- **TNM Values**: The raw TNM classification notation (T=Tumor size/extent, N=Node involvement, M=Metastasis) directly extracted from the medical note. Prefixes like 'c' indicate clinical staging, 'p' indicates pathologic staging.\n\n")
	bw.WriteString("- **Extracted Stage**: The exact staging information as written in the original medical note, representing how the healthcare provider documented the stage.\n\n")
	fmt.Fprintf(bw, "- **AI Stage Determination**: The system's interpretation based on %s guidelines, consisting of:\n", label)
	bw.WriteString("  - **Clinical Stage**: Full stage interpretation including TNM values and formal stage grouping based on examinations and imaging\n")
	bw.WriteString("  - **Pathologic Stage**: Stage determination based on surgical/pathological findings (when available)\n\n")
}

func writeDetails(bw *bufio.Writer, row Row) {
	fmt.Fprintf(bw, "### Medical Note: %s\n\n", row.Note)
	fmt.Fprintf(bw, "**Disease:** %s\n\n", row.Disease)
	fmt.Fprintf(bw, "**Category:** %s\n\n", row.Category)
	fmt.Fprintf(bw, "**System:** %s\n\n", row.System)
	fmt.Fprintf(bw, "**TNM Values:** %s\n\n", row.TNM)
	fmt.Fprintf(bw, "**Extracted Stage:** %s\n\n", row.ExtractedStage)
	bw.WriteString("**AI Stage Determination:**\n\n")
	fmt.Fprintf(bw, "- Clinical Stage: %s\n", row.ClinicalStage)
	fmt.Fprintf(bw, "- Pathologic Stage: %s\n\n", row.PathologicStage)
	fmt.Fprintf(bw, "**Detailed Explanation:**\n\n%s\n\n", row.Explanation)
	fmt.Fprintf(bw, "**Staging Report:**\n\n%s\n\n", row.Report)
}

// cell keeps a value on one table line.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}
