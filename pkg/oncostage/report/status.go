package report

import (
	"fmt"
	"os"
	"strings"
)

// Status describes a finished run for the project status file.
type Status struct {
	Success     bool
	ResultsPath string
	Notes       int
	Population  string // "adult" or "pediatric"
	System      string // e.g. "AJCC 8th Edition"
	Provider    string // e.g. "Azure OpenAI"
	Err         error
}

// RenderStatus returns the project status Markdown.
func RenderStatus(st Status) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s Cancer Staging Project Status\n\n", title(st.Population))

	b.WriteString("## Completed Steps\n")
	fmt.Fprintf(&b, "- Created the cancer staging pipeline using %s\n", st.Provider)
	if st.Success {
		fmt.Fprintf(&b, "- Processed %d medical note(s) and extracted cancer type and staging information\n", st.Notes)
		fmt.Fprintf(&b, "- Applied the %s staging system to the medical notes\n", st.System)
		b.WriteString("- Generated staging reports with explanations\n")
		fmt.Fprintf(&b, "- Saved results to CSV file at: %s\n\n", st.ResultsPath)

		b.WriteString("## Current Status\n")
		b.WriteString("- The staging pipeline processed the provided medical notes\n")
		b.WriteString("- Results are available in the CSV and Markdown files\n\n")

		b.WriteString("## Next Steps\n")
		b.WriteString("- Evaluate staging accuracy with clinical experts\n")
		b.WriteString("- Extend the pipeline to handle more complex medical notes\n")
		b.WriteString("- Extend the curated disease mappings\n")
		return b.String()
	}

	b.WriteString("- Attempted to process medical notes but encountered errors\n\n")
	b.WriteString("## Current Status\n")
	b.WriteString("- The staging pipeline encountered issues during processing\n")
	b.WriteString("- Results were not generated\n")
	if st.Err != nil {
		fmt.Fprintf(&b, "- Error: %v\n", st.Err)
	}
	b.WriteString("\n## Next Steps\n")
	b.WriteString("- Debug the staging pipeline\n")
	b.WriteString("- Fix the identified issues\n")
	b.WriteString("- Retry processing the medical notes\n")
	return b.String()
}

// WriteStatus writes RenderStatus(st) to path.
func WriteStatus(path string, st Status) error {
	if err := os.WriteFile(path, []byte(RenderStatus(st)), 0o644); err != nil {
		return fmt.Errorf("report: write status %s: %w", path, err)
	}
	return nil
}

func title(s string) string {
	if s == "" {
		return "Adult"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
