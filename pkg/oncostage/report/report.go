package report

import (
	"crypto/rand"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/oncostage/pkg/oncostage/notes"
	"github.com/cognicore/oncostage/pkg/oncostage/staging"
)

// Columns is the CSV header.
var Columns = []string{
	"Result ID",
	"Medical Note",
	"Date of Extraction",
	"Disease",
	"Category",
	"System",
	"TNM Values",
	"Extracted Stage",
	"Clinical Stage",
	"Pathologic Stage",
	"AI Stage",
	"Proceed with Staging",
	"Explanation",
	"Report",
	"Resolution",
}

const dateLayout = "2006-01-02"

// Row is one result line, already formatted for output.
type Row struct {
	ID              string
	Note            string
	Date            string
	Disease         string
	Category        string
	System          string
	TNM             string
	ExtractedStage  string
	ClinicalStage   string
	PathologicStage string
	AIStage         string
	Proceed         string
	Explanation     string
	Report          string
	Resolution      string
}

// Record returns the row in Columns order.
func (r Row) Record() []string {
	return []string{
		r.ID, r.Note, r.Date, r.Disease, r.Category, r.System, r.TNM,
		r.ExtractedStage, r.ClinicalStage, r.PathologicStage, r.AIStage,
		r.Proceed, r.Explanation, r.Report, r.Resolution,
	}
}

// IDs issues monotonic ULIDs. It is safe for concurrent use.
type IDs struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewIDs creates an ID source.
func NewIDs() *IDs {
	return &IDs{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// Next returns a new ID for time t. IDs issued for the same millisecond sort
// in issue order. Times before the Unix epoch use the current time.
func (g *IDs) Next(t time.Time) string {
	if t.Before(time.Unix(0, 0)) {
		t = time.Now()
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), g.entropy).String()
}

// Report holds the rows of a run together with the notes they came from.
type Report struct {
	Rows  []Row
	Notes []notes.Note
	// SystemLabel names the edition in the terminology section.
	SystemLabel string
	// Batch selects the multi-note layout even when the run found one note.
	Batch bool
}

// Build converts outcomes into a Report.
func Build(outcomes []staging.Outcome, sys staging.System, ids *IDs) Report {
	r := Report{SystemLabel: sys.Label}
	for _, o := range outcomes {
		proceed := "No"
		if o.Proceed {
			proceed = "Yes"
		}
		r.Rows = append(r.Rows, Row{
			ID:              ids.Next(o.ExtractedAt),
			Note:            o.Note.Name,
			Date:            o.ExtractedAt.Format(dateLayout),
			Disease:         o.Disease,
			Category:        o.Category,
			System:          o.System,
			TNM:             o.TNM,
			ExtractedStage:  o.TNM,
			ClinicalStage:   o.ClinicalStage,
			PathologicStage: o.PathologicStage,
			AIStage:         o.AIStage(),
			Proceed:         proceed,
			Explanation:     o.Explanation,
			Report:          staging.TrimSignature(o.Report),
			Resolution:      string(o.Resolution),
		})
		r.Notes = append(r.Notes, o.Note)
	}
	return r
}

// WriteCSV writes the header and one record per row.
func (r Report) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, row := range r.Rows {
		if err := cw.Write(row.Record()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Paths derives the timestamped CSV and Markdown paths from the configured
// output path: results/out.csv becomes results/out_20240501_093000.csv and
// results/out_20240501_093000.md.
func Paths(output string, now time.Time) (csvPath, mdPath string) {
	base := strings.TrimSuffix(output, filepath.Ext(output))
	stamp := now.Format("20060102_150405")
	return fmt.Sprintf("%s_%s.csv", base, stamp), fmt.Sprintf("%s_%s.md", base, stamp)
}

// Files lists what Write produced.
type Files struct {
	CSV      string
	Markdown string
}

// Write saves the report next to output, creating the directory if needed.
func Write(output string, now time.Time, r Report) (Files, error) {
	csvPath, mdPath := Paths(output, now)
	if dir := filepath.Dir(csvPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Files{}, fmt.Errorf("report: create %s: %w", dir, err)
		}
	}
	if err := writeFile(csvPath, r.WriteCSV); err != nil {
		return Files{}, err
	}
	if err := writeFile(mdPath, r.WriteMarkdown); err != nil {
		return Files{}, err
	}
	return Files{CSV: csvPath, Markdown: mdPath}, nil
}

func writeFile(path string, render func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: create %s: %w", path, err)
	}
	if err := render(f); err != nil {
		f.Close()
		return fmt.Errorf("report: write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("report: close %s: %w", path, err)
	}
	return nil
}
