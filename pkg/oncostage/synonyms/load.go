package synonyms

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/oncostage/pkg/oncostage/internalerr"
)

// Column names expected in the mapping header row.
const (
	ColumnVariation = "disease_variation"
	ColumnCategory  = "canonical_category"
)

// Source tells where a loaded table came from.
type Source string

const (
	// SourceFile means the curated mapping file was parsed.
	SourceFile Source = "file"
	// SourceBuiltin means the table was derived from category names by BasicMappings.
	SourceBuiltin Source = "builtin"
)

// RejectedRow is a mapping row that could not be used.
type RejectedRow struct {
	Line   int
	Record []string
	Reason string
}

// LoadResult is the outcome of Load. Table is never nil.
type LoadResult struct {
	Table    *Table
	Source   Source
	Path     string
	Rejected []RejectedRow
	// Err is the reason the curated source was not used, nil when Source is SourceFile.
	Err error
}

// Load reads the curated mapping at path, choosing the parser by extension
// (.csv, .yaml, .yml). Loading never fails: when the source is missing, cannot be
// parsed, or has no usable rows at all, the table is built with BasicMappings
// from the given categories and Err records why.
func Load(path string, categories []string) LoadResult {
	res := LoadResult{Path: path, Source: SourceFile}

	table, rejected, err := loadFile(path)
	if err == nil && table.Len() == 0 && len(rejected) > 0 {
		err = fmt.Errorf("synonyms: all %d rows rejected: %w", len(rejected), internalerr.ErrInvalidInput)
	}
	res.Rejected = rejected
	if err != nil {
		res.Table = BasicMappings(categories)
		res.Source = SourceBuiltin
		res.Err = err
		return res
	}
	res.Table = table
	return res
}

func loadFile(path string) (*Table, []RejectedRow, error) {
	if path == "" {
		return nil, nil, fmt.Errorf("synonyms: no mapping path: %w", internalerr.ErrNotFound)
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("synonyms: %s: %w", path, internalerr.ErrNotFound)
		}
		return nil, nil, fmt.Errorf("synonyms: open %s: %w", path, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ParseCSV(f)
	case ".yaml", ".yml":
		t, err := ParseYAML(f)
		return t, nil, err
	default:
		return nil, nil, fmt.Errorf("synonyms: unsupported mapping format %q: %w", filepath.Ext(path), internalerr.ErrInvalidInput)
	}
}

// ParseCSV reads a mapping table with a header row naming the columns
// disease_variation and canonical_category. Lines starting with '#' are comments.
// Each physical line is parsed on its own: a bad row is returned in the
// rejected list and the rest of the file is still used, so a stray quote never
// swallows the rows after it. Quoted fields may contain commas but not
// newlines. A missing header column is an error.
func ParseCSV(r io.Reader) (*Table, []RejectedRow, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		table    *Table
		rejected []RejectedRow
		varCol   = -1
		catCol   = -1
		line     int
	)
	for sc.Scan() {
		line++
		text := sc.Text()
		if line == 1 {
			text = strings.TrimPrefix(text, "\ufeff")
		}
		trimmed := strings.TrimSpace(text)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		record, err := parseRow(text)
		if table == nil {
			if err != nil {
				return nil, nil, fmt.Errorf("synonyms: header on line %d: %v: %w", line, err, internalerr.ErrInvalidInput)
			}
			for i, name := range record {
				switch strings.ToLower(strings.TrimSpace(name)) {
				case ColumnVariation:
					varCol = i
				case ColumnCategory:
					catCol = i
				}
			}
			if varCol < 0 || catCol < 0 {
				return nil, nil, fmt.Errorf("synonyms: header %v lacks %s/%s: %w", record, ColumnVariation, ColumnCategory, internalerr.ErrInvalidInput)
			}
			table = New()
			continue
		}

		if err != nil {
			rejected = append(rejected, RejectedRow{Line: line, Record: []string{text}, Reason: err.Error()})
			continue
		}
		if varCol >= len(record) || catCol >= len(record) {
			rejected = append(rejected, RejectedRow{Line: line, Record: record, Reason: "missing column"})
			continue
		}
		variation := strings.TrimSpace(record[varCol])
		category := strings.TrimSpace(record[catCol])
		if variation == "" || category == "" {
			rejected = append(rejected, RejectedRow{Line: line, Record: record, Reason: "empty field"})
			continue
		}
		table.Add(variation, category)
	}
	if err := sc.Err(); err != nil {
		return nil, nil, fmt.Errorf("synonyms: read mapping: %w", err)
	}
	if table == nil {
		return nil, nil, fmt.Errorf("synonyms: empty mapping source: %w", internalerr.ErrInvalidInput)
	}
	return table, rejected, nil
}

// parseRow parses one CSV line into its fields.
func parseRow(text string) ([]string, error) {
	cr := csv.NewReader(strings.NewReader(text))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	record, err := cr.Read()
	if err != nil {
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			return nil, perr.Err
		}
		return nil, err
	}
	return record, nil
}

// ParseYAML reads curated synonym groups.
//
// Expected format:
//
//	synonyms:
//	  - category: Larynx
//	    variations: [glottic carcinoma, supraglottic carcinoma]
//	  - category: Breast
//	    variations: [breast cancer, mammary carcinoma]
//
// Groups are inserted in document order.
func ParseYAML(r io.Reader) (*Table, error) {
	var doc struct {
		Synonyms []struct {
			Category   string   `yaml:"category"`
			Variations []string `yaml:"variations"`
		} `yaml:"synonyms"`
	}
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("synonyms: decode yaml: %w", err)
	}

	table := New()
	for _, group := range doc.Synonyms {
		category := strings.TrimSpace(group.Category)
		if category == "" {
			continue
		}
		for _, v := range group.Variations {
			if strings.TrimSpace(v) == "" {
				continue
			}
			table.Add(v, category)
		}
	}
	return table, nil
}
