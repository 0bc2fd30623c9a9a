package taxonomy

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/cognicore/oncostage/pkg/oncostage/internalerr"
)

// Phase selects the clinical or pathologic branch of a disease entry.
type Phase string

const (
	Clinical   Phase = "clinical"
	Pathologic Phase = "pathologic"
)

// StageGroupingsKey is the criteria key holding the stage grouping table.
const StageGroupingsKey = "Stage_Groupings"

var errNotObject = errors.New("not a JSON object")

// Store is a read-only view of a staging document:
// category -> disease -> phase -> criteria.
// Categories and diseases keep the order they have in the document.
type Store struct {
	categories []string
	diseases   map[string][]string
	phases     map[string]map[string]map[string]any
	repaired   bool
	malformed  int
}

// Load reads and parses the staging document at path.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("taxonomy: %s: %w", path, internalerr.ErrNotFound)
		}
		return nil, fmt.Errorf("taxonomy: read %s: %w", path, err)
	}
	store, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return store, nil
}

// Parse decodes a staging document. Strict JSON is tried first; if that fails
// the document is run through Repair and decoded once more.
func Parse(data []byte) (*Store, error) {
	store, err := decode(data)
	if err == nil {
		return store, nil
	}
	store, rerr := decode(Repair(data))
	if rerr != nil {
		return nil, fmt.Errorf("taxonomy: parse staging data: %v (after repair: %v): %w", err, rerr, internalerr.ErrInvalidInput)
	}
	store.repaired = true
	return store, nil
}

// Repair fixes the known defects of hand-maintained staging files: bare T, N
// and M keys are quoted and trailing commas before a closing brace or bracket
// are dropped. Text inside string literals is never changed.
func Repair(data []byte) []byte {
	out := make([]byte, 0, len(data)+16)
	inString, escaped := false, false
	for i := 0; i < len(data); i++ {
		c := data[i]
		if inString {
			out = append(out, c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case ',':
			if j := skipSpace(data, i+1); j < len(data) && (data[j] == '}' || data[j] == ']') {
				continue
			}
		}
		out = append(out, c)
		if c != '{' && c != ',' {
			continue
		}

		// bare single-letter key: {T: or , N :
		j := skipSpace(data, i+1)
		if j >= len(data) || (data[j] != 'T' && data[j] != 'N' && data[j] != 'M') {
			continue
		}
		k := skipSpace(data, j+1)
		if k >= len(data) || data[k] != ':' {
			continue
		}
		out = append(out, data[i+1:j]...)
		out = append(out, '"', data[j], '"')
		out = append(out, data[j+1:k]...)
		i = k - 1
	}
	return out
}

func skipSpace(data []byte, i int) int {
	for i < len(data) && (data[i] == ' ' || data[i] == '\t' || data[i] == '\n' || data[i] == '\r') {
		i++
	}
	return i
}

func decode(data []byte) (*Store, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("empty document")
	}
	var doc any
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, err
	}

	s := &Store{
		diseases: make(map[string][]string),
		phases:   make(map[string]map[string]map[string]any),
	}
	switch trimmed[0] {
	case '{':
		return s, s.decodeObject(trimmed)
	case '[':
		return s, s.decodeList(trimmed)
	default:
		return nil, errors.New("top level must be an object or a list")
	}
}

func (s *Store) decodeObject(data []byte) error {
	keys, values, err := orderedObject(data)
	if err != nil {
		return err
	}
	for _, category := range keys {
		s.addCategory(category)
		diseases, dvalues, err := orderedObject(values[category])
		if errors.Is(err, errNotObject) {
			continue
		}
		if err != nil {
			return fmt.Errorf("category %q: %w", category, err)
		}
		byDisease := make(map[string]map[string]any, len(diseases))
		for _, disease := range diseases {
			var phases map[string]any
			// Non-object disease entries are kept with no criteria.
			if err := json.Unmarshal(dvalues[disease], &phases); err != nil {
				s.malformed++
				phases = nil
			}
			byDisease[disease] = phases
		}
		s.diseases[category] = diseases
		s.phases[category] = byDisease
	}
	return nil
}

func (s *Store) decodeList(data []byte) error {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	for _, item := range items {
		var named struct {
			Name *string `json:"name"`
		}
		if err := json.Unmarshal(item, &named); err != nil || named.Name == nil {
			continue
		}
		s.addCategory(*named.Name)
	}
	return nil
}

func (s *Store) addCategory(name string) {
	for _, c := range s.categories {
		if c == name {
			return
		}
	}
	s.categories = append(s.categories, name)
}

// orderedObject splits a JSON object into its keys, in document order, and
// their raw values. A repeated key keeps its first position and its last value.
func orderedObject(data []byte) ([]string, map[string]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, errNotObject
	}

	var keys []string
	values := make(map[string]json.RawMessage)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, _ := tok.(string)
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, nil, err
		}
		if _, seen := values[key]; !seen {
			keys = append(keys, key)
		}
		values[key] = v
	}
	return keys, values, nil
}

// Repaired reports whether the document needed Repair to parse.
func (s *Store) Repaired() bool {
	return s.repaired
}

// Categories returns the top-level categories in document order.
func (s *Store) Categories() []string {
	return append([]string(nil), s.categories...)
}

// Diseases returns the diseases under category in document order.
func (s *Store) Diseases(category string) []string {
	return append([]string(nil), s.diseases[category]...)
}

// FindDisease resolves a disease name inside category: exact key first, then a
// case-insensitive match, then the sole disease when the category has only one.
func (s *Store) FindDisease(category, name string) (string, bool) {
	diseases := s.diseases[category]
	name = strings.TrimSpace(name)
	if _, ok := s.phases[category][name]; ok {
		return name, true
	}
	for _, d := range diseases {
		if strings.EqualFold(d, name) {
			return d, true
		}
	}
	if len(diseases) == 1 {
		return diseases[0], true
	}
	return "", false
}

// Criteria returns the criteria for one phase of a disease. Missing keys yield
// an empty map. The returned map is shared and must not be modified.
func (s *Store) Criteria(category, disease string, phase Phase) map[string]any {
	criteria, ok := s.phases[category][disease][string(phase)].(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return criteria
}

// StageGroupings returns the Stage_Groupings table of a phase, or an empty map.
func (s *Store) StageGroupings(category, disease string, phase Phase) map[string]any {
	groupings, ok := s.Criteria(category, disease, phase)[StageGroupingsKey].(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return groupings
}

// Stats summarizes the document.
type Stats struct {
	Categories int
	Diseases   int
	// Malformed counts disease entries that are not objects and so have no criteria.
	Malformed  int
}

func (s *Store) Stats() Stats {
	st := Stats{Categories: len(s.categories), Malformed: s.malformed}
	for _, d := range s.diseases {
		st.Diseases += len(d)
	}
	return st
}
