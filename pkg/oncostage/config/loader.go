package config

import (
	"fmt"

	"github.com/cognicore/oncostage/pkg/oncostage/matcher"
	"github.com/cognicore/oncostage/pkg/oncostage/staging"
	"github.com/cognicore/oncostage/pkg/oncostage/synonyms"
	"github.com/cognicore/oncostage/pkg/oncostage/taxonomy"
)

// Loader loads the data files and constructs components
type Loader struct {
	StagingDataPath string
	MappingPath     string
	Strategy        string
	System          string
}

// Components holds the loaded components
type Components struct {
	Taxonomy *taxonomy.Store
	Synonyms synonyms.LoadResult
	Matcher  *matcher.Context
	System   staging.System
}

// NewLoader returns a Loader for the files named in cfg.
func NewLoader(cfg Config) *Loader {
	return &Loader{
		StagingDataPath: cfg.StagingData,
		MappingPath:     cfg.Mapping,
		Strategy:        cfg.Match.Strategy,
		System:          cfg.System,
	}
}

// Load reads the staging document, then the mapping (falling back to
// builtin mappings over the document's categories), and builds the matcher.
func (l *Loader) Load() (*Components, error) {
	sys, err := staging.SystemByName(l.System)
	if err != nil {
		return nil, err
	}
	strategy, err := matcher.ParseStrategy(l.Strategy)
	if err != nil {
		return nil, err
	}

	store, err := taxonomy.Load(l.StagingDataPath)
	if err != nil {
		return nil, fmt.Errorf("load staging data: %w", err)
	}

	comp := &Components{Taxonomy: store, System: sys}
	comp.Synonyms = synonyms.Load(l.MappingPath, store.Categories())
	comp.Matcher = matcher.NewContext(comp.Synonyms.Table, store.Categories(), strategy)
	return comp, nil
}
