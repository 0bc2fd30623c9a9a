package staging

import (
	"fmt"
	"strings"

	"github.com/cognicore/oncostage/pkg/oncostage/internalerr"
)

// Persona is the role a model plays for one step of the pipeline.
type Persona struct {
	Role      string
	Goal      string
	Backstory string
}

// Prompt renders the persona as a system message.
func (p Persona) Prompt() string {
	return fmt.Sprintf("You are the %s. Your goal: %s\n\n%s", p.Role, p.Goal, p.Backstory)
}

// System describes a staging system and the wording used with it.
type System struct {
	Name        string // short name used in config, e.g. "ajcc8"
	Label       string // human label, e.g. "AJCC 8th Edition"
	ReportLabel string // value of the System column
	Population  string
	// Unmatched is the category sentinel for cancers the system does not cover.
	Unmatched string

	Identifier Persona
	Analyzer   Persona
	Calculator Persona
	Reporter   Persona
}

// NotApplicableExplanation is the explanation recorded for short-circuited notes.
func (s System) NotApplicableExplanation() string {
	return fmt.Sprintf("This cancer type is not included in the %s staging system.", s.Label)
}

// IsUnmatched reports whether category is empty or the system's sentinel.
func (s System) IsUnmatched(category string) bool {
	category = strings.TrimSpace(category)
	return category == "" || strings.EqualFold(category, s.Unmatched)
}

func personas(label string) (identifier, analyzer, calculator, reporter Persona) {
	identifier = Persona{
		Role: "Oncology Specialist",
		Goal: fmt.Sprintf("Identify the specific cancer type and any mentioned TNM values in medical notes, verifying the cancer exists in the %s staging system", label),
		Backstory: "You are a specialist in oncology with extensive experience in diagnosing cancers. " +
			"You identify specific cancer subtypes from medical notes, pathology reports and imaging studies, " +
			"extract any TNM staging information that is mentioned, and check that the cancer is covered by " + label + " before staging proceeds.",
	}
	analyzer = Persona{
		Role: label + " Cancer Staging Specialist",
		Goal: "Identify which staging criteria are present in the medical note for a specific cancer type",
		Backstory: "You are a specialist in cancer staging with deep knowledge of " + label + ". " +
			"You analyze medical notes and identify which staging criteria are present for a particular cancer type, " +
			"distinguishing clinical from pathologic findings.",
	}
	calculator = Persona{
		Role: "Cancer Stage Calculator",
		Goal: "Calculate the clinical and pathologic stages from the identified criteria using " + label,
		Backstory: "You are an expert in applying " + label + ". You determine clinical and pathologic stages " +
			"from the criteria present in the medical notes and know the TNM classification and the stage groupings of each cancer type.",
	}
	reporter = Persona{
		Role: "Cancer Staging Report Specialist",
		Goal: "Generate accurate staging reports",
		Backstory: "You write clear, concise cancer staging reports in standard medical documentation format. " +
			"You always include the relevant TNM values, stage groupings and how the stage was determined under " + label + ".",
	}
	return
}

func newSystem(name, label, reportLabel, population, unmatched string) System {
	s := System{
		Name:        name,
		Label:       label,
		ReportLabel: reportLabel,
		Population:  population,
		Unmatched:   unmatched,
	}
	s.Identifier, s.Analyzer, s.Calculator, s.Reporter = personas(label)
	return s
}

// Built-in systems.
var (
	AJCC8   = newSystem("ajcc8", "AJCC 8th Edition", "AJCC8 system", "adult", "Not in AJCC 8th Edition")
	Toronto = newSystem("toronto", "Toronto", "Toronto system", "pediatric", "Not in Toronto staging system")
)

// SystemByName returns a built-in system. Empty selects AJCC8.
func SystemByName(name string) (System, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "ajcc8", "ajcc":
		return AJCC8, nil
	case "toronto":
		return Toronto, nil
	default:
		return System{}, fmt.Errorf("staging: unknown system %q: %w", name, internalerr.ErrInvalidConfig)
	}
}
