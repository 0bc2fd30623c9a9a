package staging

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/cognicore/oncostage/pkg/oncostage/matcher"
	"github.com/cognicore/oncostage/pkg/oncostage/notes"
	"github.com/cognicore/oncostage/pkg/oncostage/taxonomy"
)

// Completer sends a system and a user message to a chat model.
type Completer interface {
	Chat(ctx context.Context, system, user string) (string, error)
}

// NotApplicableReport is the report text of short-circuited notes.
const NotApplicableReport = "Staging not applicable for this cancer type."

// Resolution records how the category of an outcome was decided.
type Resolution string

const (
	ResolvedByClassifier Resolution = "classifier"
	ResolvedUnmatched    Resolution = "unmatched"
)

// ResolvedByMatcher is the resolution for a matcher rescue at tier t.
func ResolvedByMatcher(t matcher.Tier) Resolution {
	return Resolution("matcher:" + t.String())
}

// Outcome is the staging result for one note.
type Outcome struct {
	Note            notes.Note
	ExtractedAt     time.Time
	Disease         string
	Category        string
	System          string
	TNM             string
	ClinicalStage   string
	PathologicStage string
	Explanation     string
	Report          string
	Proceed         bool
	Resolution      Resolution
}

// AIStage combines both stages in one line.
func (o Outcome) AIStage() string {
	return fmt.Sprintf("Clinical: %s, Pathologic: %s", o.ClinicalStage, o.PathologicStage)
}

// Options configures a Processor.
type Options struct {
	Matcher  *matcher.Context
	Taxonomy *taxonomy.Store
	LLM      Completer
	System   System
	Logger   *logrus.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Processor runs the staging pipeline. It holds only read-only state and is
// safe for concurrent use.
type Processor struct {
	matcher  *matcher.Context
	taxonomy *taxonomy.Store
	llm      Completer
	system   System
	logger   *logrus.Logger
	now      func() time.Time
}

// NewProcessor creates a Processor. A nil logger discards output; a nil
// matcher or taxonomy behaves as an empty one.
func NewProcessor(opts Options) *Processor {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	m := opts.Matcher
	if m == nil {
		m = matcher.NewContext(nil, nil, matcher.FirstMatch)
	}
	tax := opts.Taxonomy
	if tax == nil {
		tax = &taxonomy.Store{}
	}
	return &Processor{
		matcher:  m,
		taxonomy: tax,
		llm:      opts.LLM,
		system:   opts.System,
		logger:   logger,
		now:      now,
	}
}

// System returns the staging system in use.
func (p *Processor) System() System {
	return p.system
}

// ProcessNote identifies the cancer in a note and, when it is covered by the
// staging system, analyzes criteria, calculates stages and writes a report.
// Notes whose category stays unmatched, or that the classifier declines to
// stage, get a not-applicable outcome without further model calls.
func (p *Processor) ProcessNote(ctx context.Context, note notes.Note) (Outcome, error) {
	log := p.logger.WithField("note", note.Name)
	out := Outcome{
		Note:        note,
		ExtractedAt: p.now(),
		System:      p.system.ReportLabel,
	}

	examples := p.matcher.Synonyms().Head(mappingExamples)
	resp, err := p.chat(ctx, log, "identify", p.system.Identifier,
		identifyPrompt(p.system, note.Text, p.matcher.Categories(), examples))
	if err != nil {
		return Outcome{}, err
	}
	id, err := ParseIdentification(resp, p.system.Unmatched)
	if err != nil {
		return Outcome{}, fmt.Errorf("%s: %w", note.Name, err)
	}

	out.Resolution = ResolvedByClassifier
	if p.system.IsUnmatched(id.Category) {
		res := p.matcher.Match(id.CancerType)
		if res.Matched() {
			id.Category = res.Category
			id.Proceed = true
			out.Resolution = ResolvedByMatcher(res.Tier)
			log.WithFields(logrus.Fields{
				"disease":  id.CancerType,
				"category": res.Category,
				"tier":     res.Tier.String(),
			}).Info("category resolved by matcher")
		} else {
			id.Category = p.system.Unmatched
			out.Resolution = ResolvedUnmatched
		}
	} else if !p.matcher.Known(id.Category) {
		log.WithField("category", id.Category).Warn("classifier returned a category outside the taxonomy")
	}

	out.Disease = id.CancerType
	out.Category = id.Category
	out.TNM = id.TNM

	if !id.Proceed || p.system.IsUnmatched(id.Category) {
		log.WithFields(logrus.Fields{
			"disease":  id.CancerType,
			"category": id.Category,
		}).Info("staging not applicable")
		out.ClinicalStage = NotApplicable
		out.PathologicStage = NotApplicable
		out.Explanation = p.system.NotApplicableExplanation()
		out.Report = NotApplicableReport
		return out, nil
	}
	out.Proceed = true

	disease := id.CancerType
	if d, ok := p.taxonomy.FindDisease(id.Category, id.CancerType); ok {
		disease = d
	}

	analysis, err := p.chat(ctx, log, "analyze", p.system.Analyzer,
		analyzePrompt(p.system, note.Text, id,
			p.taxonomy.Criteria(id.Category, disease, taxonomy.Clinical),
			p.taxonomy.Criteria(id.Category, disease, taxonomy.Pathologic)))
	if err != nil {
		return Outcome{}, err
	}

	stageResp, err := p.chat(ctx, log, "calculate", p.system.Calculator,
		calculatePrompt(p.system, note.Text, id, analysis,
			p.taxonomy.StageGroupings(id.Category, disease, taxonomy.Clinical),
			p.taxonomy.StageGroupings(id.Category, disease, taxonomy.Pathologic)))
	if err != nil {
		return Outcome{}, err
	}
	st := ParseStage(stageResp)
	out.ClinicalStage = st.Clinical
	out.PathologicStage = st.Pathologic
	out.Explanation = st.Explanation

	report, err := p.chat(ctx, log, "report", p.system.Reporter, reportPrompt(note.Text, id, st, analysis))
	if err != nil {
		return Outcome{}, err
	}
	out.Report = TrimSignature(report)

	log.WithFields(logrus.Fields{
		"category":   out.Category,
		"clinical":   out.ClinicalStage,
		"pathologic": out.PathologicStage,
	}).Info("note staged")
	return out, nil
}

func (p *Processor) chat(ctx context.Context, log *logrus.Entry, step string, persona Persona, prompt string) (string, error) {
	start := time.Now()
	resp, err := p.llm.Chat(ctx, persona.Prompt(), prompt)
	if err != nil {
		return "", fmt.Errorf("staging: %s step: %w", step, err)
	}
	log.WithFields(logrus.Fields{"step": step, "elapsed": time.Since(start).Round(time.Millisecond)}).Debug("model call done")
	return resp, nil
}

// ProcessAll stages notes with at most workers notes in flight. Outcomes keep
// the input order. The first error cancels the remaining notes.
func (p *Processor) ProcessAll(ctx context.Context, batch []notes.Note, workers int) ([]Outcome, error) {
	if workers < 1 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	out := make([]Outcome, len(batch))
	for i, n := range batch {
		i, n := i, n
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			o, err := p.ProcessNote(gctx, n)
			if err != nil {
				return err
			}
			out[i] = o
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
