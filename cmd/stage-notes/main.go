package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cognicore/oncostage/pkg/oncostage/config"
	"github.com/cognicore/oncostage/pkg/oncostage/notes"
	"github.com/cognicore/oncostage/pkg/oncostage/report"
	"github.com/cognicore/oncostage/pkg/oncostage/staging"
)

const defaultNote = "hn_example.txt"

type options struct {
	configPath  string
	envPath     string
	note        string
	noteDir     string
	output      string
	status      string
	stagingData string
	mapping     string
	model       string
	system      string
	strategy    string
	logLevel    string
	workers     int
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("stage-notes", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", "", "YAML config file (optional)")
	fs.StringVar(&opts.envPath, "env", ".env", "dotenv file with API credentials")
	fs.StringVar(&opts.note, "note", "", "single note file (.txt, .md, .html or .jsonl batch)")
	fs.StringVar(&opts.noteDir, "note-dir", "", "directory of note files")
	fs.StringVar(&opts.output, "output", "", "output CSV path; a timestamp is appended")
	fs.StringVar(&opts.status, "status", "", "project status Markdown path")
	fs.StringVar(&opts.stagingData, "staging-data", "", "staging criteria JSON")
	fs.StringVar(&opts.mapping, "mapping", "", "disease mapping CSV or YAML")
	fs.StringVar(&opts.model, "model", "", "chat model name")
	fs.StringVar(&opts.system, "system", "", "staging system: ajcc8 or toronto")
	fs.StringVar(&opts.strategy, "strategy", "", "fuzzy match strategy: first or best")
	fs.StringVar(&opts.logLevel, "log-level", "", "log level")
	fs.IntVar(&opts.workers, "workers", 0, "notes processed concurrently")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		return opts, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	if opts.note != "" && opts.noteDir != "" {
		return opts, errors.New("-note and -note-dir are mutually exclusive")
	}
	return opts, nil
}

// resolveConfig layers defaults < config file < environment < flags.
func resolveConfig(opts options, getenv func(string) string) (config.Config, error) {
	cfg, err := config.Read(opts.configPath)
	if err != nil {
		return cfg, err
	}
	override := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	override(&cfg.System, opts.system)
	override(&cfg.StagingData, opts.stagingData)
	override(&cfg.Mapping, opts.mapping)
	override(&cfg.Output, opts.output)
	override(&cfg.Status, opts.status)
	override(&cfg.Match.Strategy, opts.strategy)
	override(&cfg.LogLevel, opts.logLevel)
	override(&cfg.LLM.Model, opts.model)
	if opts.workers > 0 {
		cfg.Workers = opts.workers
	}
	cfg.ApplyDefaults()
	cfg.ApplyEnv(getenv)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func collectNotes(opts options) ([]notes.Note, error) {
	if opts.noteDir != "" {
		return notes.ReadDir(opts.noteDir)
	}
	path := opts.note
	if path == "" {
		path = defaultNote
	}
	if strings.EqualFold(filepath.Ext(path), ".jsonl") {
		batch, err := notes.LoadJSONL(path)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			return nil, fmt.Errorf("no notes in %s", path)
		}
		return batch, nil
	}
	n, err := notes.Read(path)
	if err != nil {
		return nil, err
	}
	return []notes.Note{n}, nil
}

// batchRun reports whether the notes come from a directory or a batch file,
// which always get the multi-note report layout.
func batchRun(opts options) bool {
	return opts.noteDir != "" || strings.EqualFold(filepath.Ext(opts.note), ".jsonl")
}

// run stages every note and writes the CSV and Markdown reports. A nil
// completer uses the client described by cfg.
func run(ctx context.Context, cfg config.Config, batch []notes.Note, multi bool, llm staging.Completer, logger *logrus.Logger) (report.Files, error) {
	comp, err := config.NewLoader(cfg).Load()
	if err != nil {
		return report.Files{}, err
	}
	tstats := comp.Taxonomy.Stats()
	logger.WithFields(logrus.Fields{
		"path":       cfg.StagingData,
		"categories": tstats.Categories,
		"diseases":   tstats.Diseases,
		"repaired":   comp.Taxonomy.Repaired(),
	}).Info("staging data loaded")
	if tstats.Malformed > 0 {
		logger.WithField("malformed", tstats.Malformed).Warn("disease entries without criteria objects")
	}

	syn := comp.Synonyms
	fields := logrus.Fields{
		"path":     syn.Path,
		"source":   syn.Source,
		"mappings": syn.Table.Len(),
		"rejected": len(syn.Rejected),
	}
	if syn.Err != nil {
		logger.WithFields(fields).WithError(syn.Err).Warn("curated mappings unavailable, using builtin mappings")
	} else {
		logger.WithFields(fields).Info("disease mappings loaded")
	}
	for _, r := range syn.Rejected {
		logger.WithFields(logrus.Fields{"line": r.Line, "reason": r.Reason}).Debug("mapping row rejected")
	}

	if llm == nil {
		if err := cfg.ValidateLLM(); err != nil {
			return report.Files{}, err
		}
		llm = cfg.Client()
	}

	proc := staging.NewProcessor(staging.Options{
		Matcher:  comp.Matcher,
		Taxonomy: comp.Taxonomy,
		LLM:      llm,
		System:   comp.System,
		Logger:   logger,
	})

	logger.WithFields(logrus.Fields{
		"notes":   len(batch),
		"workers": cfg.Workers,
		"system":  comp.System.Label,
	}).Info("processing notes")
	outcomes, err := proc.ProcessAll(ctx, batch, cfg.Workers)
	if err != nil {
		return report.Files{}, err
	}

	rep := report.Build(outcomes, comp.System, report.NewIDs())
	rep.Batch = multi
	files, err := report.Write(cfg.Output, time.Now(), rep)
	if err != nil {
		return report.Files{}, err
	}
	logger.WithFields(logrus.Fields{"csv": files.CSV, "markdown": files.Markdown}).Info("results saved")
	return files, nil
}

func main() {
	if err := realMain(os.Args[1:], os.Stderr); err != nil {
		os.Exit(1)
	}
}

func realMain(args []string, stderr io.Writer) error {
	opts, err := parseFlags(args)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(stderr, err)
		}
		return err
	}

	if err := config.LoadEnv(opts.envPath); err != nil {
		fmt.Fprintln(stderr, err)
		return err
	}
	cfg, err := resolveConfig(opts, os.Getenv)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return err
	}
	logger, err := cfg.NewLogger(stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sys, _ := staging.SystemByName(cfg.System)
	st := report.Status{
		Population: sys.Population,
		System:     sys.Label,
		Provider:   cfg.ProviderName(),
	}

	batch, err := collectNotes(opts)
	if err == nil {
		var files report.Files
		files, err = run(ctx, cfg, batch, batchRun(opts), nil, logger)
		st.ResultsPath = files.CSV
		st.Notes = len(batch)
	}
	st.Success = err == nil
	st.Err = err

	if serr := report.WriteStatus(cfg.Status, st); serr != nil {
		logger.WithError(serr).Warn("could not write project status")
	}
	if err != nil {
		logger.WithError(err).Error("staging failed")
		return err
	}
	return nil
}
