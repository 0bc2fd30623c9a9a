package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/sirupsen/logrus"

	"github.com/cognicore/oncostage/pkg/oncostage/config"
	"github.com/cognicore/oncostage/pkg/oncostage/matcher"
	"github.com/cognicore/oncostage/pkg/oncostage/staging"
)

func main() {
	var (
		configPath  = flag.String("config", "", "YAML config file (optional)")
		stagingData = flag.String("staging-data", "", "staging criteria JSON")
		mapping     = flag.String("mapping", "", "disease mapping CSV or YAML")
		strategy    = flag.String("strategy", "", "fuzzy match strategy: first or best")
		system      = flag.String("system", "", "staging system: ajcc8 or toronto")
		logLevel    = flag.String("log-level", "", "log level")
		mention     = flag.String("mention", "", "disease mention to match (reads stdin lines when empty)")
	)
	flag.Parse()

	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	cfg, err := config.Read(*configPath)
	if err != nil {
		logger.WithError(err).Fatal("read config")
	}
	for dst, v := range map[*string]string{
		&cfg.StagingData:    *stagingData,
		&cfg.Mapping:        *mapping,
		&cfg.Match.Strategy: *strategy,
		&cfg.System:         *system,
		&cfg.LogLevel:       *logLevel,
	} {
		if v != "" {
			*dst = v
		}
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	if logger, err = cfg.NewLogger(os.Stderr); err != nil {
		logrus.WithError(err).Fatal("create logger")
	}

	comp, err := loadMatcher(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("load matcher")
	}

	var mentions []string
	if *mention != "" {
		mentions = []string{*mention}
	} else {
		mentions, err = readMentions(os.Stdin)
		if err != nil {
			logger.WithError(err).Fatal("read mentions")
		}
	}
	if err := printMatches(os.Stdout, comp.Matcher, comp.System, mentions); err != nil {
		logger.WithError(err).Fatal("print matches")
	}
}

// loadMatcher loads the staging data and mappings named in cfg and logs where
// the mappings came from.
func loadMatcher(cfg config.Config, logger *logrus.Logger) (*config.Components, error) {
	comp, err := config.NewLoader(cfg).Load()
	if err != nil {
		return nil, err
	}
	syn := comp.Synonyms
	fields := logrus.Fields{
		"path":     syn.Path,
		"source":   syn.Source,
		"mappings": syn.Table.Len(),
		"rejected": len(syn.Rejected),
		"strategy": comp.Matcher.Strategy().String(),
	}
	if syn.Err != nil {
		logger.WithFields(fields).WithError(syn.Err).Warn("curated mappings unavailable, using builtin mappings")
	} else {
		logger.WithFields(fields).Debug("disease mappings loaded")
	}
	return comp, nil
}

// readMentions returns the non-blank lines of r.
func readMentions(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			out = append(out, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read mentions: %w", err)
	}
	return out, nil
}

func printMatches(w io.Writer, m *matcher.Context, sys staging.System, mentions []string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MENTION\tCATEGORY\tTIER\tVARIATION\tSCORE")
	for _, mention := range mentions {
		res := m.Match(mention)
		variation := res.Variation
		if variation == "" {
			variation = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.2f\n", mention, res.Label(sys.Unmatched), res.Tier, variation, res.Score)
	}
	return tw.Flush()
}
