package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/cognicore/oncostage/internal/llm"
	"github.com/cognicore/oncostage/pkg/oncostage/internalerr"
	"github.com/cognicore/oncostage/pkg/oncostage/matcher"
	"github.com/cognicore/oncostage/pkg/oncostage/staging"
)

// Config is the run configuration.
type Config struct {
	System      string `yaml:"system"`
	StagingData string `yaml:"staging_data"`
	Mapping     string `yaml:"mapping"`
	Output      string `yaml:"output"`
	Status      string `yaml:"status"`
	Workers     int    `yaml:"workers"`
	LogLevel    string `yaml:"log_level"`

	Match struct {
		Strategy string `yaml:"strategy"`
	} `yaml:"match"`

	LLM LLM `yaml:"llm"`
}

// LLM configures the chat model client.
type LLM struct {
	Provider       string  `yaml:"provider"`
	BaseURL        string  `yaml:"base_url"`
	Model          string  `yaml:"model"`
	APIKey         string  `yaml:"api_key"`
	APIVersion     string  `yaml:"api_version"`
	Deployment     string  `yaml:"deployment"`
	Temperature    float64 `yaml:"temperature"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
}

const (
	DefaultModel   = "gpt-4o-mini"
	DefaultMapping = "disease_mappings.csv"
	DefaultOutput  = "results/results.csv"
	DefaultStatus  = "project_status.md"
	DefaultTimeout = 60
)

// Load reads a YAML config file and applies defaults. An empty path yields
// the defaults.
func Load(path string) (Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return cfg, err
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// Read reads a YAML config file without applying defaults, so callers can
// overlay flags first. An empty path yields the zero Config.
func Read(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("config: %s: %w", path, internalerr.ErrNotFound)
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %v: %w", path, err, internalerr.ErrInvalidConfig)
	}
	return cfg, nil
}

// ApplyDefaults fills unset fields. Staging data defaults per system.
func (c *Config) ApplyDefaults() {
	if c.System == "" {
		c.System = staging.AJCC8.Name
	}
	if c.StagingData == "" {
		if strings.EqualFold(c.System, staging.Toronto.Name) {
			c.StagingData = "toronto_staging.json"
		} else {
			c.StagingData = "AJCC8.json"
		}
	}
	if c.Mapping == "" {
		c.Mapping = DefaultMapping
	}
	if c.Output == "" {
		c.Output = DefaultOutput
	}
	if c.Status == "" {
		c.Status = DefaultStatus
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = DefaultModel
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = DefaultTimeout
	}
}

// LoadEnv loads KEY=VALUE pairs from a dotenv file into the process
// environment. Variables already set are kept. A missing file is not an error.
func LoadEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays credentials from the environment. Set variables win over
// file values. Without an explicit provider, Azure is selected when
// AZURE_API_KEY is present.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}

	if c.LLM.Provider == "" {
		c.LLM.Provider = string(llm.ProviderOpenAI)
		if getenv("AZURE_API_KEY") != "" {
			c.LLM.Provider = string(llm.ProviderAzure)
		}
	}
	switch llm.Provider(strings.ToLower(c.LLM.Provider)) {
	case llm.ProviderAzure:
		set(&c.LLM.APIKey, "AZURE_API_KEY")
		set(&c.LLM.BaseURL, "AZURE_ENDPOINT")
		set(&c.LLM.APIVersion, "AZURE_API_VERSION")
		set(&c.LLM.Deployment, "AZURE_GPT4O_DEPLOYMENT")
		if c.LLM.Deployment == "" {
			c.LLM.Deployment = c.LLM.Model
		}
	default:
		set(&c.LLM.APIKey, "OPENAI_API_KEY")
		set(&c.LLM.BaseURL, "OPENAI_BASE_URL")
	}
}

// Validate checks the settings every command needs.
func (c Config) Validate() error {
	var problems []string
	if _, err := staging.SystemByName(c.System); err != nil {
		problems = append(problems, fmt.Sprintf("unknown system %q", c.System))
	}
	if _, err := matcher.ParseStrategy(c.Match.Strategy); err != nil {
		problems = append(problems, fmt.Sprintf("unknown match strategy %q", c.Match.Strategy))
	}
	if c.StagingData == "" {
		problems = append(problems, "staging_data required")
	}
	if c.Workers < 1 {
		problems = append(problems, "workers must be at least 1")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		problems = append(problems, fmt.Sprintf("unknown log level %q", c.LogLevel))
	}
	return joinProblems(problems)
}

// ValidateLLM checks that the model credentials are complete.
func (c Config) ValidateLLM() error {
	var problems []string
	switch llm.Provider(strings.ToLower(c.LLM.Provider)) {
	case llm.ProviderAzure:
		for _, f := range []struct{ value, env string }{
			{c.LLM.APIKey, "AZURE_API_KEY"},
			{c.LLM.BaseURL, "AZURE_ENDPOINT"},
			{c.LLM.APIVersion, "AZURE_API_VERSION"},
			{c.LLM.Deployment, "AZURE_GPT4O_DEPLOYMENT"},
		} {
			if f.value == "" {
				problems = append(problems, f.env+" not set")
			}
		}
	case llm.ProviderOpenAI, "":
		if c.LLM.APIKey == "" {
			problems = append(problems, "OPENAI_API_KEY not set")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown llm provider %q", c.LLM.Provider))
	}
	return joinProblems(problems)
}

func joinProblems(problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("config: %s: %w", strings.Join(problems, "; "), internalerr.ErrInvalidConfig)
}

// Client builds the chat client described by the LLM section.
func (c Config) Client() *llm.Client {
	return &llm.Client{
		Provider:    llm.Provider(strings.ToLower(c.LLM.Provider)),
		BaseURL:     c.LLM.BaseURL,
		APIKey:      c.LLM.APIKey,
		Model:       c.LLM.Model,
		Deployment:  c.LLM.Deployment,
		APIVersion:  c.LLM.APIVersion,
		Temperature: c.LLM.Temperature,
		Timeout:     time.Duration(c.LLM.TimeoutSeconds) * time.Second,
	}
}

// ProviderName is a readable provider label for status output.
func (c Config) ProviderName() string {
	if llm.Provider(strings.ToLower(c.LLM.Provider)) == llm.ProviderAzure {
		return "Azure OpenAI"
	}
	return "OpenAI"
}

// NewLogger returns a text logger at the configured level writing to out.
func (c Config) NewLogger(out io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("config: %v: %w", err, internalerr.ErrInvalidConfig)
	}
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return logger, nil
}
