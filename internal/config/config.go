package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

type Specification struct {
	Provider     string `yaml:"provider"`
	APIKey       string `yaml:"providerApiKey" envconfig:"PROVIDER_API_KEY"`
	EmbedModel   string `yaml:"providerEmbedModel" envconfig:"PROVIDER_EMBEDDING_MODEL"`
	SummaryModel string `yaml:"providerSummaryModel" envconfig:"PROVIDER_SUMMARY_MODEL"`
	ProjectID    string `yaml:"providerProjectID" envconfig:"PROVIDER_PROJECT_ID"`
	Location     string `yaml:"providerLocation" envconfig:"PROVIDER_LOCATION"`
	Dim          int    `yaml:"providerDim" envconfig:"EMBED_DIM"`

	StoreBackend string `yaml:"storeBackend" split_words:"true"`
	IndexDir     string `yaml:"indexDir" split_words:"true"`
	Database     string `yaml:"database" envconfig:"DB_URL"`

	OutputDir string `yaml:"outputDir" split_words:"true"`
	LogLevel  string `yaml:"logLevel" split_words:"true"`
	Port      int    `yaml:"port" split_words:"true"`

	Retrieval   RetrievalSpecification   `yaml:"retrieval"`
	WebSearch   WebSearchSpecification   `yaml:"webSearch" envconfig:"WEBSEARCH"`
	Procurement ProcurementSpecification `yaml:"procurement"`
	Finance     FinanceSpecification     `yaml:"finance"`
	Notices     NoticesSpecification     `yaml:"notices"`
	Auth        AuthSpecification        `yaml:"auth"`

	flags *pflag.FlagSet `ignored:"true"`
}

type RetrievalSpecification struct {
	TopK               int     `yaml:"topK" envconfig:"TOP_K"`
	ThresholdHigh      float64 `yaml:"thresholdHigh" split_words:"true"`
	ThresholdMean      float64 `yaml:"thresholdMean" split_words:"true"`
	MinCount           int     `yaml:"minCount" split_words:"true"`
	WebFallback        bool    `yaml:"webFallback" split_words:"true"`
	FallbackMax        int     `yaml:"fallbackMax" split_words:"true"`
	FallbackMaxAugment int     `yaml:"fallbackMaxAugment" split_words:"true"`
}

type WebSearchSpecification struct {
	APIKey       string   `yaml:"apiKey" envconfig:"API_KEY"`
	BaseURL      string   `yaml:"baseURL" envconfig:"BASE_URL"`
	RiskKeywords []string `yaml:"riskKeywords" split_words:"true"`
	TrustOnly    bool     `yaml:"trustOnly" split_words:"true"`
}

type ProcurementSpecification struct {
	Enabled    bool   `yaml:"enabled"`
	ServiceKey string `yaml:"serviceKey" split_words:"true"`
	BaseURL    string `yaml:"baseURL" envconfig:"BASE_URL"`
	Operation  string `yaml:"operation"`
	PageMax    int    `yaml:"pageMax" split_words:"true"`
	Rows       int    `yaml:"rows"`
}

type FinanceSpecification struct {
	BaseURL string `yaml:"baseURL" envconfig:"BASE_URL"`
}

type NoticesSpecification struct {
	SourcePriority []string `yaml:"sourcePriority" split_words:"true"`
	TrustedDomains []string `yaml:"trustedDomains" split_words:"true"`
	NIPATopK       int      `yaml:"nipaTopK" envconfig:"NIPA_TOP_K"`
	BizInfoTopK    int      `yaml:"bizinfoTopK" envconfig:"BIZINFO_TOP_K"`
	WebTopK        int      `yaml:"webTopK" envconfig:"WEB_TOP_K"`
}

type AuthSpecification struct {
	Enabled       bool   `yaml:"enabled"`
	JwtSecret     string `yaml:"jwtSecret" split_words:"true"`
	TokenTTLHours int    `yaml:"tokenTTLHours" envconfig:"TOKEN_TTL_HOURS"`
}

const envPrefix = "CONTENTSCOUT"

func (s *Specification) Usage() {
	fmt.Fprint(os.Stderr, s.flags.FlagUsages())
}

// Load => defaults < YAML < env < flags.
// configPath may be ""; if so we auto-discover.
func Load(configPath string, fs *pflag.FlagSet) (Specification, error) {
	var cfg Specification

	// set defaults (lowest precedence)
	setDefaults(&cfg)
	bindFlags(fs, &cfg)

	// config file
	path := configPath
	if path == "" {
		if v := os.Getenv(envPrefix + "_CONFIG"); v != "" {
			path = v
		} else {
			for _, cand := range []string{
				"config/contentscout.yaml",
				"config/config.yaml",
				"./contentscout.yaml",
				"./config.yaml",
			} {
				if fileExists(cand) {
					path = cand
					break
				}
			}
		}
	}

	if path != "" {
		if !fileExists(path) {
			return Specification{}, fmt.Errorf("config file not found: %s", path)
		}
		if err := loadYAML(path, &cfg); err != nil {
			return Specification{}, fmt.Errorf("load yaml %s: %w", path, err)
		}
	}

	// env overrides config file
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return Specification{}, fmt.Errorf("env override: %w", err)
	}

	// flags override everything
	if err := fs.Parse(os.Args[1:]); err != nil {
		return Specification{}, err
	}
	applyChangedFlags(fs, &cfg)

	// Minimal sanity
	switch cfg.StoreBackend {
	case "file":
	case "postgres":
		if strings.TrimSpace(cfg.Database) == "" {
			return Specification{}, fmt.Errorf("CONTENTSCOUT_DB_URL is required for the postgres store (env/file/flag)")
		}
	default:
		return Specification{}, fmt.Errorf("unknown store backend %q (want file or postgres)", cfg.StoreBackend)
	}
	if strings.TrimSpace(cfg.LogLevel) == "" {
		cfg.LogLevel = "info"
	}
	return cfg, nil
}

// ---------- helpers ----------

func loadYAML(path string, into any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, into)
}

func fileExists(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && !fi.IsDir()
}

func bindFlags(fs *pflag.FlagSet, c *Specification) {
	fs.String("config", "", "Path to config file")

	// If --config is provided on the command line, capture it now so
	// config discovery (which runs before flags.Parse) can use it.
	for i, a := range os.Args {
		if a == "--config" {
			if i+1 < len(os.Args) && !strings.HasPrefix(os.Args[i+1], "-") {
				_ = os.Setenv(envPrefix+"_CONFIG", os.Args[i+1])
			}
		} else if strings.HasPrefix(a, "--config=") {
			parts := strings.SplitN(a, "=", 2)
			if len(parts) == 2 {
				_ = os.Setenv(envPrefix+"_CONFIG", parts[1])
			}
		}
	}

	fs.String("provider", c.Provider, "Provider (e.g., stub, openai, google)")
	fs.String("provider-api-key", c.APIKey, "Provider API key")
	fs.String("provider-embedding-model", c.EmbedModel, "Provider embedding model")
	fs.String("provider-summary-model", c.SummaryModel, "Provider summary model")
	fs.String("provider-project-id", c.ProjectID, "Provider project ID")
	fs.String("provider-location", c.Location, "Provider location/region")

	fs.Int("embed-dim", c.Dim, "Embedding dimensionality")

	fs.String("store-backend", c.StoreBackend, "Vector store backend (file|postgres)")
	fs.String("index-dir", c.IndexDir, "Directory holding vectors.index and docs.jsonl")
	fs.String("db-url", c.Database, "Database URL (DSN)")

	fs.String("output-dir", c.OutputDir, "Directory for saved markdown reports")
	fs.String("log-level", c.LogLevel, "Log level (debug|info|warn|error)")
	fs.Int("port", c.Port, "API server port")

	fs.Int("top-k", c.Retrieval.TopK, "Retrieval top-K")
	fs.Float64("threshold-high", c.Retrieval.ThresholdHigh, "Top-score gating threshold")
	fs.Float64("threshold-mean", c.Retrieval.ThresholdMean, "Mean-score gating threshold")
	fs.Int("min-count", c.Retrieval.MinCount, "Minimum contexts for the mean rule")
	fs.Bool("web-fallback", c.Retrieval.WebFallback, "Enable web fallback on weak retrieval")

	fs.String("websearch-api-key", c.WebSearch.APIKey, "Web search API key")
	fs.String("websearch-base-url", c.WebSearch.BaseURL, "Web search API base URL")

	fs.Bool("procurement-enabled", c.Procurement.Enabled, "Enable the procurement notices source")
	fs.String("procurement-service-key", c.Procurement.ServiceKey, "Procurement open-data service key")
	fs.String("procurement-operation", c.Procurement.Operation, "Procurement API operation name")

	fs.StringSlice("source-priority", c.Notices.SourcePriority, "Notice source priority order")

	fs.Bool("auth-enabled", c.Auth.Enabled, "Require a bearer token on API requests")
	fs.String("auth-jwt-secret", c.Auth.JwtSecret, "JWT secret for signing tokens")

	// Used later for usage/help
	// create a shallow copy of fs (so Usage can be called safely without mutating caller)
	copied := pflag.NewFlagSet("temp", pflag.ContinueOnError)
	*copied = *fs
	c.flags = copied
}

func applyChangedFlags(fs *pflag.FlagSet, c *Specification) {
	setStr := func(name string, dst *string) {
		if fs.Changed(name) {
			v, _ := fs.GetString(name)
			*dst = v
		}
	}
	setInt := func(name string, dst *int) {
		if fs.Changed(name) {
			v, _ := fs.GetInt(name)
			*dst = v
		}
	}
	setBool := func(name string, dst *bool) {
		if fs.Changed(name) {
			v, _ := fs.GetBool(name)
			*dst = v
		}
	}
	setFloat := func(name string, dst *float64) {
		if fs.Changed(name) {
			v, _ := fs.GetFloat64(name)
			*dst = v
		}
	}
	setSlice := func(name string, dst *[]string) {
		if fs.Changed(name) {
			v, _ := fs.GetStringSlice(name)
			*dst = v
		}
	}

	// (We ignore --config here; it's for discovery.)
	setStr("provider", &c.Provider)
	setStr("provider-api-key", &c.APIKey)
	setStr("provider-embedding-model", &c.EmbedModel)
	setStr("provider-summary-model", &c.SummaryModel)
	setStr("provider-project-id", &c.ProjectID)
	setStr("provider-location", &c.Location)

	setInt("embed-dim", &c.Dim)

	setStr("store-backend", &c.StoreBackend)
	setStr("index-dir", &c.IndexDir)
	setStr("db-url", &c.Database)

	setStr("output-dir", &c.OutputDir)
	setStr("log-level", &c.LogLevel)
	setInt("port", &c.Port)

	setInt("top-k", &c.Retrieval.TopK)
	setFloat("threshold-high", &c.Retrieval.ThresholdHigh)
	setFloat("threshold-mean", &c.Retrieval.ThresholdMean)
	setInt("min-count", &c.Retrieval.MinCount)
	setBool("web-fallback", &c.Retrieval.WebFallback)

	setStr("websearch-api-key", &c.WebSearch.APIKey)
	setStr("websearch-base-url", &c.WebSearch.BaseURL)

	setBool("procurement-enabled", &c.Procurement.Enabled)
	setStr("procurement-service-key", &c.Procurement.ServiceKey)
	setStr("procurement-operation", &c.Procurement.Operation)

	setSlice("source-priority", &c.Notices.SourcePriority)

	setBool("auth-enabled", &c.Auth.Enabled)
	setStr("auth-jwt-secret", &c.Auth.JwtSecret)
}

func setDefaults(c *Specification) {
	c.Provider = "stub"
	c.Location = "us-central1"
	c.Dim = 0

	c.StoreBackend = "file"
	c.IndexDir = "index"
	c.Database = ""

	c.OutputDir = "reports"
	c.LogLevel = "info"
	c.Port = 8080

	c.Retrieval.TopK = 5
	c.Retrieval.ThresholdHigh = 0.78
	c.Retrieval.ThresholdMean = 0.45
	c.Retrieval.MinCount = 3
	c.Retrieval.WebFallback = true
	c.Retrieval.FallbackMax = 5
	c.Retrieval.FallbackMaxAugment = 2

	c.Procurement.PageMax = 3
	c.Procurement.Rows = 50

	c.Notices.NIPATopK = 3
	c.Notices.BizInfoTopK = 2
	c.Notices.WebTopK = 2

	c.Auth.Enabled = false
	c.Auth.TokenTTLHours = 24
}
