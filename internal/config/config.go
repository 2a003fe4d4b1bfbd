// Package config loads the crawler's configuration the way the teacher's
// Config/Validate pair did, generalized to the option list in spec §6 and
// layered through viper: defaults -> YAML file -> LEGALCRAWL_* env.
// Command-line flags are not a viper layer; cmd/legalcrawl sets the few
// fields its subcommand flags cover (such as -format) after Load.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// RespectRobots is the C2 robots-policy enum.
type RespectRobots string

const (
	RobotsRespect RespectRobots = "respect"
	RobotsIgnore  RespectRobots = "ignore"
)

// ExportProfile is the C11 export-strictness enum.
type ExportProfile string

const (
	ExportStrict     ExportProfile = "strict"
	ExportPermissive ExportProfile = "permissive"
)

// Config is the full option surface from spec §6, plus the ambient
// options (dsn, log_level, log_format) this expansion adds.
type Config struct {
	Workers           int
	LeaseTTL          time.Duration
	PerEntryDeadline  time.Duration

	MinDelay time.Duration
	Jitter   time.Duration

	MaxRetries    int
	BackoffBase   time.Duration
	BackoffFactor float64
	BackoffCap    time.Duration

	MaxBodyBytes         int64
	AllowedContentTypes  []string

	RespectRobots RespectRobots

	ProxyPool       []string
	ArchiveFallback bool
	MXCheck         bool

	// CountryPatternSet names the family extractor packs (spec §4.7:
	// "de", "uk", "fr", "it", "es") that Dispatch is allowed to run for a
	// detected country; "generic" is always run regardless. Empty means
	// every built-in pack is enabled.
	CountryPatternSet []string

	StopSentinelPath string

	Blacklist []string

	ExportProfile ExportProfile
	ExportFormat  string // "csv" | "xlsx"

	DSN string

	LogLevel  string
	LogFormat string // "console" | "json"

	ErrorBudgetThreshold float64
	ErrorBudgetWindow    int
	CircuitBreakerPause  time.Duration

	SeedFile string

	// UserAgent is the single, fixed identity the crawler presents to
	// robots.txt evaluation (spec §4.2 step 4, "the configured
	// user-agent"). It intentionally does not rotate: robots rules are
	// matched against one literal token, not a disguise pool.
	UserAgent string

	// FetchUserAgents is the curated pool the Fetcher rotates through on
	// outbound page requests (spec §4.3 "rotated User-Agent from a
	// curated pool"). Distinct from UserAgent above.
	FetchUserAgents []string

	AcceptLanguage string
	MaxRedirects   int
}

// Default returns the baseline configuration, mirroring the teacher's
// DefaultConfig in shape: every field has a sane standalone value before
// any file/env/flag layer is applied.
func Default() *Config {
	return &Config{
		Workers:          20,
		LeaseTTL:         10 * time.Minute,
		PerEntryDeadline: 45 * time.Second,

		MinDelay: 1 * time.Second,
		Jitter:   500 * time.Millisecond,

		MaxRetries:    4,
		BackoffBase:   500 * time.Millisecond,
		BackoffFactor: 2.0,
		BackoffCap:    30 * time.Second,

		MaxBodyBytes:        10 * 1024 * 1024,
		AllowedContentTypes: []string{"text/html", "application/xhtml+xml"},

		RespectRobots: RobotsRespect,

		ArchiveFallback: true,
		MXCheck:         false,

		CountryPatternSet: []string{"de", "uk", "fr", "it", "es", "generic"},

		StopSentinelPath: "./STOP",

		ExportProfile: ExportStrict,
		ExportFormat:  "csv",

		DSN: "./data/legalcrawl.db",

		LogLevel:  "info",
		LogFormat: "console",

		ErrorBudgetThreshold: 0.5,
		ErrorBudgetWindow:    50,
		CircuitBreakerPause:  2 * time.Minute,

		UserAgent:       "Mozilla/5.0 (compatible; LegalCrawlBot/1.0; +https://example.com/bot)",
		FetchUserAgents: defaultFetchUserAgents,
		AcceptLanguage:  "en-US,en;q=0.9",
		MaxRedirects:    10,
	}
}

// Load layers a YAML config file (if configPath is non-empty) and
// LEGALCRAWL_ environment variables on top of Default. Environment
// variables reach only the keys registered in bindDefaults or present in
// the file; command-line flags are not read here.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetEnvPrefix("LEGALCRAWL")
	v.AutomaticEnv()
	bindDefaults(v, cfg)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configPath, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func bindDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("workers", cfg.Workers)
	v.SetDefault("leasettl", cfg.LeaseTTL)
	v.SetDefault("perentrydeadline", cfg.PerEntryDeadline)
	v.SetDefault("mindelay", cfg.MinDelay)
	v.SetDefault("jitter", cfg.Jitter)
	v.SetDefault("maxretries", cfg.MaxRetries)
	v.SetDefault("respectrobots", string(cfg.RespectRobots))
	v.SetDefault("archivefallback", cfg.ArchiveFallback)
	v.SetDefault("dsn", cfg.DSN)
	v.SetDefault("loglevel", cfg.LogLevel)
	v.SetDefault("logformat", cfg.LogFormat)
}

// Validate rejects option combinations that would make the pipeline
// misbehave, mirroring the teacher's Validate clamping invalid values
// into workable ones where that's safe and erroring where it is not.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", c.Workers)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be >= 0, got %d", c.MaxRetries)
	}
	if c.BackoffFactor <= 1.0 {
		c.BackoffFactor = 2.0
	}
	if c.RespectRobots != RobotsRespect && c.RespectRobots != RobotsIgnore {
		return fmt.Errorf("respect_robots must be %q or %q, got %q", RobotsRespect, RobotsIgnore, c.RespectRobots)
	}
	if c.ExportProfile != ExportStrict && c.ExportProfile != ExportPermissive {
		return fmt.Errorf("export_profile must be %q or %q, got %q", ExportStrict, ExportPermissive, c.ExportProfile)
	}
	if c.ExportFormat != "csv" && c.ExportFormat != "xlsx" {
		return fmt.Errorf("export_format must be csv or xlsx, got %q", c.ExportFormat)
	}
	if c.DSN == "" {
		return fmt.Errorf("dsn must not be empty")
	}
	return nil
}

// defaultFetchUserAgents is the curated rotation pool for outbound page
// requests (spec §4.3), ported from
// original_source/docker-crawler/crawler/legal_crawler/stealth_middleware.py's
// USER_AGENTS table.
var defaultFetchUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:120.0) Gecko/20100101 Firefox/120.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0",
}
