// Package config holds the repoaudit configuration: defaults,
// an optional YAML file and environment overrides. It decides
// which report sinks a run enables.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"digital.vasic.repoaudit/pkg/env"
	"digital.vasic.repoaudit/pkg/logging"
)

// Environment variables read by ApplyEnv.
const (
	EnvMetricsDB       = "REPOAUDIT_METRICS_DB"
	EnvMetricsTextfile = "REPOAUDIT_METRICS_TEXTFILE"
	EnvReportDir       = "REPOAUDIT_REPORT_DIR"
	EnvCSV             = "REPOAUDIT_CSV"
	EnvMonitorAddr     = "REPOAUDIT_MONITOR_ADDR"
	EnvProduct         = "REPOAUDIT_PRODUCT"
	EnvProductID       = "REPOAUDIT_PRODUCT_ID"
	EnvGitHubAPI       = "REPOAUDIT_GITHUB_API"
	EnvLogLevel        = "REPOAUDIT_LOG_LEVEL"
)

// Colour modes of the console sink.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Config is the complete runtime configuration.
type Config struct {
	Product ProductConfig `yaml:"product"`
	GitHub  GitHubConfig  `yaml:"github"`
	// Rules restricts runs to these rule IDs. Empty runs all.
	Rules   []string      `yaml:"rules"`
	Console ConsoleConfig `yaml:"console"`
	Report  ReportConfig  `yaml:"report"`
	Metrics MetricsConfig `yaml:"metrics"`
	Monitor MonitorConfig `yaml:"monitor"`
	Log     LogConfig     `yaml:"log"`

	// SlowCheckWarning logs a warning while a check runs
	// longer than this. Zero disables it.
	SlowCheckWarning time.Duration `yaml:"slow_check_warning"`
}

// ProductConfig names the product the audited repository
// belongs to.
type ProductConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// GitHubConfig configures the GitHub provider. The token is
// never read from the file.
type GitHubConfig struct {
	APIURL string `yaml:"api_url"`
	Token  string `yaml:"-"`
}

// ConsoleConfig configures the console sink.
type ConsoleConfig struct {
	Disabled bool   `yaml:"disabled"`
	Color    string `yaml:"color"`
}

// ReportConfig configures the file sinks.
type ReportConfig struct {
	// Dir enables the summary sink, written to this directory.
	Dir string `yaml:"dir"`
	// CSV enables the CSV sink, written to this file.
	CSV string `yaml:"csv"`
}

// MetricsConfig configures the metrics sink. It is enabled when
// at least one store is set.
type MetricsConfig struct {
	DB           string        `yaml:"db"`
	Textfile     string        `yaml:"textfile"`
	FlushTimeout time.Duration `yaml:"flush_timeout"`
}

// MonitorConfig configures the live event stream.
type MonitorConfig struct {
	// Addr enables the monitor server on this address.
	Addr string `yaml:"addr"`
}

// LogConfig configures diagnostics logging.
type LogConfig struct {
	Level string `yaml:"level"`
	// File tees JSON Lines logs to this path.
	File string `yaml:"file"`
}

// Default returns the configuration used when nothing is set:
// console output only.
func Default() *Config {
	return &Config{
		Console: ConsoleConfig{Color: ColorAuto},
		Metrics: MetricsConfig{FlushTimeout: 30 * time.Second},
		Log:     LogConfig{Level: "info"},
	}
}

// Load reads the YAML file at path over the defaults. An empty
// path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides the configuration with environment values.
func (c *Config) ApplyEnv(l env.Loader) {
	set := func(dst *string, key string) {
		if v := l.Get(key); v != "" {
			*dst = v
		}
	}
	set(&c.Metrics.DB, EnvMetricsDB)
	set(&c.Metrics.Textfile, EnvMetricsTextfile)
	set(&c.Report.Dir, EnvReportDir)
	set(&c.Report.CSV, EnvCSV)
	set(&c.Monitor.Addr, EnvMonitorAddr)
	set(&c.Product.Name, EnvProduct)
	set(&c.Product.ID, EnvProductID)
	set(&c.GitHub.APIURL, EnvGitHubAPI)
	set(&c.Log.Level, EnvLogLevel)
	c.GitHub.Token = l.Token("github")
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	switch c.Console.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		errs = append(errs, fmt.Errorf(
			"console.color must be auto, always or never, got %q",
			c.Console.Color))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Metrics.FlushTimeout < 0 {
		errs = append(errs, errors.New("metrics.flush_timeout must not be negative"))
	}
	if c.SlowCheckWarning < 0 {
		errs = append(errs, errors.New("slow_check_warning must not be negative"))
	}
	return errors.Join(errs...)
}

// MetricsEnabled reports whether any metrics store is set.
func (c *Config) MetricsEnabled() bool {
	return c.Metrics.DB != "" || c.Metrics.Textfile != ""
}

// UseColor resolves the console colour mode against whether
// the output is a terminal.
func (c *Config) UseColor(isTerminal bool) bool {
	switch c.Console.Color {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	default:
		return isTerminal
	}
}
