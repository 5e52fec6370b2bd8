// Package config собирает настройки d-scan: дефолты, YAML-файл, .env и DSCAN_* переменные.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/devos-os/d-scan/internal/core"
	"github.com/devos-os/d-scan/internal/rules"
	"github.com/devos-os/d-scan/internal/source"
)

const (
	DefaultFile    = ".d-scan.yaml"
	envFileName    = "d-scan.env"
	defaultMaxSize = 1 << 20
)

type Config struct {
	Scan     ScanConfig     `yaml:"scan"`
	Severity SeverityConfig `yaml:"severity"`
	Sandbox  SandboxConfig  `yaml:"sandbox"`
	Tools    ToolsConfig    `yaml:"tools"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ScanConfig struct {
	Languages   []string `yaml:"languages"`
	Categories  []string `yaml:"categories"`
	Exclude     []string `yaml:"exclude"`
	MaxFileSize int64    `yaml:"max_file_size"`
}

type SeverityConfig struct {
	Min    string `yaml:"min"`
	FailOn string `yaml:"fail_on"` // "none" отключает
}

type SandboxConfig struct {
	Image    string        `yaml:"image"`
	CPUs     float64       `yaml:"cpus"`
	MemoryMB int           `yaml:"memory_mb"`
	Timeout  time.Duration `yaml:"timeout"`
	Network  bool          `yaml:"network"`
}

type ToolsConfig struct {
	Gitleaks bool `yaml:"gitleaks"`
	Checkov  bool `yaml:"checkov"`
	Trivy    bool `yaml:"trivy"`
	NpmAudit bool `yaml:"npm_audit"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Scan: ScanConfig{
			Exclude:     []string{".git", "node_modules", "vendor", "*.min.js"},
			MaxFileSize: defaultMaxSize,
		},
		Severity: SeverityConfig{Min: "low", FailOn: "critical"},
		Sandbox: SandboxConfig{
			Image:    "devos/d-scan:latest",
			CPUs:     0.5,
			MemoryMB: 512,
			Timeout:  30 * time.Second,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load применяет слои по порядку: дефолты, YAML, .env файлы, DSCAN_* переменные.
// Пустой path означает .d-scan.yaml в текущей папке, если он есть.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case explicit || !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("read config: %w", err)
	}

	// .env не перетирает уже выставленные переменные окружения
	_ = godotenv.Load(".env")
	if home, err := os.UserHomeDir(); err == nil {
		_ = godotenv.Load(filepath.Join(home, ".config", "devos", envFileName))
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	list := func(key string, dst *[]string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = splitList(v)
		}
	}
	var errs []error
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	str("DSCAN_SEVERITY", &c.Severity.Min)
	str("DSCAN_FAIL_ON", &c.Severity.FailOn)
	list("DSCAN_LANGUAGES", &c.Scan.Languages)
	list("DSCAN_CATEGORIES", &c.Scan.Categories)
	list("DSCAN_EXCLUDE", &c.Scan.Exclude)
	str("DSCAN_SANDBOX_IMAGE", &c.Sandbox.Image)
	boolean("DSCAN_SANDBOX_NETWORK", &c.Sandbox.Network)
	str("DSCAN_LOG_LEVEL", &c.Logging.Level)
	boolean("DSCAN_LOG_JSON", &c.Logging.JSON)

	if v, ok := lookup("DSCAN_MAX_FILE_SIZE"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("DSCAN_MAX_FILE_SIZE: %w", err))
		} else {
			c.Scan.MaxFileSize = n
		}
	}
	if v, ok := lookup("DSCAN_SANDBOX_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("DSCAN_SANDBOX_TIMEOUT: %w", err))
		} else {
			c.Sandbox.Timeout = d
		}
	}
	if v, ok := lookup("DSCAN_SANDBOX_MEMORY"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("DSCAN_SANDBOX_MEMORY: %w", err))
		} else {
			c.Sandbox.MemoryMB = n
		}
	}
	if v, ok := lookup("DSCAN_SANDBOX_CPUS"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("DSCAN_SANDBOX_CPUS: %w", err))
		} else {
			c.Sandbox.CPUs = f
		}
	}
	// DSCAN_TOOLS=gitleaks,trivy включает только перечисленные
	if v, ok := lookup("DSCAN_TOOLS"); ok {
		c.Tools = ToolsConfig{}
		for _, name := range splitList(v) {
			switch name {
			case "gitleaks":
				c.Tools.Gitleaks = true
			case "checkov":
				c.Tools.Checkov = true
			case "trivy":
				c.Tools.Trivy = true
			case "npm":
				c.Tools.NpmAudit = true
			case "all":
				c.Tools = ToolsConfig{Gitleaks: true, Checkov: true, Trivy: true, NpmAudit: true}
			default:
				errs = append(errs, fmt.Errorf("DSCAN_TOOLS: unknown tool %q", name))
			}
		}
	}
	return errors.Join(errs...)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if _, err := core.ParseSeverity(c.Severity.Min); err != nil {
		errs = append(errs, fmt.Errorf("severity.min: %w", err))
	}
	if _, _, err := c.FailOn(); err != nil {
		errs = append(errs, fmt.Errorf("severity.fail_on: %w", err))
	}
	for _, name := range c.Scan.Categories {
		if _, ok := rules.ParseCategory(name); !ok {
			errs = append(errs, fmt.Errorf("scan.categories: unknown category %q", name))
		}
	}
	for _, name := range c.Scan.Languages {
		if _, err := source.ParseLanguage(name); err != nil {
			errs = append(errs, fmt.Errorf("scan.languages: %w", err))
		}
	}
	if _, err := c.Excluder(); err != nil {
		errs = append(errs, fmt.Errorf("scan.exclude: %w", err))
	}
	if c.Scan.MaxFileSize <= 0 {
		errs = append(errs, errors.New("scan.max_file_size must be positive"))
	}
	if c.Sandbox.CPUs <= 0 {
		errs = append(errs, errors.New("sandbox.cpus must be positive"))
	}
	if c.Sandbox.MemoryMB <= 0 {
		errs = append(errs, errors.New("sandbox.memory_mb must be positive"))
	}
	if c.Sandbox.Timeout <= 0 {
		errs = append(errs, errors.New("sandbox.timeout must be positive"))
	}
	if _, err := zerolog.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	return errors.Join(errs...)
}

// MinSeverity returns the parsed severity.min. Call after Validate.
func (c *Config) MinSeverity() core.Severity {
	s, err := core.ParseSeverity(c.Severity.Min)
	if err != nil {
		return core.SevLow
	}
	return s
}

// FailOn returns the fail-on level; enabled is false for "none" or "".
func (c *Config) FailOn() (level core.Severity, enabled bool, err error) {
	v := strings.ToLower(strings.TrimSpace(c.Severity.FailOn))
	if v == "" || v == "none" {
		return 0, false, nil
	}
	level, err = core.ParseSeverity(v)
	if err != nil {
		return 0, false, err
	}
	return level, true, nil
}

// Categories returns the configured lexical categories, or all of them.
func (c *Config) Categories() []core.Category {
	if len(c.Scan.Categories) == 0 {
		return rules.Categories()
	}
	out := make([]core.Category, 0, len(c.Scan.Categories))
	for _, name := range c.Scan.Categories {
		if cat, ok := rules.ParseCategory(name); ok {
			out = append(out, cat)
		}
	}
	return out
}
