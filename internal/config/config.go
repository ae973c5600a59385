package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/recon/internal/match"
	"github.com/cleared-dev/recon/internal/schema"
	"github.com/cleared-dev/recon/internal/validate"
)

// FileName is the config file looked up in the working directory.
const FileName = "recon.yaml"

// EnvPrefix prefixes environment overrides, e.g. RECON_THRESHOLDS_REVIEW.
const EnvPrefix = "RECON"

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("invalid config")

// Config represents the top-level recon.yaml configuration.
type Config struct {
	Thresholds match.Thresholds `yaml:"thresholds" mapstructure:"thresholds"`
	Validation ValidationConfig `yaml:"validation" mapstructure:"validation"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Paths      PathsConfig      `yaml:"paths" mapstructure:"paths"`
	// Fields replaces the built-in canonical field table when non-empty.
	Fields []schema.Field `yaml:"fields,omitempty" mapstructure:"fields"`
}

// ValidationConfig toggles optional row rules.
type ValidationConfig struct {
	StrictDates bool `yaml:"strict_dates" mapstructure:"strict_dates"`
}

// PipelineConfig sizes the worker pools.
type PipelineConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// PathsConfig locates project directories, relative to the working directory.
type PathsConfig struct {
	ImportDir  string `yaml:"import_dir" mapstructure:"import_dir"`
	ReportsDir string `yaml:"reports_dir" mapstructure:"reports_dir"`
}

// Default returns a Config with the stock thresholds and layout.
func Default() *Config {
	return &Config{
		Thresholds: match.DefaultThresholds(),
		Pipeline:   PipelineConfig{Workers: 4},
		Paths: PathsConfig{
			ImportDir:  "import",
			ReportsDir: "reports",
		},
	}
}

// Load reads a recon.yaml file from disk. RECON_* environment variables
// override file values; keys missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return load(path)
}

// LoadOptional is Load, except a missing file yields the defaults (still
// subject to environment overrides).
func LoadOptional(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return load("")
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return load(path)
}

func load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("thresholds.auto_accept", d.Thresholds.AutoAccept)
	v.SetDefault("thresholds.review", d.Thresholds.Review)
	v.SetDefault("validation.strict_dates", d.Validation.StrictDates)
	v.SetDefault("pipeline.workers", d.Pipeline.Workers)
	v.SetDefault("paths.import_dir", d.Paths.ImportDir)
	v.SetDefault("paths.reports_dir", d.Paths.ReportsDir)
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Validate checks values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	if err := c.Thresholds.Validate(); err != nil {
		return err
	}
	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("%w: pipeline.workers must be >= 1, got %d", ErrInvalid, c.Pipeline.Workers)
	}
	if len(c.Fields) > 0 {
		if err := schema.ValidateFields(c.Fields); err != nil {
			return err
		}
	}
	return nil
}

// Mapper returns a schema mapper over the configured field table, or the
// built-in table when none is configured.
func (c *Config) Mapper() (*schema.Mapper, error) {
	if len(c.Fields) == 0 {
		return schema.DefaultMapper(), nil
	}
	return schema.NewMapper(c.Fields)
}

// ValidateOptions returns the row validator options.
func (c *Config) ValidateOptions() validate.Options {
	return validate.Options{StrictDates: c.Validation.StrictDates}
}
