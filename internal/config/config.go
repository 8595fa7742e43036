// Package config loads the iacguard application configuration.
//
// Values are read, lowest precedence first, from built-in defaults, the
// config file (~/.config/iacguard/config.yaml unless overridden), and
// IACGUARD_* environment variables. Command-line flags are applied on top by
// the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/pankaj-dahiya-devops/iacguard/internal/models"
)

// EnvPrefix is prepended to every environment variable, e.g. IACGUARD_FAIL_ON.
const EnvPrefix = "IACGUARD"

// Formats lists the accepted values of Config.Format.
var Formats = []string{"table", "json", "sarif", "summary"}

// Config is the top-level application configuration.
// It must never be committed with real secrets.
type Config struct {
	// FailOn is the misconfiguration gate threshold. Empty means the policy
	// file or the built-in default decides.
	FailOn string `mapstructure:"fail_on" yaml:"fail_on" json:"fail_on"`

	// SecretsFailOn is the secrets gate threshold.
	SecretsFailOn string `mapstructure:"secrets_fail_on" yaml:"secrets_fail_on" json:"secrets_fail_on"`

	// Workers bounds rule evaluation and secret scanning concurrency.
	// Zero uses GOMAXPROCS.
	Workers int `mapstructure:"workers" yaml:"workers" json:"workers"`

	// Format is the default output format.
	Format string `mapstructure:"format" yaml:"format" json:"format"`

	// Policy is the default policy file path.
	Policy string `mapstructure:"policy" yaml:"policy" json:"policy"`

	// Suppressions is the default suppression file path.
	Suppressions string `mapstructure:"suppressions" yaml:"suppressions" json:"suppressions"`

	Debug bool `mapstructure:"debug" yaml:"debug" json:"debug"`

	AWS        AWSConfig        `mapstructure:"aws" yaml:"aws" json:"aws"`
	Kubernetes KubernetesConfig `mapstructure:"kubernetes" yaml:"kubernetes" json:"kubernetes"`
}

// AWSConfig holds AWS-specific defaults used when flags are not provided.
type AWSConfig struct {
	// DefaultRegion is used when no region flag or profile region is set.
	DefaultRegion string `mapstructure:"default_region" yaml:"default_region" json:"default_region"`

	// DefaultProfile is used when no --profile flag is provided.
	DefaultProfile string `mapstructure:"default_profile" yaml:"default_profile" json:"default_profile"`
}

// KubernetesConfig holds defaults for the ConfigMap suppression source.
type KubernetesConfig struct {
	Kubeconfig string `mapstructure:"kubeconfig" yaml:"kubeconfig" json:"kubeconfig"`
	Context    string `mapstructure:"context" yaml:"context" json:"context"`
}

// Loader is the interface for reading Config.
type Loader interface {
	// Load reads, parses, and validates the configuration.
	Load() (*Config, error)

	// ConfigPath returns the absolute path to the configuration file.
	ConfigPath() string
}

// ViperLoader is the default Loader. A missing file at the default path is
// not an error; a missing file at an explicit path is.
type ViperLoader struct {
	path     string
	explicit bool
}

// DefaultPath returns ~/.config/iacguard/config.yaml, or "" when the home
// directory cannot be determined.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "iacguard", "config.yaml")
}

// NewLoader returns a loader for path. An empty path uses DefaultPath.
func NewLoader(path string) *ViperLoader {
	l := &ViperLoader{path: path, explicit: path != ""}
	if path == "" {
		l.path = DefaultPath()
	}
	return l
}

// ConfigPath implements Loader.
func (l *ViperLoader) ConfigPath() string { return l.path }

// Load implements Loader.
func (l *ViperLoader) Load() (*Config, error) {
	v := viper.New()
	v.SetDefault("format", "table")
	v.SetDefault("workers", 0)
	v.SetDefault("debug", false)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range []string{
		"fail_on", "secrets_fail_on", "workers", "format", "policy", "suppressions", "debug",
		"aws.default_region", "aws.default_profile",
		"kubernetes.kubeconfig", "kubernetes.context",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if l.path != "" {
		v.SetConfigFile(l.path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if l.explicit || !isNotExist(err) {
				return nil, fmt.Errorf("failed to read config file %s: %w", l.path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
}

// Validate reports the first invalid value in c.
func (c *Config) Validate() error {
	if c.FailOn != "" {
		if _, err := models.ParseSeverity(c.FailOn); err != nil {
			return fmt.Errorf("config fail_on: %w", err)
		}
	}
	if c.SecretsFailOn != "" {
		if _, err := models.ParseSeverity(c.SecretsFailOn); err != nil {
			return fmt.Errorf("config secrets_fail_on: %w", err)
		}
	}
	if c.Workers < 0 {
		return fmt.Errorf("config workers: must not be negative, got %d", c.Workers)
	}
	if c.Format != "" && !ValidFormat(c.Format) {
		return fmt.Errorf("config format: invalid value %q; valid values: %s", c.Format, strings.Join(Formats, ", "))
	}
	return nil
}

// ValidFormat reports whether f is one of Formats.
func ValidFormat(f string) bool {
	for _, known := range Formats {
		if f == known {
			return true
		}
	}
	return false
}
