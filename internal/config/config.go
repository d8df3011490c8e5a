package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is the config file at the root of a ledgerlens repo.
const FileName = "ledgerlens.yaml"

// Config represents the top-level ledgerlens.yaml configuration.
type Config struct {
	Owner         string           `yaml:"owner"`
	Defaults      DefaultsConfig   `yaml:"defaults"`
	BankAccounts  []BankAccount    `yaml:"bank_accounts,omitempty"`
	Thresholds    ThresholdsConfig `yaml:"thresholds"`
	Storage       StorageConfig    `yaml:"storage"`
	TemplatesFile string           `yaml:"templates_file,omitempty"`
	Log           LogConfig        `yaml:"log"`
	Git           GitConfig        `yaml:"git"`
}

// DefaultsConfig applies to statements whose account is not configured.
type DefaultsConfig struct {
	BankID   string `yaml:"bank_id"`
	Currency string `yaml:"currency"`
}

// BankAccount ties statement files to an account.
type BankAccount struct {
	Name      string `yaml:"name"`
	BankID    string `yaml:"bank_id"`
	AccountID string `yaml:"account_id"`
	LastFour  string `yaml:"last_four,omitempty"`
	Currency  string `yaml:"currency,omitempty"`
	// Template pins a template id and skips detection.
	Template string `yaml:"template,omitempty"`
}

// ThresholdsConfig controls which rows reach the review inbox.
type ThresholdsConfig struct {
	LowConfidence      float64 `yaml:"low_confidence"`
	TransferConfidence float64 `yaml:"transfer_confidence"`
}

// StorageConfig selects the review store.
type StorageConfig struct {
	Driver string `yaml:"driver"` // "file" or "postgres"
	// DSNEnv names the environment variable holding the postgres DSN.
	DSNEnv string `yaml:"dsn_env,omitempty"`
}

// DSN returns the postgres DSN from the configured environment variable.
func (s StorageConfig) DSN() string {
	if s.DSNEnv == "" {
		return ""
	}
	return os.Getenv(s.DSNEnv)
}

// LogConfig controls logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
}

// GitConfig controls git integration.
type GitConfig struct {
	AutoCommit  bool   `yaml:"auto_commit"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// Load reads a ledgerlens.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
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

// Default returns a Config with sensible defaults for a new repo.
func Default(owner string) *Config {
	return &Config{
		Owner: owner,
		Defaults: DefaultsConfig{
			BankID:   "commbank",
			Currency: "AUD",
		},
		Thresholds: ThresholdsConfig{
			LowConfidence:      0.70,
			TransferConfidence: 0.80,
		},
		Storage: StorageConfig{
			Driver: "file",
			DSNEnv: "LEDGERLENS_DATABASE_URL",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Git: GitConfig{
			AutoCommit:  true,
			AuthorName:  "ledgerlens",
			AuthorEmail: "ledgerlens@localhost",
		},
	}
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	for name, v := range map[string]float64{
		"low_confidence":      c.Thresholds.LowConfidence,
		"transfer_confidence": c.Thresholds.TransferConfidence,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("thresholds.%s must be within [0,1], got %v", name, v)
		}
	}
	switch c.Storage.Driver {
	case "", "file", "postgres":
	default:
		return fmt.Errorf("storage.driver must be file or postgres, got %q", c.Storage.Driver)
	}
	seen := make(map[string]bool, len(c.BankAccounts))
	for _, a := range c.BankAccounts {
		key := strings.ToLower(a.Name)
		if key == "" {
			return fmt.Errorf("bank account without a name")
		}
		if seen[key] {
			return fmt.Errorf("duplicate bank account %q", a.Name)
		}
		seen[key] = true
	}
	return nil
}

// Account returns the bank account named name, case-insensitively.
func (c *Config) Account(name string) (BankAccount, bool) {
	for _, a := range c.BankAccounts {
		if strings.EqualFold(a.Name, name) {
			return a, true
		}
	}
	return BankAccount{}, false
}

// AccountForFile picks the account whose name or last four digits appear
// in a statement file name.
func (c *Config) AccountForFile(fileName string) (BankAccount, bool) {
	lower := strings.ToLower(fileName)
	for _, a := range c.BankAccounts {
		if strings.Contains(lower, strings.ToLower(a.Name)) {
			return a, true
		}
		if a.LastFour != "" && strings.Contains(lower, a.LastFour) {
			return a, true
		}
	}
	return BankAccount{}, false
}
