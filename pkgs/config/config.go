package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/emx-mail/attachfetch/pkgs/download"
	"github.com/emx-mail/attachfetch/pkgs/email"
)

const (
	// EnvConfigJSONPath is the env var that points to the JSON config file
	// when no path is given on the command line.
	EnvConfigJSONPath = "ATTACHFETCH_CONFIG_JSON"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "ATTACHFETCH_"

	DefaultIMAPHost = email.DefaultHost
	DefaultIMAPPort = email.DefaultPort
	DefaultLogLevel = "info"
)

// ProtocolSettings holds the IMAP endpoint. The product talks to one fixed
// server; overriding it is meant for self-hosted setups and tests.
type ProtocolSettings struct {
	Host string `json:"host,omitempty" env:"HOST"`
	Port int    `json:"port,omitempty" env:"PORT"`

	// Plaintext disables TLS.
	Plaintext bool `json:"plaintext,omitempty" env:"PLAINTEXT"`
}

// AccountConfig holds the mailbox credentials.
type AccountConfig struct {
	Email string `json:"email" env:"EMAIL"`

	// Password is usually left out of the file and read from the
	// environment or the system keyring.
	Password string `json:"password,omitempty" env:"PASSWORD"`

	IMAP ProtocolSettings `json:"imap" envPrefix:"IMAP_"`
}

// DownloadConfig controls where and how attachments are stored.
type DownloadConfig struct {
	Root       string `json:"root,omitempty" env:"ROOT"`
	Workers    int    `json:"workers,omitempty" env:"WORKERS"`
	KeepSource bool   `json:"keep_source,omitempty" env:"KEEP_SOURCE"`
}

// LogConfig selects the logger.
type LogConfig struct {
	Level       string `json:"level,omitempty" env:"LEVEL"`
	Development bool   `json:"development,omitempty" env:"DEV"`
}

// Config holds the application configuration.
type Config struct {
	Account  AccountConfig  `json:"account"`
	Download DownloadConfig `json:"download" envPrefix:"DOWNLOAD_"`
	Log      LogConfig      `json:"log" envPrefix:"LOG_"`
}

// Load builds the configuration from, in increasing priority: built-in
// defaults, the JSON file at path (or EnvConfigJSONPath when path is
// empty), a .env file in the working directory, and ATTACHFETCH_*
// environment variables. A missing config file is not an error when no
// path was requested explicitly.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(errors.Cause(err)) {
		return nil, errors.Wrap(err, "failed to load .env")
	}

	cfg := &Config{}
	explicit := path != ""
	if !explicit {
		path = strings.TrimSpace(os.Getenv(EnvConfigJSONPath))
	}
	if path != "" {
		fileCfg, err := LoadConfigFile(path)
		switch {
		case err == nil:
			cfg = fileCfg
		case explicit || !os.IsNotExist(errors.Cause(err)):
			return nil, err
		}
	}

	if err := env.Parse(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, errors.Wrap(err, "failed to parse environment")
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// LoadConfigFile reads a JSON config file. Defaults are not applied.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config")
	}
	return &cfg, nil
}

// SaveConfig writes cfg as indented JSON. The file is private to the user
// since it may hold a password.
func SaveConfig(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}
	return nil
}

// ApplyDefaults fills every unset field.
func (c *Config) ApplyDefaults() {
	if c.Account.IMAP.Host == "" {
		c.Account.IMAP.Host = DefaultIMAPHost
	}
	if c.Account.IMAP.Port == 0 {
		c.Account.IMAP.Port = DefaultIMAPPort
	}
	if c.Download.Root == "" {
		c.Download.Root = download.DefaultRoot()
	}
	if c.Download.Workers == 0 {
		c.Download.Workers = download.DefaultWorkers
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}

// Validate validates the configuration. The password is not checked here
// because it may still come from the keyring.
func (c *Config) Validate() error {
	if c.Account.Email == "" {
		return errors.New("account.email is required")
	}
	if !strings.Contains(c.Account.Email, "@") {
		return errors.Errorf("account.email %q is not an address", c.Account.Email)
	}
	if p := c.Account.IMAP.Port; p < 0 || p > 65535 {
		return errors.Errorf("account.imap.port %d out of range", p)
	}
	if c.Download.Workers < 0 {
		return errors.Errorf("download.workers must not be negative, got %d", c.Download.Workers)
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return errors.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	return nil
}

// SessionOptions converts the account endpoint for email.Connect.
func (c *Config) SessionOptions() email.SessionOptions {
	return email.SessionOptions{
		Host:      c.Account.IMAP.Host,
		Port:      c.Account.IMAP.Port,
		Plaintext: c.Account.IMAP.Plaintext,
	}
}

// ExampleConfig returns an example configuration for "init".
func ExampleConfig() *Config {
	return &Config{
		Account: AccountConfig{
			Email: "user@qq.com",
			IMAP: ProtocolSettings{
				Host: DefaultIMAPHost,
				Port: DefaultIMAPPort,
			},
		},
		Download: DownloadConfig{
			Workers: download.DefaultWorkers,
		},
		Log: LogConfig{
			Level: DefaultLogLevel,
		},
	}
}
