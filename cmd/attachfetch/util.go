package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/emx-mail/attachfetch/pkgs/config"
	"github.com/emx-mail/attachfetch/pkgs/credential"
	"github.com/emx-mail/attachfetch/pkgs/logging"
)

const configEnvName = config.EnvConfigJSONPath

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func (a *app) loadConfig() *config.Config {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		fmt.Fprintf(os.Stderr, "Run 'attachfetch init' to create a config file\n")
		os.Exit(1)
	}
	if a.verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		fatal("invalid config: %v", err)
	}
	return cfg
}

func newLogger(cfg *config.Config) *zap.Logger {
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		fatal("%v", err)
	}
	return logger
}

// resolvePassword prefers the configured password and falls back to the
// keyring.
func resolvePassword(cfg *config.Config) (string, error) {
	if cfg.Account.Password != "" {
		return cfg.Account.Password, nil
	}
	store, err := credential.Open()
	if err != nil {
		return "", err
	}
	pw, err := store.Password(cfg.Account.Email)
	if errors.Is(err, credential.ErrNotFound) {
		return "", errors.Errorf("no password for %s: set ATTACHFETCH_PASSWORD or run 'attachfetch remember'", cfg.Account.Email)
	}
	return pw, err
}
