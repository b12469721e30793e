package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/emx-mail/attachfetch/pkgs/config"
)

func handleInit(path string) error {
	if path == "" {
		path = os.Getenv(config.EnvConfigJSONPath)
	}
	if path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return errors.Wrap(err, "no config path given")
		}
		path = filepath.Join(dir, "attachfetch", "config.json")
	}
	if _, err := os.Stat(path); err == nil {
		return errors.Errorf("config file already exists: %s", path)
	}

	if err := config.SaveConfig(path, config.ExampleConfig()); err != nil {
		return err
	}
	fmt.Printf("Created config file at: %s\n", path)
	if os.Getenv(config.EnvConfigJSONPath) == "" {
		fmt.Printf("Tip: set %s=%s to use this config file.\n", config.EnvConfigJSONPath, path)
	}
	fmt.Println("Please edit the file to set your email address, then run 'attachfetch remember'.")
	return nil
}
