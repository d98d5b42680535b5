// Package config loads and saves the teleracer configuration file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gwillem/teleracer/pkg/racecar"
	"github.com/gwillem/teleracer/pkg/teleop"
)

// Config holds the controller and car configuration
type Config struct {
	Controller teleop.Config  `json:"controller"`
	Car        racecar.Config `json:"car"`
}

// Default returns a configuration with stock controller settings and a
// dry-run car.
func Default() *Config {
	return &Config{
		Controller: teleop.DefaultConfig(),
		Car:        racecar.DefaultConfig(racecar.BackendDryRun),
	}
}

// Load reads path on top of Default, so missing controller fields keep their
// defaults. Read errors are returned unwrapped; a file that parses but holds
// an invalid controller section is rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Controller.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to path. The file is replaced in one rename
// so an interrupted setup never leaves half a file behind.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Exists reports whether a configuration file is present at path.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
