package main

import (
	"errors"
	"fmt"

	"github.com/gwillem/teleracer/pkg/config"
)

var errNoConfig = errors.New("no configuration found")

// loadConfig reads the configuration file. A missing file yields the defaults
// when allowMissing is set and errNoConfig otherwise; a file that exists but
// does not parse is always an error.
func loadConfig(path string, allowMissing bool) (*config.Config, error) {
	if !config.Exists(path) {
		if allowMissing {
			return config.Default(), nil
		}
		return nil, fmt.Errorf("%s: %w", path, errNoConfig)
	}
	return config.Load(path)
}
