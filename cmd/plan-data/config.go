package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const configFileName = ".plan-data.toml"

type fileConfig struct {
	APIURL string `toml:"api_url"`
	Tenant string `toml:"tenant"`
	Actor  string `toml:"actor"`
}

// loadFileConfig reads .plan-data.toml from the working directory first,
// then the home directory. A missing file is not an error; flags override
// whatever the file supplies.
func loadFileConfig() (fileConfig, error) {
	var cfg fileConfig
	paths := []string{configFileName}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, configFileName))
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, withCode(exitUsage, fmt.Errorf("parse %s: %w", path, err))
		}
		return cfg, nil
	}
	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
