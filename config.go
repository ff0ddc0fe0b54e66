package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TargetConfig holds the SSH credentials for one scrape target.
type TargetConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Config is the target registry, loaded once at startup and read-only
// afterwards. Changing targets requires a restart.
type Config struct {
	Targets map[string]TargetConfig `yaml:"targets"`
}

func loadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(c.Targets) == 0 {
		return nil, fmt.Errorf("no targets defined in %s", path)
	}
	return &c, nil
}
