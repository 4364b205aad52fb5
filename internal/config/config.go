// Package config loads shell settings from an optional yaml file, with
// environment overrides under the MINISHELL_ prefix.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

type Config struct {
	HistoryFile string   `yaml:"history_file" envconfig:"HISTORY_FILE"`
	HistorySize int      `yaml:"history_size" envconfig:"HISTORY_SIZE"`
	HomeDir     string   `yaml:"home_dir" envconfig:"HOME_DIR"`
	PromptUser  string   `yaml:"prompt_user" envconfig:"PROMPT_USER"`
	LogFile     string   `yaml:"log_file" envconfig:"LOG_FILE"`
	LogLevel    string   `yaml:"log_level" envconfig:"LOG_LEVEL"`
	Plugins     []string `yaml:"plugins" envconfig:"PLUGINS"`
}

// DefaultPath is where Load looks when the user keeps a config file at all.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".minishell.yml"
	}
	return filepath.Join(home, ".minishell.yml")
}

// Load reads the yaml file (a missing file is fine), applies environment
// overrides, then fills in defaults.
func Load(file string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(file)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	if err := envconfig.Process("minishell", cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	if cfg.HomeDir == "" {
		cfg.HomeDir, err = os.UserHomeDir()
		if err != nil {
			return nil, err
		}
	}
	if cfg.HistoryFile == "" {
		cfg.HistoryFile = filepath.Join(cfg.HomeDir, ".minishell_history")
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 1000
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	return cfg, nil
}
