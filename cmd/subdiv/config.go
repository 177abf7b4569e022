package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the subdiv configuration file
// (~/.config/subdiv/config.yaml or config.toml). Pointer fields distinguish
// "not set" from zero values.
type Config struct {
	Backend    string `yaml:"backend" toml:"backend"`
	Workers    *int64 `yaml:"workers" toml:"workers"`
	QueueDepth *int64 `yaml:"queue_depth" toml:"queue_depth"`

	Scheme string `yaml:"scheme" toml:"scheme"`
	Levels *int64 `yaml:"levels" toml:"levels"`

	LogLevel  string `yaml:"log_level" toml:"log_level"`
	LogFormat string `yaml:"log_format" toml:"log_format"`

	ServerAddress string `yaml:"server_address" toml:"server_address"`
	MaxLevel      *int64 `yaml:"max_level" toml:"max_level"`
	MaxVertices   *int64 `yaml:"max_vertices" toml:"max_vertices"`
	StoreCapacity *int64 `yaml:"store_capacity" toml:"store_capacity"`
}

func configDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "subdiv")
}

// defaultConfigPath returns the first of config.yaml and config.toml that
// exists in the user config directory.
func defaultConfigPath() string {
	dir := configDir()
	if dir == "" {
		return ""
	}
	for _, name := range []string{"config.yaml", "config.yml", "config.toml"} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// LoadConfig reads path, or the default config file when path is empty.
// A missing default file yields a zero Config; a missing or malformed
// explicit file is an error.
func LoadConfig(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = defaultConfigPath()
		if path == "" {
			return Config{}, nil
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, err
	}
	cfg, err := parseConfig(path, data)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func parseConfig(path string, data []byte) (Config, error) {
	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		md, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return Config{}, err
		}
		if undec := md.Undecoded(); len(undec) > 0 {
			return Config{}, fmt.Errorf("unknown keys %v", undec)
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, err
		}
	}
	return cfg, nil
}

// applyLoggingConfig applies config file defaults to the global logging
// flags when they were not explicitly set.
func applyLoggingConfig(c *cli.Command, cfg Config) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

// applyBackendConfig applies config file defaults to the backend flags.
func applyBackendConfig(c *cli.Command, cfg Config) {
	if cfg.Backend != "" && !c.IsSet("backend") {
		backendName = cfg.Backend
	}
	if cfg.Workers != nil && !c.IsSet("workers") {
		workers = *cfg.Workers
	}
}

// applyCompileConfig applies config file defaults to compile and refine.
func applyCompileConfig(c *cli.Command, cfg Config, scheme *string, levels *int64) {
	if cfg.Scheme != "" && !c.IsSet("scheme") {
		*scheme = cfg.Scheme
	}
	if cfg.Levels != nil && !c.IsSet("levels") {
		*levels = *cfg.Levels
	}
}

// applyServeConfig applies config file defaults to serve command variables.
func applyServeConfig(c *cli.Command, cfg Config, addr *string, maxLevel, maxVertices, capacity *int64) {
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
	if cfg.MaxLevel != nil && !c.IsSet("max-level") {
		*maxLevel = *cfg.MaxLevel
	}
	if cfg.MaxVertices != nil && !c.IsSet("max-vertices") {
		*maxVertices = *cfg.MaxVertices
	}
	if cfg.StoreCapacity != nil && !c.IsSet("store-capacity") {
		*capacity = *cfg.StoreCapacity
	}
}
