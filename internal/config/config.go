// Package config provides configuration loading for the docdex server.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the serve command's configuration.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Query     QueryConfig     `yaml:"query"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StoreConfig holds the vector store location.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// EmbeddingConfig holds the embedding endpoint settings.
type EmbeddingConfig struct {
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// QueryConfig holds defaults applied to queries that omit parameters.
type QueryConfig struct {
	MaxResults     int     `yaml:"max_results"`
	Threshold      float64 `yaml:"threshold"`
	ChunkWeight    float64 `yaml:"chunk_weight"`
	DocumentWeight float64 `yaml:"document_weight"`
}

// ApplyDefaults fills unset fields.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 10004
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "./vectors"
	}
	if cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = "http://localhost:11434"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "nomic-embed-text"
	}
	if cfg.Embedding.TimeoutSeconds == 0 {
		cfg.Embedding.TimeoutSeconds = 120
	}
	if cfg.Query.MaxResults == 0 {
		cfg.Query.MaxResults = 5
	}
	if cfg.Query.Threshold == 0 {
		cfg.Query.Threshold = 0.75
	}
	if cfg.Query.ChunkWeight == 0 {
		cfg.Query.ChunkWeight = 0.6
	}
	if cfg.Query.DocumentWeight == 0 {
		cfg.Query.DocumentWeight = 0.4
	}
}

// Load reads and parses the config file at path and applies defaults. The
// store path is resolved relative to the config file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	ApplyDefaults(&cfg)

	if !filepath.IsAbs(cfg.Store.Path) {
		cfg.Store.Path = filepath.Join(filepath.Dir(path), cfg.Store.Path)
	}
	return &cfg, nil
}

// Default returns a config with every default applied, for running without
// a config file.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	return &cfg
}
