// Package config aggregates the per-package configurations into one
// YAML-loadable document. Every section has working defaults; a missing
// or partial file degrades to those rather than failing.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/GaraRoyal/memoryvault/branch"
	"github.com/GaraRoyal/memoryvault/retrieval"
	"github.com/GaraRoyal/memoryvault/scoring"
)

// Config is the full engine configuration.
type Config struct {
	Scoring   scoring.Config   `yaml:"scoring"`
	Retrieval retrieval.Config `yaml:"retrieval"`
	Branch    branch.Config    `yaml:"branch"`

	// ExtractionBatchSize bounds how many messages one backlog
	// extraction batch covers.
	ExtractionBatchSize int `yaml:"extraction_batch_size"`

	// EmbeddingCacheSize bounds the embedding cache entry count.
	EmbeddingCacheSize int `yaml:"embedding_cache_size"`

	// Model overrides the extraction/adjudication model.
	Model string `yaml:"model"`
}

// Default returns the full default configuration.
func Default() Config {
	return Config{
		Scoring:             scoring.DefaultConfig(),
		Retrieval:           retrieval.DefaultConfig(),
		Branch:              branch.DefaultConfig(),
		ExtractionBatchSize: 20,
		EmbeddingCacheSize:  4096,
	}
}

// Load reads a YAML config file over the defaults. Unset fields keep
// their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configurations that cannot work.
func (c *Config) Validate() error {
	if c.Scoring.MinSimilarity < 0 || c.Scoring.MinSimilarity > 1 {
		return fmt.Errorf("scoring.min_similarity must be in [0,1], got %v", c.Scoring.MinSimilarity)
	}
	if c.Scoring.KeywordThreshold < 0 || c.Scoring.KeywordThreshold > 1 {
		return fmt.Errorf("scoring.keyword_threshold must be in [0,1], got %v", c.Scoring.KeywordThreshold)
	}
	if c.Scoring.DecayFloor < 0 || c.Scoring.DecayFloor > 1 {
		return fmt.Errorf("scoring.decay_floor must be in [0,1], got %v", c.Scoring.DecayFloor)
	}
	if c.Retrieval.QueryWindow < 0 {
		return fmt.Errorf("retrieval.query_window must be non-negative, got %d", c.Retrieval.QueryWindow)
	}
	if c.Retrieval.TokenBudget < 0 {
		return fmt.Errorf("retrieval.token_budget must be non-negative, got %d", c.Retrieval.TokenBudget)
	}
	if c.Branch.AutoHideThreshold < 0 {
		return fmt.Errorf("branch.auto_hide_threshold must be non-negative, got %d", c.Branch.AutoHideThreshold)
	}
	if c.ExtractionBatchSize < 1 {
		return fmt.Errorf("extraction_batch_size must be at least 1, got %d", c.ExtractionBatchSize)
	}
	return nil
}
