package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GaraRoyal/memoryvault/config"
)

func TestDefaults(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, 0.45, cfg.Scoring.Weights.Semantic)
	assert.Equal(t, 0.35, cfg.Scoring.MinSimilarity)
	assert.Equal(t, 1500, cfg.Retrieval.TokenBudget)
	assert.Equal(t, 50, cfg.Branch.AutoHideThreshold)
	assert.True(t, cfg.Branch.PruneEnabled)
	assert.Equal(t, 20, cfg.ExtractionBatchSize)
	require.NoError(t, cfg.Validate())
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
scoring:
  min_similarity: 0.5
retrieval:
  token_budget: 800
branch:
  auto_hide_threshold: 30
model: claude-sonnet-4-20250514
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 0.5, cfg.Scoring.MinSimilarity)
	assert.Equal(t, 800, cfg.Retrieval.TokenBudget)
	assert.Equal(t, 30, cfg.Branch.AutoHideThreshold)
	assert.Equal(t, "claude-sonnet-4-20250514", cfg.Model)
	// Untouched fields keep defaults.
	assert.Equal(t, 0.45, cfg.Scoring.Weights.Semantic)
	assert.Equal(t, 20, cfg.ExtractionBatchSize)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []func(*config.Config){
		func(c *config.Config) { c.Scoring.MinSimilarity = 1.5 },
		func(c *config.Config) { c.Scoring.KeywordThreshold = -0.1 },
		func(c *config.Config) { c.Scoring.DecayFloor = 2 },
		func(c *config.Config) { c.Retrieval.QueryWindow = -1 },
		func(c *config.Config) { c.Retrieval.TokenBudget = -5 },
		func(c *config.Config) { c.Branch.AutoHideThreshold = -1 },
		func(c *config.Config) { c.ExtractionBatchSize = 0 },
	}
	for i, mutate := range cases {
		cfg := config.Default()
		mutate(&cfg)
		assert.Errorf(t, cfg.Validate(), "case %d should fail validation", i)
	}
}
