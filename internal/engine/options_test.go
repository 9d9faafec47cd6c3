package engine

import (
	"testing"

	"github.com/harunnryd/shukan/internal/config"
	"github.com/harunnryd/shukan/internal/progression"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithDefaults_RewardChance(t *testing.T) {
	assert.Equal(t, progression.DefaultRewardChance, Options{}.withDefaults().RewardChance)
	assert.Equal(t, 0.8, Options{RewardChance: 0.8}.withDefaults().RewardChance)
	assert.Zero(t, Options{RewardChance: 0.8, DisableRewards: true}.withDefaults().RewardChance)
}

func TestOptionsFromConfig_ZeroChanceDisablesRewards(t *testing.T) {
	opts, err := OptionsFromConfig(config.EngineConfig{Seed: 7})
	require.NoError(t, err)
	assert.True(t, opts.DisableRewards)
	assert.Zero(t, opts.withDefaults().RewardChance)

	opts, err = OptionsFromConfig(config.EngineConfig{Seed: 7, RewardChance: config.DefaultEngineRewardChance})
	require.NoError(t, err)
	assert.False(t, opts.DisableRewards)
	assert.Equal(t, config.DefaultEngineRewardChance, opts.withDefaults().RewardChance)
}
