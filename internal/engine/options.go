package engine

import (
	"math/rand/v2"
	"time"

	"github.com/harunnryd/shukan/internal/config"
	"github.com/harunnryd/shukan/internal/daytime"
	"github.com/harunnryd/shukan/internal/progression"
)

type Options struct {
	Clock          daytime.Clock
	Rand           progression.Rand
	TickInterval   time.Duration
	ComboWindow    time.Duration
	// RewardChance defaults to progression.DefaultRewardChance when zero.
	RewardChance   float64
	// DisableRewards turns the post-session reward roll off.
	DisableRewards bool
	InboxSize      int
	// SeedExamples installs the example routines when no routines blob exists.
	SeedExamples   bool
}

// OptionsFromConfig builds engine options from the engine config section.
// A zero seed picks a random one. A zero reward chance disables rewards.
func OptionsFromConfig(cfg config.EngineConfig) (Options, error) {
	tick, err := config.DurationOrDefault(cfg.TickInterval, config.DefaultEngineTickInterval)
	if err != nil {
		return Options{}, err
	}
	window, err := config.DurationOrDefault(cfg.ComboWindow, config.DefaultEngineComboWindow)
	if err != nil {
		return Options{}, err
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	return Options{
		Clock:          daytime.SystemClock{},
		Rand:           rand.New(rand.NewPCG(seed, seed)),
		TickInterval:   tick,
		ComboWindow:    window,
		RewardChance:   cfg.RewardChance,
		DisableRewards: cfg.RewardChance <= 0,
		InboxSize:      cfg.InboxSize,
		SeedExamples:   cfg.SeedExamples,
	}, nil
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = daytime.SystemClock{}
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if o.TickInterval <= 0 {
		o.TickInterval = 250 * time.Millisecond
	}
	if o.ComboWindow <= 0 {
		o.ComboWindow = progression.DefaultComboWindow
	}
	switch {
	case o.DisableRewards:
		o.RewardChance = 0
	case o.RewardChance <= 0:
		o.RewardChance = progression.DefaultRewardChance
	}
	if o.InboxSize <= 0 {
		o.InboxSize = config.DefaultEngineInboxSize
	}
	return o
}
