package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig

	assert.Equal(t, 5000, cfg.Tracking.DispatchTimeoutMs)
	assert.Equal(t, 1.0, cfg.Tracking.TimeoutMultiplier)
	assert.Equal(t, 2, cfg.Resample.MinDeltaMs)
	assert.Equal(t, 20, cfg.Resample.MaxDeltaMs)
	assert.Equal(t, 8, cfg.Resample.MaxPredictionMs)
	assert.Equal(t, 5, cfg.Resample.LatencyOffsetMs)
	assert.NotEmpty(t, cfg.Store.Path)
}

func TestMaturityThreshold(t *testing.T) {
	tests := []struct {
		name     string
		tracking TrackingConfig
		want     time.Duration
	}{
		{"defaults", TrackingConfig{DispatchTimeoutMs: 5000, TimeoutMultiplier: 1.0}, 5 * time.Second},
		{"slow host multiplier", TrackingConfig{DispatchTimeoutMs: 5000, TimeoutMultiplier: 2.5}, 12500 * time.Millisecond},
		{"short timeout", TrackingConfig{DispatchTimeoutMs: 100, TimeoutMultiplier: 1.0}, 100 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.tracking.MaturityThreshold())
		})
	}
}

func TestGetReturnsDefaultsWhenUninitialized(t *testing.T) {
	old := cfg
	cfg = nil
	defer func() { cfg = old }()

	got := Get()
	assert.Equal(t, DefaultConfig.Tracking, got.Tracking)
}

func TestSetOverrides(t *testing.T) {
	old := cfg
	defer func() { cfg = old }()

	custom := &Config{Tracking: TrackingConfig{DispatchTimeoutMs: 123, TimeoutMultiplier: 1.0}}
	Set(custom)
	assert.Equal(t, 123, Get().Tracking.DispatchTimeoutMs)
}
