package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/paribet/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_ShippedConfig(t *testing.T) {
	cfg, err := Load("config.yaml")
	require.NoError(t, err)

	assert.Equal(t, "linear", cfg.Engine.CommissionCurve)
	assert.Equal(t, uint64(domain.DefaultMinBetAmount), cfg.Engine.MinBetAmount)
	assert.Equal(t, 200.0, cfg.Redis.PublishRate)

	params, err := cfg.MarketParams()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultParams(), params)
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "paribet.db", cfg.Storage.DSN)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "paribet", cfg.Redis.Prefix)
	assert.Equal(t, domain.DefaultLimits().VelocityFactorPct, cfg.Engine.VelocityFactorPct)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("PARIBET_DSN", "postgres://localhost/paribet")
	t.Setenv("PARIBET_ADMIN", "ops")
	t.Setenv("PARIBET_REDIS_ADDR", "localhost:6379")

	cfg, err := Load(writeConfig(t, "log:\n  level: warn\n"))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "postgres://localhost/paribet", cfg.Storage.DSN)
	assert.Equal(t, "ops", cfg.Engine.Admin)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestLoad_MarketOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
engine:
  commission_curve: tiered
market:
  resolution_method: stake-weighted
  resolution_window_hours: 12
  hardcap_enabled: true
  hardcap_multiplier: 3
`))
	require.NoError(t, err)

	params, err := cfg.MarketParams()
	require.NoError(t, err)
	assert.Equal(t, domain.CurveTiered, params.CommissionCurve)
	assert.Equal(t, domain.MethodStakeWeighted, params.ResolutionMethod)
	assert.Equal(t, 12*time.Hour, params.ResolutionTimeWindow)
	assert.True(t, params.HardcapEnabled)
	assert.Equal(t, uint64(3), params.HardcapMultiplier)
}

func TestLoad_MarketExplicitZeros(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
market:
  slashing_penalty: 0
  whale_penalty: 0
  whale_threshold: 0
  resolution_min_stake: 0
  resolution_window_hours: 0
  democratic_weight: 0
`))
	require.NoError(t, err)

	params, err := cfg.MarketParams()
	require.NoError(t, err)
	assert.Zero(t, params.SlashingPenalty)
	assert.Zero(t, params.WhalePenalty)
	assert.Zero(t, params.WhaleThreshold)
	assert.Zero(t, params.ResolutionMinStake)
	assert.Zero(t, params.ResolutionTimeWindow)
	assert.Zero(t, params.DemocraticWeight)

	// lo que no aparece sigue en el default
	def := domain.DefaultParams()
	assert.Equal(t, def.TimeWeight, params.TimeWeight)
	assert.Equal(t, def.UncertaintyThreshold, params.UncertaintyThreshold)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"unknown curve":  "engine:\n  commission_curve: cubic\n",
		"bad log format": "log:\n  format: xml\n",
		"velocity > 100": "engine:\n  velocity_factor_pct: 150\n",
		"bad method":     "market:\n  resolution_method: coin-flip\n",
		"whale > 1":      "market:\n  whale_threshold: 1.5\n",
		"zero threshold": "market:\n  uncertainty_threshold: 0\n",
		"zero weights":   "market:\n  time_weight: 0\n  financial_weight: 0\n  democratic_weight: 0\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "config.Load: read")
}
