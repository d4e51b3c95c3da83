package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/paribet/config"
	"github.com/alejandrodnm/paribet/internal/domain"
)

func TestEngineConfig(t *testing.T) {
	cfg, err := config.Load("../../config/config.yaml")
	require.NoError(t, err)
	cfg.Engine.CommissionCurve = "exponential"
	cfg.Engine.Admin = "ops"

	ec, err := engineConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, domain.CurveExponential, ec.CommissionCurve)
	assert.Equal(t, domain.CurveExponential, ec.DefaultParams.CommissionCurve)
	assert.Equal(t, "ops", ec.Admin)
	assert.Equal(t, domain.DefaultLimits(), ec.Limits)
}
