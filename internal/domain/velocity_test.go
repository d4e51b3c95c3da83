package domain

import (
	"testing"
	"time"

	"github.com/brianvoe/gofakeit"
	"github.com/stretchr/testify/assert"
)

func TestMaxAllowed_ScalesWithPoolAndTime(t *testing.T) {
	limits := DefaultLimits()
	end := at(100 * time.Hour)

	// 10 SOL de pool, 10h restantes: 10e9 × 20% / 10 = 0.2 SOL
	got := MaxAllowed(10_000_000_000, end.Add(-10*time.Hour), end, limits)
	assert.Equal(t, uint64(200_000_000), got)
}

func TestMaxAllowed_FloorAtMinVelocity(t *testing.T) {
	limits := DefaultLimits()
	end := at(200 * time.Hour)

	// 1e9 × 20% / 100h = 2e6, por debajo del piso
	got := MaxAllowed(1_000_000_000, end.Add(-100*time.Hour), end, limits)
	assert.Equal(t, uint64(DefaultMinVelocity), got)
}

func TestMaxAllowed_EmptyPool(t *testing.T) {
	assert.Equal(t, uint64(DefaultMinVelocity), MaxAllowed(0, t0, at(time.Hour), DefaultLimits()))
}

func TestMaxAllowed_LessThanAnHourLeft(t *testing.T) {
	end := at(10 * time.Hour)
	got := MaxAllowed(50_000_000_000, end.Add(-59*time.Minute), end, DefaultLimits())
	assert.Equal(t, uint64(DefaultMinVelocity), got)
}

func TestMaxAllowed_PastEnd(t *testing.T) {
	end := at(10 * time.Hour)
	got := MaxAllowed(50_000_000_000, end.Add(time.Hour), end, DefaultLimits())
	assert.Equal(t, uint64(DefaultMinVelocity), got)
}

func TestMaxAllowed_PartialHoursFloor(t *testing.T) {
	end := at(10 * time.Hour)
	// 90 minutos → 1 hora entera
	got := MaxAllowed(10_000_000_000, end.Add(-90*time.Minute), end, DefaultLimits())
	assert.Equal(t, uint64(2_000_000_000), got)
}

func TestMaxAllowed_NeverBelowMinVelocity(t *testing.T) {
	gofakeit.Seed(42)
	limits := DefaultLimits()
	for i := 0; i < 500; i++ {
		pool := uint64(gofakeit.Number(0, 1_000_000_000)) * uint64(gofakeit.Number(0, 1000))
		remaining := time.Duration(gofakeit.Number(-48, 24*365)) * time.Hour
		end := at(400 * 24 * time.Hour)
		got := MaxAllowed(pool, end.Add(-remaining), end, limits)
		assert.GreaterOrEqual(t, got, limits.MinVelocity, "pool=%d remaining=%s", pool, remaining)
	}
}
