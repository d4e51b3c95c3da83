package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestScore_WhaleScenario(t *testing.T) {
	bets := whaleBets()
	params := DefaultParams()
	leadership := LeadershipTime(bets, 2, t0, week)

	s0 := Score(0, bets, leadership, week, params)
	s1 := Score(1, bets, leadership, week, params)

	// 205/223 del pool, pero la whale (200) se descuenta un 20%
	assert.InDelta(t, 91.93-17.94, s1.Financial.InexactFloat64(), 0.01)
	assert.InDelta(t, 8.07, s0.Financial.InexactFloat64(), 0.01)

	assert.InDelta(t, 95.24, s0.Time.InexactFloat64(), 0.01)
	assert.InDelta(t, 4.76, s1.Time.InexactFloat64(), 0.01)
	assert.InDelta(t, 50.0, s0.Democratic.InexactFloat64(), 0.001)

	assert.InDelta(t, 71.19, s0.Total.InexactFloat64(), 0.02)
	assert.InDelta(t, 24.33, s1.Total.InexactFloat64(), 0.02)
	assert.Equal(t, 160*time.Hour, s0.LeadershipTime)
}

func TestScore_FinancialClampedAtZero(t *testing.T) {
	bets := []Bet{rawBet(0, 100, time.Hour)}
	params := DefaultParams()
	params.WhalePenalty = 0
	params.WhaleThreshold = 0
	leadership := LeadershipTime(bets, 2, t0, week)

	s := Score(0, bets, leadership, week, params)
	// 100% del pool menos 100% de penalización
	assert.True(t, s.Financial.IsZero())
}

func TestScore_NoBets(t *testing.T) {
	s := Score(0, nil, []time.Duration{0, 0}, week, DefaultParams())
	assert.True(t, s.Total.IsZero())
}

func TestScores_CoversAllOptions(t *testing.T) {
	m := newMarket(t, []string{"a", "b", "c"}, nil)
	bet(t, m, "alice", 2, 100, at(time.Hour))

	scores := Scores(m)
	assert.Len(t, scores, 3)
	assert.True(t, scores[2].Total.GreaterThan(scores[1].Total))
	assert.True(t, scores[1].Total.IsZero())
}
