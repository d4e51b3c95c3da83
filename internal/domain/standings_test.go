package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStandings_HistoricalSnapshotIgnoresLaterBets(t *testing.T) {
	m := newMarket(t, []string{"yes", "no"}, nil)
	early := bet(t, m, "a", 0, 50, at(time.Hour))
	late := bet(t, m, "b", 1, 80, at(5*time.Hour))

	past := Standings(m, at(2*time.Hour))
	assert.Equal(t, early.Net, past[0].Pool)
	assert.Zero(t, past[1].Pool)
	assert.Equal(t, uint64(100), past[0].Odds)
	assert.Zero(t, past[1].Odds)
	assert.Equal(t, 1, past[0].Bets)
	assert.Zero(t, past[1].Bets)
	assert.True(t, past[0].Leading)
	assert.False(t, past[1].Leading)

	now := Standings(m, at(week))
	assert.Equal(t, late.Net, now[1].Pool)
	assert.Equal(t, m.Odds(), []uint64{now[0].Odds, now[1].Odds})
	assert.True(t, now[1].Leading)
	assert.Equal(t, 1, m.LeadingOption)
}

func TestStandings_TieKeepsEarlierLeader(t *testing.T) {
	m := newMarket(t, []string{"yes", "no"}, nil)
	first := bet(t, m, "a", 1, 40, at(time.Hour))
	bet(t, m, "b", 0, first.Gross, at(time.Hour))

	s := Standings(m, at(2*time.Hour))
	assert.Equal(t, s[0].Pool, s[1].Pool)
	assert.True(t, s[1].Leading)
	assert.Equal(t, 1, m.LeadingOption)
}

func TestStandings_BeforeAnyBet(t *testing.T) {
	m := newMarket(t, []string{"yes", "no"}, nil)
	bet(t, m, "a", 0, 50, at(time.Hour))

	s := Standings(m, t0)
	for _, st := range s {
		assert.Zero(t, st.Pool)
		assert.Zero(t, st.Odds)
		assert.False(t, st.Leading)
	}
}
