package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

const week = 168 * time.Hour

// looseLimits desactiva en la práctica el monto mínimo y el velocity limit
// para poder usar montos chicos en los escenarios.
var looseLimits = Limits{MinBetAmount: 1, MinVelocity: 1 << 62, VelocityFactorPct: 20}

func newMarket(t *testing.T, options []string, params *EconomicParams) *Market {
	t.Helper()
	m, err := NewMarket(CreateMarketInput{
		ID:       "m1",
		Creator:  "creator",
		Question: "Who wins?",
		Options:  options,
		EndTime:  t0.Add(week),
		Params:   params,
	}, t0)
	require.NoError(t, err)
	return m
}

func at(d time.Duration) time.Time { return t0.Add(d) }

func bet(t *testing.T, m *Market, bettor string, option int, amount uint64, ts time.Time) Bet {
	t.Helper()
	b, _, err := m.RecordBet(bettor, option, amount, ts, looseLimits)
	require.NoError(t, err)
	return b
}

func paramsWith(fn func(p *EconomicParams)) *EconomicParams {
	p := DefaultParams()
	fn(&p)
	return &p
}
