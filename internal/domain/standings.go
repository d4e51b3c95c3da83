package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Standing es la foto en vivo de una opción.
type Standing struct {
	Option         int             `json:"option"`
	Label          string          `json:"label"`
	Pool           uint64          `json:"pool"`
	Odds           uint64          `json:"odds"` // % entero del pool total
	Bets           int             `json:"bets"`
	LeadershipTime time.Duration   `json:"leadership_time"`
	Score          decimal.Decimal `json:"score"`
	Leading        bool            `json:"leading"`
}

// Standings calcula la foto del mercado hasta asOf (acotado a la duración del
// mercado). Las apuestas posteriores a asOf no se tienen en cuenta en ningún
// campo: pools, odds, líder y score salen del mismo subconjunto.
func Standings(m *Market, asOf time.Time) []Standing {
	total := min(max(asOf.Sub(m.StartTime), 0), m.Duration())

	bets := make([]Bet, 0, len(m.Bets))
	for _, b := range m.Bets {
		if !b.Timestamp.After(asOf) {
			bets = append(bets, b)
		}
	}

	// mismo recorrido que RecordBet: pools acumulados y regla de líder
	pools := make([]uint64, len(m.Options))
	counts := make([]int, len(m.Options))
	var pool uint64
	leader := NoOption
	for _, b := range bets {
		pools[b.Option] += b.Net
		pool += b.Net
		counts[b.Option]++
		if leader == NoOption || (leader != b.Option && pools[b.Option] > pools[leader]) {
			leader = b.Option
		}
	}

	leadership := LeadershipTime(bets, len(m.Options), m.StartTime, total)
	out := make([]Standing, len(m.Options))
	for i, label := range m.Options {
		out[i] = Standing{
			Option:         i,
			Label:          label,
			Pool:           pools[i],
			Odds:           Percent(pools[i], pool),
			Bets:           counts[i],
			LeadershipTime: leadership[i],
			Score:          Score(i, bets, leadership, total, m.Params).Total,
			Leading:        leader == i,
		}
	}
	return out
}
