package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

var decHundred = decimal.NewFromInt(100)

// OptionScore es el desglose del score de una opción.
// Todos los componentes están en escala 0–100 antes de ponderar.
type OptionScore struct {
	Option         int             `json:"option"`
	Time           decimal.Decimal `json:"time"`
	Financial      decimal.Decimal `json:"financial"`
	Democratic     decimal.Decimal `json:"democratic"`
	Total          decimal.Decimal `json:"total"`
	LeadershipTime time.Duration   `json:"leadership_time"`
}

// Score calcula el score de una opción.
//
// Fórmula:
//
//	time       = leadership[option] / total × 100
//	financial  = Σ net(option) / pool × 100
//	             - Σ whale net / pool × (1 - whalePenalty) × 100   (mínimo 0)
//	democratic = #apuestas(option) / #apuestas × 100
//	score      = (time×tw + financial×fw + democratic×dw) / 100
//
// Una apuesta es whale si su net supera pool × whaleThreshold, con el pool
// final (no el del momento de la apuesta). Es una señal de ranking, no una
// probabilidad.
func Score(option int, bets []Bet, leadership []time.Duration, total time.Duration, params EconomicParams) OptionScore {
	s := OptionScore{Option: option, Time: decimal.Zero, Financial: decimal.Zero, Democratic: decimal.Zero}
	if option >= 0 && option < len(leadership) {
		s.LeadershipTime = leadership[option]
	}

	if total > 0 {
		s.Time = decimal.NewFromInt(int64(s.LeadershipTime)).
			Div(decimal.NewFromInt(int64(total))).
			Mul(decHundred)
	}

	var pool, optionPool uint64
	var count, optionCount int64
	for _, b := range bets {
		pool += b.Net
		count++
		if b.Option == option {
			optionPool += b.Net
			optionCount++
		}
	}

	if pool > 0 {
		dPool := amountToDecimal(pool)
		financial := amountToDecimal(optionPool).Div(dPool).Mul(decHundred)
		whaleLimit := dPool.Mul(decimal.NewFromFloat(params.WhaleThreshold))
		discount := decOne.Sub(decimal.NewFromFloat(params.WhalePenalty))
		for _, b := range bets {
			if b.Option != option {
				continue
			}
			net := amountToDecimal(b.Net)
			if net.GreaterThan(whaleLimit) {
				financial = financial.Sub(net.Div(dPool).Mul(discount).Mul(decHundred))
			}
		}
		if financial.IsNegative() {
			financial = decimal.Zero
		}
		s.Financial = financial
	}

	if count > 0 {
		s.Democratic = decimal.NewFromInt(optionCount).Div(decimal.NewFromInt(count)).Mul(decHundred)
	}

	s.Total = s.Time.Mul(decimal.NewFromFloat(params.TimeWeight)).
		Add(s.Financial.Mul(decimal.NewFromFloat(params.FinancialWeight))).
		Add(s.Democratic.Mul(decimal.NewFromFloat(params.DemocraticWeight))).
		Div(decHundred)
	return s
}

// Scores calcula el score de todas las opciones de un mercado sobre su duración completa.
func Scores(m *Market) []OptionScore {
	total := m.Duration()
	leadership := LeadershipTime(m.Bets, len(m.Options), m.StartTime, total)
	out := make([]OptionScore, len(m.Options))
	for i := range m.Options {
		out[i] = Score(i, m.Bets, leadership, total, m.Params)
	}
	return out
}
