package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// betNamespace deriva los IDs de apuesta. El mismo (market, secuencia) da
// siempre el mismo ID, así que un replay del log reproduce el ledger exacto.
var betNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("paribet/bet"))

// BetID devuelve el ID determinista de la n-ésima apuesta de un mercado.
func BetID(marketID string, n int) string {
	return uuid.NewSHA1(betNamespace, fmt.Appendf(nil, "%s/%d", marketID, n)).String()
}

// LeaderChange describe un cambio de líder provocado por una apuesta.
type LeaderChange struct {
	Previous int
	Current  int
}

// RecordBet valida y registra una apuesta. Si devuelve error el mercado no cambia.
//
// Orden de validación: mercado activo (y ya abierto), no terminado, opción
// válida, monto mínimo, velocity limit, hardcap, overflow.
func (m *Market) RecordBet(bettor string, option int, gross uint64, ts time.Time, limits Limits) (Bet, *LeaderChange, error) {
	if !m.IsActive() {
		return Bet{}, nil, ErrMarketNotActive
	}
	if ts.Before(m.StartTime) {
		return Bet{}, nil, fmt.Errorf("%w: opens at %s", ErrMarketNotActive, m.StartTime.Format(time.RFC3339))
	}
	if !ts.Before(m.EndTime) {
		return Bet{}, nil, ErrMarketEnded
	}
	if !m.ValidOption(option) {
		return Bet{}, nil, fmt.Errorf("%w: %d (market has %d options)", ErrInvalidOption, option, len(m.Options))
	}
	if gross < limits.MinBetAmount {
		return Bet{}, nil, fmt.Errorf("%w: %d < %d", ErrBetTooSmall, gross, limits.MinBetAmount)
	}
	if limit := MaxAllowed(m.TotalPool, ts, m.EndTime, limits); gross > limit {
		return Bet{}, nil, &VelocityError{Attempted: gross, Limit: limit}
	}
	if m.Hardcap > 0 {
		after, err := AddAmount(m.TotalPool, gross)
		if err != nil {
			return Bet{}, nil, err
		}
		if after > m.Hardcap {
			return Bet{}, nil, fmt.Errorf("%w: pool would reach %d, cap %d", ErrHardcapExceeded, after, m.Hardcap)
		}
	}

	commission := Commission(gross, ts, m.StartTime, m.EndTime, m.Params.CommissionCurve)
	net, err := SubAmount(gross, commission)
	if err != nil {
		return Bet{}, nil, err
	}
	pool, err := AddAmount(m.OptionPools[option], net)
	if err != nil {
		return Bet{}, nil, err
	}
	total, err := AddAmount(m.TotalPool, net)
	if err != nil {
		return Bet{}, nil, err
	}
	fees, err := AddAmount(m.TotalFees, commission)
	if err != nil {
		return Bet{}, nil, err
	}

	bet := Bet{
		ID:         BetID(m.ID, len(m.Bets)),
		Bettor:     bettor,
		Option:     option,
		Gross:      gross,
		Net:        net,
		Commission: commission,
		Timestamp:  ts,
		IsWhale:    IsWhale(net, total, m.Params.WhaleThreshold),
	}

	// commit
	first := m.TotalPool == 0
	m.OptionPools[option] = pool
	m.TotalPool = total
	m.TotalFees = fees
	m.Bets = append(m.Bets, bet)
	change := m.updateLeader(option, ts)

	if first && m.Hardcap == 0 && m.Params.HardcapEnabled {
		hardcap, err := MulAmount(m.TotalPool, m.Params.HardcapMultiplier)
		if err != nil {
			hardcap = ^uint64(0)
		}
		m.Hardcap = hardcap
	}

	return bet, change, nil
}

// updateLeader aplica la regla de liderazgo tras sumar al pool de option.
// Empate no cambia el líder: solo un pool estrictamente mayor lo desplaza.
func (m *Market) updateLeader(option int, ts time.Time) *LeaderChange {
	prev := m.LeadingOption
	if prev == option {
		return nil
	}
	if prev != NoOption && m.OptionPools[option] <= m.OptionPools[prev] {
		return nil
	}
	m.LeadingOption = option
	m.LeadingSince = ts
	return &LeaderChange{Previous: prev, Current: option}
}

// IsWhale indica si una apuesta de monto net es más que threshold × total.
func IsWhale(net, total uint64, threshold float64) bool {
	if total == 0 {
		return false
	}
	limit := amountToDecimal(total).Mul(decimal.NewFromFloat(threshold))
	return amountToDecimal(net).GreaterThan(limit)
}

// BetsOf devuelve las posiciones (índices en Bets) de las apuestas de un bettor.
func (m *Market) BetsOf(bettor string) []int {
	var idx []int
	for i := range m.Bets {
		if m.Bets[i].Bettor == bettor {
			idx = append(idx, i)
		}
	}
	return idx
}
