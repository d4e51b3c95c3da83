package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Payout devuelve floor(net × totalPool / winnerPool): la parte pari-mutuel
// de una apuesta ganadora.
func Payout(net, winnerPool, totalPool uint64) (uint64, error) {
	if winnerPool == 0 {
		return 0, fmt.Errorf("%w: empty winning pool", ErrMathOverflow)
	}
	return MulDiv(net, totalPool, winnerPool)
}

// ClaimResult es lo que recibe un bettor al reclamar.
type ClaimResult struct {
	Bettor string `json:"bettor"`
	Amount uint64 `json:"amount"`
	Refund bool   `json:"refund"` // mercado incierto: se devuelve el net
	Bets   int    `json:"bets"`   // apuestas liquidadas en este claim
}

// Claim liquida todas las apuestas pendientes de un bettor.
//
// Mercado Uncertain: se reembolsa el net de cada apuesta no reclamada.
// Con ganador: cada apuesta a la opción ganadora cobra Payout; las apuestas
// perdedoras no cobran nada y no se marcan.
func (m *Market) Claim(bettor string) (ClaimResult, error) {
	if m.Phase != PhaseSettled {
		return ClaimResult{}, ErrMarketNotResolved
	}
	idx := m.BetsOf(bettor)
	if len(idx) == 0 {
		return ClaimResult{}, ErrNothingToClaim
	}

	res := ClaimResult{Bettor: bettor, Refund: m.Winner.IsUncertain()}
	var pending []int
	if res.Refund {
		pending = idx
	} else {
		won := false
		for _, i := range idx {
			if Outcome(m.Bets[i].Option) == m.Winner {
				won = true
				pending = append(pending, i)
			}
		}
		if !won {
			return ClaimResult{}, ErrNotWinner
		}
	}

	winnerPool := m.WinnerPool()
	var amounts []uint64
	var claim []int
	for _, i := range pending {
		b := m.Bets[i]
		if b.Claimed {
			continue
		}
		amount := b.Net
		if !res.Refund {
			var err error
			if amount, err = Payout(b.Net, winnerPool, m.TotalPool); err != nil {
				return ClaimResult{}, err
			}
		}
		amounts = append(amounts, amount)
		claim = append(claim, i)
	}
	if len(claim) == 0 {
		return ClaimResult{}, ErrAlreadyClaimed
	}

	total, err := SumAmounts(amounts)
	if err != nil {
		return ClaimResult{}, err
	}
	paid, err := AddAmount(m.Paid, total)
	if err != nil {
		return ClaimResult{}, err
	}

	for _, i := range claim {
		m.Bets[i].Claimed = true
	}
	m.Paid = paid
	res.Amount = total
	res.Bets = len(claim)
	return res, nil
}

// VoterSettlement es la devolución del stake de un votante de resolución.
type VoterSettlement struct {
	Voter    string `json:"voter"`
	Returned uint64 `json:"returned"`
	Slashed  uint64 `json:"slashed"`
	Votes    int    `json:"votes"`
}

// ClaimVoterStake devuelve el stake de los votos de un votante tras la liquidación.
// Los votos calificados a una opción perdedora pierden floor(stake × SlashingPenalty).
// Si el mercado quedó Uncertain nadie es penalizado.
func (m *Market) ClaimVoterStake(voter string) (VoterSettlement, error) {
	if m.Phase != PhaseSettled {
		return VoterSettlement{}, ErrMarketNotResolved
	}

	var idx []int
	for i := range m.Votes {
		if m.Votes[i].Voter == voter {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return VoterSettlement{}, ErrNothingToClaim
	}

	penalty := decimal.NewFromFloat(m.Params.SlashingPenalty)
	res := VoterSettlement{Voter: voter}
	var settle []int
	var returned, slashed uint64
	for _, i := range idx {
		v := m.Votes[i]
		if v.Settled {
			continue
		}
		var cut uint64
		if m.Winner.IsOption() && Outcome(v.Option) != m.Winner && v.Stake >= m.Params.ResolutionMinStake {
			cut = decimalToAmount(amountToDecimal(v.Stake).Mul(penalty))
		}
		var err error
		if returned, err = AddAmount(returned, v.Stake-cut); err != nil {
			return VoterSettlement{}, err
		}
		if slashed, err = AddAmount(slashed, cut); err != nil {
			return VoterSettlement{}, err
		}
		settle = append(settle, i)
	}
	if len(settle) == 0 {
		return VoterSettlement{}, ErrAlreadyClaimed
	}

	total, err := AddAmount(m.Slashed, slashed)
	if err != nil {
		return VoterSettlement{}, err
	}
	for _, i := range settle {
		m.Votes[i].Settled = true
	}
	m.Slashed = total
	res.Returned = returned
	res.Slashed = slashed
	res.Votes = len(settle)
	return res, nil
}
