package domain

import (
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// Resolution es la decisión de liquidación con todo lo que la justificó.
type Resolution struct {
	Winner      Outcome           `json:"winner"`
	Method      ResolutionMethod  `json:"method"`
	FellBack    bool              `json:"fell_back"` // método con votos sin votos calificados: se usó time-weighted
	Scores      []OptionScore     `json:"scores"`
	StakeTotals []uint64          `json:"stake_totals"`
	Ranking     []decimal.Decimal `json:"ranking"`
	Margin      decimal.Decimal   `json:"margin"`
}

// QualifyingStakes suma el stake de los votos con stake >= minStake por opción.
// Devuelve también si hubo al menos un voto calificado. Falla con
// ErrMathOverflow si el total de una opción no cabe en uint64.
func QualifyingStakes(votes []ResolutionVote, numOptions int, minStake uint64) ([]uint64, bool, error) {
	totals := make([]uint64, numOptions)
	found := false
	for _, v := range votes {
		if v.Stake < minStake || v.Option < 0 || v.Option >= numOptions {
			continue
		}
		total, err := AddAmount(totals[v.Option], v.Stake)
		if err != nil {
			return nil, false, fmt.Errorf("stake on option %d: %w", v.Option, err)
		}
		totals[v.Option] = total
		found = true
	}
	return totals, found, nil
}

// Decide calcula el ganador de un mercado sin modificarlo.
//
//   - time-weighted: ranking = score del scorer.
//   - stake-weighted: ranking = stake calificado por opción.
//   - hybrid: ranking = (cuota de score + cuota de stake) / 2, ambas en %.
//
// Si el método usa votos y no hay ninguno calificado se cae a time-weighted.
// Las opciones con pool vacío no son elegibles (ranking 0). Con los dos
// mejores rankings s1 >= s2, si s1 es 0 o (s1 - s2) / s1 < UncertaintyThreshold
// el resultado es Uncertain.
func Decide(m *Market) (Resolution, error) {
	n := len(m.Options)
	res := Resolution{
		Method: m.Params.ResolutionMethod,
		Scores: Scores(m),
		Margin: decimal.Zero,
	}
	stakes, qualified, err := QualifyingStakes(m.Votes, n, m.Params.ResolutionMinStake)
	if err != nil {
		return Resolution{}, err
	}
	res.StakeTotals = stakes

	method := m.Params.ResolutionMethod
	if method.UsesVotes() && !qualified {
		method = MethodTimeWeighted
		res.FellBack = true
	}

	ranking := make([]decimal.Decimal, n)
	switch method {
	case MethodStakeWeighted:
		for i := range ranking {
			ranking[i] = amountToDecimal(stakes[i])
		}
	case MethodHybrid:
		scoreShares := shares(scoreTotals(res.Scores))
		stakeShares := shares(amountsToDecimals(stakes))
		for i := range ranking {
			ranking[i] = scoreShares[i].Add(stakeShares[i]).Div(decTwo)
		}
	default:
		ranking = scoreTotals(res.Scores)
	}

	for i := range ranking {
		if m.OptionPools[i] == 0 {
			ranking[i] = decimal.Zero
		}
	}
	res.Ranking = ranking

	best := 0
	for i := 1; i < n; i++ {
		if ranking[i].GreaterThan(ranking[best]) {
			best = i
		}
	}

	sorted := slices.Clone(ranking)
	slices.SortFunc(sorted, func(a, b decimal.Decimal) int { return b.Cmp(a) })
	s1 := sorted[0]
	s2 := decimal.Zero
	if len(sorted) > 1 {
		s2 = sorted[1]
	}

	if !s1.IsPositive() {
		res.Winner = OutcomeUncertain
		return res, nil
	}
	res.Margin = s1.Sub(s2).Div(s1)
	if res.Margin.LessThan(decimal.NewFromFloat(m.Params.UncertaintyThreshold)) {
		res.Winner = OutcomeUncertain
		return res, nil
	}
	res.Winner = Outcome(best)
	return res, nil
}

// Resolve liquida el mercado. Solo puede ejecutarse una vez.
//
// Con un método basado en votos, antes de que cierre la ventana de resolución
// solo el creador o el admin pueden finalizar; después puede hacerlo cualquiera.
func (m *Market) Resolve(caller string, ts time.Time, admin string) (Resolution, error) {
	if m.Phase == PhaseSettled {
		return Resolution{}, ErrMarketAlreadyResolved
	}
	if ts.Before(m.EndTime) {
		return Resolution{}, fmt.Errorf("%w: ends at %s", ErrMarketNotEnded, m.EndTime.Format(time.RFC3339))
	}
	if m.TotalPool == 0 {
		return Resolution{}, ErrNoBetsPlaced
	}
	if m.Params.ResolutionMethod.UsesVotes() && ts.Before(m.ResolutionDeadline()) &&
		caller != m.Creator && (admin == "" || caller != admin) {
		return Resolution{}, fmt.Errorf("%w: only creator or admin can finalize before %s",
			ErrUnauthorized, m.ResolutionDeadline().Format(time.RFC3339))
	}

	res, err := Decide(m)
	if err != nil {
		return Resolution{}, err
	}
	m.Winner = res.Winner
	m.Phase = PhaseSettled
	m.ResolutionTime = &ts
	return res, nil
}

// CastVote registra un voto de resolución. El primer voto pasa el mercado a
// fase Resolution. Los votos con stake menor al mínimo se aceptan pero no
// cuentan para la decisión ni se penalizan.
func (m *Market) CastVote(voter string, option int, stake uint64, ts time.Time) (bool, error) {
	if m.Phase == PhaseSettled {
		return false, ErrMarketAlreadyResolved
	}
	if ts.Before(m.EndTime) {
		return false, ErrMarketNotEnded
	}
	if !ts.Before(m.ResolutionDeadline()) {
		return false, ErrResolutionClosed
	}
	if !m.Params.ResolutionMethod.UsesVotes() {
		return false, &ValidationError{Field: "resolution_method", Reason: fmt.Sprintf("%s markets do not take votes", m.Params.ResolutionMethod)}
	}
	if !m.ValidOption(option) {
		return false, fmt.Errorf("%w: %d", ErrInvalidOption, option)
	}
	if stake == 0 {
		return false, &ValidationError{Field: "stake", Reason: "must be positive"}
	}

	m.Votes = append(m.Votes, ResolutionVote{
		Voter:     voter,
		Option:    option,
		Stake:     stake,
		Timestamp: ts,
	})
	opened := m.Phase == PhaseBetting
	m.Phase = PhaseResolution
	return opened, nil
}

// CloseBetting pasa el mercado de Betting a Resolution una vez alcanzado EndTime.
func (m *Market) CloseBetting(ts time.Time) error {
	if m.Phase != PhaseBetting {
		return ErrMarketNotActive
	}
	if ts.Before(m.EndTime) {
		return ErrMarketNotEnded
	}
	m.Phase = PhaseResolution
	return nil
}

func scoreTotals(scores []OptionScore) []decimal.Decimal {
	out := make([]decimal.Decimal, len(scores))
	for i, s := range scores {
		out[i] = s.Total
	}
	return out
}

func amountsToDecimals(amounts []uint64) []decimal.Decimal {
	out := make([]decimal.Decimal, len(amounts))
	for i, a := range amounts {
		out[i] = amountToDecimal(a)
	}
	return out
}

// shares convierte valores en porcentajes de su suma. Suma 0 → todo 0.
func shares(values []decimal.Decimal) []decimal.Decimal {
	sum := decimal.Sum(decimal.Zero, values...)
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		if sum.IsPositive() {
			out[i] = v.Div(sum).Mul(decHundred)
		} else {
			out[i] = decimal.Zero
		}
	}
	return out
}
