package simulator

// runner.go: ejecuta escenarios contra el engine.
//
// Cada escenario es un mercado independiente, así que varios escenarios
// corren en paralelo sobre el mismo engine (errgroup). El primero que falla
// por un error de infraestructura cancela al resto; los rechazos del
// mercado (velocity, hardcap, ventana cerrada) son parte del resultado.

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alejandrodnm/paribet/internal/application/engine"
	"github.com/alejandrodnm/paribet/internal/domain"
)

const uncertainLabel = "uncertain"

// Rejection es una acción del escenario que el mercado no aceptó.
type Rejection struct {
	Kind   domain.ActionKind
	Actor  string
	Offset time.Duration
	Err    error
}

// Report es el resultado completo de un escenario.
type Report struct {
	Scenario   string
	Market     *domain.Market
	Standings  []domain.Standing // foto al cierre de apuestas
	Resolution domain.Resolution
	Claims     []domain.ClaimResult
	Voters     []domain.VoterSettlement
	Rejected   []Rejection
	Winner     string
	Expected   Expectation
}

// Passed indica si el resultado coincide con lo que el escenario espera.
func (r *Report) Passed() bool {
	if r.Expected.Winner != "" && r.Expected.Winner != r.Winner {
		return false
	}
	if r.Expected.Rejected != nil && *r.Expected.Rejected != len(r.Rejected) {
		return false
	}
	return true
}

// Runner ejecuta escenarios sobre un engine compartido.
type Runner struct {
	eng *engine.Engine

	// Start es la apertura de todos los mercados. Cero = 2025-01-01 UTC,
	// así los resultados son reproducibles.
	Start time.Time

	// IDSuffix se agrega al ID de cada mercado; permite repetir escenarios
	// contra un store persistente sin chocar con ErrMarketExists.
	IDSuffix string

	// Workers limita los escenarios simultáneos. <= 0 = sin límite.
	Workers int
}

// NewRunner crea un runner sobre eng.
func NewRunner(eng *engine.Engine) *Runner {
	return &Runner{eng: eng}
}

func (r *Runner) start() time.Time {
	if r.Start.IsZero() {
		return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return r.Start
}

// RunAll ejecuta los escenarios en paralelo y devuelve los reportes en el
// mismo orden de entrada.
func (r *Runner) RunAll(ctx context.Context, scenarios []*Scenario) ([]*Report, error) {
	reports := make([]*Report, len(scenarios))

	g, ctx := errgroup.WithContext(ctx)
	if r.Workers > 0 {
		g.SetLimit(r.Workers)
	}
	for i, sc := range scenarios {
		i, sc := i, sc
		g.Go(func() error {
			rep, err := r.Run(ctx, sc)
			if err != nil {
				return fmt.Errorf("scenario %q: %w", sc.Name, err)
			}
			reports[i] = rep
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("simulator.RunAll: %w", err)
	}
	return reports, nil
}

type step struct {
	at   time.Duration
	bet  *BetSpec
	vote *VoteSpec
}

// Run ejecuta un escenario: crea el mercado, aplica apuestas y votos en orden
// de offset, resuelve y liquida a todos los participantes.
func (r *Runner) Run(ctx context.Context, sc *Scenario) (*Report, error) {
	start := r.start()
	marketID := sc.Market.ID + r.IDSuffix
	creator := sc.Market.Creator
	if creator == "" {
		creator = "creator"
	}

	params, err := sc.Params.Apply(r.eng.DefaultParams())
	if err != nil {
		return nil, fmt.Errorf("simulator.Run: params: %w", err)
	}

	m, err := r.eng.CreateMarket(ctx, domain.CreateMarketInput{
		ID:       marketID,
		Creator:  creator,
		Question: sc.Market.Question,
		Options:  sc.Market.Options,
		EndTime:  start.Add(sc.Market.Duration.D()),
		Params:   &params,
		Hardcap:  sc.Market.Hardcap,
	}, start)
	if err != nil {
		return nil, fmt.Errorf("simulator.Run: create market: %w", err)
	}

	rep := &Report{Scenario: sc.Name, Expected: sc.Expected}

	steps := make([]step, 0, len(sc.Bets)+len(sc.Votes))
	for i := range sc.Bets {
		steps = append(steps, step{at: sc.Bets[i].At.D(), bet: &sc.Bets[i]})
	}
	for i := range sc.Votes {
		steps = append(steps, step{at: sc.Votes[i].At.D(), vote: &sc.Votes[i]})
	}
	slices.SortStableFunc(steps, func(a, b step) int { return cmp.Compare(a.at, b.at) })

	var bettors, voters []string
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ts := start.Add(s.at)
		switch {
		case s.bet != nil:
			_, err := r.eng.PlaceBet(ctx, marketID, s.bet.Bettor, s.bet.Option, s.bet.Amount, ts)
			if err != nil {
				if !isMarketRejection(err) {
					return nil, err
				}
				rep.Rejected = append(rep.Rejected, Rejection{Kind: domain.ActionPlaceBet, Actor: s.bet.Bettor, Offset: s.at, Err: err})
				continue
			}
			bettors = appendUnique(bettors, s.bet.Bettor)
		case s.vote != nil:
			err := r.eng.CastResolutionVote(ctx, marketID, s.vote.Voter, s.vote.Option, s.vote.Stake, ts)
			if err != nil {
				if !isMarketRejection(err) {
					return nil, err
				}
				rep.Rejected = append(rep.Rejected, Rejection{Kind: domain.ActionCastVote, Actor: s.vote.Voter, Offset: s.at, Err: err})
				continue
			}
			voters = appendUnique(voters, s.vote.Voter)
		}
	}

	rep.Standings, err = r.eng.Standings(marketID, m.EndTime)
	if err != nil {
		return nil, err
	}

	resolveAt := m.EndTime
	if params.ResolutionMethod.UsesVotes() {
		resolveAt = m.ResolutionDeadline()
	}
	if sc.ResolveAt != nil {
		resolveAt = start.Add(sc.ResolveAt.D())
	}
	rep.Resolution, err = r.eng.ResolveMarket(ctx, marketID, creator, resolveAt)
	if err != nil {
		return nil, fmt.Errorf("simulator.Run: resolve: %w", err)
	}
	rep.Winner = winnerLabel(sc.Market.Options, rep.Resolution.Winner)

	claimAt := resolveAt.Add(time.Minute)
	for _, b := range bettors {
		res, err := r.eng.Claim(ctx, marketID, b, claimAt)
		switch {
		case err == nil:
			rep.Claims = append(rep.Claims, res)
		case errors.Is(err, domain.ErrNotWinner), errors.Is(err, domain.ErrNothingToClaim):
		default:
			return nil, fmt.Errorf("simulator.Run: claim %s: %w", b, err)
		}
	}
	for _, v := range voters {
		res, err := r.eng.ClaimVoterStake(ctx, marketID, v, claimAt)
		if err != nil {
			return nil, fmt.Errorf("simulator.Run: voter stake %s: %w", v, err)
		}
		rep.Voters = append(rep.Voters, res)
	}

	rep.Market, err = r.eng.Market(marketID)
	if err != nil {
		return nil, err
	}

	slog.Info("scenario complete",
		"scenario", sc.Name,
		"market_id", marketID,
		"winner", rep.Winner,
		"rejected", len(rep.Rejected),
		"passed", rep.Passed(),
	)
	return rep, nil
}

// isMarketRejection distingue un rechazo de las reglas del mercado de un
// fallo de infraestructura (store, contexto).
func isMarketRejection(err error) bool {
	for _, target := range []error{
		domain.ErrValidation,
		domain.ErrMarketNotActive,
		domain.ErrMarketEnded,
		domain.ErrMarketNotEnded,
		domain.ErrInvalidOption,
		domain.ErrBetTooSmall,
		domain.ErrVelocityLimitExceeded,
		domain.ErrHardcapExceeded,
		domain.ErrMarketAlreadyResolved,
		domain.ErrResolutionClosed,
		domain.ErrMathOverflow,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func winnerLabel(options []string, o domain.Outcome) string {
	switch {
	case o.IsOption() && int(o) < len(options):
		return options[o]
	case o.IsUncertain():
		return uncertainLabel
	default:
		return o.String()
	}
}

func appendUnique(xs []string, s string) []string {
	if slices.Contains(xs, s) {
		return xs
	}
	return append(xs, s)
}
