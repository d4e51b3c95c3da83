package domain

import (
	"errors"
	"fmt"
	"time"
)

// ActionKind es el tipo de una acción del log.
type ActionKind string

const (
	ActionCreateMarket    ActionKind = "create_market"
	ActionPlaceBet        ActionKind = "place_bet"
	ActionCastVote        ActionKind = "cast_resolution_vote"
	ActionCloseBetting    ActionKind = "close_betting"
	ActionResolveMarket   ActionKind = "resolve_market"
	ActionClaim           ActionKind = "claim"
	ActionClaimVoterStake ActionKind = "claim_voter_stake"
	ActionSetPaused       ActionKind = "set_paused"
)

// Action es una entrada del log append-only de un mercado. Aplicar el mismo
// log en el mismo orden reconstruye siempre el mismo estado.
type Action struct {
	Seq       uint64     `json:"seq"`
	Kind      ActionKind `json:"kind"`
	MarketID  string     `json:"market_id"`
	Actor     string     `json:"actor"`
	Timestamp time.Time  `json:"timestamp"`

	Option int    `json:"option,omitempty"`
	Amount uint64 `json:"amount,omitempty"` // gross de la apuesta o stake del voto
	Paused bool   `json:"paused,omitempty"`

	Create *CreateMarketInput `json:"create,omitempty"`
}

// Result es el valor que devuelve una acción aceptada. Solo se rellena el
// campo que corresponde al Kind.
type Result struct {
	Kind       ActionKind       `json:"kind"`
	Bet        *Bet             `json:"bet,omitempty"`
	Resolution *Resolution      `json:"resolution,omitempty"`
	Claim      *ClaimResult     `json:"claim,omitempty"`
	Voter      *VoterSettlement `json:"voter,omitempty"`
}

// Env son los parámetros de despliegue que una transición necesita además del mercado.
type Env struct {
	Limits Limits
	Admin  string
}

// Apply aplica una acción sobre una copia del mercado y devuelve el nuevo estado.
// Si falla, m no se toca y no hay eventos. Para create_market m debe ser nil.
func Apply(m *Market, a Action, env Env) (*Market, Result, []Event, error) {
	if a.Kind == ActionCreateMarket {
		return applyCreate(m, a)
	}
	if m == nil {
		return nil, Result{}, nil, fmt.Errorf("%w: %s", ErrMarketNotFound, a.MarketID)
	}
	if a.Seq != 0 && a.Seq != m.Seq+1 {
		return nil, Result{}, nil, &ValidationError{Field: "seq", Reason: fmt.Sprintf("expected %d, got %d", m.Seq+1, a.Seq)}
	}

	next := m.Clone()
	res := Result{Kind: a.Kind}
	var events []Event

	switch a.Kind {
	case ActionPlaceBet:
		bet, change, err := next.RecordBet(a.Actor, a.Option, a.Amount, a.Timestamp, env.Limits)
		if err != nil {
			return nil, Result{}, nil, err
		}
		res.Bet = &bet
		events = append(events, Event{
			Kind:      EventBetPlaced,
			MarketID:  next.ID,
			Actor:     a.Actor,
			Timestamp: a.Timestamp,
			Option:    intPtr(bet.Option),
			Amount:    bet.Net,
			Pool:      next.TotalPool,
			Odds:      next.Odds(),
		})
		if change != nil {
			events = append(events, Event{
				Kind:      EventLeaderChanged,
				MarketID:  next.ID,
				Timestamp: a.Timestamp,
				Option:    intPtr(change.Current),
			})
		}

	case ActionCastVote:
		opened, err := next.CastVote(a.Actor, a.Option, a.Amount, a.Timestamp)
		if err != nil {
			return nil, Result{}, nil, err
		}
		if opened {
			events = append(events, Event{Kind: EventBettingClosed, MarketID: next.ID, Timestamp: a.Timestamp})
		}
		events = append(events, Event{
			Kind:      EventResolutionVoteCast,
			MarketID:  next.ID,
			Actor:     a.Actor,
			Timestamp: a.Timestamp,
			Option:    intPtr(a.Option),
			Amount:    a.Amount,
		})

	case ActionCloseBetting:
		if err := next.CloseBetting(a.Timestamp); err != nil {
			return nil, Result{}, nil, err
		}
		events = append(events, Event{Kind: EventBettingClosed, MarketID: next.ID, Actor: a.Actor, Timestamp: a.Timestamp})

	case ActionResolveMarket:
		resolution, err := next.Resolve(a.Actor, a.Timestamp, env.Admin)
		if err != nil {
			return nil, Result{}, nil, err
		}
		res.Resolution = &resolution
		winner := resolution.Winner
		events = append(events, Event{
			Kind:        EventMarketResolved,
			MarketID:    next.ID,
			Actor:       a.Actor,
			Timestamp:   a.Timestamp,
			Winner:      &winner,
			Pool:        next.TotalPool,
			WinningPool: next.WinnerPool(),
		})

	case ActionClaim:
		claim, err := next.Claim(a.Actor)
		if err != nil {
			return nil, Result{}, nil, err
		}
		res.Claim = &claim
		events = append(events, Event{
			Kind:      EventWinningsClaimed,
			MarketID:  next.ID,
			Actor:     a.Actor,
			Timestamp: a.Timestamp,
			Amount:    claim.Amount,
			Refund:    claim.Refund,
		})

	case ActionClaimVoterStake:
		settlement, err := next.ClaimVoterStake(a.Actor)
		if err != nil {
			return nil, Result{}, nil, err
		}
		res.Voter = &settlement
		events = append(events, Event{
			Kind:      EventVoterStakeSettled,
			MarketID:  next.ID,
			Actor:     a.Actor,
			Timestamp: a.Timestamp,
			Amount:    settlement.Returned,
			Slashed:   settlement.Slashed,
		})

	case ActionSetPaused:
		if env.Admin == "" || a.Actor != env.Admin {
			return nil, Result{}, nil, fmt.Errorf("%w: set_paused requires the platform admin", ErrUnauthorized)
		}
		next.Paused = a.Paused
		paused := a.Paused
		events = append(events, Event{
			Kind:      EventMarketPausedChanged,
			MarketID:  next.ID,
			Actor:     a.Actor,
			Timestamp: a.Timestamp,
			Paused:    &paused,
		})

	default:
		return nil, Result{}, nil, &ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown action %q", a.Kind)}
	}

	next.Seq++
	return next, res, events, nil
}

func applyCreate(m *Market, a Action) (*Market, Result, []Event, error) {
	if m != nil {
		return nil, Result{}, nil, fmt.Errorf("%w: %s", ErrMarketExists, a.MarketID)
	}
	if a.Create == nil {
		return nil, Result{}, nil, &ValidationError{Field: "create", Reason: "missing market definition"}
	}
	if a.Seq > 1 {
		return nil, Result{}, nil, &ValidationError{Field: "seq", Reason: fmt.Sprintf("expected 1, got %d", a.Seq)}
	}
	in := *a.Create
	if in.ID == "" {
		in.ID = a.MarketID
	}
	if in.Creator == "" {
		in.Creator = a.Actor
	}
	market, err := NewMarket(in, a.Timestamp)
	if err != nil {
		return nil, Result{}, nil, err
	}
	market.Seq = 1
	end := market.EndTime
	return market, Result{Kind: a.Kind}, []Event{{
		Kind:         EventMarketCreated,
		MarketID:     market.ID,
		Actor:        market.Creator,
		Timestamp:    a.Timestamp,
		EndTime:      &end,
		OptionsCount: len(market.Options),
	}}, nil
}

// Replay reconstruye un mercado aplicando su log en orden.
// Una acción que falle en el replay indica un log corrupto o un cambio de reglas.
func Replay(actions []Action, env Env) (*Market, error) {
	if len(actions) == 0 {
		return nil, errors.New("domain.Replay: empty action log")
	}
	var m *Market
	for _, a := range actions {
		next, _, _, err := Apply(m, a, env)
		if err != nil {
			return nil, fmt.Errorf("domain.Replay: action %d (%s): %w", a.Seq, a.Kind, err)
		}
		m = next
	}
	return m, nil
}
