package engine

// engine.go: ejecutor serializado por mercado.
//
// Cada mercado tiene su propio lock: las acciones sobre un mismo mercado se
// aplican de a una y en orden, mercados distintos avanzan en paralelo.
// Orden de commit: Apply sobre una copia → persistir en el store → publicar
// el nuevo estado → emitir eventos. Si el store falla el estado no cambia.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/alejandrodnm/paribet/internal/domain"
	"github.com/alejandrodnm/paribet/internal/ports"
)

// Config son los parámetros de despliegue del engine.
type Config struct {
	Limits domain.Limits
	Admin  string

	// DefaultParams se usan cuando un mercado se crea sin parámetros propios.
	DefaultParams domain.EconomicParams

	// CommissionCurve es la curva autoritativa del despliegue: pisa la del
	// mercado al crearlo.
	CommissionCurve domain.CommissionCurve

	// Workers del replay paralelo. <= 0 usa runtime.NumCPU().
	Workers int
}

// DefaultConfig devuelve la configuración del programa on-chain.
func DefaultConfig() Config {
	return Config{
		Limits:        domain.DefaultLimits(),
		DefaultParams: domain.DefaultParams(),
	}
}

type slot struct {
	mu     sync.Mutex
	market *domain.Market
}

// Engine aplica acciones a mercados. store y sink pueden ser nil.
type Engine struct {
	cfg   Config
	store ports.ActionStore
	sink  ports.EventSink

	mu    sync.Mutex
	slots map[string]*slot
}

// New crea un engine vacío. Para recuperar mercados persistidos usar Load o ReplayAll.
func New(cfg Config, store ports.ActionStore, sink ports.EventSink) *Engine {
	return &Engine{
		cfg:   cfg,
		store: store,
		sink:  sink,
		slots: make(map[string]*slot),
	}
}

func (e *Engine) env() domain.Env {
	return domain.Env{Limits: e.cfg.Limits, Admin: e.cfg.Admin}
}

func (e *Engine) slot(marketID string, create bool) (*slot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.slots[marketID]
	if !ok && create {
		s = &slot{}
		e.slots[marketID] = s
		ok = true
	}
	return s, ok
}

// CreateMarket crea un mercado en now. Si in.Params es nil se usan los
// parámetros por defecto del engine; la curva de comisión siempre es la del despliegue.
func (e *Engine) CreateMarket(ctx context.Context, in domain.CreateMarketInput, now time.Time) (*domain.Market, error) {
	params := e.cfg.DefaultParams
	if in.Params != nil {
		params = *in.Params
	}
	params.CommissionCurve = e.cfg.CommissionCurve
	in.Params = &params

	_, err := e.submit(ctx, domain.Action{
		Kind:      domain.ActionCreateMarket,
		MarketID:  in.ID,
		Actor:     in.Creator,
		Timestamp: now,
		Create:    &in,
	})
	if err != nil {
		return nil, err
	}
	return e.Market(in.ID)
}

// PlaceBet registra una apuesta y devuelve el Bet aceptado (con su net).
func (e *Engine) PlaceBet(ctx context.Context, marketID, bettor string, option int, amount uint64, ts time.Time) (domain.Bet, error) {
	res, err := e.submit(ctx, domain.Action{
		Kind:      domain.ActionPlaceBet,
		MarketID:  marketID,
		Actor:     bettor,
		Timestamp: ts,
		Option:    option,
		Amount:    amount,
	})
	if err != nil {
		return domain.Bet{}, err
	}
	return *res.Bet, nil
}

// CastResolutionVote registra un voto con stake.
func (e *Engine) CastResolutionVote(ctx context.Context, marketID, voter string, option int, stake uint64, ts time.Time) error {
	_, err := e.submit(ctx, domain.Action{
		Kind:      domain.ActionCastVote,
		MarketID:  marketID,
		Actor:     voter,
		Timestamp: ts,
		Option:    option,
		Amount:    stake,
	})
	return err
}

// CloseBetting pasa el mercado a fase de resolución.
func (e *Engine) CloseBetting(ctx context.Context, marketID, caller string, ts time.Time) error {
	_, err := e.submit(ctx, domain.Action{
		Kind:      domain.ActionCloseBetting,
		MarketID:  marketID,
		Actor:     caller,
		Timestamp: ts,
	})
	return err
}

// ResolveMarket liquida el mercado y devuelve la decisión.
func (e *Engine) ResolveMarket(ctx context.Context, marketID, caller string, ts time.Time) (domain.Resolution, error) {
	res, err := e.submit(ctx, domain.Action{
		Kind:      domain.ActionResolveMarket,
		MarketID:  marketID,
		Actor:     caller,
		Timestamp: ts,
	})
	if err != nil {
		return domain.Resolution{}, err
	}
	return *res.Resolution, nil
}

// Claim cobra las apuestas pendientes de un bettor.
func (e *Engine) Claim(ctx context.Context, marketID, bettor string, ts time.Time) (domain.ClaimResult, error) {
	res, err := e.submit(ctx, domain.Action{
		Kind:      domain.ActionClaim,
		MarketID:  marketID,
		Actor:     bettor,
		Timestamp: ts,
	})
	if err != nil {
		return domain.ClaimResult{}, err
	}
	return *res.Claim, nil
}

// ClaimVoterStake devuelve el stake de un votante aplicando slashing.
func (e *Engine) ClaimVoterStake(ctx context.Context, marketID, voter string, ts time.Time) (domain.VoterSettlement, error) {
	res, err := e.submit(ctx, domain.Action{
		Kind:      domain.ActionClaimVoterStake,
		MarketID:  marketID,
		Actor:     voter,
		Timestamp: ts,
	})
	if err != nil {
		return domain.VoterSettlement{}, err
	}
	return *res.Voter, nil
}

// SetPaused pausa o reanuda un mercado. Solo el admin del despliegue.
func (e *Engine) SetPaused(ctx context.Context, marketID, caller string, paused bool, ts time.Time) error {
	_, err := e.submit(ctx, domain.Action{
		Kind:      domain.ActionSetPaused,
		MarketID:  marketID,
		Actor:     caller,
		Timestamp: ts,
		Paused:    paused,
	})
	return err
}

// DefaultParams devuelve los parámetros que recibe un mercado creado sin parámetros propios.
func (e *Engine) DefaultParams() domain.EconomicParams {
	return e.cfg.DefaultParams
}

// Market devuelve una copia del estado actual.
func (e *Engine) Market(marketID string) (*domain.Market, error) {
	s, ok := e.slot(marketID, false)
	if !ok {
		return nil, fmt.Errorf("engine.Market: %w: %s", domain.ErrMarketNotFound, marketID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.market == nil {
		return nil, fmt.Errorf("engine.Market: %w: %s", domain.ErrMarketNotFound, marketID)
	}
	return s.market.Clone(), nil
}

// Odds devuelve el porcentaje de cada opción sobre el pool.
func (e *Engine) Odds(marketID string) ([]uint64, error) {
	m, err := e.Market(marketID)
	if err != nil {
		return nil, err
	}
	return m.Odds(), nil
}

// Standings devuelve la foto en vivo del mercado hasta asOf.
func (e *Engine) Standings(marketID string, asOf time.Time) ([]domain.Standing, error) {
	m, err := e.Market(marketID)
	if err != nil {
		return nil, err
	}
	return domain.Standings(m, asOf), nil
}

// Markets devuelve los IDs de los mercados cargados, ordenados.
func (e *Engine) Markets() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]string, 0, len(e.slots))
	for id, s := range e.slots {
		s.mu.Lock()
		if s.market != nil {
			ids = append(ids, id)
		}
		s.mu.Unlock()
	}
	slices.Sort(ids)
	return ids
}

// submit aplica una acción bajo el lock del mercado.
func (e *Engine) submit(ctx context.Context, a domain.Action) (domain.Result, error) {
	s, ok := e.slot(a.MarketID, a.Kind == domain.ActionCreateMarket)
	if !ok {
		return domain.Result{}, fmt.Errorf("engine.%s: %w: %s", a.Kind, domain.ErrMarketNotFound, a.MarketID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a.Seq = 1
	if s.market != nil {
		a.Seq = s.market.Seq + 1
	}

	next, res, events, err := domain.Apply(s.market, a, e.env())
	if err != nil {
		slog.Debug("action rejected",
			"market_id", a.MarketID,
			"action", a.Kind,
			"actor", a.Actor,
			"err", err,
		)
		var verr *domain.VelocityError
		if errors.As(err, &verr) {
			e.publish(ctx, []domain.Event{domain.VelocityEvent(a.MarketID, a.Actor, a.Timestamp, verr)})
		}
		return domain.Result{}, fmt.Errorf("engine.%s: %w", a.Kind, err)
	}

	if e.store != nil {
		if err := e.store.AppendAction(ctx, a, next); err != nil {
			return domain.Result{}, fmt.Errorf("engine.%s: persist: %w", a.Kind, err)
		}
	}
	s.market = next

	slog.Debug("action applied",
		"market_id", a.MarketID,
		"action", a.Kind,
		"seq", a.Seq,
		"actor", a.Actor,
	)
	e.publish(ctx, events)
	return res, nil
}

// publish emite eventos. Un fallo del sink no deshace la transición ya persistida.
func (e *Engine) publish(ctx context.Context, events []domain.Event) {
	if e.sink == nil || len(events) == 0 {
		return
	}
	if err := e.sink.Publish(ctx, events); err != nil {
		slog.Warn("event publish failed", "events", len(events), "err", err)
	}
}
