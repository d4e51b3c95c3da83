package engine

// replay.go: reconstrucción paralela de mercados desde el log.
//
// Cada mercado se reconstruye de forma independiente, así que se reparten
// entre un pool de workers. El resultado se compara con el snapshot guardado:
// si difieren, el log o las reglas cambiaron y el mercado no es confiable.

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"sync"

	"github.com/alejandrodnm/paribet/internal/domain"
)

// ReplayReport es el resultado de reconstruir un mercado.
type ReplayReport struct {
	MarketID string
	Actions  int
	Match    bool // el estado reconstruido coincide con el snapshot guardado
	Err      error
}

var errNoStore = errors.New("engine: no action store configured")

// Load carga en memoria el último snapshot de cada mercado guardado.
func (e *Engine) Load(ctx context.Context) (int, error) {
	if e.store == nil {
		return 0, errNoStore
	}
	ids, err := e.store.ListMarkets(ctx)
	if err != nil {
		return 0, fmt.Errorf("engine.Load: %w", err)
	}
	for _, id := range ids {
		m, err := e.store.LoadMarket(ctx, id)
		if err != nil {
			return 0, fmt.Errorf("engine.Load: market %s: %w", id, err)
		}
		s, _ := e.slot(id, true)
		s.mu.Lock()
		s.market = m
		s.mu.Unlock()
	}
	return len(ids), nil
}

// ReplayAll reconstruye todos los mercados del store aplicando su log y los
// carga en el engine. Los mercados cuyo replay falla no se cargan.
func (e *Engine) ReplayAll(ctx context.Context) ([]ReplayReport, error) {
	if e.store == nil {
		return nil, errNoStore
	}
	ids, err := e.store.ListMarkets(ctx)
	if err != nil {
		return nil, fmt.Errorf("engine.ReplayAll: %w", err)
	}

	workers := e.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	workCh := make(chan string, len(ids))
	resultCh := make(chan ReplayReport, len(ids))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range workCh {
				resultCh <- e.replayOne(ctx, id)
			}
		}()
	}

	for _, id := range ids {
		workCh <- id
	}
	close(workCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	reports := make([]ReplayReport, 0, len(ids))
	for r := range resultCh {
		reports = append(reports, r)
	}
	slices.SortFunc(reports, func(a, b ReplayReport) int {
		return cmp.Compare(a.MarketID, b.MarketID)
	})

	mismatched := 0
	for _, r := range reports {
		if !r.Match {
			mismatched++
		}
	}
	slog.Info("replay complete",
		"markets", len(reports),
		"mismatched", mismatched,
		"workers", workers,
	)
	return reports, nil
}

// CountByPhase resume los mercados guardados por fase.
func (e *Engine) CountByPhase(ctx context.Context) (map[domain.Phase]int, error) {
	if e.store == nil {
		return nil, errNoStore
	}
	counts, err := e.store.CountByPhase(ctx)
	if err != nil {
		return nil, fmt.Errorf("engine.CountByPhase: %w", err)
	}
	return counts, nil
}

// Replay reconstruye un solo mercado desde su log y lo carga en el engine.
func (e *Engine) Replay(ctx context.Context, marketID string) (ReplayReport, error) {
	if e.store == nil {
		return ReplayReport{MarketID: marketID}, errNoStore
	}
	r := e.replayOne(ctx, marketID)
	if r.Err != nil {
		return r, fmt.Errorf("engine.Replay: %w", r.Err)
	}
	return r, nil
}

func (e *Engine) replayOne(ctx context.Context, id string) ReplayReport {
	r := ReplayReport{MarketID: id}
	actions, err := e.store.LoadActions(ctx, id)
	if err != nil {
		r.Err = err
		return r
	}
	r.Actions = len(actions)

	rebuilt, err := domain.Replay(actions, e.env())
	if err != nil {
		r.Err = err
		slog.Warn("replay failed", "market_id", id, "err", err)
		return r
	}

	stored, err := e.store.LoadMarket(ctx, id)
	if err != nil {
		r.Err = err
		return r
	}
	r.Match, r.Err = sameState(rebuilt, stored)
	if !r.Match && r.Err == nil {
		slog.Warn("replay mismatch", "market_id", id, "actions", r.Actions)
	}

	s, _ := e.slot(id, true)
	s.mu.Lock()
	s.market = rebuilt
	s.mu.Unlock()
	return r
}

// sameState compara dos mercados por su representación serializada, que es
// la que se persiste.
func sameState(a, b *domain.Market) (bool, error) {
	ra, err := json.Marshal(a)
	if err != nil {
		return false, err
	}
	rb, err := json.Marshal(b)
	if err != nil {
		return false, err
	}
	return bytes.Equal(ra, rb), nil
}
