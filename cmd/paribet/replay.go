package main

import (
	"context"
	"log/slog"

	"github.com/alejandrodnm/paribet/internal/adapters/notify"
	"github.com/alejandrodnm/paribet/internal/application/engine"
)

// runReplay reconstruye todos los mercados del store. Devuelve false si
// alguno falla o no coincide con su snapshot.
func runReplay(ctx context.Context, eng *engine.Engine, notifier *notify.Console) bool {
	slog.Info("=== REPLAY: rebuild markets from the action log ===")

	reports, err := eng.ReplayAll(ctx)
	if err != nil {
		slog.Error("replay failed", "err", err)
		return false
	}

	rows := make([]notify.ReplayRow, 0, len(reports))
	ok := true
	for _, r := range reports {
		rows = append(rows, notify.ReplayRow{MarketID: r.MarketID, Actions: r.Actions, Match: r.Match, Err: r.Err})
		ok = ok && r.Err == nil && r.Match
	}
	notifier.PrintReplay(rows)

	counts, err := eng.CountByPhase(ctx)
	if err != nil {
		slog.Warn("phase summary unavailable", "err", err)
	} else {
		notifier.PrintPhases(counts)
	}
	return ok
}
