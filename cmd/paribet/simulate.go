package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/alejandrodnm/paribet/internal/adapters/notify"
	"github.com/alejandrodnm/paribet/internal/application/engine"
	"github.com/alejandrodnm/paribet/internal/application/simulator"
)

// runScenarios carga y ejecuta los escenarios en paralelo y los imprime en
// orden. Devuelve false si alguno no cumple lo esperado.
func runScenarios(ctx context.Context, eng *engine.Engine, notifier *notify.Console, paths []string, persist bool) bool {
	slog.Info("=== SCENARIO SIMULATION ===", "count", len(paths))

	scenarios := make([]*simulator.Scenario, 0, len(paths))
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		sc, err := simulator.Load(p)
		if err != nil {
			slog.Error("failed to load scenario", "err", err, "path", p)
			return false
		}
		scenarios = append(scenarios, sc)
	}

	runner := simulator.NewRunner(eng)
	if persist {
		// un store persistente ya puede tener estos mercados de otra corrida
		runner.IDSuffix = "-" + time.Now().UTC().Format("20060102T150405")
	}

	reports, err := runner.RunAll(ctx, scenarios)
	if err != nil {
		slog.Error("simulation failed", "err", err)
		return false
	}

	rows := make([]notify.ScenarioRow, 0, len(reports))
	ok := true
	for _, rep := range reports {
		printReport(ctx, notifier, rep)
		rows = append(rows, notify.ScenarioRow{
			Name:     rep.Scenario,
			MarketID: rep.Market.ID,
			Winner:   rep.Winner,
			Expected: rep.Expected.Winner,
			Rejected: len(rep.Rejected),

			ExpectedRejected: rep.Expected.Rejected,
		})
		ok = ok && rep.Passed()
	}
	notifier.PrintScenarios(rows)
	return ok
}

func printReport(ctx context.Context, notifier *notify.Console, rep *simulator.Report) {
	for _, r := range rep.Rejected {
		slog.Info("action rejected",
			"scenario", rep.Scenario,
			"action", r.Kind,
			"actor", r.Actor,
			"offset", r.Offset,
			"err", r.Err,
		)
	}
	if err := notifier.NotifyStandings(ctx, rep.Market, rep.Standings); err != nil {
		slog.Warn("notifier error", "err", err)
	}
	if err := notifier.NotifyResolution(ctx, rep.Market, rep.Resolution); err != nil {
		slog.Warn("notifier error", "err", err)
	}
	if err := notifier.NotifyClaims(ctx, rep.Market, rep.Claims, rep.Voters); err != nil {
		slog.Warn("notifier error", "err", err)
	}
}
