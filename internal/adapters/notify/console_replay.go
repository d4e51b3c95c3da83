package notify

import (
	"fmt"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/paribet/internal/domain"
)

// ReplayRow es una fila del informe de replay.
type ReplayRow struct {
	MarketID string
	Actions  int
	Match    bool
	Err      error
}

// ScenarioRow resume un escenario del simulador contra lo esperado.
type ScenarioRow struct {
	Name     string
	MarketID string
	Winner   string
	Expected string // vacío si el escenario no declara resultado
	Rejected int    // acciones rechazadas

	ExpectedRejected *int // nil si el escenario no lo declara
}

// Passed indica si el resultado coincide con lo esperado.
func (r ScenarioRow) Passed() bool {
	if r.Expected != "" && r.Expected != r.Winner {
		return false
	}
	return r.ExpectedRejected == nil || *r.ExpectedRejected == r.Rejected
}

// PrintReplay imprime el resultado de reconstruir los mercados desde el log.
func (c *Console) PrintReplay(rows []ReplayRow) {
	if len(rows) == 0 {
		fmt.Fprintln(c.out, "\n  No markets stored.")
		return
	}
	tbl := tablewriter.NewWriter(c.out)
	tbl.Header("Market", "Actions", "Snapshot", "Error")
	bad := 0
	for _, r := range rows {
		status := "OK"
		errMsg := ""
		if r.Err != nil {
			status = "FAILED"
			errMsg = truncate(r.Err.Error(), 50)
			bad++
		} else if !r.Match {
			status = "MISMATCH"
			bad++
		}
		tbl.Append(r.MarketID, fmt.Sprintf("%d", r.Actions), status, errMsg)
	}
	tbl.Render()
	if bad == 0 {
		fmt.Fprintf(c.out, "  %d markets replayed, all deterministic\n\n", len(rows))
	} else {
		fmt.Fprintf(c.out, "  %d of %d markets do not match their log\n\n", bad, len(rows))
	}
}

// PrintScenarios imprime el resumen de los escenarios ejecutados.
func (c *Console) PrintScenarios(rows []ScenarioRow) {
	tbl := tablewriter.NewWriter(c.out)
	tbl.Header("Scenario", "Market", "Winner", "Expected", "Rejected", "")
	for _, r := range rows {
		verdict := "PASS"
		if !r.Passed() {
			verdict = "FAIL"
		}
		expected := r.Expected
		if expected == "" {
			expected = "-"
		}
		tbl.Append(r.Name, r.MarketID, r.Winner, expected, fmt.Sprintf("%d", r.Rejected), verdict)
	}
	tbl.Render()
	fmt.Fprintln(c.out)
}

// PrintPhases imprime cuántos mercados hay guardados en cada fase.
func (c *Console) PrintPhases(counts map[domain.Phase]int) {
	tbl := tablewriter.NewWriter(c.out)
	tbl.Header("Phase", "Markets")
	total := 0
	for _, p := range []domain.Phase{domain.PhaseBetting, domain.PhaseResolution, domain.PhaseSettled} {
		tbl.Append(p.String(), fmt.Sprintf("%d", counts[p]))
		total += counts[p]
	}
	tbl.Render()
	fmt.Fprintf(c.out, "  %d markets stored\n\n", total)
}
