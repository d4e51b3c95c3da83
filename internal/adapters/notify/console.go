package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/paribet/internal/domain"
)

// Console implementa ports.Notifier.
type Console struct {
	out     io.Writer
	compact bool
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(compact bool) *Console {
	return &Console{out: os.Stdout, compact: compact}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, compact bool) *Console {
	return &Console{out: w, compact: compact}
}

// NotifyStandings imprime pools, odds, liderazgo y score de cada opción.
func (c *Console) NotifyStandings(_ context.Context, m *domain.Market, standings []domain.Standing) error {
	if c.compact {
		c.printCompactStandings(m, standings)
		return nil
	}

	fmt.Fprintf(c.out, "\n[%s] %s — pool %s, fees %s, %d bets, phase %s\n",
		m.ID, truncate(m.Question, 60), amount(m.TotalPool), amount(m.TotalFees), len(m.Bets), m.Phase)

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Option", "Pool", "Odds", "Bets", "Lead time", "Score", "")
	for _, s := range standings {
		lead := ""
		if s.Leading {
			lead = "*"
		}
		table.Append(
			fmt.Sprintf("%d", s.Option),
			truncate(s.Label, 30),
			amount(s.Pool),
			fmt.Sprintf("%d%%", s.Odds),
			fmt.Sprintf("%d", s.Bets),
			hours(s.LeadershipTime),
			s.Score.StringFixed(2),
			lead,
		)
	}
	table.Render()
	if m.Hardcap > 0 {
		fmt.Fprintf(c.out, "  Hardcap: %s (%.1f%% used)\n", amount(m.Hardcap), pct(m.TotalPool, m.Hardcap))
	}
	return nil
}

// printCompactStandings imprime una línea por mercado.
func (c *Console) printCompactStandings(m *domain.Market, standings []domain.Standing) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] pool %s", m.ID, amount(m.TotalPool))
	for _, s := range standings {
		mark := ""
		if s.Leading {
			mark = "*"
		}
		fmt.Fprintf(&sb, " | %s%s %d%% s%s", mark, compactName(s.Label, 16), s.Odds, s.Score.StringFixed(1))
	}
	fmt.Fprintln(c.out, sb.String())
}

// NotifyResolution imprime el desglose de scores y el veredicto.
func (c *Console) NotifyResolution(_ context.Context, m *domain.Market, res domain.Resolution) error {
	method := res.Method.String()
	if res.FellBack {
		method += " (no qualifying votes, fell back to time-weighted)"
	}
	fmt.Fprintf(c.out, "\n=== RESOLUTION %s — %s ===\n", m.ID, method)

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Option", "Time", "Financial", "Democratic", "Total", "Stake", "Ranking")
	for i, s := range res.Scores {
		stake := uint64(0)
		if i < len(res.StakeTotals) {
			stake = res.StakeTotals[i]
		}
		rank := decimal.Zero
		if i < len(res.Ranking) {
			rank = res.Ranking[i]
		}
		table.Append(
			fmt.Sprintf("%d", s.Option),
			truncate(label(m, s.Option), 30),
			s.Time.StringFixed(2),
			s.Financial.StringFixed(2),
			s.Democratic.StringFixed(2),
			s.Total.StringFixed(2),
			amount(stake),
			rank.StringFixed(4),
		)
	}
	table.Render()

	fmt.Fprintf(c.out, "  Margin: %s%% (threshold %.2f%%)\n",
		res.Margin.Mul(decimal.NewFromInt(100)).StringFixed(2),
		m.Params.UncertaintyThreshold*100)

	switch {
	case res.Winner.IsOption():
		fmt.Fprintf(c.out, "  WINNER: %q (pool %s of %s)\n\n",
			label(m, int(res.Winner)), amount(m.WinnerPool()), amount(m.TotalPool))
	case res.Winner.IsUncertain():
		fmt.Fprintf(c.out, "  UNCERTAIN: margin below threshold, bettors get their net stake back\n\n")
	default:
		fmt.Fprintf(c.out, "  not resolved\n\n")
	}
	return nil
}

// NotifyClaims imprime pagos y devoluciones de stake.
func (c *Console) NotifyClaims(_ context.Context, m *domain.Market, claims []domain.ClaimResult, voters []domain.VoterSettlement) error {
	if len(claims) == 0 && len(voters) == 0 {
		fmt.Fprintf(c.out, "[%s] no claims\n", m.ID)
		return nil
	}

	if len(claims) > 0 {
		tbl := tablewriter.NewWriter(c.out)
		tbl.Header("Bettor", "Bets", "Paid", "Type")
		var total uint64
		for _, cl := range claims {
			kind := "payout"
			if cl.Refund {
				kind = "refund"
			}
			tbl.Append(compactName(cl.Bettor, 24), fmt.Sprintf("%d", cl.Bets), amount(cl.Amount), kind)
			total += cl.Amount
		}
		tbl.Render()
		fmt.Fprintf(c.out, "  Paid %s of %s pool (%s dust)\n", amount(total), amount(m.TotalPool), amount(m.TotalPool-min(total, m.TotalPool)))
	}

	if len(voters) > 0 {
		tbl := tablewriter.NewWriter(c.out)
		tbl.Header("Voter", "Votes", "Returned", "Slashed")
		for _, v := range voters {
			tbl.Append(compactName(v.Voter, 24), fmt.Sprintf("%d", v.Votes), amount(v.Returned), amount(v.Slashed))
		}
		tbl.Render()
	}
	fmt.Fprintln(c.out)
	return nil
}

// --- helpers ---

func label(m *domain.Market, option int) string {
	if option >= 0 && option < len(m.Options) {
		return m.Options[option]
	}
	return fmt.Sprintf("option#%d", option)
}

// amount formatea unidades base con separador de miles.
func amount(v uint64) string {
	s := fmt.Sprintf("%d", v)
	if len(s) <= 3 {
		return s
	}
	var sb strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		sb.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if sb.Len() > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(s[i : i+3])
	}
	return sb.String()
}

func hours(d time.Duration) string {
	return fmt.Sprintf("%.1fh", d.Hours())
}

func pct(part, whole uint64) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// compactName recorta sin puntos suspensivos, para la línea compacta.
func compactName(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n])
}
