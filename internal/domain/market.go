package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"
)

// NoOption marca la ausencia de líder.
const NoOption = -1

// Phase es la fase del ciclo de vida de un mercado. Nunca retrocede.
type Phase int

const (
	PhaseBetting Phase = iota
	PhaseResolution
	PhaseSettled
)

func (p Phase) String() string {
	switch p {
	case PhaseBetting:
		return "betting"
	case PhaseResolution:
		return "resolution"
	case PhaseSettled:
		return "settled"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Phase) UnmarshalText(b []byte) error {
	switch string(b) {
	case "betting":
		*p = PhaseBetting
	case "resolution":
		*p = PhaseResolution
	case "settled":
		*p = PhaseSettled
	default:
		return fmt.Errorf("domain.Phase: unknown phase %q", string(b))
	}
	return nil
}

// Outcome es el resultado de la resolución: un índice de opción,
// OutcomeUncertain, u OutcomeNone mientras no se resolvió.
type Outcome int

const (
	OutcomeNone      Outcome = -2
	OutcomeUncertain Outcome = -1
)

// IsOption devuelve true si el resultado designa una opción concreta.
func (o Outcome) IsOption() bool { return o >= 0 }

// IsUncertain devuelve true si el mercado se resolvió como incierto.
func (o Outcome) IsUncertain() bool { return o == OutcomeUncertain }

func (o Outcome) String() string {
	switch {
	case o == OutcomeNone:
		return "none"
	case o == OutcomeUncertain:
		return "uncertain"
	default:
		return fmt.Sprintf("option#%d", int(o))
	}
}

// Market es el estado completo de un mercado de predicción pari-mutuel.
// El ledger de apuestas (Bets) y los votos viven dentro del mercado.
type Market struct {
	ID       string   `json:"id"`
	Creator  string   `json:"creator"`
	Question string   `json:"question"`
	Options  []string `json:"options"`

	StartTime      time.Time  `json:"start_time"`
	EndTime        time.Time  `json:"end_time"`
	ResolutionTime *time.Time `json:"resolution_time,omitempty"`

	OptionPools []uint64 `json:"option_pools"`
	TotalPool   uint64   `json:"total_pool"`
	TotalFees   uint64   `json:"total_fees"`

	LeadingOption int       `json:"leading_option"`
	LeadingSince  time.Time `json:"leading_since"`

	Phase  Phase   `json:"phase"`
	Winner Outcome `json:"winner"`
	Paused bool    `json:"paused"`

	// Hardcap absoluto; 0 = sin límite. Si viene del multiplicador se congela
	// tras la primera apuesta aceptada y no se recalcula.
	Hardcap uint64 `json:"hardcap"`

	Params EconomicParams `json:"params"`

	Bets  []Bet            `json:"bets"`
	Votes []ResolutionVote `json:"votes"`

	Paid    uint64 `json:"paid"`    // payouts + reembolsos ya reclamados
	Slashed uint64 `json:"slashed"` // stake confiscado a votantes equivocados

	Seq uint64 `json:"seq"` // acciones aplicadas
}

// Bet es una apuesta aceptada. Inmutable salvo el flag Claimed.
type Bet struct {
	ID         string    `json:"id"`
	Bettor     string    `json:"bettor"`
	Option     int       `json:"option"`
	Gross      uint64    `json:"gross"`
	Net        uint64    `json:"net"`
	Commission uint64    `json:"commission"`
	Timestamp  time.Time `json:"timestamp"`
	IsWhale    bool      `json:"is_whale"`
	Claimed    bool      `json:"claimed"`
}

// ResolutionVote es un voto con stake emitido durante la fase de resolución.
type ResolutionVote struct {
	Voter     string    `json:"voter"`
	Option    int       `json:"option"`
	Stake     uint64    `json:"stake"`
	Timestamp time.Time `json:"timestamp"`
	Settled   bool      `json:"settled"`
}

// CreateMarketInput son los datos para crear un mercado.
type CreateMarketInput struct {
	ID       string          `json:"id" validate:"required"`
	Creator  string          `json:"creator" validate:"required"`
	Question string          `json:"question"`
	Options  []string        `json:"options"`
	EndTime  time.Time       `json:"end_time"`
	Params   *EconomicParams `json:"params,omitempty"` // nil = DefaultParams()
	Hardcap  uint64          `json:"hardcap,omitempty"`
}

// NewMarket valida el input y crea un mercado en fase Betting con pools vacíos.
// now es el instante de creación y pasa a ser StartTime.
func NewMarket(in CreateMarketInput, now time.Time) (*Market, error) {
	if err := validate.Struct(in); err != nil {
		return nil, translateValidation(err)
	}

	qlen := utf8.RuneCountInString(strings.TrimSpace(in.Question))
	if qlen == 0 || utf8.RuneCountInString(in.Question) > MaxQuestionLen {
		return nil, &ValidationError{Field: "question", Reason: fmt.Sprintf("must be 1-%d characters", MaxQuestionLen)}
	}
	if len(in.Options) < MinOptions || len(in.Options) > MaxOptions {
		return nil, &ValidationError{Field: "options", Reason: fmt.Sprintf("must have %d-%d options, got %d", MinOptions, MaxOptions, len(in.Options))}
	}
	for i, opt := range in.Options {
		n := utf8.RuneCountInString(opt)
		if n == 0 || n > MaxOptionLen {
			return nil, &ValidationError{Field: fmt.Sprintf("options[%d]", i), Reason: fmt.Sprintf("must be 1-%d characters", MaxOptionLen)}
		}
	}
	if !in.EndTime.After(now) {
		return nil, &ValidationError{Field: "end_time", Reason: "must be in the future"}
	}
	duration := in.EndTime.Sub(now)
	if duration < MinMarketDuration {
		return nil, &ValidationError{Field: "end_time", Reason: "market must be at least 1 hour long"}
	}
	if duration > MaxMarketDuration {
		return nil, &ValidationError{Field: "end_time", Reason: "market cannot be longer than 1 year"}
	}

	params := DefaultParams()
	if in.Params != nil {
		params = *in.Params
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	return &Market{
		ID:            in.ID,
		Creator:       in.Creator,
		Question:      in.Question,
		Options:       slices.Clone(in.Options),
		StartTime:     now,
		EndTime:       in.EndTime,
		OptionPools:   make([]uint64, len(in.Options)),
		LeadingOption: NoOption,
		Phase:         PhaseBetting,
		Winner:        OutcomeNone,
		Hardcap:       in.Hardcap,
		Params:        params,
		Bets:          []Bet{},
		Votes:         []ResolutionVote{},
	}, nil
}

// IsActive devuelve true si el mercado acepta apuestas (fase Betting y no pausado).
func (m *Market) IsActive() bool {
	return m.Phase == PhaseBetting && !m.Paused
}

// Duration devuelve la duración total del mercado.
func (m *Market) Duration() time.Duration {
	return m.EndTime.Sub(m.StartTime)
}

// ResolutionDeadline es el fin de la ventana de votación de resolución.
func (m *Market) ResolutionDeadline() time.Time {
	return m.EndTime.Add(m.Params.ResolutionTimeWindow)
}

// ValidOption devuelve true si idx es un índice de opción del mercado.
func (m *Market) ValidOption(idx int) bool {
	return idx >= 0 && idx < len(m.Options)
}

// WinnerPool devuelve el pool de la opción ganadora, o 0 si no hay ganador concreto.
func (m *Market) WinnerPool() uint64 {
	if !m.Winner.IsOption() || int(m.Winner) >= len(m.OptionPools) {
		return 0
	}
	return m.OptionPools[m.Winner]
}

// Odds devuelve el porcentaje entero de cada pool sobre el total.
func (m *Market) Odds() []uint64 {
	odds := make([]uint64, len(m.OptionPools))
	for i, pool := range m.OptionPools {
		odds[i] = Percent(pool, m.TotalPool)
	}
	return odds
}

// Clone devuelve una copia profunda. Las transiciones operan sobre la copia
// y solo se publica si todo salió bien.
func (m *Market) Clone() *Market {
	c := *m
	c.Options = slices.Clone(m.Options)
	c.OptionPools = slices.Clone(m.OptionPools)
	c.Bets = slices.Clone(m.Bets)
	c.Votes = slices.Clone(m.Votes)
	if m.ResolutionTime != nil {
		t := *m.ResolutionTime
		c.ResolutionTime = &t
	}
	return &c
}
