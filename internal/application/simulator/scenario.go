package simulator

// scenario.go: formato de los escenarios del simulador.
//
// Un escenario describe un mercado y su historia: apuestas y votos con su
// offset desde la apertura, overrides de parámetros y el resultado esperado.
// Se lee de YAML o TOML según la extensión; ambos comparten los mismos campos.

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/paribet/internal/domain"
)

// Duration acepta "168h", "90m", "1h30m" tanto en YAML como en TOML.
type Duration time.Duration

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return fmt.Errorf("simulator.Duration: %w", err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// D devuelve el valor como time.Duration.
func (d Duration) D() time.Duration { return time.Duration(d) }

// Scenario es un mercado simulado de punta a punta.
type Scenario struct {
	Name        string `yaml:"name" toml:"name" validate:"required"`
	Description string `yaml:"description" toml:"description"`

	Market MarketSpec      `yaml:"market" toml:"market"`
	Params *ParamOverrides `yaml:"params" toml:"params"`

	Bets  []BetSpec  `yaml:"bets" toml:"bets" validate:"dive"`
	Votes []VoteSpec `yaml:"votes" toml:"votes" validate:"dive"`

	// ResolveAt es el offset de la resolución. Sin valor: fin del mercado, o fin
	// más la ventana de votación si el método usa votos.
	ResolveAt *Duration `yaml:"resolve_at" toml:"resolve_at"`

	Expected Expectation `yaml:"expected" toml:"expected"`
}

// MarketSpec son los datos de creación del mercado.
type MarketSpec struct {
	ID       string   `yaml:"id" toml:"id" validate:"required"`
	Creator  string   `yaml:"creator" toml:"creator"`
	Question string   `yaml:"question" toml:"question" validate:"required"`
	Options  []string `yaml:"options" toml:"options" validate:"min=2"`
	Duration Duration `yaml:"duration" toml:"duration" validate:"gt=0"`
	Hardcap  uint64   `yaml:"hardcap" toml:"hardcap"`
}

// ParamOverrides pisa solo los parámetros presentes.
type ParamOverrides struct {
	TimeWeight           *float64  `yaml:"time_weight" toml:"time_weight"`
	FinancialWeight      *float64  `yaml:"financial_weight" toml:"financial_weight"`
	DemocraticWeight     *float64  `yaml:"democratic_weight" toml:"democratic_weight"`
	WhaleThreshold       *float64  `yaml:"whale_threshold" toml:"whale_threshold"`
	WhalePenalty         *float64  `yaml:"whale_penalty" toml:"whale_penalty"`
	HardcapEnabled       *bool     `yaml:"hardcap_enabled" toml:"hardcap_enabled"`
	HardcapMultiplier    *uint64   `yaml:"hardcap_multiplier" toml:"hardcap_multiplier"`
	ResolutionMethod     *string   `yaml:"resolution_method" toml:"resolution_method"`
	ResolutionMinStake   *uint64   `yaml:"resolution_min_stake" toml:"resolution_min_stake"`
	ResolutionTimeWindow *Duration `yaml:"resolution_time_window" toml:"resolution_time_window"`
	UncertaintyThreshold *float64  `yaml:"uncertainty_threshold" toml:"uncertainty_threshold"`
	SlashingPenalty      *float64  `yaml:"slashing_penalty" toml:"slashing_penalty"`
}

// BetSpec es una apuesta en el offset At desde la apertura.
type BetSpec struct {
	Bettor string   `yaml:"bettor" toml:"bettor" validate:"required"`
	Option int      `yaml:"option" toml:"option" validate:"gte=0"`
	Amount uint64   `yaml:"amount" toml:"amount" validate:"gt=0"`
	At     Duration `yaml:"at" toml:"at"`
}

// VoteSpec es un voto de resolución en el offset At desde la apertura.
type VoteSpec struct {
	Voter  string   `yaml:"voter" toml:"voter" validate:"required"`
	Option int      `yaml:"option" toml:"option" validate:"gte=0"`
	Stake  uint64   `yaml:"stake" toml:"stake"`
	At     Duration `yaml:"at" toml:"at"`
}

// Expectation es lo que el escenario espera. Campos vacíos no se comprueban.
type Expectation struct {
	Winner   string `yaml:"winner" toml:"winner"` // etiqueta de la opción o "uncertain"
	Rejected *int   `yaml:"rejected" toml:"rejected"`
}

var validate = validator.New()

// Load lee un escenario de un archivo .yaml, .yml o .toml.
func Load(path string) (*Scenario, error) {
	var sc Scenario
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.DecodeFile(path, &sc); err != nil {
			return nil, fmt.Errorf("simulator.Load: parse TOML %q: %w", path, err)
		}
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("simulator.Load: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &sc); err != nil {
			return nil, fmt.Errorf("simulator.Load: parse YAML %q: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("simulator.Load: unsupported extension %q", ext)
	}
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("simulator.Load: %s: %w", path, err)
	}
	return &sc, nil
}

// Validate comprueba la forma del escenario. Las reglas del mercado las
// aplica el engine al ejecutarlo.
func (sc *Scenario) Validate() error {
	if err := validate.Struct(sc); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &domain.ValidationError{Field: fe.Namespace(), Reason: fmt.Sprintf("failed %q", fe.Tag())}
		}
		return err
	}
	for i, b := range sc.Bets {
		if b.Option >= len(sc.Market.Options) {
			return &domain.ValidationError{Field: fmt.Sprintf("bets[%d].option", i), Reason: "out of range"}
		}
	}
	if sc.Expected.Winner != "" && sc.Expected.Winner != uncertainLabel && !slices.Contains(sc.Market.Options, sc.Expected.Winner) {
		return &domain.ValidationError{Field: "expected.winner", Reason: fmt.Sprintf("%q is not an option", sc.Expected.Winner)}
	}
	return nil
}

// Apply devuelve base con los overrides aplicados.
func (o *ParamOverrides) Apply(base domain.EconomicParams) (domain.EconomicParams, error) {
	p := base
	if o == nil {
		return p, nil
	}
	setF := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	setF(&p.TimeWeight, o.TimeWeight)
	setF(&p.FinancialWeight, o.FinancialWeight)
	setF(&p.DemocraticWeight, o.DemocraticWeight)
	setF(&p.WhaleThreshold, o.WhaleThreshold)
	setF(&p.WhalePenalty, o.WhalePenalty)
	setF(&p.UncertaintyThreshold, o.UncertaintyThreshold)
	setF(&p.SlashingPenalty, o.SlashingPenalty)
	if o.HardcapEnabled != nil {
		p.HardcapEnabled = *o.HardcapEnabled
	}
	if o.HardcapMultiplier != nil {
		p.HardcapMultiplier = *o.HardcapMultiplier
	}
	if o.ResolutionMinStake != nil {
		p.ResolutionMinStake = *o.ResolutionMinStake
	}
	if o.ResolutionTimeWindow != nil {
		p.ResolutionTimeWindow = o.ResolutionTimeWindow.D()
	}
	if o.ResolutionMethod != nil {
		m, err := domain.ParseResolutionMethod(*o.ResolutionMethod)
		if err != nil {
			return base, err
		}
		p.ResolutionMethod = m
	}
	return p, nil
}
