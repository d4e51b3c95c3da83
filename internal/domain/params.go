package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// CommissionCurve es la forma en que la comisión crece con el tiempo transcurrido.
// Se resuelve una sola vez al crear el mercado; el cálculo despacha sobre el valor.
type CommissionCurve int

const (
	CurveLinear CommissionCurve = iota
	CurveExponential
	CurveLogarithmic
	// CurveTiered es el esquema de dos tramos del programa on-chain:
	// 25 bps antes del 33% del mercado, 50 bps después.
	CurveTiered
)

func (c CommissionCurve) String() string {
	switch c {
	case CurveLinear:
		return "linear"
	case CurveExponential:
		return "exponential"
	case CurveLogarithmic:
		return "logarithmic"
	case CurveTiered:
		return "tiered"
	default:
		return fmt.Sprintf("curve(%d)", int(c))
	}
}

// ParseCommissionCurve convierte el nombre de configuración en la curva.
func ParseCommissionCurve(s string) (CommissionCurve, error) {
	switch s {
	case "linear", "":
		return CurveLinear, nil
	case "exponential":
		return CurveExponential, nil
	case "logarithmic":
		return CurveLogarithmic, nil
	case "tiered":
		return CurveTiered, nil
	}
	return 0, &ValidationError{Field: "commission_curve", Reason: fmt.Sprintf("unknown curve %q", s)}
}

func (c CommissionCurve) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *CommissionCurve) UnmarshalText(b []byte) error {
	v, err := ParseCommissionCurve(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// ResolutionMethod decide cómo se elige el ganador al resolver.
type ResolutionMethod int

const (
	MethodTimeWeighted ResolutionMethod = iota
	MethodStakeWeighted
	MethodHybrid
)

func (m ResolutionMethod) String() string {
	switch m {
	case MethodTimeWeighted:
		return "time-weighted"
	case MethodStakeWeighted:
		return "stake-weighted"
	case MethodHybrid:
		return "hybrid"
	default:
		return fmt.Sprintf("method(%d)", int(m))
	}
}

// UsesVotes indica si el método incorpora votos de resolución.
func (m ResolutionMethod) UsesVotes() bool {
	return m == MethodStakeWeighted || m == MethodHybrid
}

// ParseResolutionMethod convierte el nombre de configuración en el método.
func ParseResolutionMethod(s string) (ResolutionMethod, error) {
	switch s {
	case "time-weighted":
		return MethodTimeWeighted, nil
	case "stake-weighted":
		return MethodStakeWeighted, nil
	case "hybrid", "":
		return MethodHybrid, nil
	}
	return 0, &ValidationError{Field: "resolution_method", Reason: fmt.Sprintf("unknown method %q", s)}
}

func (m ResolutionMethod) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *ResolutionMethod) UnmarshalText(b []byte) error {
	v, err := ParseResolutionMethod(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// EconomicParams es la configuración económica de UN mercado.
// Se copia al crear el mercado y no cambia durante su vida.
type EconomicParams struct {
	// Pesos (en %) del scorer. No tienen que sumar exactamente 100.
	TimeWeight       float64 `json:"time_weight" validate:"gte=0,lte=100"`
	FinancialWeight  float64 `json:"financial_weight" validate:"gte=0,lte=100"`
	DemocraticWeight float64 `json:"democratic_weight" validate:"gte=0,lte=100"`

	// WhaleThreshold: fracción del pool total a partir de la cual una apuesta es "whale".
	WhaleThreshold float64 `json:"whale_threshold" validate:"gte=0,lte=1"`
	// WhalePenalty: descuento multiplicativo sobre la contribución financiera de una whale.
	WhalePenalty float64 `json:"whale_penalty" validate:"gte=0,lte=1"`

	CommissionCurve CommissionCurve `json:"commission_curve" validate:"gte=0,lte=3"`

	HardcapEnabled    bool   `json:"hardcap_enabled"`
	HardcapMultiplier uint64 `json:"hardcap_multiplier" validate:"required_if=HardcapEnabled true"`

	ResolutionMethod     ResolutionMethod `json:"resolution_method" validate:"gte=0,lte=2"`
	ResolutionMinStake   uint64           `json:"resolution_min_stake"`
	ResolutionTimeWindow time.Duration    `json:"resolution_time_window" validate:"gte=0"`
	UncertaintyThreshold float64          `json:"uncertainty_threshold" validate:"gt=0,lt=1"`
	SlashingPenalty      float64          `json:"slashing_penalty" validate:"gte=0,lte=1"`
}

// DefaultParams devuelve los parámetros por defecto del playground económico.
func DefaultParams() EconomicParams {
	return EconomicParams{
		TimeWeight:           70,
		FinancialWeight:      25,
		DemocraticWeight:     5,
		WhaleThreshold:       0.2,
		WhalePenalty:         0.8,
		CommissionCurve:      CurveLinear,
		HardcapEnabled:       false,
		HardcapMultiplier:    5,
		ResolutionMethod:     MethodHybrid,
		ResolutionMinStake:   10,
		ResolutionTimeWindow: 48 * time.Hour,
		UncertaintyThreshold: 0.1,
		SlashingPenalty:      0.2,
	}
}

var validate = validator.New()

// Validate comprueba rangos y coherencia de los parámetros.
func (p EconomicParams) Validate() error {
	if err := validate.Struct(p); err != nil {
		return translateValidation(err)
	}
	if p.TimeWeight+p.FinancialWeight+p.DemocraticWeight <= 0 {
		return &ValidationError{Field: "weights", Reason: "at least one weight must be positive"}
	}
	return nil
}

// translateValidation convierte el primer error de validator en un ValidationError.
func translateValidation(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &ValidationError{
			Field:  fe.Field(),
			Reason: fmt.Sprintf("failed %q (value %v)", fe.Tag(), fe.Value()),
		}
	}
	return &ValidationError{Field: "input", Reason: err.Error()}
}

// Constantes del programa on-chain.
const (
	BaseCommissionBps = 25 // 0.25%
	LateCommissionBps = 50 // 0.50%
	EarlyBetThreshold = 33 // % del mercado transcurrido

	DefaultMinBetAmount = 5_000_000   // 0.005 SOL
	DefaultMinVelocity  = 100_000_000 // 0.1 SOL
	DefaultVelocityPct  = 20          // 20% del pool por hora restante

	MaxQuestionLen = 280
	MaxOptionLen   = 100
	MinOptions     = 2
	MaxOptions     = 10

	MinMarketDuration = time.Hour
	MaxMarketDuration = 365 * 24 * time.Hour
)

// Limits son los límites globales de un despliegue (no de un mercado).
type Limits struct {
	MinBetAmount      uint64 `validate:"gt=0"`
	MinVelocity       uint64 `validate:"gt=0"`
	VelocityFactorPct uint64 `validate:"gt=0,lte=100"`
}

// DefaultLimits devuelve los límites del programa on-chain.
func DefaultLimits() Limits {
	return Limits{
		MinBetAmount:      DefaultMinBetAmount,
		MinVelocity:       DefaultMinVelocity,
		VelocityFactorPct: DefaultVelocityPct,
	}
}

// Validate comprueba que los límites sean utilizables.
func (l Limits) Validate() error {
	if err := validate.Struct(l); err != nil {
		return translateValidation(err)
	}
	return nil
}
