package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/paribet/internal/domain"
)

// Config es la configuración completa de paribet.
type Config struct {
	Engine  EngineConfig  `yaml:"engine"`
	Market  MarketConfig  `yaml:"market"`
	Storage StorageConfig `yaml:"storage"`
	Redis   RedisConfig   `yaml:"redis"`
	Log     LogConfig     `yaml:"log"`
}

// EngineConfig son los parámetros del despliegue.
type EngineConfig struct {
	Admin             string `yaml:"admin"`
	CommissionCurve   string `yaml:"commission_curve" validate:"oneof=linear exponential logarithmic tiered"`
	MinBetAmount      uint64 `yaml:"min_bet_amount" validate:"gt=0"`
	MinVelocity       uint64 `yaml:"min_velocity" validate:"gt=0"`
	VelocityFactorPct uint64 `yaml:"velocity_factor_pct" validate:"gt=0,lte=100"`
	ReplayWorkers     int    `yaml:"replay_workers" validate:"gte=0"` // 0 = runtime.NumCPU()
}

// MarketConfig son los parámetros económicos por defecto de los mercados nuevos.
// Los campos ausentes toman el valor de domain.DefaultParams; un cero explícito
// se respeta (slashing_penalty: 0 desactiva el slashing).
type MarketConfig struct {
	TimeWeight           *float64 `yaml:"time_weight"`
	FinancialWeight      *float64 `yaml:"financial_weight"`
	DemocraticWeight     *float64 `yaml:"democratic_weight"`
	WhaleThreshold       *float64 `yaml:"whale_threshold"`
	WhalePenalty         *float64 `yaml:"whale_penalty"`
	HardcapEnabled       *bool    `yaml:"hardcap_enabled"`
	HardcapMultiplier    *uint64  `yaml:"hardcap_multiplier"`
	ResolutionMethod     string   `yaml:"resolution_method"`
	ResolutionMinStake   *uint64  `yaml:"resolution_min_stake"`
	ResolutionWindowHrs  *float64 `yaml:"resolution_window_hours"`
	UncertaintyThreshold *float64 `yaml:"uncertainty_threshold"`
	SlashingPenalty      *float64 `yaml:"slashing_penalty"`
}

// StorageConfig controla dónde se persiste el log de acciones.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta SQLite, ":memory:" o postgres://...
}

// RedisConfig activa la publicación de eventos en Redis. Addr vacío = desactivado.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"gte=0"`
	Prefix   string `yaml:"prefix"`
	TLS      bool   `yaml:"tls"`

	PublishRate  float64 `yaml:"publish_rate" validate:"gte=0"` // pipelines/s; 0 = sin límite
	PublishBurst int     `yaml:"publish_burst" validate:"gte=0"`
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

var validate = validator.New()

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Un path vacío arranca de los defaults. Las variables de entorno pisan al YAML.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// Validate comprueba rangos y que los parámetros de mercado sean coherentes.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid %s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return err
	}
	params, err := c.MarketParams()
	if err != nil {
		return err
	}
	return params.Validate()
}

// MarketParams convierte la sección market en domain.EconomicParams.
func (c *Config) MarketParams() (domain.EconomicParams, error) {
	p := domain.DefaultParams()
	m := c.Market
	setF := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	setF(&p.TimeWeight, m.TimeWeight)
	setF(&p.FinancialWeight, m.FinancialWeight)
	setF(&p.DemocraticWeight, m.DemocraticWeight)
	setF(&p.WhaleThreshold, m.WhaleThreshold)
	setF(&p.WhalePenalty, m.WhalePenalty)
	setF(&p.UncertaintyThreshold, m.UncertaintyThreshold)
	setF(&p.SlashingPenalty, m.SlashingPenalty)
	if m.HardcapEnabled != nil {
		p.HardcapEnabled = *m.HardcapEnabled
	}
	if m.HardcapMultiplier != nil {
		p.HardcapMultiplier = *m.HardcapMultiplier
	}
	if m.ResolutionMethod != "" {
		method, err := domain.ParseResolutionMethod(m.ResolutionMethod)
		if err != nil {
			return p, fmt.Errorf("invalid market.resolution_method: %w", err)
		}
		p.ResolutionMethod = method
	}
	if m.ResolutionMinStake != nil {
		p.ResolutionMinStake = *m.ResolutionMinStake
	}
	if m.ResolutionWindowHrs != nil {
		p.ResolutionTimeWindow = hoursToDuration(*m.ResolutionWindowHrs)
	}
	curve, err := domain.ParseCommissionCurve(c.Engine.CommissionCurve)
	if err != nil {
		return p, fmt.Errorf("invalid engine.commission_curve: %w", err)
	}
	p.CommissionCurve = curve
	return p, nil
}

func hoursToDuration(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = strings.ToLower(v)
	}
	if v := os.Getenv("PARIBET_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("PARIBET_ADMIN"); v != "" {
		cfg.Engine.Admin = v
	}
	if v := os.Getenv("PARIBET_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("PARIBET_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	limits := domain.DefaultLimits()
	if cfg.Engine.CommissionCurve == "" {
		cfg.Engine.CommissionCurve = domain.CurveLinear.String()
	}
	if cfg.Engine.MinBetAmount == 0 {
		cfg.Engine.MinBetAmount = limits.MinBetAmount
	}
	if cfg.Engine.MinVelocity == 0 {
		cfg.Engine.MinVelocity = limits.MinVelocity
	}
	if cfg.Engine.VelocityFactorPct == 0 {
		cfg.Engine.VelocityFactorPct = limits.VelocityFactorPct
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "paribet.db"
	}
	if cfg.Redis.Prefix == "" {
		cfg.Redis.Prefix = "paribet"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
