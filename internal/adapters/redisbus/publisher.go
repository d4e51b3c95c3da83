// Package redisbus publica los eventos del engine en Redis: Pub/Sub para
// consumidores en vivo y un stream por mercado para quien llegue tarde.
package redisbus

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/alejandrodnm/paribet/internal/domain"
	"github.com/alejandrodnm/paribet/internal/ports"
)

// streamMaxLen recorta cada stream con XADD MAXLEN ~.
const streamMaxLen int64 = 10000

const defaultPrefix = "paribet"

// Config son los parámetros de conexión.
type Config struct {
	Addr       string
	Password   string
	DB         int
	TLSEnabled bool
	Prefix     string // prefijo de canales y streams; vacío = "paribet"

	// PublishRate limita los pipelines por segundo (un replay masivo no
	// debe saturar Redis). <= 0 = sin límite.
	PublishRate  float64
	PublishBurst int
}

// Publisher implementa ports.EventSink.
type Publisher struct {
	rdb     *redis.Client
	prefix  string
	limiter *rate.Limiter // nil = sin límite
}

// New crea el cliente y verifica la conexión con un PING.
func New(ctx context.Context, cfg Config) (*Publisher, error) {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redisbus: ping %s: %w", cfg.Addr, err)
	}
	p := NewWithClient(rdb, cfg.Prefix)
	p.SetRate(cfg.PublishRate, cfg.PublishBurst)
	return p, nil
}

// NewWithClient envuelve un cliente ya creado.
func NewWithClient(rdb *redis.Client, prefix string) *Publisher {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Publisher{rdb: rdb, prefix: prefix}
}

// SetRate fija el límite de pipelines por segundo. perSec <= 0 lo quita.
func (p *Publisher) SetRate(perSec float64, burst int) {
	if perSec <= 0 {
		p.limiter = nil
		return
	}
	if burst <= 0 {
		burst = 1
	}
	p.limiter = rate.NewLimiter(rate.Limit(perSec), burst)
}

// Channel es el canal Pub/Sub de un mercado: <prefix>:events:<market>.
func (p *Publisher) Channel(marketID string) string {
	return p.prefix + ":events:" + marketID
}

// Stream es el stream durable de un mercado: <prefix>:stream:<market>.
func (p *Publisher) Stream(marketID string) string {
	return p.prefix + ":stream:" + marketID
}

// Encode serializa un evento tal como viaja por Redis.
func Encode(e domain.Event) ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("redisbus: encode %s: %w", e.Kind, err)
	}
	return b, nil
}

// Publish manda todos los eventos en un solo pipeline, preservando el orden.
func (p *Publisher) Publish(ctx context.Context, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("redisbus: rate limit: %w", err)
		}
	}
	pipe := p.rdb.Pipeline()
	for _, e := range events {
		payload, err := Encode(e)
		if err != nil {
			return err
		}
		pipe.Publish(ctx, p.Channel(e.MarketID), payload)
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: p.Stream(e.MarketID),
			MaxLen: streamMaxLen,
			Approx: true,
			Values: map[string]interface{}{
				"kind":    string(e.Kind),
				"payload": payload,
			},
		})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redisbus: publish %d events: %w", len(events), err)
	}
	return nil
}

// Close cierra el cliente.
func (p *Publisher) Close() error {
	return p.rdb.Close()
}

var _ ports.EventSink = (*Publisher)(nil)
