package notify

import (
	"context"
	"log/slog"

	"github.com/alejandrodnm/paribet/internal/domain"
)

// LogSink implementa ports.EventSink escribiendo cada evento en el logger.
// Los rechazos por velocity se loguean como warning, el resto como info.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink usa slog.Default() si logger es nil.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Publish(ctx context.Context, events []domain.Event) error {
	for _, e := range events {
		level := slog.LevelInfo
		if e.Kind == domain.EventVelocityLimitTriggered {
			level = slog.LevelWarn
		}
		s.logger.LogAttrs(ctx, level, "market event", eventAttrs(e)...)
	}
	return nil
}

func eventAttrs(e domain.Event) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("event", string(e.Kind)),
		slog.String("market_id", e.MarketID),
		slog.Time("ts", e.Timestamp),
	}
	if e.Actor != "" {
		attrs = append(attrs, slog.String("actor", e.Actor))
	}
	if e.Option != nil {
		attrs = append(attrs, slog.Int("option", *e.Option))
	}
	if e.Amount > 0 {
		attrs = append(attrs, slog.Uint64("amount", e.Amount))
	}
	if e.Pool > 0 {
		attrs = append(attrs, slog.Uint64("pool", e.Pool))
	}
	if e.Limit > 0 {
		attrs = append(attrs, slog.Uint64("limit", e.Limit))
	}
	if len(e.Odds) > 0 {
		attrs = append(attrs, slog.Any("odds", e.Odds))
	}
	if e.Slashed > 0 {
		attrs = append(attrs, slog.Uint64("slashed", e.Slashed))
	}
	if e.Winner != nil {
		attrs = append(attrs, slog.String("winner", e.Winner.String()))
	}
	if e.Refund {
		attrs = append(attrs, slog.Bool("refund", true))
	}
	if e.Paused != nil {
		attrs = append(attrs, slog.Bool("paused", *e.Paused))
	}
	return attrs
}
