package engine

import (
	"context"
	"errors"

	"github.com/alejandrodnm/paribet/internal/domain"
	"github.com/alejandrodnm/paribet/internal/ports"
)

// MultiSink reparte los eventos entre varios sinks. Un sink que falla no
// impide que los demás reciban los eventos.
type MultiSink []ports.EventSink

func (ms MultiSink) Publish(ctx context.Context, events []domain.Event) error {
	var errs []error
	for _, s := range ms {
		if s == nil {
			continue
		}
		if err := s.Publish(ctx, events); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
