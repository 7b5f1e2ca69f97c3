package worker

// recalculo_cron.go
// Background goroutine that periodically rebuilds the totals from the
// movements, repairing any drift left by increments that failed.

import (
	"context"
	"errors"
	"time"

	"github.com/Francoosman12/casateka-backend/internal/model"
	"github.com/Francoosman12/casateka-backend/internal/service"

	"github.com/rs/zerolog/log"
)

// Recalculador is the part of service.TotalesService the cron needs.
type Recalculador interface {
	Recalcular(ctx context.Context) ([]model.Total, error)
}

// StartRecalculoCron launches the goroutine. A non-positive interval disables
// it. It stops when ctx is cancelled; the returned channel is closed then.
func StartRecalculoCron(ctx context.Context, svc Recalculador, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	if interval <= 0 {
		log.Info().Msg("recalculo_cron: disabled")
		close(done)
		return done
	}

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		log.Info().Dur("interval", interval).Msg("recalculo_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("recalculo_cron: shutting down")
				return
			case <-ticker.C:
				recalcular(ctx, svc)
			}
		}
	}()
	return done
}

func recalcular(ctx context.Context, svc Recalculador) {
	start := time.Now()
	totals, err := svc.Recalcular(ctx)
	switch {
	case errors.Is(err, service.ErrRecalculoEnCurso):
		log.Debug().Msg("recalculo_cron: another instance is recalculating, skipping")
	case err != nil:
		log.Error().Err(err).Msg("recalculo_cron: recalculation failed")
	default:
		log.Info().
			Int("totales", len(totals)).
			Dur("took", time.Since(start)).
			Msg("recalculo_cron: totals rebuilt")
	}
}
