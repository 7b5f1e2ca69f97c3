package worker

// dlq.go: dead letter queue for totals increments.
// Increments the reconciliation service could not apply are pushed here for
// manual inspection. They are never replayed automatically: the repair path
// is a full recalculation, which clears the list.

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Francoosman12/casateka-backend/internal/service"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	DLQPrefix         = "dlq:"
	QueueConciliacion = "conciliacion"

	// dlqMaxLen bounds the list so a long outage cannot exhaust Redis memory.
	dlqMaxLen = 10000
)

// DLQEntry wraps a failed increment with metadata for debugging.
type DLQEntry struct {
	service.FalloConciliacion
	FailedAt string `json:"failed_at"` // ISO 8601
}

// RedisFallos implements service.FalloReporter on a Redis list.
type RedisFallos struct {
	rdb *redis.Client
	key string
}

func NewRedisFallos(rdb *redis.Client) *RedisFallos {
	return &RedisFallos{rdb: rdb, key: DLQPrefix + QueueConciliacion}
}

// Reportar pushes the failure; errors are only logged since the caller is
// already on a failure path.
func (f *RedisFallos) Reportar(ctx context.Context, fallo service.FalloConciliacion) {
	entry := DLQEntry{
		FalloConciliacion: fallo,
		FailedAt:          time.Now().UTC().Format(time.RFC3339),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		log.Error().Err(err).Msg("dlq: failed to marshal entry")
		return
	}

	pipe := f.rdb.TxPipeline()
	pipe.LPush(ctx, f.key, data)
	pipe.LTrim(ctx, f.key, 0, dlqMaxLen-1)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Error().Err(err).Str("dlq_key", f.key).Msg("dlq: failed to push to DLQ")
		return
	}

	log.Warn().
		Str("operacion", fallo.Operacion).
		Str("movimiento_id", fallo.MovimientoID).
		Str("clave", fallo.Clave).
		Msg("dlq: totals increment moved to dead letter queue")
}

// Pendientes returns the number of entries in the DLQ for monitoring.
func (f *RedisFallos) Pendientes(ctx context.Context) (int64, error) {
	return f.rdb.LLen(ctx, f.key).Result()
}

// Limpiar empties the DLQ. Called after a successful recalculation, which
// makes every recorded failure obsolete.
func (f *RedisFallos) Limpiar(ctx context.Context) error {
	return f.rdb.Del(ctx, f.key).Err()
}
