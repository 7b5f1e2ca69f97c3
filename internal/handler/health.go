package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/Francoosman12/casateka-backend/internal/infra"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// BreakerState is implemented by *infra.CircuitBreaker.
type BreakerState interface {
	State() infra.CBState
}

// FallosPendientes is implemented by *worker.RedisFallos.
type FallosPendientes interface {
	Pendientes(ctx context.Context) (int64, error)
}

// HealthDeps groups what the health check inspects. Redis and Fallos are nil
// when REDIS_URL is empty.
type HealthDeps struct {
	DB      *gorm.DB
	Redis   *redis.Client
	Breaker BreakerState
	Fallos  FallosPendientes
}

// Health returns a JSON health check response.
// Checks DB and Redis connectivity; never exposes credentials or internals.
func Health(deps HealthDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus := "connected"
		sqlDB, err := deps.DB.DB()
		if err != nil || sqlDB.PingContext(ctx) != nil {
			dbStatus = "error"
		}

		redisStatus := "disabled"
		if deps.Redis != nil {
			redisStatus = "connected"
			if deps.Redis.Ping(ctx).Err() != nil {
				redisStatus = "error"
			}
		}

		status := http.StatusOK
		if dbStatus != "connected" || redisStatus == "error" {
			status = http.StatusServiceUnavailable
		}

		body := gin.H{
			"ok":    status == http.StatusOK,
			"db":    dbStatus,
			"redis": redisStatus,
		}
		if deps.Breaker != nil {
			body["circuit_breaker"] = deps.Breaker.State().String()
		}
		if deps.Fallos != nil && redisStatus == "connected" {
			n, err := deps.Fallos.Pendientes(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("health: could not count pending failures")
			} else {
				body["fallos_pendientes"] = n
			}
		}

		c.JSON(status, body)
	}
}
