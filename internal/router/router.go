package router

import (
	"time"

	"github.com/Francoosman12/casateka-backend/internal/config"
	"github.com/Francoosman12/casateka-backend/internal/handler"
	"github.com/Francoosman12/casateka-backend/internal/infra"
	"github.com/Francoosman12/casateka-backend/internal/middleware"
	"github.com/Francoosman12/casateka-backend/internal/repository"
	"github.com/Francoosman12/casateka-backend/internal/service"
	"github.com/Francoosman12/casateka-backend/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Services is the wired service layer. main needs Totales for the scheduled
// recalculation, the router needs everything.
type Services struct {
	Movimientos service.MovimientoService
	Totales     service.TotalesService
	Breaker     *infra.CircuitBreaker
	// Fallos is nil when Redis is disabled.
	Fallos *worker.RedisFallos
}

// NewServices wires repositories and services.
// Dependency graph: Service ← Repository ← DB/Redis
func NewServices(cfg *config.Config, db *gorm.DB, rdb *redis.Client) (*Services, error) {
	usd, err := cfg.CambioUSD()
	if err != nil {
		return nil, err
	}
	eur, err := cfg.CambioEUR()
	if err != nil {
		return nil, err
	}

	// ── Repositories ─────────────────────────────────────────────────────────
	movimientoRepo := repository.NewMovimientoRepository(db)
	totalRepo := repository.NewTotalRepository(db)

	// ── Infrastructure ───────────────────────────────────────────────────────
	breaker := infra.NewCircuitBreaker(infra.DefaultCBConfig("totales"))
	opts := service.TotalesOptions{
		IncluirTarjeta: cfg.TotalesIncluirTarjeta,
		Breaker:        breaker,
		LockTTL:        cfg.RecalculoLockTTL,
	}
	var fallos *worker.RedisFallos
	if rdb != nil {
		fallos = worker.NewRedisFallos(rdb)
		opts.Fallos = fallos
		opts.Locker = infra.NewRedisLocker(rdb)
	}

	// ── Services ─────────────────────────────────────────────────────────────
	totalesSvc := service.NewTotalesService(totalRepo, movimientoRepo, opts)
	movimientoSvc := service.NewMovimientoService(movimientoRepo, totalesSvc, service.TiposDeCambio{USD: usd, EUR: eur})

	return &Services{
		Movimientos: movimientoSvc,
		Totales:     totalesSvc,
		Breaker:     breaker,
		Fallos:      fallos,
	}, nil
}

// New returns a configured Gin engine.
// Dependency graph: Handler ← Service
func New(cfg *config.Config, svcs *Services, db *gorm.DB, rdb *redis.Client, limiter *middleware.RateLimiter) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.Origenes()))
	r.Use(middleware.ErrorHandler())
	if limiter == nil {
		limiter = middleware.NewRateLimiter(cfg.RateLimitPorMinuto, time.Minute)
	}
	r.Use(limiter.Handler())

	// ── Handlers ─────────────────────────────────────────────────────────────
	movimientosH := handler.NewMovimientosHandler(svcs.Movimientos)
	totalesH := handler.NewTotalesHandler(svcs.Totales)

	health := handler.HealthDeps{DB: db, Redis: rdb, Breaker: svcs.Breaker}
	if svcs.Fallos != nil {
		health.Fallos = svcs.Fallos
	}

	// ── Routes ───────────────────────────────────────────────────────────────
	r.GET("/health", handler.Health(health))

	api := r.Group("/api")
	{
		mov := api.Group("/movements")
		{
			mov.POST("", movimientosH.Crear)
			mov.GET("", movimientosH.Listar)
			mov.PUT("/:id", movimientosH.Actualizar)
			mov.DELETE("/:id", movimientosH.Eliminar)
		}

		// /totales is the path the front desk client has always used.
		for _, path := range []string{"/totals", "/totales"} {
			tot := api.Group(path)
			tot.GET("", totalesH.Listar)
			tot.POST("/calculate", totalesH.Recalcular)
			tot.DELETE("/:id", totalesH.Eliminar)
		}
	}

	return r
}
