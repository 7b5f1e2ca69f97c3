package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Francoosman12/casateka-backend/internal/model"
	"github.com/Francoosman12/casateka-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TotalesService keeps the totales table consistent with the movimientos
// table. The incremental Aplicar* operations are best-effort: a failure is
// logged and reported, never returned, so a totals outage cannot block the
// recording of a payment. Recalcular is the repair path.
//
// A movement write and its Aplicar* call must run inside one Compartir
// section, otherwise a rebuild landing between them counts the movement twice.
type TotalesService interface {
	// Compartir takes the shared side of the rebuild lock. Recalcular waits
	// until every section is released.
	Compartir() (soltar func())
	AplicarAlta(ctx context.Context, m *model.Movimiento)
	AplicarActualizacion(ctx context.Context, anterior, nuevo *model.Movimiento)
	AplicarBaja(ctx context.Context, m *model.Movimiento)
	// Recalcular discards every total and rebuilds them from the movements.
	Recalcular(ctx context.Context) ([]model.Total, error)
	// Contribucion is the amount m adds to the total keyed by clave (0 if none).
	Contribucion(m *model.Movimiento, clave string) decimal.Decimal
	Listar(ctx context.Context, dimension string) ([]model.Total, error)
	// Eliminar removes a row directly, bypassing reconciliation.
	Eliminar(ctx context.Context, id uuid.UUID) error
}

// Aporte is a signed contribution to one total.
type Aporte struct {
	Clave     string
	Dimension string
	Monto     decimal.Decimal
}

// FalloConciliacion describes an increment that could not be applied.
type FalloConciliacion struct {
	Operacion    string          `json:"operacion"`
	MovimientoID string          `json:"movimiento_id"`
	Clave        string          `json:"clave"`
	Delta        decimal.Decimal `json:"delta"`
	Error        string          `json:"error"`
}

// FalloReporter receives failed increments for later inspection.
type FalloReporter interface {
	Reportar(ctx context.Context, f FalloConciliacion)
}

// Breaker guards calls to the totals store.
type Breaker interface {
	Execute(fn func() error) error
}

// limpiable is implemented by reporters that can discard what they recorded.
type limpiable interface {
	Limpiar(ctx context.Context) error
}

// Locker provides a lock shared between instances. ok is false when the lock
// is held by someone else.
type Locker interface {
	Adquirir(ctx context.Context, clave string, ttl time.Duration) (liberar func(context.Context) error, ok bool, err error)
}

type TotalesOptions struct {
	// IncluirTarjeta makes card income feed the OTA and concepto rollups.
	// Off by default: only cash (in base currency) feeds them.
	IncluirTarjeta bool
	Breaker        Breaker
	Fallos         FalloReporter
	Locker         Locker
	LockTTL        time.Duration
}

// LockRecalculo is the shared lock key taken by Recalcular.
const LockRecalculo = "lock:totales:recalculo"

type totalesService struct {
	repo           repository.TotalRepository
	movRepo        repository.MovimientoRepository
	incluirTarjeta bool
	breaker        Breaker
	fallos         FalloReporter
	locker         Locker
	lockTTL        time.Duration

	// mu: movement writes with their increments share it (Compartir),
	// Recalcular takes it exclusively.
	mu sync.RWMutex
}

func NewTotalesService(repo repository.TotalRepository, movRepo repository.MovimientoRepository, opts TotalesOptions) TotalesService {
	s := &totalesService{
		repo:           repo,
		movRepo:        movRepo,
		incluirTarjeta: opts.IncluirTarjeta,
		breaker:        opts.Breaker,
		fallos:         opts.Fallos,
		locker:         opts.Locker,
		lockTTL:        opts.LockTTL,
	}
	if s.breaker == nil {
		s.breaker = directo{}
	}
	if s.fallos == nil {
		s.fallos = sinReporte{}
	}
	if s.locker == nil {
		s.locker = sinLock{}
	}
	if s.lockTTL <= 0 {
		s.lockTTL = 2 * time.Minute
	}
	return s
}

// ── Contribuciones ────────────────────────────────────────────────────────────
// Shared by the incremental path and Recalcular; both must agree exactly.

// Contribuciones lists the non-zero amounts m adds to each total.
func Contribuciones(m *model.Movimiento, incluirTarjeta bool) []Aporte {
	if m == nil || m.Ingreso.MontoTotal.IsZero() {
		return nil
	}
	monto := m.Ingreso.MontoTotal
	aportes := []Aporte{{Clave: m.Ingreso.Clave(), Dimension: model.DimensionIngreso, Monto: monto}}

	if m.Ingreso.Tipo == model.TipoEfectivo || incluirTarjeta {
		if m.OTA != "" {
			aportes = append(aportes, Aporte{Clave: m.OTA, Dimension: model.DimensionOTA, Monto: monto})
		}
		if m.Concepto != "" {
			aportes = append(aportes, Aporte{Clave: m.Concepto, Dimension: model.DimensionConcepto, Monto: monto})
		}
	}
	return aportes
}

func (s *totalesService) Contribucion(m *model.Movimiento, clave string) decimal.Decimal {
	sum := decimal.Zero
	for _, a := range Contribuciones(m, s.incluirTarjeta) {
		if a.Clave == clave {
			sum = sum.Add(a.Monto)
		}
	}
	return sum
}

// ClavesConocidas lists every key a movement can contribute to, so a rebuild
// always yields the same set of rows.
func ClavesConocidas() []Aporte {
	var claves []Aporte
	for _, tipo := range []string{model.TipoEfectivo, model.TipoTarjeta} {
		for _, sub := range model.SubtiposPorTipo[tipo] {
			claves = append(claves, Aporte{Clave: model.Ingreso{Tipo: tipo, Subtipo: sub}.Clave(), Dimension: model.DimensionIngreso})
		}
	}
	for _, ota := range model.OTAs {
		claves = append(claves, Aporte{Clave: ota, Dimension: model.DimensionOTA})
	}
	for _, c := range model.Conceptos {
		claves = append(claves, Aporte{Clave: c, Dimension: model.DimensionConcepto})
	}
	return claves
}

// ── Incremental path ──────────────────────────────────────────────────────────

func (s *totalesService) Compartir() func() {
	s.mu.RLock()
	return s.mu.RUnlock
}

func (s *totalesService) AplicarAlta(ctx context.Context, m *model.Movimiento) {
	s.aplicar(ctx, "alta", m.ID, Contribuciones(m, s.incluirTarjeta))
}

// AplicarActualizacion applies the net difference between both versions. A key
// present in both with the same amount is not touched; a key whose amount
// changed from A to B gets a single increment of B-A.
// Keys are updated one by one, so readers may observe an intermediate state.
func (s *totalesService) AplicarActualizacion(ctx context.Context, anterior, nuevo *model.Movimiento) {
	deltas := netear(Contribuciones(anterior, s.incluirTarjeta), Contribuciones(nuevo, s.incluirTarjeta))
	s.aplicar(ctx, "actualizacion", nuevo.ID, deltas)
}

// AplicarBaja reverses the amounts stored on m; nothing is re-derived from raw input.
func (s *totalesService) AplicarBaja(ctx context.Context, m *model.Movimiento) {
	s.aplicar(ctx, "baja", m.ID, negar(Contribuciones(m, s.incluirTarjeta)))
}

func (s *totalesService) aplicar(ctx context.Context, operacion string, movID uuid.UUID, deltas []Aporte) {
	if len(deltas) == 0 {
		return
	}
	// The movement is already committed; a client disconnect must not drop its totals.
	ctx = context.WithoutCancel(ctx)

	for _, d := range deltas {
		if d.Monto.IsZero() {
			continue
		}
		d := d
		err := s.breaker.Execute(func() error {
			return s.repo.Incrementar(ctx, d.Clave, d.Dimension, d.Monto)
		})
		if err == nil {
			continue
		}
		log.Error().
			Err(err).
			Str("operacion", operacion).
			Str("movimiento_id", movID.String()).
			Str("clave", d.Clave).
			Str("delta", d.Monto.String()).
			Msg("totales: increment failed, run a recalculation to repair")
		s.fallos.Reportar(ctx, FalloConciliacion{
			Operacion:    operacion,
			MovimientoID: movID.String(),
			Clave:        d.Clave,
			Delta:        d.Monto,
			Error:        err.Error(),
		})
	}
}

func negar(aportes []Aporte) []Aporte {
	out := make([]Aporte, len(aportes))
	for i, a := range aportes {
		out[i] = Aporte{Clave: a.Clave, Dimension: a.Dimension, Monto: a.Monto.Neg()}
	}
	return out
}

// netear returns nuevo - anterior per key, dropping keys with a zero net.
func netear(anterior, nuevo []Aporte) []Aporte {
	var orden []string
	porClave := make(map[string]*Aporte)
	sumar := func(a Aporte) {
		acc, ok := porClave[a.Clave]
		if !ok {
			acc = &Aporte{Clave: a.Clave, Dimension: a.Dimension, Monto: decimal.Zero}
			porClave[a.Clave] = acc
			orden = append(orden, a.Clave)
		}
		acc.Monto = acc.Monto.Add(a.Monto)
	}
	for _, a := range anterior {
		sumar(Aporte{Clave: a.Clave, Dimension: a.Dimension, Monto: a.Monto.Neg()})
	}
	for _, a := range nuevo {
		sumar(a)
	}

	var out []Aporte
	for _, clave := range orden {
		if a := porClave[clave]; !a.Monto.IsZero() {
			out = append(out, *a)
		}
	}
	return out
}

// ── Recalcular ────────────────────────────────────────────────────────────────

func (s *totalesService) Recalcular(ctx context.Context) ([]model.Total, error) {
	liberar, ok, err := s.locker.Adquirir(ctx, LockRecalculo, s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("adquirir lock de recálculo: %w", err)
	}
	if !ok {
		return nil, ErrRecalculoEnCurso
	}
	defer func() {
		if err := liberar(context.WithoutCancel(ctx)); err != nil {
			log.Warn().Err(err).Msg("totales: failed to release recalculation lock")
		}
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	movs, err := s.movRepo.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("leer movimientos: %w", err)
	}

	ahora := time.Now().UTC()
	porClave := make(map[string]*model.Total)
	for _, c := range ClavesConocidas() {
		porClave[c.Clave] = &model.Total{Clave: c.Clave, Dimension: c.Dimension, Subtotal: decimal.Zero, CalculadoEn: ahora}
	}
	for i := range movs {
		for _, a := range Contribuciones(&movs[i], s.incluirTarjeta) {
			t, ok := porClave[a.Clave]
			if !ok {
				t = &model.Total{Clave: a.Clave, Dimension: a.Dimension, Subtotal: decimal.Zero, CalculadoEn: ahora}
				porClave[a.Clave] = t
			}
			t.Subtotal = t.Subtotal.Add(a.Monto)
		}
	}

	totals := make([]model.Total, 0, len(porClave))
	for _, t := range porClave {
		totals = append(totals, *t)
	}
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].Dimension != totals[j].Dimension {
			return totals[i].Dimension < totals[j].Dimension
		}
		return totals[i].Clave < totals[j].Clave
	})

	if err := s.repo.Reemplazar(ctx, totals); err != nil {
		return nil, fmt.Errorf("guardar totales: %w", err)
	}
	// Recorded failures are obsolete once the rows are rebuilt.
	if l, ok := s.fallos.(limpiable); ok {
		if err := l.Limpiar(ctx); err != nil {
			log.Warn().Err(err).Msg("totales: failed to clear reported failures")
		}
	}

	log.Info().
		Int("movimientos", len(movs)).
		Int("totales", len(totals)).
		Msg("totales: recalculated from scratch")
	return totals, nil
}

// ── Consultas ─────────────────────────────────────────────────────────────────

func (s *totalesService) Listar(ctx context.Context, dimension string) ([]model.Total, error) {
	switch dimension {
	case "", model.DimensionIngreso, model.DimensionOTA, model.DimensionConcepto:
	default:
		v := nuevaValidacion()
		v.agregar("dimension", "oneof=ingreso ota concepto")
		return nil, v
	}
	totals, err := s.repo.List(ctx, dimension)
	if err != nil {
		return nil, fmt.Errorf("listar totales: %w", err)
	}
	return totals, nil
}

func (s *totalesService) Eliminar(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTotalNoEncontrado
		}
		return fmt.Errorf("eliminar total: %w", err)
	}
	return nil
}

// ── Defaults ──────────────────────────────────────────────────────────────────

type directo struct{}

func (directo) Execute(fn func() error) error { return fn() }

type sinReporte struct{}

func (sinReporte) Reportar(context.Context, FalloConciliacion) {}

// sinLock is used when no shared lock is configured; the in-process mutex
// still serializes rebuilds within this instance.
type sinLock struct{}

func (sinLock) Adquirir(context.Context, string, time.Duration) (func(context.Context) error, bool, error) {
	return func(context.Context) error { return nil }, true, nil
}
