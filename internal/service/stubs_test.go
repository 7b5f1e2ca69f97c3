package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Francoosman12/casateka-backend/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ── In-memory MovimientoRepository ───────────────────────────────────────────

type memMovimientoRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]model.Movimiento
	seq  int
	// failWrites makes Create/Update/Delete fail.
	failWrites error
}

func newMemMovimientoRepo() *memMovimientoRepo {
	return &memMovimientoRepo{rows: make(map[uuid.UUID]model.Movimiento)}
}

func (r *memMovimientoRepo) Create(_ context.Context, m *model.Movimiento) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrites != nil {
		return r.failWrites
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	r.seq++
	m.CreatedAt = time.Date(2024, 1, 1, 0, 0, r.seq, 0, time.UTC)
	m.UpdatedAt = m.CreatedAt
	r.rows[m.ID] = clonar(*m)
	return nil
}

func (r *memMovimientoRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Movimiento, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := clonar(m)
	return &c, nil
}

func (r *memMovimientoRepo) List(ctx context.Context) ([]model.Movimiento, error) {
	movs, _ := r.All(ctx)
	sort.SliceStable(movs, func(i, j int) bool { return movs[i].FechaPago.After(movs[j].FechaPago) })
	return movs, nil
}

func (r *memMovimientoRepo) Update(_ context.Context, m *model.Movimiento) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrites != nil {
		return r.failWrites
	}
	if _, ok := r.rows[m.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.rows[m.ID] = clonar(*m)
	return nil
}

func (r *memMovimientoRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrites != nil {
		return r.failWrites
	}
	if _, ok := r.rows[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *memMovimientoRepo) All(_ context.Context) ([]model.Movimiento, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Movimiento, 0, len(r.rows))
	for _, m := range r.rows {
		out = append(out, clonar(m))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func clonar(m model.Movimiento) model.Movimiento {
	m.Autorizaciones = append([]model.Autorizacion(nil), m.Autorizaciones...)
	return m
}

// pausingRepo stalls right after a write commits, leaving the movement stored
// while its totals are still pending.
type pausingRepo struct {
	*memMovimientoRepo
	committed chan struct{}
	resume    chan struct{}
}

func newPausingRepo(inner *memMovimientoRepo) *pausingRepo {
	return &pausingRepo{memMovimientoRepo: inner, committed: make(chan struct{}, 1), resume: make(chan struct{})}
}

func (r *pausingRepo) Create(ctx context.Context, m *model.Movimiento) error {
	if err := r.memMovimientoRepo.Create(ctx, m); err != nil {
		return err
	}
	r.committed <- struct{}{}
	<-r.resume
	return nil
}

func (r *pausingRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.memMovimientoRepo.Delete(ctx, id); err != nil {
		return err
	}
	r.committed <- struct{}{}
	<-r.resume
	return nil
}

// ── In-memory TotalRepository ────────────────────────────────────────────────

type memTotalRepo struct {
	mu   sync.Mutex
	rows map[string]*model.Total
	// incrementos counts calls to Incrementar per clave.
	incrementos map[string]int
	failInc     error
}

func newMemTotalRepo() *memTotalRepo {
	return &memTotalRepo{rows: make(map[string]*model.Total), incrementos: make(map[string]int)}
}

func (r *memTotalRepo) Incrementar(_ context.Context, clave, dimension string, delta decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failInc != nil {
		return r.failInc
	}
	r.incrementos[clave]++
	t, ok := r.rows[clave]
	if !ok {
		t = &model.Total{ID: uuid.New(), Clave: clave, Dimension: dimension, Subtotal: decimal.Zero}
		r.rows[clave] = t
	}
	t.Subtotal = t.Subtotal.Add(delta)
	t.CalculadoEn = time.Now().UTC()
	return nil
}

func (r *memTotalRepo) List(_ context.Context, dimension string) ([]model.Total, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Total
	for _, t := range r.rows {
		if dimension == "" || t.Dimension == dimension {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Clave < out[j].Clave })
	return out, nil
}

func (r *memTotalRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Total, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.rows {
		if t.ID == id {
			c := *t
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memTotalRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for clave, t := range r.rows {
		if t.ID == id {
			delete(r.rows, clave)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *memTotalRepo) Reemplazar(_ context.Context, totals []model.Total) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = make(map[string]*model.Total, len(totals))
	for i := range totals {
		t := totals[i]
		if t.ID == uuid.Nil {
			t.ID = uuid.New()
		}
		r.rows[t.Clave] = &t
	}
	return nil
}

// subtotal returns the stored value, or zero when the row does not exist.
func (r *memTotalRepo) subtotal(clave string) decimal.Decimal {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.rows[clave]; ok {
		return t.Subtotal
	}
	return decimal.Zero
}

func (r *memTotalRepo) snapshot() map[string]decimal.Decimal {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]decimal.Decimal, len(r.rows))
	for k, t := range r.rows {
		out[k] = t.Subtotal
	}
	return out
}

// ── Collaborator stubs ───────────────────────────────────────────────────────

type recordingReporter struct {
	mu       sync.Mutex
	fallos   []FalloConciliacion
	limpiado int
}

func (r *recordingReporter) Reportar(_ context.Context, f FalloConciliacion) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallos = append(r.fallos, f)
}

func (r *recordingReporter) Limpiar(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.limpiado++
	r.fallos = nil
	return nil
}

type openBreaker struct{}

var errBreakerOpen = errors.New("circuit breaker is open")

func (openBreaker) Execute(func() error) error { return errBreakerOpen }

// heldLock simulates another instance holding the rebuild lock.
type heldLock struct{}

func (heldLock) Adquirir(context.Context, string, time.Duration) (func(context.Context) error, bool, error) {
	return nil, false, nil
}
