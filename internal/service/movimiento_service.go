package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/Francoosman12/casateka-backend/internal/dto"
	"github.com/Francoosman12/casateka-backend/internal/model"
	"github.com/Francoosman12/casateka-backend/internal/monto"
	"github.com/Francoosman12/casateka-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type MovimientoService interface {
	Crear(ctx context.Context, req dto.CrearMovimientoRequest) (*dto.MovimientoResponse, error)
	Listar(ctx context.Context) ([]dto.MovimientoResponse, error)
	Actualizar(ctx context.Context, id uuid.UUID, req dto.ActualizarMovimientoRequest) (*dto.MovimientoResponse, error)
	Eliminar(ctx context.Context, id uuid.UUID) error
}

// TiposDeCambio holds the fixed conversion rates to the base currency (MXN).
type TiposDeCambio struct {
	USD decimal.Decimal
	EUR decimal.Decimal
}

func (t TiposDeCambio) para(subtipo string) (decimal.Decimal, bool) {
	switch subtipo {
	case model.SubtipoDolares:
		return t.USD, t.USD.IsPositive()
	case model.SubtipoEuros:
		return t.EUR, t.EUR.IsPositive()
	default:
		return decimal.NewFromInt(1), true
	}
}

type movimientoService struct {
	repo    repository.MovimientoRepository
	totales TotalesService
	cambio  TiposDeCambio
	ahora   func() time.Time
}

func NewMovimientoService(repo repository.MovimientoRepository, totales TotalesService, cambio TiposDeCambio) MovimientoService {
	return &movimientoService{repo: repo, totales: totales, cambio: cambio, ahora: time.Now}
}

// ── Crear ─────────────────────────────────────────────────────────────────────
// The movement is persisted first; totals follow only once it is stored. Both
// steps run inside a Compartir section so a rebuild sees either neither or both.

func (s *movimientoService) Crear(ctx context.Context, req dto.CrearMovimientoRequest) (*dto.MovimientoResponse, error) {
	m := &model.Movimiento{
		FechaPago:  s.ahora().UTC(),
		Nombre:     strings.TrimSpace(req.Nombre),
		Habitacion: model.Habitacion{Numero: req.Habitacion.Numero, Tipo: req.Habitacion.Tipo},
		CheckIn:    req.CheckIn.Time,
		CheckOut:   req.CheckOut.Time,
		OTA:        req.OTA,
		Concepto:   req.Concepto,
	}
	if req.FechaPago != nil && !req.FechaPago.IsZero() {
		m.FechaPago = req.FechaPago.Time
	}

	v := nuevaValidacion()
	m.Ingreso, m.Autorizaciones = s.construirIngreso(req.Ingreso, nil, v)
	validarMovimiento(m, v)
	if err := v.orNil(); err != nil {
		return nil, err
	}
	m.Noches = calcularNoches(m.CheckIn, m.CheckOut)

	soltar := s.totales.Compartir()
	defer soltar()
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("crear movimiento: %w", err)
	}
	s.totales.AplicarAlta(ctx, m)

	resp := movimientoToResponse(m)
	return &resp, nil
}

// ── Listar ────────────────────────────────────────────────────────────────────

func (s *movimientoService) Listar(ctx context.Context) ([]dto.MovimientoResponse, error) {
	movs, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listar movimientos: %w", err)
	}
	out := make([]dto.MovimientoResponse, 0, len(movs))
	for i := range movs {
		out = append(out, movimientoToResponse(&movs[i]))
	}
	return out, nil
}

// ── Actualizar ────────────────────────────────────────────────────────────────
// Merges the provided fields onto the stored movement, re-validates the result
// and reconciles totals with the difference between both versions.

func (s *movimientoService) Actualizar(ctx context.Context, id uuid.UUID, req dto.ActualizarMovimientoRequest) (*dto.MovimientoResponse, error) {
	anterior, err := s.buscar(ctx, id)
	if err != nil {
		return nil, err
	}

	nuevo := *anterior
	nuevo.Autorizaciones = slices.Clone(anterior.Autorizaciones)

	if req.FechaPago != nil && !req.FechaPago.IsZero() {
		nuevo.FechaPago = req.FechaPago.Time
	}
	if req.Nombre != nil {
		nuevo.Nombre = strings.TrimSpace(*req.Nombre)
	}
	if req.Habitacion != nil {
		nuevo.Habitacion = model.Habitacion{Numero: req.Habitacion.Numero, Tipo: req.Habitacion.Tipo}
	}
	if req.CheckIn != nil {
		nuevo.CheckIn = req.CheckIn.Time
	}
	if req.CheckOut != nil {
		nuevo.CheckOut = req.CheckOut.Time
	}
	if req.OTA != nil {
		nuevo.OTA = *req.OTA
	}
	if req.Concepto != nil {
		nuevo.Concepto = *req.Concepto
	}

	v := nuevaValidacion()
	if req.Ingreso != nil {
		nuevo.Ingreso, nuevo.Autorizaciones = s.construirIngreso(*req.Ingreso, anterior, v)
	}
	validarMovimiento(&nuevo, v)
	if err := v.orNil(); err != nil {
		return nil, err
	}
	nuevo.Noches = calcularNoches(nuevo.CheckIn, nuevo.CheckOut)

	soltar := s.totales.Compartir()
	defer soltar()
	if err := s.repo.Update(ctx, &nuevo); err != nil {
		return nil, fmt.Errorf("actualizar movimiento: %w", err)
	}
	s.totales.AplicarActualizacion(ctx, anterior, &nuevo)

	resp := movimientoToResponse(&nuevo)
	return &resp, nil
}

// ── Eliminar ──────────────────────────────────────────────────────────────────
// Deletion is permanent. Totals are reversed with the amounts stored on the
// deleted record.

func (s *movimientoService) Eliminar(ctx context.Context, id uuid.UUID) error {
	m, err := s.buscar(ctx, id)
	if err != nil {
		return err
	}
	soltar := s.totales.Compartir()
	defer soltar()
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMovimientoNoEncontrado
		}
		return fmt.Errorf("eliminar movimiento: %w", err)
	}
	s.totales.AplicarBaja(ctx, m)
	return nil
}

func (s *movimientoService) buscar(ctx context.Context, id uuid.UUID) (*model.Movimiento, error) {
	m, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMovimientoNoEncontrado
		}
		return nil, fmt.Errorf("buscar movimiento: %w", err)
	}
	return m, nil
}

// ── Reglas de negocio ─────────────────────────────────────────────────────────

// construirIngreso normalizes the payment line. Cash in foreign currency is
// converted to MXN at the configured rate. Card income is always the sum of
// its authorization lines. When previo carries the same foreign-currency
// amount, its stored conversion is kept instead of being re-derived.
func (s *movimientoService) construirIngreso(req dto.IngresoRequest, previo *model.Movimiento, v *ValidacionError) (model.Ingreso, []model.Autorizacion) {
	ing := model.Ingreso{Tipo: req.Tipo, Subtipo: req.Subtipo}

	subtipos, ok := model.SubtiposPorTipo[req.Tipo]
	if !ok {
		v.agregar("ingreso.tipo", "oneof=Efectivo Tarjeta")
		return ing, nil
	}
	if !slices.Contains(subtipos, req.Subtipo) {
		v.agregar("ingreso.subtipo", "no corresponde al tipo "+req.Tipo)
		return ing, nil
	}

	if req.Tipo == model.TipoTarjeta {
		return ing, construirTarjeta(&ing, req, v)
	}

	if len(req.Autorizaciones) > 0 {
		v.agregar("ingreso.autorizaciones", "solo aplica a Tarjeta")
	}
	if req.MontoTotal == nil || !req.MontoTotal.IsPositive() {
		v.agregar("ingreso.montoTotal", "required,gt=0")
		return ing, nil
	}
	original := req.MontoTotal.Round(monto.Places)

	if previo != nil && previo.Ingreso.Tipo == ing.Tipo && previo.Ingreso.Subtipo == ing.Subtipo &&
		previo.Ingreso.MontoOriginal.Equal(original) {
		ing.MontoOriginal = previo.Ingreso.MontoOriginal
		ing.TipoCambio = previo.Ingreso.TipoCambio
		ing.MontoTotal = previo.Ingreso.MontoTotal
		return ing, nil
	}

	tasa, ok := s.cambio.para(req.Subtipo)
	if !ok {
		v.agregar("ingreso.subtipo", "tipo de cambio no configurado para "+req.Subtipo)
		return ing, nil
	}
	ing.MontoOriginal = original
	ing.TipoCambio = tasa
	ing.MontoTotal = original.Mul(tasa).Round(monto.Places)
	return ing, nil
}

func construirTarjeta(ing *model.Ingreso, req dto.IngresoRequest, v *ValidacionError) []model.Autorizacion {
	if len(req.Autorizaciones) == 0 {
		v.agregar("ingreso.autorizaciones", "required para Tarjeta")
		return nil
	}
	suma := decimal.Zero
	auts := make([]model.Autorizacion, 0, len(req.Autorizaciones))
	for i, a := range req.Autorizaciones {
		if !a.Monto.IsPositive() {
			v.agregar(fmt.Sprintf("ingreso.autorizaciones[%d].monto", i), "gt=0")
			continue
		}
		m := a.Monto.Round(monto.Places)
		suma = suma.Add(m)
		auts = append(auts, model.Autorizacion{Orden: i, Codigo: strings.TrimSpace(a.Codigo), Monto: m})
	}
	if req.MontoTotal != nil && !req.MontoTotal.IsZero() && !req.MontoTotal.Round(monto.Places).Equal(suma) {
		v.agregar("ingreso.montoTotal", "no coincide con la suma de autorizaciones ("+suma.StringFixed(monto.Places)+")")
	}
	ing.MontoTotal = suma
	ing.MontoOriginal = suma
	ing.TipoCambio = decimal.NewFromInt(1)
	return auts
}

func validarMovimiento(m *model.Movimiento, v *ValidacionError) {
	if m.Nombre == "" {
		v.agregar("nombre", "required")
	}
	if m.Habitacion.Numero < 1 {
		v.agregar("habitacion.numero", "required,min=1")
	}
	if !slices.Contains(model.TiposHabitacion, m.Habitacion.Tipo) {
		v.agregar("habitacion.tipo", "oneof")
	}
	if !slices.Contains(model.OTAs, m.OTA) {
		v.agregar("ota", "oneof=Booking Expedia Directa")
	}
	if !slices.Contains(model.Conceptos, m.Concepto) {
		v.agregar("concepto", "oneof")
	}
	switch {
	case m.CheckIn.IsZero():
		v.agregar("checkIn", "required")
	case m.CheckOut.IsZero():
		v.agregar("checkOut", "required")
	case !m.CheckOut.After(m.CheckIn):
		v.agregar("checkOut", "La fecha de check-out debe ser posterior a la de check-in")
	}
}

// calcularNoches rounds partial days up: a late check-out counts as a night.
func calcularNoches(checkIn, checkOut time.Time) int {
	return int(math.Ceil(checkOut.Sub(checkIn).Hours() / 24))
}

// ── Mapping ───────────────────────────────────────────────────────────────────

func movimientoToResponse(m *model.Movimiento) dto.MovimientoResponse {
	auts := make([]dto.AutorizacionResponse, 0, len(m.Autorizaciones))
	for _, a := range m.Autorizaciones {
		auts = append(auts, dto.AutorizacionResponse{Codigo: a.Codigo, Monto: monto.New(a.Monto)})
	}
	return dto.MovimientoResponse{
		ID:         m.ID.String(),
		FechaPago:  dto.NewFecha(m.FechaPago),
		Nombre:     m.Nombre,
		Habitacion: dto.HabitacionResponse{Numero: m.Habitacion.Numero, Tipo: m.Habitacion.Tipo},
		CheckIn:    m.CheckIn.UTC().Format("2006-01-02"),
		CheckOut:   m.CheckOut.UTC().Format("2006-01-02"),
		Noches:     m.Noches,
		OTA:        m.OTA,
		Concepto:   m.Concepto,
		Ingreso: dto.IngresoResponse{
			Tipo:           m.Ingreso.Tipo,
			Subtipo:        m.Ingreso.Subtipo,
			MontoTotal:     monto.New(m.Ingreso.MontoTotal),
			MontoOriginal:  monto.New(m.Ingreso.MontoOriginal),
			TipoCambio:     m.Ingreso.TipoCambio.String(),
			Autorizaciones: auts,
		},
		CreatedAt: dto.NewFecha(m.CreatedAt),
		UpdatedAt: dto.NewFecha(m.UpdatedAt),
	}
}
