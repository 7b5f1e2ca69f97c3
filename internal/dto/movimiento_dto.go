package dto

import "github.com/Francoosman12/casateka-backend/internal/monto"

// Field names follow the front desk client (camelCase), not the DB columns.

// ─── Request DTOs ────────────────────────────────────────────────────────────

type HabitacionRequest struct {
	Numero int    `json:"numero" validate:"required,min=1"`
	Tipo   string `json:"tipo"   validate:"required,oneof='Junior Suite Tapanko' 'Master Suite' 'Suite Deluxe Standard'"`
}

type AutorizacionRequest struct {
	Codigo string      `json:"codigo" validate:"max=40"`
	Monto  monto.Monto `json:"monto"  validate:"gt=0"`
}

// IngresoRequest carries the single payment line of a movement.
// For Tarjeta, MontoTotal may be omitted: it is derived from Autorizaciones.
type IngresoRequest struct {
	Tipo           string                `json:"tipo"           validate:"required,oneof=Efectivo Tarjeta"`
	Subtipo        string                `json:"subtipo"        validate:"required,oneof=Pesos Dolares Euros DebitoCredito Virtual Transferencia"`
	MontoTotal     *monto.Monto          `json:"montoTotal"     validate:"omitempty,gt=0"`
	Autorizaciones []AutorizacionRequest `json:"autorizaciones" validate:"omitempty,dive"`
}

type CrearMovimientoRequest struct {
	FechaPago  *Fecha            `json:"fechaPago"`
	Nombre     string            `json:"nombre"   validate:"required,max=120"`
	Habitacion HabitacionRequest `json:"habitacion"`
	CheckIn    Fecha             `json:"checkIn"`
	CheckOut   Fecha             `json:"checkOut"`
	OTA        string            `json:"ota"      validate:"required,oneof=Booking Expedia Directa"`
	Concepto   string            `json:"concepto" validate:"required,oneof='Cobro de estancia' Amenidades"`
	Ingreso    IngresoRequest    `json:"ingreso"`
}

// ActualizarMovimientoRequest is a partial update: nil fields keep their
// stored value. Ingreso, when present, replaces the whole payment line.
type ActualizarMovimientoRequest struct {
	FechaPago  *Fecha             `json:"fechaPago"`
	Nombre     *string            `json:"nombre"   validate:"omitempty,max=120"`
	Habitacion *HabitacionRequest `json:"habitacion"`
	CheckIn    *Fecha             `json:"checkIn"`
	CheckOut   *Fecha             `json:"checkOut"`
	OTA        *string            `json:"ota"      validate:"omitempty,oneof=Booking Expedia Directa"`
	Concepto   *string            `json:"concepto" validate:"omitempty,oneof='Cobro de estancia' Amenidades"`
	Ingreso    *IngresoRequest    `json:"ingreso"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type HabitacionResponse struct {
	Numero int    `json:"numero"`
	Tipo   string `json:"tipo"`
}

type AutorizacionResponse struct {
	Codigo string      `json:"codigo"`
	Monto  monto.Monto `json:"monto"`
}

type IngresoResponse struct {
	Tipo           string                 `json:"tipo"`
	Subtipo        string                 `json:"subtipo"`
	MontoTotal     monto.Monto            `json:"montoTotal"`
	MontoOriginal  monto.Monto            `json:"montoOriginal"`
	TipoCambio     string                 `json:"tipoCambio"`
	Autorizaciones []AutorizacionResponse `json:"autorizaciones"`
}

type MovimientoResponse struct {
	ID         string             `json:"id"`
	FechaPago  Fecha              `json:"fechaPago"`
	Nombre     string             `json:"nombre"`
	Habitacion HabitacionResponse `json:"habitacion"`
	CheckIn    string             `json:"checkIn"`
	CheckOut   string             `json:"checkOut"`
	Noches     int                `json:"noches"`
	OTA        string             `json:"ota"`
	Concepto   string             `json:"concepto"`
	Ingreso    IngresoResponse    `json:"ingreso"`
	CreatedAt  Fecha              `json:"createdAt"`
	UpdatedAt  Fecha              `json:"updatedAt"`
}
