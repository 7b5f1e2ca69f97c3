package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Tipos de ingreso
const (
	TipoEfectivo = "Efectivo"
	TipoTarjeta  = "Tarjeta"
)

// Subtipos de ingreso. Efectivo: Pesos | Dolares | Euros.
// Tarjeta: DebitoCredito | Virtual | Transferencia.
const (
	SubtipoPesos         = "Pesos"
	SubtipoDolares       = "Dolares"
	SubtipoEuros         = "Euros"
	SubtipoDebitoCredito = "DebitoCredito"
	SubtipoVirtual       = "Virtual"
	SubtipoTransferencia = "Transferencia"
)

// SubtiposPorTipo lists the valid subtypes of each income type, in report order.
var SubtiposPorTipo = map[string][]string{
	TipoEfectivo: {SubtipoPesos, SubtipoDolares, SubtipoEuros},
	TipoTarjeta:  {SubtipoDebitoCredito, SubtipoVirtual, SubtipoTransferencia},
}

// Origen de la reservación
var OTAs = []string{"Booking", "Expedia", "Directa"}

var Conceptos = []string{"Cobro de estancia", "Amenidades"}

var TiposHabitacion = []string{"Junior Suite Tapanko", "Master Suite", "Suite Deluxe Standard"}

type Habitacion struct {
	Numero int    `gorm:"not null"`
	Tipo   string `gorm:"type:varchar(40);not null"`
}

// Ingreso is the single payment line of a movement.
// MontoTotal is always expressed in the ledger's base currency (MXN); the
// amount as received and the rate applied at write time are kept alongside.
type Ingreso struct {
	Tipo          string          `gorm:"type:varchar(20);not null"`
	Subtipo       string          `gorm:"type:varchar(20);not null"`
	MontoTotal    decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	MontoOriginal decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	TipoCambio    decimal.Decimal `gorm:"type:decimal(10,4);not null;default:1"`
}

// Clave returns the totals key of the income line, e.g. "Efectivo-Pesos".
func (i Ingreso) Clave() string { return i.Tipo + "-" + i.Subtipo }

// Movimiento is one guest payment event.
type Movimiento struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey"`
	FechaPago  time.Time  `gorm:"not null;index"`
	Nombre     string     `gorm:"not null"`
	Habitacion Habitacion `gorm:"embedded;embeddedPrefix:habitacion_"`
	CheckIn    time.Time  `gorm:"not null"`
	CheckOut   time.Time  `gorm:"not null"`
	// Noches is derived from CheckIn/CheckOut, never set independently.
	Noches   int     `gorm:"not null"`
	OTA      string  `gorm:"column:ota;type:varchar(20);not null"`
	Concepto string  `gorm:"type:varchar(40);not null"`
	Ingreso  Ingreso `gorm:"embedded;embeddedPrefix:ingreso_"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Autorizaciones []Autorizacion `gorm:"foreignKey:MovimientoID;constraint:OnDelete:CASCADE"`
}

func (Movimiento) TableName() string { return "movimientos" }

func (m *Movimiento) BeforeCreate(_ *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// Autorizacion is one card authorization line. For Tarjeta income the
// movement's MontoTotal is the sum of these amounts.
type Autorizacion struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	MovimientoID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Orden        int             `gorm:"not null"`
	Codigo       string          `gorm:"type:varchar(40)"`
	Monto        decimal.Decimal `gorm:"type:decimal(14,2);not null"`
}

func (Autorizacion) TableName() string { return "autorizaciones" }

func (a *Autorizacion) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
