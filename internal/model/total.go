package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Dimensiones de un total
const (
	DimensionIngreso  = "ingreso"
	DimensionOTA      = "ota"
	DimensionConcepto = "concepto"
)

// Total is a denormalized aggregate row. It is derived data: every row can be
// rebuilt from the movimientos table, and only the reconciliation service
// writes to it.
type Total struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Clave       string          `gorm:"type:varchar(60);not null;uniqueIndex"`
	Dimension   string          `gorm:"type:varchar(20);not null;index"`
	Subtotal    decimal.Decimal `gorm:"type:decimal(16,2);not null;default:0"`
	CalculadoEn time.Time       `gorm:"not null"`
}

func (Total) TableName() string { return "totales" }
