package dto

import "github.com/Francoosman12/casateka-backend/internal/monto"

// TotalFilter is bound from the query string of GET /api/totals.
type TotalFilter struct {
	Dimension string `form:"dimension" json:"dimension" validate:"omitempty,oneof=ingreso ota concepto"`
}

type TotalResponse struct {
	ID          string      `json:"id"`
	Clave       string      `json:"clave"`
	Dimension   string      `json:"dimension"`
	Subtotal    monto.Monto `json:"subtotal"`
	CalculadoEn Fecha       `json:"calculadoEn"`
}
