package handler

import (
	"net/http"

	"github.com/Francoosman12/casateka-backend/internal/dto"
	"github.com/Francoosman12/casateka-backend/internal/model"
	"github.com/Francoosman12/casateka-backend/internal/monto"
	"github.com/Francoosman12/casateka-backend/internal/service"

	"github.com/gin-gonic/gin"
)

type TotalesHandler struct{ svc service.TotalesService }

func NewTotalesHandler(svc service.TotalesService) *TotalesHandler {
	return &TotalesHandler{svc: svc}
}

// Listar godoc
// @Summary      Listar totales
// @Tags         totales
// @Produce      json
// @Param        dimension query string false "ingreso | ota | concepto"
// @Success      200  {array}  dto.TotalResponse
// @Failure      400  {object} apierror.ValidationError
// @Router       /api/totals [get]
func (h *TotalesHandler) Listar(c *gin.Context) {
	var filter dto.TotalFilter
	if !bindQueryAndValidate(c, &filter) {
		return
	}
	totals, err := h.svc.Listar(c.Request.Context(), filter.Dimension)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, totalesToResponse(totals))
}

// Recalcular godoc
// @Summary      Recalcular totales
// @Description  Reconstruye todos los totales desde los movimientos. Operación exclusiva: bloquea las actualizaciones incrementales mientras corre.
// @Tags         totales
// @Produce      json
// @Success      200  {array}  dto.TotalResponse
// @Failure      409  {object} apierror.APIError
// @Router       /api/totals/calculate [post]
func (h *TotalesHandler) Recalcular(c *gin.Context) {
	totals, err := h.svc.Recalcular(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, totalesToResponse(totals))
}

// Eliminar godoc
// @Summary      Eliminar un total
// @Description  Borra la fila. El siguiente recálculo la vuelve a crear.
// @Tags         totales
// @Param        id   path string true "ID del total"
// @Success      200  {object} map[string]string
// @Failure      404  {object} apierror.APIError
// @Router       /api/totals/{id} [delete]
func (h *TotalesHandler) Eliminar(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.svc.Eliminar(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "Total eliminado"})
}

func totalesToResponse(totals []model.Total) []dto.TotalResponse {
	out := make([]dto.TotalResponse, 0, len(totals))
	for _, t := range totals {
		out = append(out, dto.TotalResponse{
			ID:          t.ID.String(),
			Clave:       t.Clave,
			Dimension:   t.Dimension,
			Subtotal:    monto.New(t.Subtotal),
			CalculadoEn: dto.NewFecha(t.CalculadoEn),
		})
	}
	return out
}
