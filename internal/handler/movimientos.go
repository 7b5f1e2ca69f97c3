package handler

import (
	"net/http"

	"github.com/Francoosman12/casateka-backend/internal/dto"
	"github.com/Francoosman12/casateka-backend/internal/service"

	"github.com/gin-gonic/gin"
)

type MovimientosHandler struct{ svc service.MovimientoService }

func NewMovimientosHandler(svc service.MovimientoService) *MovimientosHandler {
	return &MovimientosHandler{svc: svc}
}

// Crear godoc
// @Summary      Registrar un movimiento
// @Description  Persiste el cobro y actualiza los totales. Un fallo al actualizar totales no afecta la respuesta.
// @Tags         movimientos
// @Accept       json
// @Produce      json
// @Param        body body dto.CrearMovimientoRequest true "Movimiento"
// @Success      201  {object} dto.MovimientoResponse
// @Failure      400  {object} apierror.ValidationError
// @Router       /api/movements [post]
func (h *MovimientosHandler) Crear(c *gin.Context) {
	var req dto.CrearMovimientoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Crear(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Listar godoc
// @Summary      Listar movimientos
// @Tags         movimientos
// @Produce      json
// @Success      200  {array}  dto.MovimientoResponse
// @Router       /api/movements [get]
func (h *MovimientosHandler) Listar(c *gin.Context) {
	resp, err := h.svc.Listar(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Actualizar godoc
// @Summary      Actualizar un movimiento
// @Description  Actualización parcial. Los totales se ajustan con la diferencia entre la versión anterior y la nueva.
// @Tags         movimientos
// @Accept       json
// @Produce      json
// @Param        id   path string true "ID del movimiento"
// @Param        body body dto.ActualizarMovimientoRequest true "Campos a modificar"
// @Success      200  {object} dto.MovimientoResponse
// @Failure      400  {object} apierror.ValidationError
// @Failure      404  {object} apierror.APIError
// @Router       /api/movements/{id} [put]
func (h *MovimientosHandler) Actualizar(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req dto.ActualizarMovimientoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Actualizar(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Eliminar godoc
// @Summary      Eliminar un movimiento
// @Tags         movimientos
// @Param        id   path string true "ID del movimiento"
// @Success      200  {object} map[string]string
// @Failure      404  {object} apierror.APIError
// @Router       /api/movements/{id} [delete]
func (h *MovimientosHandler) Eliminar(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.svc.Eliminar(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "Movimiento eliminado"})
}
