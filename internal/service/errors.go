package service

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrMovimientoNoEncontrado = errors.New("movimiento no encontrado")
	ErrTotalNoEncontrado      = errors.New("total no encontrado")
	// ErrRecalculoEnCurso is returned when another instance holds the rebuild lock.
	ErrRecalculoEnCurso = errors.New("ya hay un recálculo de totales en curso")
)

// ValidacionError reports business-rule violations on a movement.
// Campos maps the offending field (wire name) to a short reason.
type ValidacionError struct {
	Campos map[string]string
}

func nuevaValidacion() *ValidacionError {
	return &ValidacionError{Campos: make(map[string]string)}
}

func (e *ValidacionError) agregar(campo, motivo string) {
	if _, ok := e.Campos[campo]; !ok {
		e.Campos[campo] = motivo
	}
}

// orNil returns nil when no field was flagged, so callers can write
// `return v.orNil()` without tripping over typed-nil interfaces.
func (e *ValidacionError) orNil() error {
	if len(e.Campos) == 0 {
		return nil
	}
	return e
}

func (e *ValidacionError) Error() string {
	keys := make([]string, 0, len(e.Campos))
	for k := range e.Campos {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Campos[k])
	}
	return "validación: " + strings.Join(parts, "; ")
}
