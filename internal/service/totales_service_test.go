package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Francoosman12/casateka-backend/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func mov(tipo, subtipo, monto, ota, concepto string) *model.Movimiento {
	return &model.Movimiento{
		ID:        uuid.New(),
		FechaPago: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Nombre:    "Huésped",
		CheckIn:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		CheckOut:  time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
		OTA:       ota,
		Concepto:  concepto,
		Ingreso: model.Ingreso{
			Tipo:          tipo,
			Subtipo:       subtipo,
			MontoTotal:    dec(monto),
			MontoOriginal: dec(monto),
			TipoCambio:    decimal.NewFromInt(1),
		},
	}
}

func cash(monto string) *model.Movimiento {
	return mov(model.TipoEfectivo, model.SubtipoPesos, monto, "Booking", "Cobro de estancia")
}

type totalesFixture struct {
	totals *memTotalRepo
	movs   *memMovimientoRepo
	svc    TotalesService
}

func newTotalesFixture(opts TotalesOptions) *totalesFixture {
	f := &totalesFixture{totals: newMemTotalRepo(), movs: newMemMovimientoRepo()}
	f.svc = NewTotalesService(f.totals, f.movs, opts)
	return f
}

// store persists m and runs the incremental path, as MovimientoService does.
func (f *totalesFixture) store(t *testing.T, m *model.Movimiento) {
	t.Helper()
	soltar := f.svc.Compartir()
	defer soltar()
	require.NoError(t, f.movs.Create(context.Background(), m))
	f.svc.AplicarAlta(context.Background(), m)
}

func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), append([]interface{}{"want %s got %s", want, got.String()}, msgAndArgs...)...)
}

// ── Contribuciones ────────────────────────────────────────────────────────────

func TestContribuciones_CashFeedsAllDimensions(t *testing.T) {
	aportes := Contribuciones(cash("100"), false)
	require.Len(t, aportes, 3)
	assert.Equal(t, "Efectivo-Pesos", aportes[0].Clave)
	assert.Equal(t, model.DimensionIngreso, aportes[0].Dimension)
	assert.Equal(t, "Booking", aportes[1].Clave)
	assert.Equal(t, "Cobro de estancia", aportes[2].Clave)
}

func TestContribuciones_CardOnlyFeedsRollupsWhenEnabled(t *testing.T) {
	card := mov(model.TipoTarjeta, model.SubtipoVirtual, "80", "Expedia", "Amenidades")

	assert.Len(t, Contribuciones(card, false), 1)
	assert.Len(t, Contribuciones(card, true), 3)
}

func TestContribuciones_ZeroOrNil(t *testing.T) {
	assert.Empty(t, Contribuciones(nil, false))
	assert.Empty(t, Contribuciones(cash("0"), false))
}

func TestContribucion_MatchesNamedKey(t *testing.T) {
	f := newTotalesFixture(TotalesOptions{})
	m := cash("150.50")

	assertDec(t, "150.50", f.svc.Contribucion(m, "Efectivo-Pesos"))
	assertDec(t, "150.50", f.svc.Contribucion(m, "Booking"))
	assertDec(t, "0", f.svc.Contribucion(m, "Expedia"))
	assertDec(t, "0", f.svc.Contribucion(m, "Tarjeta-Virtual"))
}

// ── Incremental path ──────────────────────────────────────────────────────────

func TestAplicarAlta_Scenario(t *testing.T) {
	f := newTotalesFixture(TotalesOptions{})
	f.store(t, cash("100"))
	assertDec(t, "100", f.totals.subtotal("Efectivo-Pesos"))

	f.store(t, cash("50.25"))
	assertDec(t, "150.25", f.totals.subtotal("Efectivo-Pesos"))
	assertDec(t, "150.25", f.totals.subtotal("Booking"))
	assertDec(t, "150.25", f.totals.subtotal("Cobro de estancia"))
}

func TestAltaThenBaja_Conservation(t *testing.T) {
	f := newTotalesFixture(TotalesOptions{})
	f.store(t, cash("300"))
	before := f.totals.snapshot()

	m := mov(model.TipoEfectivo, model.SubtipoPesos, "123.45", "Expedia", "Amenidades")
	f.svc.AplicarAlta(context.Background(), m)
	f.svc.AplicarBaja(context.Background(), m)

	for clave, v := range f.totals.snapshot() {
		prev, ok := before[clave]
		if !ok {
			prev = decimal.Zero
		}
		assertDec(t, prev.String(), v, clave)
	}
}

func TestAplicarActualizacion_AppliesNetDelta(t *testing.T) {
	f := newTotalesFixture(TotalesOptions{})
	anterior := cash("100")
	f.store(t, anterior)
	f.store(t, cash("40"))

	nuevo := *anterior
	nuevo.Ingreso.MontoTotal = dec("70")
	f.svc.AplicarActualizacion(context.Background(), anterior, &nuevo)

	assertDec(t, "110", f.totals.subtotal("Efectivo-Pesos"))
	// One increment per key for each create, one more for the update.
	assert.Equal(t, 3, f.totals.incrementos["Efectivo-Pesos"])
}

func TestAplicarActualizacion_MovesBetweenKeys(t *testing.T) {
	f := newTotalesFixture(TotalesOptions{})
	anterior := cash("200")
	f.store(t, anterior)

	nuevo := *anterior
	nuevo.Ingreso.Subtipo = model.SubtipoDolares
	nuevo.OTA = "Directa"
	f.svc.AplicarActualizacion(context.Background(), anterior, &nuevo)

	assertDec(t, "0", f.totals.subtotal("Efectivo-Pesos"))
	assertDec(t, "200", f.totals.subtotal("Efectivo-Dolares"))
	assertDec(t, "0", f.totals.subtotal("Booking"))
	assertDec(t, "200", f.totals.subtotal("Directa"))
	assertDec(t, "200", f.totals.subtotal("Cobro de estancia"))
}

func TestAplicarActualizacion_UnchangedTouchesNothing(t *testing.T) {
	f := newTotalesFixture(TotalesOptions{})
	m := cash("90")
	f.store(t, m)

	same := *m
	same.Nombre = "Otro nombre"
	f.svc.AplicarActualizacion(context.Background(), m, &same)

	for clave, n := range f.totals.incrementos {
		assert.Equal(t, 1, n, clave)
	}
}

func TestAplicar_StoreFailureIsReportedNotReturned(t *testing.T) {
	reporter := &recordingReporter{}
	f := newTotalesFixture(TotalesOptions{Fallos: reporter})
	f.totals.failInc = errors.New("connection refused")

	m := cash("100")
	assert.NotPanics(t, func() { f.svc.AplicarAlta(context.Background(), m) })

	require.Len(t, reporter.fallos, 3)
	assert.Equal(t, "alta", reporter.fallos[0].Operacion)
	assert.Equal(t, m.ID.String(), reporter.fallos[0].MovimientoID)
	assertDec(t, "100", reporter.fallos[0].Delta)
}

func TestAplicar_OpenBreakerSkipsStore(t *testing.T) {
	reporter := &recordingReporter{}
	f := newTotalesFixture(TotalesOptions{Breaker: openBreaker{}, Fallos: reporter})

	f.svc.AplicarAlta(context.Background(), cash("10"))

	assert.Empty(t, f.totals.incrementos)
	require.Len(t, reporter.fallos, 3)
	assert.Contains(t, reporter.fallos[0].Error, "open")
}

func TestAplicar_CancelledRequestStillApplies(t *testing.T) {
	f := newTotalesFixture(TotalesOptions{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f.svc.AplicarAlta(ctx, cash("10"))
	assertDec(t, "10", f.totals.subtotal("Efectivo-Pesos"))
}

func TestAplicar_ConcurrentAltasOnSameKey(t *testing.T) {
	f := newTotalesFixture(TotalesOptions{})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.svc.AplicarAlta(context.Background(), cash("1.10"))
		}()
	}
	wg.Wait()
	assertDec(t, "55", f.totals.subtotal("Efectivo-Pesos"))
}

// ── Recalcular ────────────────────────────────────────────────────────────────

func TestRecalcular_MatchesSumOfContributions(t *testing.T) {
	f := newTotalesFixture(TotalesOptions{})
	ms := []*model.Movimiento{
		cash("100"),
		mov(model.TipoEfectivo, model.SubtipoEuros, "185", "Expedia", "Amenidades"),
		mov(model.TipoTarjeta, model.SubtipoDebitoCredito, "150.50", "Directa", "Cobro de estancia"),
	}
	for _, m := range ms {
		f.store(t, m)
	}
	// Drift: a failed increment that never made it.
	require.NoError(t, f.totals.Incrementar(context.Background(), "Booking", model.DimensionOTA, dec("999")))

	totals, err := f.svc.Recalcular(context.Background())
	require.NoError(t, err)
	assert.Len(t, totals, len(ClavesConocidas()))

	for _, row := range totals {
		sum := decimal.Zero
		for _, m := range ms {
			sum = sum.Add(f.svc.Contribucion(m, row.Clave))
		}
		assertDec(t, sum.String(), row.Subtotal, row.Clave)
		assertDec(t, sum.String(), f.totals.subtotal(row.Clave), row.Clave)
	}
}

func TestRecalcular_Idempotent(t *testing.T) {
	f := newTotalesFixture(TotalesOptions{})
	f.store(t, cash("10"))
	f.store(t, mov(model.TipoTarjeta, model.SubtipoTransferencia, "20", "Directa", "Amenidades"))

	first, err := f.svc.Recalcular(context.Background())
	require.NoError(t, err)
	second, err := f.svc.Recalcular(context.Background())
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Clave, second[i].Clave)
		assert.True(t, first[i].Subtotal.Equal(second[i].Subtotal), first[i].Clave)
	}
}

func TestRecalcular_EmptyStoreYieldsZeroRows(t *testing.T) {
	f := newTotalesFixture(TotalesOptions{})

	totals, err := f.svc.Recalcular(context.Background())
	require.NoError(t, err)
	for _, row := range totals {
		assert.True(t, row.Subtotal.IsZero(), row.Clave)
	}
}

func TestRecalcular_ClearsReportedFailures(t *testing.T) {
	reporter := &recordingReporter{}
	f := newTotalesFixture(TotalesOptions{Fallos: reporter})
	f.totals.failInc = errors.New("timeout")
	f.svc.AplicarAlta(context.Background(), cash("5"))
	require.NotEmpty(t, reporter.fallos)

	f.totals.failInc = nil
	_, err := f.svc.Recalcular(context.Background())
	require.NoError(t, err)
	assert.Empty(t, reporter.fallos)
	assert.Equal(t, 1, reporter.limpiado)
}

func TestRecalcular_LockHeldElsewhere(t *testing.T) {
	f := newTotalesFixture(TotalesOptions{Locker: heldLock{}})
	_, err := f.svc.Recalcular(context.Background())
	assert.ErrorIs(t, err, ErrRecalculoEnCurso)
}

func TestRecalcular_IncluirTarjetaAgreesWithIncremental(t *testing.T) {
	f := newTotalesFixture(TotalesOptions{IncluirTarjeta: true})
	f.store(t, cash("10"))
	f.store(t, mov(model.TipoTarjeta, model.SubtipoVirtual, "15", "Booking", "Cobro de estancia"))
	incremental := f.totals.subtotal("Booking")

	_, err := f.svc.Recalcular(context.Background())
	require.NoError(t, err)
	assertDec(t, "25", incremental)
	assertDec(t, "25", f.totals.subtotal("Booking"))
}

// ── Consultas ─────────────────────────────────────────────────────────────────

func TestListar_RejectsUnknownDimension(t *testing.T) {
	f := newTotalesFixture(TotalesOptions{})
	_, err := f.svc.Listar(context.Background(), "habitacion")

	var verr *ValidacionError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Campos, "dimension")
}

func TestEliminar_NotFound(t *testing.T) {
	f := newTotalesFixture(TotalesOptions{})
	assert.ErrorIs(t, f.svc.Eliminar(context.Background(), uuid.New()), ErrTotalNoEncontrado)

	f.store(t, cash("1"))
	rows, err := f.svc.Listar(context.Background(), model.DimensionIngreso)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.NoError(t, f.svc.Eliminar(context.Background(), rows[0].ID))
}

func TestNetear(t *testing.T) {
	anterior := []Aporte{{Clave: "a", Monto: dec("10")}, {Clave: "b", Monto: dec("5")}}
	nuevo := []Aporte{{Clave: "a", Monto: dec("10")}, {Clave: "c", Monto: dec("7")}}

	out := netear(anterior, nuevo)
	require.Len(t, out, 2)
	assert.Equal(t, "b", out[0].Clave)
	assertDec(t, "-5", out[0].Monto)
	assert.Equal(t, "c", out[1].Clave)
	assertDec(t, "7", out[1].Monto)
}
