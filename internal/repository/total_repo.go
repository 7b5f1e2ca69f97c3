package repository

import (
	"context"
	"time"

	"github.com/Francoosman12/casateka-backend/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TotalRepository interface {
	// Incrementar atomically adds delta to the row keyed by clave, creating it
	// with subtotal = delta when it does not exist yet.
	Incrementar(ctx context.Context, clave, dimension string, delta decimal.Decimal) error
	List(ctx context.Context, dimension string) ([]model.Total, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Total, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// Reemplazar discards every row and inserts totals in a single transaction.
	Reemplazar(ctx context.Context, totals []model.Total) error
}

type totalRepo struct{ db *gorm.DB }

func NewTotalRepository(db *gorm.DB) TotalRepository { return &totalRepo{db: db} }

// upsertIncrementSQL is valid for both PostgreSQL and SQLite (>= 3.24).
// The row lock taken by ON CONFLICT makes concurrent increments on the same
// clave serialize instead of losing updates.
// SQLite keeps DECIMAL columns as REAL, so the sum is rounded back to cents;
// on PostgreSQL NUMERIC(16,2) the ROUND is a no-op.
const upsertIncrementSQL = `INSERT INTO totales (id, clave, dimension, subtotal, calculado_en)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (clave) DO UPDATE
SET subtotal = ROUND(totales.subtotal + excluded.subtotal, 2),
    calculado_en = excluded.calculado_en`

func (r *totalRepo) Incrementar(ctx context.Context, clave, dimension string, delta decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Exec(upsertIncrementSQL, uuid.New(), clave, dimension, delta, time.Now().UTC()).
		Error
}

func (r *totalRepo) List(ctx context.Context, dimension string) ([]model.Total, error) {
	var totals []model.Total
	q := r.db.WithContext(ctx).Model(&model.Total{})
	if dimension != "" {
		q = q.Where("dimension = ?", dimension)
	}
	err := q.Order("dimension ASC, clave ASC").Find(&totals).Error
	return totals, err
}

func (r *totalRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Total, error) {
	var t model.Total
	if err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *totalRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&model.Total{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *totalRepo) Reemplazar(ctx context.Context, totals []model.Total) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.Total{}).Error; err != nil {
			return err
		}
		for i := range totals {
			if totals[i].ID == uuid.Nil {
				totals[i].ID = uuid.New()
			}
		}
		if len(totals) == 0 {
			return nil
		}
		return tx.Create(&totals).Error
	})
}
