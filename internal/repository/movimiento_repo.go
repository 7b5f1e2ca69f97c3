package repository

import (
	"context"

	"github.com/Francoosman12/casateka-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MovimientoRepository interface {
	Create(ctx context.Context, m *model.Movimiento) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Movimiento, error)
	// List returns every movement, most recent payment first.
	List(ctx context.Context) ([]model.Movimiento, error)
	// Update saves m and replaces its authorization lines.
	Update(ctx context.Context, m *model.Movimiento) error
	Delete(ctx context.Context, id uuid.UUID) error
	// All scans the whole collection in storage order (used by the totals rebuild).
	All(ctx context.Context) ([]model.Movimiento, error)
}

type movimientoRepo struct{ db *gorm.DB }

func NewMovimientoRepository(db *gorm.DB) MovimientoRepository { return &movimientoRepo{db: db} }

func (r *movimientoRepo) Create(ctx context.Context, m *model.Movimiento) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *movimientoRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Movimiento, error) {
	var m model.Movimiento
	err := r.db.WithContext(ctx).
		Preload("Autorizaciones", func(db *gorm.DB) *gorm.DB { return db.Order("orden ASC") }).
		First(&m, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *movimientoRepo) List(ctx context.Context) ([]model.Movimiento, error) {
	var movs []model.Movimiento
	err := r.db.WithContext(ctx).
		Preload("Autorizaciones", func(db *gorm.DB) *gorm.DB { return db.Order("orden ASC") }).
		Order("fecha_pago DESC").
		Find(&movs).Error
	return movs, err
}

func (r *movimientoRepo) Update(ctx context.Context, m *model.Movimiento) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("movimiento_id = ?", m.ID).Delete(&model.Autorizacion{}).Error; err != nil {
			return err
		}
		if err := tx.Omit("Autorizaciones").Save(m).Error; err != nil {
			return err
		}
		for i := range m.Autorizaciones {
			m.Autorizaciones[i].ID = uuid.Nil
			m.Autorizaciones[i].MovimientoID = m.ID
		}
		if len(m.Autorizaciones) == 0 {
			return nil
		}
		return tx.Create(&m.Autorizaciones).Error
	})
}

func (r *movimientoRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("movimiento_id = ?", id).Delete(&model.Autorizacion{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Movimiento{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *movimientoRepo) All(ctx context.Context) ([]model.Movimiento, error) {
	var movs []model.Movimiento
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&movs).Error
	return movs, err
}
