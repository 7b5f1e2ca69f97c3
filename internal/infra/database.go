package infra

import (
	"fmt"
	"time"

	"github.com/Francoosman12/casateka-backend/internal/model"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// NewDatabase opens the movements/totals store.
//
// postgres: schema is managed exclusively by the embedded SQL migrations
// (see migrations/), applied here before the pool is handed out.
// sqlite: local development and tests; the schema comes from AutoMigrate.
func NewDatabase(driver, dsn string) (*gorm.DB, error) {
	gcfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	switch driver {
	case DriverPostgres, "":
		if err := RunMigrations(dsn); err != nil {
			return nil, fmt.Errorf("migrations: %w", err)
		}
		db, err := gorm.Open(postgres.Open(dsn), gcfg)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		return db, nil

	case DriverSQLite:
		db, err := gorm.Open(sqlite.Open(dsn), gcfg)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// A single connection keeps ":memory:" databases alive and serializes
		// writers, which SQLite requires anyway.
		sqlDB.SetMaxOpenConns(1)
		if err := AutoMigrate(db); err != nil {
			return nil, fmt.Errorf("AutoMigrate: %w", err)
		}
		log.Warn().Str("dsn", dsn).Msg("using sqlite store, not meant for production")
		return db, nil

	default:
		return nil, fmt.Errorf("DATABASE_DRIVER desconocido: %q", driver)
	}
}

// AutoMigrate creates the schema through GORM. Only used for sqlite.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Movimiento{},
		&model.Autorizacion{},
		&model.Total{},
	)
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close database")
	}
}
