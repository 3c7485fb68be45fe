package database

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/you/incidentsvc/internal/infrastructure/repositories"
)

// Open creates a gorm connection for the postgres or sqlite driver
func Open(driver, dsn string, log *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres", "":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}

	config := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}
	db, err := gorm.Open(dialector, config)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	if driver == "sqlite" && strings.Contains(dsn, ":memory:") {
		// Every connection to an in-memory database sees its own empty database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if log != nil {
		log.Info("database connected", zap.String("driver", driver))
	}
	return db, nil
}

// AutoMigrate creates or updates the report table
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&repositories.DBReport{}); err != nil {
		return fmt.Errorf("failed to migrate reports table: %w", err)
	}
	return nil
}
