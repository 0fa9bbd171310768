package db

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/stockpulse/paybridge/config"
	"github.com/stockpulse/paybridge/models"
)

// Open connects to PostgreSQL and applies the pool settings from config.
func Open(cfg *config.Config) (*gorm.DB, error) {
	gormCfg := &gorm.Config{}
	if cfg.IsProduction() {
		gormCfg.Logger = gormlogger.Default.LogMode(gormlogger.Warn)
	}

	database, err := gorm.Open(postgres.Open(cfg.GetDatabaseURL()), gormCfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := database.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	return database, nil
}

// Migrate creates or updates the schema for every persisted model.
func Migrate(database *gorm.DB) error {
	return database.AutoMigrate(
		&models.Subscription{},
		&models.Plan{},
		&models.Payment{},
		&models.ProcessedEvent{},
	)
}
