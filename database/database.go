package database

import (
	"fmt"

	"cashier/config"
	"cashier/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func Connect(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	log.Info("connected to database", zap.String("host", cfg.Host), zap.String("name", cfg.Name))

	if cfg.AutoMigrate {
		log.Info("starting auto-migration")
		if err := Migrate(db); err != nil {
			return nil, fmt.Errorf("auto-migrate: %w", err)
		}
		log.Info("auto migration completed")
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Profile{},
		&models.PaymentRequest{},
		&models.Transaction{},
		&models.AdminLog{},
		&models.Notification{},
	)
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
