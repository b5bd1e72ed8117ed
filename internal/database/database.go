package database

import (
	"fmt"
	"log/slog"

	"github.com/vani-hq/vani/internal/database/models"
	"github.com/vani-hq/vani/pkg/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func Connect(cfg *config.DatabaseConfig, log *slog.Logger) (*gorm.DB, error) {
	gormLogger := logger.Default.LogMode(logger.Warn)
	if cfg.SSLMode == "disable" {
		gormLogger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying db: %w", err)
	}

	// Connection pool settings
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)

	log.Info("connected to database", "host", cfg.Host, "database", cfg.Name)

	return db, nil
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Industry{},
		&models.User{},
		&models.UseCase{},
		&models.UserPermission{},
		&models.Company{},
		&models.Contact{},
		&models.Target{},
		&models.GeneratedPitch{},
		&models.OutreachActivity{},
		&models.Meeting{},
		&models.WebhookEvent{},
		&models.ChannelCredential{},
		&models.ScheduledFollowUp{},
	)
}

// SeedUseCases inserts the fixed use-case catalog, skipping codes that
// already exist.
func SeedUseCases(db *gorm.DB) error {
	for _, uc := range models.SeedUseCases() {
		var existing models.UseCase
		err := db.Where("code = ?", uc.Code).First(&existing).Error
		if err == nil {
			continue
		}
		if err != gorm.ErrRecordNotFound {
			return fmt.Errorf("checking use case %s: %w", uc.Code, err)
		}
		if err := db.Create(&uc).Error; err != nil {
			return fmt.Errorf("seeding use case %s: %w", uc.Code, err)
		}
	}
	return nil
}
