package database

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"assurcore-backend/shared/config"
	"assurcore-backend/shared/database/models"
	"assurcore-backend/shared/database/models/audit"
)

var DB *gorm.DB

// getLogLevel returns appropriate log level based on environment
func getLogLevel(cfg *config.Config) logger.LogLevel {
	if cfg.IsLocal() {
		return logger.Warn
	}
	return logger.Error
}

// DSN builds the postgres connection string from configuration
func DSN(cfg *config.Config) string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		cfg.DBHost,
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBName,
		cfg.DBPort,
		cfg.DBSSLMode,
	)
}

// GormConfig is shared by the services and the command line tools.
// TranslateError turns unique violations into gorm.ErrDuplicatedKey.
func GormConfig(cfg *config.Config, log *logrus.Logger) *gorm.Config {
	return &gorm.Config{
		Logger: logger.New(log, logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  getLogLevel(cfg),
			IgnoreRecordNotFoundError: true,
		}),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		TranslateError: true,
	}
}

// InitDatabase initializes the database connection and runs migrations
func InitDatabase(cfg *config.Config, log *logrus.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(DSN(cfg)), GormConfig(cfg, log))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.DBConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.WithField("host", cfg.DBHost).Info("database connection established")

	if err := RunMigrations(db, log); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	DB = db
	return db, nil
}

// MigrationModels lists every table owned by the core service, parents first.
func MigrationModels() []interface{} {
	return []interface{}{
		&models.Organization{},
		&models.OrganizationHierarchy{},
		&models.Role{},
		&models.User{},
		&audit.AuditLog{},
	}
}

// RunMigrations runs all database migrations
func RunMigrations(db *gorm.DB, log *logrus.Logger) error {
	migrator := db.Migrator()

	created := 0
	for _, model := range MigrationModels() {
		if !migrator.HasTable(model) {
			log.Infof("creating table for %T", model)
			created++
		}

		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}

	log.WithField("tables_created", created).Info("database schema is up to date")
	return nil
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}

// CloseDatabase closes the database connection
func CloseDatabase() error {
	if DB != nil {
		sqlDB, err := DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}
