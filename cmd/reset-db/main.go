package main

import (
	"github.com/spf13/pflag"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"assurcore-backend/shared/config"
	"assurcore-backend/shared/database"
	"assurcore-backend/shared/logging"
)

// tables owned by the core service, children first.
var tables = []string{
	"organization_hierarchies",
	"audit_logs",
	"users",
	"roles",
	"organizations",
}

func main() {
	confirm := pflag.Bool("yes", false, "drop the tables without asking twice")
	pflag.Parse()

	cfg := config.LoadConfig()
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	if !*confirm {
		log.WithField("database", cfg.DBName).Fatal("refusing to drop tables without --yes")
	}

	db, err := gorm.Open(postgres.Open(database.DSN(cfg)), database.GormConfig(cfg, log))
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}

	log.WithField("database", cfg.DBName).Warn("dropping all tables")
	for _, table := range tables {
		if err := db.Exec("DROP TABLE IF EXISTS " + table + " CASCADE").Error; err != nil {
			log.WithError(err).WithField("table", table).Fatal("failed to drop table")
		}
		log.WithField("table", table).Info("table dropped")
	}

	log.Info("database reset completed, run the seed tool to recreate tables and data")
}
