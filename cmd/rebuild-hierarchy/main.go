package main

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"assurcore-backend/core-service/services"
	"assurcore-backend/shared/config"
	"assurcore-backend/shared/database"
	"assurcore-backend/shared/logging"
	"assurcore-backend/shared/repositories"
	"assurcore-backend/shared/utils/cache"
)

func main() {
	dryRun := pflag.Bool("dry-run", false, "report the drift without rewriting the closure table")
	verify := pflag.Bool("verify", false, "exit with status 1 when the closure table drifts from parent pointers")
	pflag.Parse()

	cfg := config.LoadConfig()
	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	ctx := context.Background()

	db, err := database.InitDatabase(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	defer database.CloseDatabase()

	visibleSets := cache.InitCacheManager(ctx, cfg, log)
	defer visibleSets.Close()

	hierarchy := services.NewHierarchyService(repositories.NewGormStore(db), visibleSets, log)

	var report *services.RebuildReport
	if *verify {
		report, err = hierarchy.VerifyHierarchy(ctx)
	} else {
		report, err = hierarchy.RebuildHierarchy(ctx, *dryRun)
	}
	if err != nil {
		log.WithError(err).Fatal("hierarchy rebuild failed")
	}

	log.WithFields(logrus.Fields{
		"organizations": report.Organizations,
		"entries":       report.Entries,
		"missing":       report.Missing,
		"unexpected":    report.Unexpected,
		"mismatched":    report.Mismatched,
		"applied":       report.Applied,
	}).Info("hierarchy checked")

	if *verify && !report.Diff.Empty() {
		database.CloseDatabase()
		os.Exit(1)
	}
}
