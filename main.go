package main

import (
	"context"
	"fmt"
	"os"

	"insurance-analytics/charts"
	"insurance-analytics/config"
	"insurance-analytics/generator"
	"insurance-analytics/services"
	"insurance-analytics/storage"
	"insurance-analytics/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// No logger yet: configuration decides the log level.
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	logger := utils.NewLogger(utils.ParseLevel(cfg.LogLevel))
	ctx := context.Background()

	logger.Info("=== Insurance Portfolio Analytics starting ===")
	logger.Info("Config — policies: %d | seed: %d | store: %s | output: %s",
		cfg.PopulationSize, cfg.RandomSeed, cfg.StoreBackend, cfg.OutputDir)

	gen := generator.New(cfg, logger)
	dataset, err := gen.Generate()
	if err != nil {
		logger.Error("Generation failed: %v", err)
		os.Exit(1)
	}

	if err := services.NewValidator(logger).Validate(dataset); err != nil {
		logger.Error("Generated dataset is inconsistent: %v", err)
		os.Exit(1)
	}

	csvExporter, err := storage.NewCSVExporter(cfg.OutputDir)
	if err != nil {
		logger.Error("Failed to create CSV exporter: %v", err)
		os.Exit(1)
	}

	renderer, err := charts.NewRenderer(cfg.OutputDir)
	if err != nil {
		logger.Error("Failed to create chart renderer: %v", err)
		os.Exit(1)
	}

	reports := services.NewReportService(csvExporter, renderer, logger, cfg.HistogramBins)

	if err := reports.ExportDataset(dataset); err != nil {
		logger.Error("Raw dataset dump failed: %v", err)
	} else {
		logger.Info("Raw dataset saved to %s (policies.csv, claims.csv)", cfg.OutputDir)
	}

	store, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open %s store: %v", cfg.StoreBackend, err)
		if cfg.StoreBackend == config.BackendPostgres {
			logger.Error("Make sure PostgreSQL is reachable at %s:%s", cfg.PostgresHost, cfg.PostgresPort)
		}
		os.Exit(1)
	}
	defer store.Close()

	if err := store.Load(ctx, dataset); err != nil {
		logger.Error("Load failed, nothing queryable was left behind: %v", err)
		os.Exit(1)
	}
	logger.Info("Loaded %d policies and %d claims into the %s store",
		len(dataset.Policies), len(dataset.Claims), cfg.StoreBackend)

	queries := services.NewQueryService(store.DB(), logger)

	if orphans, err := queries.CountOrphanClaims(ctx); err != nil {
		logger.Warn("Integrity check failed: %v", err)
	} else if orphans > 0 {
		logger.Warn("Integrity check found %d orphan claims", orphans)
	} else {
		logger.Info("Integrity check passed: every claim resolves to a policy")
	}

	results := queries.RunAll(ctx, cfg.TopPolicies)

	succeeded, failed := reports.Export(results)
	if failed > 0 {
		logger.Warn("Exported %d reports, %d failed", succeeded, failed)
	} else {
		logger.Info("Exported %d reports to %s", succeeded, cfg.OutputDir)
	}

	reports.Print(results)

	fmt.Printf("  Done. Query CSVs and charts → %s | store: %s\n\n", cfg.OutputDir, cfg.StoreBackend)
}
