package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"prestiti/internal/amqp"
	"prestiti/internal/backend"
	"prestiti/internal/config"
	applog "prestiti/internal/log"
	"prestiti/internal/rows"
	rowsgoogle "prestiti/internal/rows/google"
	rowsmemory "prestiti/internal/rows/memory"
	"prestiti/internal/services"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	kind := flag.String("kind", "", "import kind: users, credits, plans or dictionary")
	input := flag.String("input", "", "read rows from a JSON file of records instead of Google Sheets")
	flag.Parse()

	cfg := config.Load()

	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(cfg.LogLevel),
		Component: applog.ComponentImporter,
	})
	applog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	source, err := newSource(ctx, *input)
	if err != nil {
		logger.Error("Failed to initialize row source", "error", err)
		os.Exit(1)
	}

	result, err := backend.New(cfg, logger.Logger)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer result.Cleanup()
	}

	var events *amqp.Client
	if cfg.AMQPURL != "" {
		events, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		} else {
			defer events.Close()
		}
	}

	set, err := source.Read(ctx)
	if err != nil {
		logger.Error("Failed to read rows", "error", err)
		os.Exit(1)
	}

	importer := services.NewImporter(result.Repo, events)
	if err := runImport(ctx, importer, *kind, set); err != nil {
		logger.Error("Import failed", "kind", *kind, "rows", len(set.Rows), "error", err)
		os.Exit(1)
	}

	fmt.Printf("imported %d %s rows\n", len(set.Rows), *kind)
}

func newSource(ctx context.Context, input string) (rows.Source, error) {
	if input == "" {
		return rowsgoogle.NewFromEnv(ctx)
	}

	data, err := os.ReadFile(input)
	if err != nil {
		return nil, fmt.Errorf("read input file: %w", err)
	}
	var records []map[string]any
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse input file: %w", err)
	}
	return rowsmemory.New(rows.FromRecords(records)), nil
}

func runImport(ctx context.Context, importer *services.Importer, kind string, set rows.Set) error {
	switch kind {
	case "users":
		return importer.ImportUsers(ctx, set)
	case "credits":
		return importer.ImportCredits(ctx, set)
	case "plans":
		return importer.ImportPlans(ctx, set)
	case "dictionary":
		return importer.ImportDictionary(ctx, set)
	default:
		return fmt.Errorf("unknown import kind %q (want users, credits, plans or dictionary)", kind)
	}
}
