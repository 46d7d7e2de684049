// Command fintrack-import loads a bank CSV export or a JSON backup into the
// configured backend without running the server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/store"
	"fintrack/internal/transfer"
)

func main() {
	cli.LoadEnvFile()

	file := flag.String("file", "", "path of the CSV or JSON file to import")
	format := flag.String("format", "", "csv or json (default: from the file extension)")
	policy := flag.String("policy", "replace", "backup import policy: replace or merge")
	dryRun := flag.Bool("dry-run", false, "parse and validate without saving")
	flag.Parse()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		log.New(log.DefaultConfig()).Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg.LogLevel).WithComponent(log.ComponentImport)

	if *file == "" {
		logger.Error("Error: --file is required")
		os.Exit(2)
	}
	kind := *format
	if kind == "" {
		kind = strings.TrimPrefix(strings.ToLower(filepath.Ext(*file)), ".")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := run(ctx, cfg, *file, kind, *policy, *dryRun, logger); err != nil {
		logger.Error("Import failed", log.FieldError, err, log.FieldPath, *file)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, path, kind, policy string, dryRun bool, logger *log.Logger) error {
	st, err := cli.InitStore(cfg, logger)
	if err != nil {
		return err
	}
	result, err := cli.InitBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = result.Cleanup() }()

	saver := services.NewSaver(st, result.Persister, logger)
	defer saver.Close()
	if err := saver.Restore(ctx); err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	switch kind {
	case "csv":
		err = importCSV(st, f, dryRun, logger)
	case "json":
		err = importJSON(st, f, policy, dryRun, logger)
	default:
		return fmt.Errorf("unknown format %q: use csv or json", kind)
	}
	if err != nil || dryRun {
		return err
	}
	return saver.Flush(ctx)
}

func importCSV(st *store.Store, f *os.File, dryRun bool, logger *log.Logger) error {
	rows, err := transfer.ParseCSV(f, st.Categories(), st.Accounts(), core.DateOf(st.Now()))
	if err != nil {
		return err
	}
	for _, r := range rows {
		if r.Error != "" {
			logger.Warn("Skipping row", "line", r.Line, log.FieldError, r.Error)
		}
	}
	if dryRun {
		txs, err := transfer.Transactions(rows, st.Categories())
		if err != nil {
			return err
		}
		logger.Info("Dry run complete", "rows", len(rows), "valid", len(txs))
		return nil
	}
	created, err := transfer.Commit(st, rows)
	if err != nil {
		return err
	}
	logger.Info("CSV imported", "rows", len(rows), "created", len(created))
	return nil
}

func importJSON(st *store.Store, f *os.File, rawPolicy string, dryRun bool, logger *log.Logger) error {
	policy, err := transfer.ParsePolicy(rawPolicy)
	if err != nil {
		return err
	}
	if dryRun {
		b, err := transfer.DecodeBackup(f)
		if err != nil {
			return err
		}
		logger.Info("Dry run complete",
			"transactions", len(b.Transactions),
			"categories", len(b.Categories),
			"accounts", len(b.Accounts))
		return nil
	}
	res, err := transfer.ImportBackup(st, f, policy)
	if err != nil {
		return err
	}
	logger.Info("Backup imported",
		"policy", string(res.Policy),
		"transactions", res.Transactions,
		"categories", res.Categories,
		"accounts", res.Accounts,
		"budgets", res.Budgets,
		"goals", res.Goals)
	return nil
}
