package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"universe_backend/internal/app/di"
	"universe_backend/internal/feature/instruments/domain/entity"
	"universe_backend/internal/feature/instruments/transport/http/dto"
	"universe_backend/internal/feature/instruments/usecase"
	"universe_backend/internal/platform/config"
	"universe_backend/internal/platform/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		file    string
		format  string
		dryRun  bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "import --file <path>",
		Short: "Import a tradable-universe snapshot and record added/removed instruments",
		Long: "Reads a CSV, JSON or plain-text snapshot, merges it into the stored instrument list " +
			"and prints the import report as JSON. The stored snapshot is left unchanged on any error.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), file, format, dryRun, timeout)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "snapshot file to import")
	cmd.Flags().StringVar(&format, "format", "", "input format: csv, json or text (default: detect)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "compute the report without saving or publishing")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "overall import timeout")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runImport(ctx context.Context, path, formatFlag string, dryRun bool, timeout time.Duration) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logCloser, err := logger.Init(logger.Config{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		File:    cfg.Logging.File,
		Service: "universe-import",
	})
	if err != nil {
		return err
	}
	defer logCloser.Close()

	format, err := usecase.ParseFormat(formatFlag)
	if err != nil {
		return err
	}
	if format == entity.FormatAuto {
		format = usecase.FormatFromFilename(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	rdb := di.NewRedisClient(ctx, cfg.Redis)
	if rdb != nil {
		defer rdb.Close()
	}
	repo, closeRepo, err := di.NewInstrumentRepository(ctx, cfg, rdb)
	if err != nil {
		return err
	}
	defer closeRepo()

	publisher, pubCloser := di.NewDeltaPublisher(cfg.Kafka)
	if pubCloser != nil {
		defer pubCloser.Close()
	}

	uc, err := di.NewImportUsecase(cfg, repo, nil, publisher, nil)
	if err != nil {
		return err
	}
	report, err := uc.Import(ctx, f, format, dryRun)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(dto.FromImportReport(report))
}
