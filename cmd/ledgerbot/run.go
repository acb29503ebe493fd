package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"google.golang.org/api/sheets/v4"

	"github.com/ledgerbot/ledgerbot/pkg/api"
	"github.com/ledgerbot/ledgerbot/pkg/client"
	"github.com/ledgerbot/ledgerbot/pkg/config"
	"github.com/ledgerbot/ledgerbot/pkg/health"
	discordreader "github.com/ledgerbot/ledgerbot/pkg/reader/discord"
	csvwriter "github.com/ledgerbot/ledgerbot/pkg/writer/csv"
	jsonwriter "github.com/ledgerbot/ledgerbot/pkg/writer/json"
	postgreswriter "github.com/ledgerbot/ledgerbot/pkg/writer/postgres"
	sheetswriter "github.com/ledgerbot/ledgerbot/pkg/writer/sheets"
)

// runBot starts the expense recording bot.
func runBot(logger *slog.Logger) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger.Info("configuration loaded",
		"backend", cfg.LedgerBackend,
		"prefix", cfg.CommandPrefix,
	)

	// Setup context with cancellation on SIGINT/SIGTERM
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if err := health.New(cfg.HealthAddr, logger.With("component", "health")).Start(ctx); err != nil {
		return fmt.Errorf("starting health endpoint: %w", err)
	}

	writer, err := newWriter(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("creating %s writer: %w", cfg.LedgerBackend, err)
	}

	reader, err := discordreader.New(discordreader.Config{
		Token:  cfg.DiscordToken,
		Prefix: cfg.CommandPrefix,
	}, logger.With("component", "discord_reader"))
	if err != nil {
		return fmt.Errorf("creating discord reader: %w", err)
	}

	expenses := make(chan *api.Expense, 100)
	results := make(chan api.WriteResult, 100)

	// Start writer in background
	writerDone := make(chan error, 1)
	go func() {
		writerDone <- writer.Write(ctx, expenses, results)
	}()

	// Start reader (blocks until context is canceled)
	logger.Info("starting ledgerbot")
	if err := reader.Read(ctx, expenses, results); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("reader error", "error", err)
	}

	// Wait for writer to finish
	if err := <-writerDone; err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("writer error", "error", err)
	}

	logger.Info("ledgerbot stopped")
	return nil
}

// loadConfig reads configuration from environment variables.
func loadConfig() (*config.Config, error) {
	k := koanf.New(".")

	if err := k.Load(env.Provider("", ".", nil), nil); err != nil {
		return nil, fmt.Errorf("loading config from environment: %w", err)
	}

	var cfg config.Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf", FlatPaths: true}); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// newWriter builds the ledger backend selected by the configuration.
func newWriter(ctx context.Context, cfg *config.Config, logger *slog.Logger) (api.Writer, error) {
	switch cfg.LedgerBackend {
	case config.BackendSheets:
		httpClient, err := client.New(ctx, client.CredentialsFile, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("creating google client: %w", err)
		}
		return sheetswriter.New(httpClient, sheetswriter.Config{
			SheetTitle: cfg.GSheetsTitle,
			SheetID:    cfg.GSheetsID,
			SheetName:  cfg.GSheetsName,
		}, logger.With("component", "sheets_writer"))

	case config.BackendCSV:
		return csvwriter.New(csvwriter.Config{
			FilePath: cfg.CSVPath,
		}, logger.With("component", "csv_writer"))

	case config.BackendJSON:
		return jsonwriter.New(jsonwriter.Config{
			FilePath: cfg.JSONPath,
		}, logger.With("component", "json_writer"))

	case config.BackendPostgres:
		return postgreswriter.New(postgreswriter.Config{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			Database: cfg.PostgresDB,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPassword,
			SSLMode:  cfg.PostgresSSLMode,
		}, logger.With("component", "postgres_writer"))

	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.LedgerBackend)
	}
}
