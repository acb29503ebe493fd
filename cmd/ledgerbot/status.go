package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/ledgerbot/ledgerbot/pkg/client"
	"github.com/ledgerbot/ledgerbot/pkg/config"
)

// runStatus checks configuration, credentials and ledger connectivity.
func runStatus(logger *slog.Logger) error {
	fmt.Println("=== Ledgerbot Status ===")
	fmt.Println()

	allGood := true

	fmt.Print("Configuration: ")
	cfg, err := loadConfig()
	if err != nil {
		fmt.Printf("✗ %v\n", err)
		allGood = false
	} else {
		fmt.Printf("✓ backend=%s prefix=%s\n", cfg.LedgerBackend, cfg.CommandPrefix)
	}

	if cfg != nil && cfg.LedgerBackend == config.BackendSheets {
		checkSheets(cfg, logger, &allGood)
	}

	fmt.Println()
	if allGood {
		fmt.Println("All checks passed. Run 'ledgerbot run' to start the bot.")
		return nil
	}
	fmt.Println("Some checks failed, see above.")
	return nil
}

func checkSheets(cfg *config.Config, logger *slog.Logger, allGood *bool) {
	fmt.Printf("Credentials file (%s): ", client.CredentialsFile)
	if _, err := os.Stat(client.CredentialsFile); err != nil {
		fmt.Printf("✗ %v\n", err)
		*allGood = false
		return
	}
	fmt.Println("✓ Found")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	fmt.Print("Sheets API: ")
	httpClient, err := client.New(ctx, client.CredentialsFile, sheets.SpreadsheetsScope)
	if err != nil {
		fmt.Printf("✗ %v\n", err)
		*allGood = false
		return
	}

	svc, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		fmt.Printf("✗ %v\n", err)
		*allGood = false
		return
	}

	if cfg.GSheetsID == "" {
		fmt.Println("✓ Authenticated (no GSHEETS_ID set, a sheet will be created on first run)")
		return
	}

	spreadsheet, err := svc.Spreadsheets.Get(cfg.GSheetsID).Context(ctx).Do()
	if err != nil {
		fmt.Printf("✗ %v\n", err)
		*allGood = false
		return
	}
	fmt.Printf("✓ Reachable (%s)\n", spreadsheet.Properties.Title)

	logger.Debug("sheets check complete", "spreadsheet_id", cfg.GSheetsID)
}
