// Package config holds the application configuration loaded from
// environment variables.
package config

import (
	"errors"
	"fmt"
)

// Ledger backend names accepted in LEDGER_BACKEND.
const (
	BackendSheets   = "sheets"
	BackendCSV      = "csv"
	BackendJSON     = "json"
	BackendPostgres = "postgres"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	// DiscordToken is the bot token for the chat gateway.
	// Environment variable: DISCORD_TOKEN
	DiscordToken string `koanf:"DISCORD_TOKEN"`

	// CommandPrefix is the expense command prefix. Defaults to "!expense".
	// Environment variable: COMMAND_PREFIX
	CommandPrefix string `koanf:"COMMAND_PREFIX"`

	// LedgerBackend selects where records are appended. One of
	// sheets, csv, json, postgres. Defaults to sheets.
	// Environment variable: LEDGER_BACKEND
	LedgerBackend string `koanf:"LEDGER_BACKEND"`

	// GSheetsTitle is the title for a new Google Sheet (used when creating).
	// Environment variable: GSHEETS_TITLE
	GSheetsTitle string `koanf:"GSHEETS_TITLE"`

	// GSheetsID is the ID of an existing Google Sheet to use.
	// Environment variable: GSHEETS_ID
	GSheetsID string `koanf:"GSHEETS_ID"`

	// GSheetsName is the name of the sheet/tab within the spreadsheet.
	// Environment variable: GSHEETS_NAME
	GSheetsName string `koanf:"GSHEETS_NAME"`

	// CSVPath is the output path for the csv backend.
	// Environment variable: CSV_PATH
	CSVPath string `koanf:"CSV_PATH"`

	// JSONPath is the output path for the json backend.
	// Environment variable: JSON_PATH
	JSONPath string `koanf:"JSON_PATH"`

	// Postgres connection settings for the postgres backend.
	PostgresHost     string `koanf:"POSTGRES_HOST"`
	PostgresPort     int    `koanf:"POSTGRES_PORT"`
	PostgresDB       string `koanf:"POSTGRES_DB"`
	PostgresUser     string `koanf:"POSTGRES_USER"`
	PostgresPassword string `koanf:"POSTGRES_PASSWORD"`
	PostgresSSLMode  string `koanf:"POSTGRES_SSLMODE"`

	// HealthAddr is the listen address for the liveness endpoint.
	// Defaults to ":8080". Environment variable: HEALTH_ADDR
	HealthAddr string `koanf:"HEALTH_ADDR"`
}

// ApplyDefaults fills in optional fields.
func (c *Config) ApplyDefaults() {
	if c.CommandPrefix == "" {
		c.CommandPrefix = "!expense"
	}
	if c.LedgerBackend == "" {
		c.LedgerBackend = BackendSheets
	}
	if c.HealthAddr == "" {
		c.HealthAddr = ":8080"
	}
}

// Validate checks that required fields for the selected backend are set.
func (c *Config) Validate() error {
	if c.DiscordToken == "" {
		return errors.New("DISCORD_TOKEN environment variable is required")
	}

	switch c.LedgerBackend {
	case BackendSheets:
		if c.GSheetsName == "" {
			return errors.New("GSHEETS_NAME environment variable is required")
		}
		if c.GSheetsID == "" && c.GSheetsTitle == "" {
			return errors.New("either GSHEETS_ID or GSHEETS_TITLE environment variable is required")
		}
	case BackendCSV:
		if c.CSVPath == "" {
			return errors.New("CSV_PATH environment variable is required")
		}
	case BackendJSON:
		if c.JSONPath == "" {
			return errors.New("JSON_PATH environment variable is required")
		}
	case BackendPostgres:
		if c.PostgresHost == "" || c.PostgresDB == "" || c.PostgresUser == "" {
			return errors.New("POSTGRES_HOST, POSTGRES_DB and POSTGRES_USER environment variables are required")
		}
	default:
		return fmt.Errorf("unknown ledger backend %q", c.LedgerBackend)
	}

	return nil
}
