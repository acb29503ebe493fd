package config

import "testing"

func validSheetsConfig() Config {
	return Config{
		DiscordToken: "token",
		GSheetsName:  "Expenses",
		GSheetsID:    "abc123",
	}
}

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	if cfg.CommandPrefix != "!expense" {
		t.Errorf("prefix: got %q, want %q", cfg.CommandPrefix, "!expense")
	}
	if cfg.LedgerBackend != BackendSheets {
		t.Errorf("backend: got %q, want %q", cfg.LedgerBackend, BackendSheets)
	}
	if cfg.HealthAddr != ":8080" {
		t.Errorf("health addr: got %q, want %q", cfg.HealthAddr, ":8080")
	}
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := Config{CommandPrefix: "!spent", LedgerBackend: BackendCSV, HealthAddr: ":9000"}
	cfg.ApplyDefaults()

	if cfg.CommandPrefix != "!spent" || cfg.LedgerBackend != BackendCSV || cfg.HealthAddr != ":9000" {
		t.Errorf("defaults overwrote explicit values: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid sheets config", func(c *Config) {}, false},
		{"missing token", func(c *Config) { c.DiscordToken = "" }, true},
		{"missing sheet name", func(c *Config) { c.GSheetsName = "" }, true},
		{
			"title instead of id",
			func(c *Config) { c.GSheetsID = ""; c.GSheetsTitle = "Expenses 2023" },
			false,
		},
		{
			"neither id nor title",
			func(c *Config) { c.GSheetsID = "" },
			true,
		},
		{
			"csv backend without path",
			func(c *Config) { c.LedgerBackend = BackendCSV },
			true,
		},
		{
			"csv backend with path",
			func(c *Config) { c.LedgerBackend = BackendCSV; c.CSVPath = "ledger.csv" },
			false,
		},
		{
			"json backend with path",
			func(c *Config) { c.LedgerBackend = BackendJSON; c.JSONPath = "ledger.json" },
			false,
		},
		{
			"postgres backend incomplete",
			func(c *Config) { c.LedgerBackend = BackendPostgres; c.PostgresHost = "localhost" },
			true,
		},
		{
			"postgres backend complete",
			func(c *Config) {
				c.LedgerBackend = BackendPostgres
				c.PostgresHost = "localhost"
				c.PostgresDB = "ledgerbot"
				c.PostgresUser = "ledgerbot"
			},
			false,
		},
		{
			"unknown backend",
			func(c *Config) { c.LedgerBackend = "bigquery" },
			true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validSheetsConfig()
			cfg.ApplyDefaults()
			tc.mutate(&cfg)

			err := cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate: got err=%v, wantErr=%v", err, tc.wantErr)
			}
		})
	}
}
