package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml"
)

// Config is the CLI configuration, read from a TOML file. Every field has
// a workable default so a config file is optional.
type Config struct {
	Database  string `toml:"database"`   // path to the sqlite ledger file
	Portfolio string `toml:"portfolio"`  // portfolio id to operate on
	Currency  string `toml:"currency"`   // base currency for new portfolios
	User      string `toml:"user"`       // actor recorded on manual postings
	FxService string `toml:"fx_service"` // exchange rate endpoint, empty for the default
	// Materiality is the smallest base-currency revaluation delta worth
	// posting. Zero keeps the built-in threshold.
	Materiality float64 `toml:"materiality"`
	Verbose     bool    `toml:"verbose"`
}

// DefaultConfigPath is where the CLI looks for its configuration when the
// -config flag is not set.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "folio.toml"
	}
	return filepath.Join(home, ".config", "folio", "folio.toml")
}

// LoadConfig reads the TOML configuration at path. A missing file is not
// an error; defaults apply.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		Database:  "folio.db",
		Portfolio: "main",
		Currency:  "EUR",
		User:      os.Getenv("USER"),
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("reading config %q: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %q: %w", path, err)
	}
	return cfg, nil
}
