// Package config loads tool-server configuration from the environment,
// optionally seeded from a .env file.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/forecastlab/polymarket-tools/pkg/eth"
	"github.com/forecastlab/polymarket-tools/pkg/polymarket/clob"
	"github.com/forecastlab/polymarket-tools/pkg/polymarket/gamma"

	"github.com/joho/godotenv"
)

// Config holds the tool-server settings.
type Config struct {
	PrivateKey string
	Funder     string
	ChainID    int64

	// L2 credential triple; all three or none.
	APIKey        string
	APISecret     string
	APIPassphrase string

	ReadOnly bool

	CLOBBaseURL  string
	GammaBaseURL string
	HTTPAddr     string
}

// Load reads configuration from the environment. A .env file in the
// working directory is merged in first when present; real environment
// variables win.
func Load() (*Config, error) {
	// Missing .env is fine; the environment may carry everything.
	_ = godotenv.Load()

	cfg := &Config{
		PrivateKey:    os.Getenv("POLYMARKET_PRIVATE_KEY"),
		Funder:        os.Getenv("POLYMARKET_FUNDER"),
		ChainID:       clob.ChainIDPolygon,
		APIKey:        os.Getenv("POLYMARKET_API_KEY"),
		APISecret:     os.Getenv("POLYMARKET_API_SECRET"),
		APIPassphrase: os.Getenv("POLYMARKET_API_PASSPHRASE"),
		CLOBBaseURL:   envOr("CLOB_BASE_URL", clob.DefaultBaseURL),
		GammaBaseURL:  envOr("GAMMA_BASE_URL", gamma.DefaultBaseURL),
		HTTPAddr:      envOr("HTTP_ADDR", ":8080"),
	}

	if cfg.PrivateKey == "" {
		return nil, fmt.Errorf("POLYMARKET_PRIVATE_KEY is required")
	}

	if v := os.Getenv("POLYMARKET_CHAIN_ID"); v != "" {
		chainID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid POLYMARKET_CHAIN_ID: %w", err)
		}
		cfg.ChainID = chainID
	}

	if v := os.Getenv("POLYMARKET_READ_ONLY"); v != "" {
		readOnly, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid POLYMARKET_READ_ONLY: %w", err)
		}
		cfg.ReadOnly = readOnly
	}

	if err := cfg.validateCredentials(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateCredentials rejects a partial credential triple, which would
// otherwise fail opaquely on the first authenticated request.
func (c *Config) validateCredentials() error {
	set := 0
	for _, v := range []string{c.APIKey, c.APISecret, c.APIPassphrase} {
		if v != "" {
			set++
		}
	}
	if set != 0 && set != 3 {
		return fmt.Errorf("POLYMARKET_API_KEY, POLYMARKET_API_SECRET, and POLYMARKET_API_PASSPHRASE must be set together")
	}
	return nil
}

// Credentials returns the L2 credential triple, or nil when not
// configured.
func (c *Config) Credentials() *eth.Credentials {
	if c.APIKey == "" {
		return nil
	}
	return &eth.Credentials{
		APIKey:     c.APIKey,
		Secret:     c.APISecret,
		Passphrase: c.APIPassphrase,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
