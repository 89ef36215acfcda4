/**
 * @description
 * This file is responsible for managing the application's configuration.
 * It loads environment variables from a .env file and the system environment,
 * making them available to the rest of the application in a structured format.
 *
 * Key features:
 * - Structured Config: Defines a `Config` struct to hold all configuration parameters.
 * - .env Loading: Uses the `godotenv` library to load variables from a `.env.local` file,
 *   which is ideal for local development.
 * - Tag-driven Parsing: Uses `caarlos0/env` to map environment variables onto the struct,
 *   including defaults and duration parsing.
 */

package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// ErrMissingAPIKey is returned when the Chainrails API key is not configured.
// The session endpoint cannot mint tokens without it, so the server refuses to start.
var ErrMissingAPIKey = errors.New("CHAINRAILS_API_KEY is not set")

// Config holds all configuration for the application.
// Values are read from environment variables or a .env file.
type Config struct {
	Port string `env:"PORT" envDefault:"3000"`

	// ChainrailsAPIKey is the server-held secret used to mint payment session tokens.
	// It is never sent to clients.
	ChainrailsAPIKey string `env:"CHAINRAILS_API_KEY"`
	ChainrailsAPIURL string `env:"CHAINRAILS_API_URL" envDefault:"https://api.chainrails.io/api/v1"`

	// SessionBaseURL is the public origin of this server, used by clients to build
	// the hosted session URL.
	SessionBaseURL string `env:"SESSION_BASE_URL" envDefault:"https://death-mountain.vercel.app"`

	// TicketShopURL is where players without a payment method buy tickets.
	TicketShopURL string `env:"TICKET_SHOP_URL"`

	EkuboAPIURL string `env:"EKUBO_API_URL" envDefault:"https://starknet-mainnet-api.ekubo.org/quote"`
	Network     string `env:"NETWORK" envDefault:"SN_MAIN"`

	// Optional infrastructure. Empty values disable the corresponding component.
	DatabaseURL       string `env:"DATABASE_URL"`
	RedisURL          string `env:"REDIS_URL"`
	EntryRelayAddress string `env:"ENTRY_RELAY_ADDRESS"`

	QuoteCacheTTL     time.Duration `env:"QUOTE_CACHE_TTL" envDefault:"15s"`
	QuoteFeedInterval time.Duration `env:"QUOTE_FEED_INTERVAL" envDefault:"15s"`
	SlippageBps       int64         `env:"SLIPPAGE_BPS" envDefault:"100"`
}

/**
 * @description
 * LoadConfig reads configuration from environment variables and/or a .env.local file
 * located in the specified path.
 *
 * @param path The path to the directory containing the .env.local file.
 * @returns A Config struct populated with the loaded values, or an error if loading fails.
 *
 * @notes
 * - It first attempts to load from a .env.local file, then falls back to .env. If neither
 *   exists, it proceeds assuming environment variables are set directly.
 */
func LoadConfig(path string) (config Config, err error) {
	loadEnvFiles(path)
	return Parse()
}

// LoadClientConfig is LoadConfig for tools that call the session endpoint instead
// of minting sessions themselves; CHAINRAILS_API_KEY may be empty.
func LoadClientConfig(path string) (Config, error) {
	loadEnvFiles(path)
	return parse(false)
}

func loadEnvFiles(path string) {
	envLocalPath := filepath.Join(path, ".env.local")
	envPath := filepath.Join(path, ".env")

	if err := godotenv.Load(envLocalPath); err != nil {
		_ = godotenv.Load(envPath)
	}
}

// Parse reads the process environment into a Config without touching .env files.
func Parse() (Config, error) {
	return parse(true)
}

func parse(requireAPIKey bool) (Config, error) {
	var config Config
	if err := env.Parse(&config); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if requireAPIKey && config.ChainrailsAPIKey == "" {
		return Config{}, ErrMissingAPIKey
	}
	if config.SlippageBps < 0 || config.SlippageBps > 10_000 {
		return Config{}, fmt.Errorf("SLIPPAGE_BPS out of range: %d", config.SlippageBps)
	}
	return config, nil
}
