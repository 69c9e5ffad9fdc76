// Package config loads server configuration from defaults, an optional YAML
// file, a .env file and the process environment, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/abrezinsky/rafflehouse/internal/competition"
	"github.com/abrezinsky/rafflehouse/internal/registry"
)

// Randomness sources
const (
	SourceCrypto = "crypto"
	SourceBeacon = "beacon"
)

// DefaultEnvFile is read when no other env file is named
const DefaultEnvFile = ".env"

// Config is the complete server configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Log        LogConfig        `yaml:"log"`
	Admin      AdminConfig      `yaml:"admin"`
	Protocol   ProtocolConfig   `yaml:"protocol"`
	Keeper     KeeperConfig     `yaml:"keeper"`
	Randomness RandomnessConfig `yaml:"randomness"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
}

type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr" env:"RAFFLEHOUSE_LISTEN_ADDR"`
	// BaseURL seeds the base_url setting when none is stored
	BaseURL string `yaml:"base_url" env:"RAFFLEHOUSE_BASE_URL"`
}

type DatabaseConfig struct {
	Path string `yaml:"path" env:"RAFFLEHOUSE_DB_PATH"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"RAFFLEHOUSE_LOG_LEVEL"`
	Format string `yaml:"format" env:"RAFFLEHOUSE_LOG_FORMAT"`
	HTTP   bool   `yaml:"http" env:"RAFFLEHOUSE_LOG_HTTP"`
}

type AdminConfig struct {
	// Password is generated at startup when empty
	Password string `yaml:"password" env:"RAFFLEHOUSE_ADMIN_PASSWORD"`
}

// ProtocolConfig holds the protocol defaults used until an admin stores new values
type ProtocolConfig struct {
	FeeBasisPoints           uint16 `yaml:"fee_basis_points" env:"RAFFLEHOUSE_FEE_BASIS_POINTS"`
	FeeDestination           string `yaml:"fee_destination" env:"RAFFLEHOUSE_FEE_DESTINATION"`
	RandomnessFee            uint64 `yaml:"randomness_fee" env:"RAFFLEHOUSE_RANDOMNESS_FEE"`
	RandomnessConfirmations  uint16 `yaml:"randomness_confirmations" env:"RAFFLEHOUSE_RANDOMNESS_CONFIRMATIONS"`
	RandomnessCallbackBudget uint32 `yaml:"randomness_callback_budget" env:"RAFFLEHOUSE_RANDOMNESS_CALLBACK_BUDGET"`
	// FeeToken is the symbol randomness fees are paid in
	FeeToken string `yaml:"fee_token" env:"RAFFLEHOUSE_FEE_TOKEN"`
}

// Competition returns the defaults in the shape the registry stores
func (p ProtocolConfig) Competition() competition.ProtocolConfig {
	return competition.ProtocolConfig{
		FeeBasisPoints:           p.FeeBasisPoints,
		FeeDestination:           p.FeeDestination,
		RandomnessFee:            p.RandomnessFee,
		RandomnessConfirmations:  p.RandomnessConfirmations,
		RandomnessCallbackBudget: p.RandomnessCallbackBudget,
	}
}

type KeeperConfig struct {
	Enabled  bool          `yaml:"enabled" env:"RAFFLEHOUSE_KEEPER_ENABLED"`
	Interval time.Duration `yaml:"interval" env:"RAFFLEHOUSE_KEEPER_INTERVAL"`
	Address  string        `yaml:"address" env:"RAFFLEHOUSE_KEEPER_ADDRESS"`
}

type RandomnessConfig struct {
	Source         string        `yaml:"source" env:"RAFFLEHOUSE_RANDOMNESS_SOURCE"`
	BeaconURL      string        `yaml:"beacon_url" env:"RAFFLEHOUSE_BEACON_URL"`
	Address        string        `yaml:"address" env:"RAFFLEHOUSE_COORDINATOR_ADDRESS"`
	BlockInterval  time.Duration `yaml:"block_interval" env:"RAFFLEHOUSE_BLOCK_INTERVAL"`
	MaxCallbackGas uint32        `yaml:"max_callback_gas" env:"RAFFLEHOUSE_MAX_CALLBACK_GAS"`
}

type RateLimitConfig struct {
	// BuyPerSecond of zero disables the limiter
	BuyPerSecond float64 `yaml:"buy_per_second" env:"RAFFLEHOUSE_BUY_PER_SECOND"`
	BuyBurst     int     `yaml:"buy_burst" env:"RAFFLEHOUSE_BUY_BURST"`
}

// Default returns the configuration used when nothing overrides it
func Default() *Config {
	return &Config{
		Server:   ServerConfig{ListenAddr: ":8081"},
		Database: DatabaseConfig{Path: "rafflehouse.db"},
		Log:      LogConfig{Level: "info", Format: "text"},
		Protocol: ProtocolConfig{
			FeeBasisPoints:           0,
			FeeDestination:           "treasury",
			RandomnessFee:            10,
			RandomnessConfirmations:  3,
			RandomnessCallbackBudget: 100000,
			FeeToken:                 "LINK",
		},
		Keeper: KeeperConfig{
			Enabled:  true,
			Interval: 30 * time.Second,
			Address:  "keeper",
		},
		Randomness: RandomnessConfig{
			Source:         SourceCrypto,
			Address:        "coordinator",
			BlockInterval:  2 * time.Second,
			MaxCallbackGas: 2_500_000,
		},
		RateLimit: RateLimitConfig{BuyPerSecond: 5, BuyBurst: 10},
	}
}

// Load builds a Config. path names an optional YAML file; envFiles default to
// .env and are skipped when missing. Variables already set in the process
// environment win over the env files.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{DefaultEnvFile}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
	}

	if err := envdecode.Decode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("failed to decode environment: %w", err)
	}

	cfg.Randomness.Source = strings.ToLower(strings.TrimSpace(cfg.Randomness.Source))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail later at startup
func (c *Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return errors.New("listen address is required")
	}
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	if err := registry.Validate(c.Protocol.Competition()); err != nil {
		return fmt.Errorf("protocol: %w", err)
	}
	if strings.TrimSpace(c.Protocol.FeeToken) == "" {
		return errors.New("fee token symbol is required")
	}
	if c.Keeper.Enabled && c.Keeper.Interval <= 0 {
		return fmt.Errorf("keeper interval must be positive, got %s", c.Keeper.Interval)
	}

	switch c.Randomness.Source {
	case SourceCrypto:
	case SourceBeacon:
		if c.Randomness.BeaconURL == "" {
			return errors.New("beacon URL is required for the beacon randomness source")
		}
	default:
		return fmt.Errorf("unknown randomness source %q", c.Randomness.Source)
	}
	if c.Randomness.BlockInterval < 0 {
		return fmt.Errorf("block interval must not be negative, got %s", c.Randomness.BlockInterval)
	}

	if c.RateLimit.BuyPerSecond < 0 || c.RateLimit.BuyBurst < 0 {
		return errors.New("rate limit values must not be negative")
	}
	if c.RateLimit.BuyPerSecond > 0 && c.RateLimit.BuyBurst == 0 {
		return errors.New("buy burst must be positive when the buy limit is enabled")
	}
	return nil
}
