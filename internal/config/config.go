// Package config loads validator settings from a YAML file, environment
// variables and defaults, in that order of precedence: env, file, default.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. TOKEN_LEDGER_RPC_LISTEN.
const EnvPrefix = "TOKEN_LEDGER"

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendBadger   = "badger"
	BackendPostgres = "postgres"
)

// Config is the validator configuration.
type Config struct {
	RPC     RPCConfig     `mapstructure:"rpc"`
	Ledger  LedgerConfig  `mapstructure:"ledger"`
	Storage StorageConfig `mapstructure:"storage"`
	Log     LogConfig     `mapstructure:"log"`
}

// RPCConfig configures the JSON-RPC and WebSocket listener.
type RPCConfig struct {
	Listen          string        `mapstructure:"listen"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LedgerConfig configures the bank.
type LedgerConfig struct {
	ClusterSeed        string        `mapstructure:"cluster_seed"`
	SlotInterval       time.Duration `mapstructure:"slot_interval"`
	BlockhashQueueSize int           `mapstructure:"blockhash_queue_size"`
	// FaucetKeypair is a solana-keygen JSON file; generated on first start when missing.
	FaucetKeypair  string `mapstructure:"faucet_keypair"`
	FaucetLamports uint64 `mapstructure:"faucet_lamports"`
	AirdropLimit   uint64 `mapstructure:"airdrop_limit"`
	// VerifyOnStart audits token supplies before serving and refuses to start on divergence.
	VerifyOnStart bool `mapstructure:"verify_on_start"`
}

// StorageConfig selects where ledger state is kept.
type StorageConfig struct {
	Backend     string `mapstructure:"backend"`
	BadgerPath  string `mapstructure:"badger_path"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
	// ClickHouseDSN enables the instruction event store. Optional.
	ClickHouseDSN string `mapstructure:"clickhouse_dsn"`
}

// LogConfig configures logrus.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		RPC: RPCConfig{
			Listen:          "127.0.0.1:8899",
			ShutdownTimeout: 10 * time.Second,
		},
		Ledger: LedgerConfig{
			ClusterSeed:        "local",
			SlotInterval:       400 * time.Millisecond,
			BlockhashQueueSize: 150,
			FaucetKeypair:      "faucet-keypair.json",
			FaucetLamports:     500_000_000 * 1_000_000_000,
			AirdropLimit:       1_000 * 1_000_000_000,
			VerifyOnStart:      true,
		},
		Storage: StorageConfig{
			Backend:    BackendMemory,
			BadgerPath: "ledger-data",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("rpc.listen", d.RPC.Listen)
	v.SetDefault("rpc.shutdown_timeout", d.RPC.ShutdownTimeout)
	v.SetDefault("ledger.cluster_seed", d.Ledger.ClusterSeed)
	v.SetDefault("ledger.slot_interval", d.Ledger.SlotInterval)
	v.SetDefault("ledger.blockhash_queue_size", d.Ledger.BlockhashQueueSize)
	v.SetDefault("ledger.faucet_keypair", d.Ledger.FaucetKeypair)
	v.SetDefault("ledger.faucet_lamports", d.Ledger.FaucetLamports)
	v.SetDefault("ledger.airdrop_limit", d.Ledger.AirdropLimit)
	v.SetDefault("ledger.verify_on_start", d.Ledger.VerifyOnStart)
	v.SetDefault("storage.backend", d.Storage.Backend)
	v.SetDefault("storage.badger_path", d.Storage.BadgerPath)
	v.SetDefault("storage.postgres_dsn", d.Storage.PostgresDSN)
	v.SetDefault("storage.clickhouse_dsn", d.Storage.ClickHouseDSN)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// NewViper returns a viper instance with defaults and env overrides bound.
// Command-line flags are bound onto it by the caller.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, Default())
	return v
}

// Load reads the config file at path into v, if any, and decodes the result.
// An empty path looks for config.yaml in the working directory and tolerates its absence.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that would otherwise fail late.
func (c *Config) Validate() error {
	if c.RPC.Listen == "" {
		return errors.New("config: rpc.listen is required")
	}
	if c.Ledger.SlotInterval <= 0 {
		return fmt.Errorf("config: ledger.slot_interval must be positive, got %s", c.Ledger.SlotInterval)
	}
	if c.Ledger.BlockhashQueueSize <= 0 {
		return fmt.Errorf("config: ledger.blockhash_queue_size must be positive, got %d", c.Ledger.BlockhashQueueSize)
	}
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendBadger:
		if c.Storage.BadgerPath == "" {
			return errors.New("config: storage.badger_path is required for the badger backend")
		}
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			return errors.New("config: storage.postgres_dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("config: unknown storage.backend %q (options: memory, badger, postgres)", c.Storage.Backend)
	}
	return nil
}
