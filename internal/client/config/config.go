package config

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/passkeeper/internal/common"
)

// Storage drivers accepted in Config.StorageDriver.
const (
	DriverSQLite = "sqlite"
	DriverBolt   = "bolt"
)

// Config holds runtime settings for the passkeeper CLI.
//
// Fields:
//   - ServerEndpointAddr: host:port of the backend gRPC endpoint.
//   - OnlineCheckInterval: how often the client probes server reachability.
//   - RequestTimeout: upper bound for a single remote call.
//   - StorageDriver: local store backend, "sqlite" or "bolt".
//   - DataPath: file holding the local store.
//   - KeepVersions: content versions kept per passfile besides the merge base.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	ServerEndpointAddr  string
	OnlineCheckInterval time.Duration
	RequestTimeout      time.Duration
	StorageDriver       string
	DataPath            string
	KeepVersions        int
	LogLevel            string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.OnlineCheckInterval = 3 * time.Second
	c.RequestTimeout = 5 * time.Second
	c.StorageDriver = DriverSQLite
	c.DataPath = "passkeeper.db"
	c.KeepVersions = 2
	c.LogLevel = "warn"
}

// Validate reports settings the client cannot start with.
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case DriverSQLite, DriverBolt:
	default:
		return fmt.Errorf("%w: unknown storage driver %q", common.ErrValidation, c.StorageDriver)
	}
	if c.DataPath == "" {
		return fmt.Errorf("%w: data path is empty", common.ErrValidation)
	}
	if c.KeepVersions < 1 {
		return fmt.Errorf("%w: keep versions must be at least 1, got %d", common.ErrValidation, c.KeepVersions)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: request timeout must be positive", common.ErrValidation)
	}
	return nil
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// the environment, JSON (if present) and command-line flags (if present).
// Later sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
