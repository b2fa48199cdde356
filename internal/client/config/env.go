package config

import "github.com/dmitrijs2005/passkeeper/internal/envx"

// Environment variables recognized by the client.
const (
	EnvServerAddr          = "PASSKEEPER_ENDPOINT"
	EnvOnlineCheckInterval = "PASSKEEPER_ONLINE_CHECK_INTERVAL"
	EnvRequestTimeout      = "PASSKEEPER_REQUEST_TIMEOUT"
	EnvStorageDriver       = "PASSKEEPER_STORAGE"
	EnvDataPath            = "PASSKEEPER_DATA"
	EnvKeepVersions        = "PASSKEEPER_KEEP_VERSIONS"
	EnvLogLevel            = "PASSKEEPER_LOG_LEVEL"
)

func parseEnv(cfg *Config) {
	if err := envx.LoadDotEnv(); err != nil {
		panic(err)
	}

	envx.String(&cfg.ServerEndpointAddr, EnvServerAddr)
	envx.Duration(&cfg.OnlineCheckInterval, EnvOnlineCheckInterval)
	envx.Duration(&cfg.RequestTimeout, EnvRequestTimeout)
	envx.String(&cfg.StorageDriver, EnvStorageDriver)
	envx.String(&cfg.DataPath, EnvDataPath)
	envx.Int(&cfg.KeepVersions, EnvKeepVersions)
	envx.String(&cfg.LogLevel, EnvLogLevel)
}
