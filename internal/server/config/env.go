package config

import "github.com/dmitrijs2005/passkeeper/internal/envx"

// Environment variables recognized by the server.
const (
	EnvAddr            = "PASSKEEPER_SERVER_ADDR"
	EnvDatabaseDSN     = "PASSKEEPER_SERVER_DSN"
	EnvSecretKey       = "PASSKEEPER_SECRET_KEY"
	EnvAccessTokenTTL  = "PASSKEEPER_ACCESS_TOKEN_TTL"
	EnvRefreshTokenTTL = "PASSKEEPER_REFRESH_TOKEN_TTL"
	EnvLogLevel        = "PASSKEEPER_LOG_LEVEL"
)

func parseEnv(config *Config) {
	if err := envx.LoadDotEnv(); err != nil {
		panic(err)
	}

	envx.String(&config.EndpointAddrGRPC, EnvAddr)
	envx.String(&config.DatabaseDSN, EnvDatabaseDSN)
	envx.String(&config.SecretKey, EnvSecretKey)
	envx.Duration(&config.AccessTokenValidityDuration, EnvAccessTokenTTL)
	envx.Duration(&config.RefreshTokenValidityDuration, EnvRefreshTokenTTL)
	envx.String(&config.LogLevel, EnvLogLevel)
}
