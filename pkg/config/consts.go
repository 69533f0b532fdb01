package config

// EnvPrefix scopes every FreshLane environment variable.
const EnvPrefix = "FRESHLANE"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Environment variable names used by tests and tooling.
const (
	EnvAppEnv     = "FRESHLANE_APP_ENV"
	EnvPort       = "FRESHLANE_APP_PORT"
	EnvDBDSN      = "FRESHLANE_DB_DSN"
	EnvDBHost     = "FRESHLANE_DB_HOST"
	EnvDBUser     = "FRESHLANE_DB_USER"
	EnvDBName     = "FRESHLANE_DB_NAME"
	EnvRedisURL   = "FRESHLANE_REDIS_URL"
	EnvJWTSecret  = "FRESHLANE_JWT_SECRET"
	EnvJWTIssuer  = "FRESHLANE_JWT_ISSUER"
	EnvJWTExpMins = "FRESHLANE_JWT_EXPIRATION_MINUTES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
