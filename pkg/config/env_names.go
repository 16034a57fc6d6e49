package config

// EnvPrefix is passed to envconfig; individual fields carry explicit
// KARTFORCE_* names so the prefix only matters for unannotated fields.
const EnvPrefix = "kartforce"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

const (
	EnvAppEnv     = "KARTFORCE_APP_ENV"
	EnvPort       = "KARTFORCE_APP_PORT"
	EnvDBDSN      = "KARTFORCE_DB_DSN"
	EnvDBHost     = "KARTFORCE_DB_HOST"
	EnvDBUser     = "KARTFORCE_DB_USER"
	EnvDBName     = "KARTFORCE_DB_NAME"
	EnvRedisURL   = "KARTFORCE_REDIS_URL"
	EnvJWTSecret  = "KARTFORCE_JWT_SECRET"
	EnvJWTIssuer  = "KARTFORCE_JWT_ISSUER"
	EnvJWTExpMins = "KARTFORCE_JWT_EXPIRATION_MINUTES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
