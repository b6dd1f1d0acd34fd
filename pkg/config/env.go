package config

const (
	EnvPrefix = "PHARMALINK"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv                 = "PHARMALINK_APP_ENV"
	EnvPort                   = "PHARMALINK_APP_PORT"
	EnvDBDSN                  = "PHARMALINK_DB_DSN"
	EnvDBHost                 = "PHARMALINK_DB_HOST"
	EnvDBUser                 = "PHARMALINK_DB_USER"
	EnvDBName                 = "PHARMALINK_DB_NAME"
	EnvDBPassword             = "PHARMALINK_DB_PASSWORD"
	EnvRedisURL               = "PHARMALINK_REDIS_URL"
	EnvJWTSecret              = "PHARMALINK_JWT_SECRET"
	EnvJWTIssuer              = "PHARMALINK_JWT_ISSUER"
	EnvJWTExpMins             = "PHARMALINK_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "PHARMALINK_REFRESH_TOKEN_TTL_MINUTES"
	EnvMainAdminUsername      = "MAIN_ADMIN_USERNAME"
	EnvMainAdminPassword      = "MAIN_ADMIN_PASSWORD"
	EnvGoogleClientID         = "PHARMALINK_GOOGLE_CLIENT_ID"
)

var discreteDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
