package config

// EnvPrefix is passed to envconfig; individual fields carry explicit names.
const EnvPrefix = "FIXIT"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv    = "FIXIT_APP_ENV"
	EnvPort      = "FIXIT_APP_PORT"
	EnvDBDSN     = "FIXIT_DB_DSN"
	EnvDBHost    = "FIXIT_DB_HOST"
	EnvDBUser    = "FIXIT_DB_USER"
	EnvDBName    = "FIXIT_DB_NAME"
	EnvRedisURL  = "FIXIT_REDIS_URL"
	EnvJWTSecret = "FIXIT_JWT_SECRET"
	EnvJWTIssuer = "FIXIT_JWT_ISSUER"
	EnvJWTExp    = "FIXIT_JWT_EXPIRATION_MINUTES"

	EnvGatewayBaseURL = "FIXIT_GATEWAY_BASE_URL"

	EnvGCPProjectID       = "FIXIT_GCP_PROJECT_ID"
	EnvPubSubDomainTopic  = "FIXIT_PUBSUB_DOMAIN_TOPIC"
	EnvPubSubDomainSubscr = "FIXIT_PUBSUB_DOMAIN_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
