package config

const (
	EnvPrefix = "PALLETFLOW"

	AppEnvDev = "dev"

	StoreBackendPostgres = "postgres"
	StoreBackendSQLite   = "sqlite"
	StoreBackendXLSX     = "xlsx"

	EnvAppEnv            = "PALLETFLOW_APP_ENV"
	EnvPort              = "PALLETFLOW_APP_PORT"
	EnvLogLevel          = "PALLETFLOW_LOG_LEVEL"
	EnvStoreBackend      = "PALLETFLOW_STORE_BACKEND"
	EnvStoreWorkbookPath = "PALLETFLOW_STORE_WORKBOOK_PATH"
	EnvDBDSN             = "PALLETFLOW_DB_DSN"
	EnvDBHost            = "PALLETFLOW_DB_HOST"
	EnvDBUser            = "PALLETFLOW_DB_USER"
	EnvDBPassword        = "PALLETFLOW_DB_PASSWORD"
	EnvDBName            = "PALLETFLOW_DB_NAME"
	EnvRedisURL          = "PALLETFLOW_REDIS_URL"
	EnvPipelineLockTTL   = "PALLETFLOW_PIPELINE_LOCK_TTL"
	EnvSkipExpiryOnEmpty = "PALLETFLOW_PIPELINE_SKIP_EXPIRY_ON_EMPTY"
	EnvGCPProjectID      = "PALLETFLOW_GCP_PROJECT_ID"
	EnvPubSubBuildSub    = "PALLETFLOW_PUBSUB_BUILD_EVENTS_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
