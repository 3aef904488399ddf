package config

const EnvPrefix = "SMARTINV"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "SMARTINV_APP_ENV"
	EnvPort     = "SMARTINV_APP_PORT"
	EnvLogLevel = "SMARTINV_LOG_LEVEL"

	EnvCORSAllowedOrigins = "SMARTINV_CORS_ALLOWED_ORIGINS"

	EnvDBDSN  = "SMARTINV_DB_DSN"
	EnvDBHost = "SMARTINV_DB_HOST"
	EnvDBUser = "SMARTINV_DB_USER"
	EnvDBName = "SMARTINV_DB_NAME"

	EnvRedisURL = "SMARTINV_REDIS_URL"

	EnvGCPProjectID            = "SMARTINV_GCP_PROJECT_ID"
	EnvPubSubNotificationTopic = "SMARTINV_PUBSUB_NOTIFICATION_TOPIC"

	EnvGuardMaxRetries = "SMARTINV_GUARD_MAX_RETRIES"
	EnvGuardRetryDelay = "SMARTINV_GUARD_RETRY_DELAY"

	EnvReorderCooldown = "SMARTINV_REORDER_COOLDOWN"
	EnvReorderZ        = "SMARTINV_REORDER_Z"

	EnvSchedulerMaintenanceAt    = "SMARTINV_SCHEDULER_MAINTENANCE_AT"
	EnvSchedulerReconciliationAt = "SMARTINV_SCHEDULER_RECONCILIATION_AT"
	EnvSchedulerSelloutReportAt  = "SMARTINV_SCHEDULER_SELLOUT_REPORT_AT"
	EnvSchedulerTimezone         = "SMARTINV_SCHEDULER_TIMEZONE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
