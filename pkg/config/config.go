package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	API           APIConfig
	DB            DBConfig
	Redis         RedisConfig
	FeatureFlags  FeatureFlagsConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	BigQuery      BigQueryConfig
	OpenAI        OpenAIConfig
	Notifications NotificationsConfig
	Guard         GuardConfig
	Forecast      ForecastConfig
	Reorder       ReorderConfig
	Sweep         SweepConfig
	Scheduler     SchedulerConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Scheduler.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SMARTINV_APP_ENV" required:"true"`
	Port         string `envconfig:"SMARTINV_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"SMARTINV_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"SMARTINV_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"SMARTINV_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SMARTINV_SERVICE_KIND" default:"api"`
}

type APIConfig struct {
	CORSAllowedOrigins []string      `envconfig:"SMARTINV_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	RateLimitWindow    time.Duration `envconfig:"SMARTINV_RATE_LIMIT_WINDOW" default:"1m"`
	RateLimitPerIP     int           `envconfig:"SMARTINV_RATE_LIMIT_PER_IP" default:"120"`
	IdempotencyTTL     time.Duration `envconfig:"SMARTINV_IDEMPOTENCY_TTL" default:"24h"`
}

type DBConfig struct {
	DSN    string `envconfig:"SMARTINV_DB_DSN"`
	Driver string `envconfig:"SMARTINV_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SMARTINV_DB_HOST"`
	LegacyPort     int    `envconfig:"SMARTINV_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SMARTINV_DB_USER"`
	LegacyPassword string `envconfig:"SMARTINV_DB_PASSWORD"`
	LegacyName     string `envconfig:"SMARTINV_DB_NAME"`
	LegacySSLMode  string `envconfig:"SMARTINV_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SMARTINV_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SMARTINV_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SMARTINV_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SMARTINV_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"SMARTINV_DB_SLOW_QUERY_THRESHOLD" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SMARTINV_REDIS_URL"`
	Address      string        `envconfig:"SMARTINV_REDIS_ADDR"`
	Password     string        `envconfig:"SMARTINV_REDIS_PASSWORD"`
	DB           int           `envconfig:"SMARTINV_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SMARTINV_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SMARTINV_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SMARTINV_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SMARTINV_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SMARTINV_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether any redis endpoint is configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type FeatureFlagsConfig struct {
	AutoMigrate         bool `envconfig:"SMARTINV_AUTO_MIGRATE" default:"false"`
	DistributedGuard    bool `envconfig:"SMARTINV_DISTRIBUTED_GUARD" default:"false"`
	PubSubNotifications bool `envconfig:"SMARTINV_PUBSUB_NOTIFICATIONS" default:"false"`
	BigQueryHistory     bool `envconfig:"SMARTINV_BIGQUERY_HISTORY" default:"false"`
	AIForecast          bool `envconfig:"SMARTINV_AI_FORECAST" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"SMARTINV_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"SMARTINV_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"SMARTINV_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	NotificationTopic string        `envconfig:"SMARTINV_PUBSUB_NOTIFICATION_TOPIC" default:"si-notification-events"`
	BatchDelay        time.Duration `envconfig:"SMARTINV_PUBSUB_BATCH_DELAY" default:"50ms"`
	PublishTimeout    time.Duration `envconfig:"SMARTINV_PUBSUB_PUBLISH_TIMEOUT" default:"30s"`
}

type BigQueryConfig struct {
	Dataset          string `envconfig:"SMARTINV_BIGQUERY_DATASET" default:"smart_inventory"`
	DailySalesTable  string `envconfig:"SMARTINV_BIGQUERY_DAILY_SALES_TABLE" default:"product_daily_sales"`
	Location         string `envconfig:"SMARTINV_BIGQUERY_LOCATION" default:"US"`
	AutoCreateTables bool   `envconfig:"SMARTINV_BIGQUERY_AUTO_CREATE_TABLES" default:"true"`
}

type OpenAIConfig struct {
	APIKey            string        `envconfig:"SMARTINV_OPENAI_API_KEY"`
	Model             string        `envconfig:"SMARTINV_OPENAI_MODEL" default:"gpt-4o-mini"`
	BaseURL           string        `envconfig:"SMARTINV_OPENAI_BASE_URL"`
	Timeout           time.Duration `envconfig:"SMARTINV_OPENAI_TIMEOUT" default:"20s"`
	RequestsPerMinute int           `envconfig:"SMARTINV_OPENAI_RPM" default:"30"`
}

type NotificationsConfig struct {
	AdminEmail string `envconfig:"SMARTINV_ADMIN_EMAIL" default:"admin@example.com"`
	FromEmail  string `envconfig:"SMARTINV_FROM_EMAIL" default:"inventory@example.com"`
}

type GuardConfig struct {
	MaxRetries int           `envconfig:"SMARTINV_GUARD_MAX_RETRIES" default:"5"`
	RetryDelay time.Duration `envconfig:"SMARTINV_GUARD_RETRY_DELAY" default:"200ms"`
	LockTTL    time.Duration `envconfig:"SMARTINV_GUARD_LOCK_TTL" default:"30s"`
}

type ForecastConfig struct {
	VelocityWindowDays int           `envconfig:"SMARTINV_FORECAST_VELOCITY_WINDOW_DAYS" default:"30"`
	TrendWindowDays    int           `envconfig:"SMARTINV_FORECAST_TREND_WINDOW_DAYS" default:"60"`
	HorizonDays        int           `envconfig:"SMARTINV_FORECAST_HORIZON_DAYS" default:"30"`
	MinConfidence      float64       `envconfig:"SMARTINV_FORECAST_MIN_CONFIDENCE" default:"0.3"`
	Comparables        int           `envconfig:"SMARTINV_FORECAST_COMPARABLES" default:"5"`
	BatchSize          int           `envconfig:"SMARTINV_FORECAST_BATCH_SIZE" default:"10"`
	BatchPause         time.Duration `envconfig:"SMARTINV_FORECAST_BATCH_PAUSE" default:"1s"`
}

type ReorderConfig struct {
	ServiceLevelZ        float64       `envconfig:"SMARTINV_REORDER_Z" default:"1.65"`
	DemandStdDevRatio    float64       `envconfig:"SMARTINV_REORDER_DEMAND_STDDEV_RATIO" default:"0.3"`
	OrderingCostRatio    float64       `envconfig:"SMARTINV_REORDER_ORDERING_COST_RATIO" default:"0.05"`
	HoldingCostRatio     float64       `envconfig:"SMARTINV_REORDER_HOLDING_COST_RATIO" default:"0.2"`
	DefaultLeadTimeDays  int           `envconfig:"SMARTINV_REORDER_DEFAULT_LEAD_TIME_DAYS" default:"7"`
	MinDailyDemand       float64       `envconfig:"SMARTINV_REORDER_MIN_DAILY_DEMAND" default:"0.1"`
	MinCoverDays         int           `envconfig:"SMARTINV_REORDER_MIN_COVER_DAYS" default:"7"`
	FallbackReorderPoint int           `envconfig:"SMARTINV_REORDER_FALLBACK_POINT" default:"5"`
	FallbackOrderQty     int           `envconfig:"SMARTINV_REORDER_FALLBACK_QTY" default:"10"`
	Cooldown             time.Duration `envconfig:"SMARTINV_REORDER_COOLDOWN" default:"72h"`
	HighPriorityRatio    float64       `envconfig:"SMARTINV_REORDER_HIGH_RATIO" default:"0.5"`
	MediumPriorityRatio  float64       `envconfig:"SMARTINV_REORDER_MEDIUM_RATIO" default:"0.75"`
}

type SweepConfig struct {
	BatchSize           int           `envconfig:"SMARTINV_SWEEP_BATCH_SIZE" default:"10"`
	BatchPause          time.Duration `envconfig:"SMARTINV_SWEEP_BATCH_PAUSE" default:"500ms"`
	StockoutLookAhead   int           `envconfig:"SMARTINV_SWEEP_STOCKOUT_LOOKAHEAD_DAYS" default:"14"`
	SalesHistoryDays    int           `envconfig:"SMARTINV_SWEEP_SALES_HISTORY_DAYS" default:"90"`
	DefaultLowThreshold int           `envconfig:"SMARTINV_SWEEP_DEFAULT_THRESHOLD" default:"2"`
	// cart_items requires a cart service writing that table in the same database.
	ReservationGroundTruth string `envconfig:"SMARTINV_SWEEP_GROUND_TRUTH" default:"ledger"`
}

type SchedulerConfig struct {
	ForecastInterval    time.Duration `envconfig:"SMARTINV_SCHEDULER_FORECAST_INTERVAL" default:"24h"`
	AutoReorderInterval time.Duration `envconfig:"SMARTINV_SCHEDULER_AUTO_REORDER_INTERVAL" default:"6h"`
	MaintenanceAt       string        `envconfig:"SMARTINV_SCHEDULER_MAINTENANCE_AT" default:"01:00"`
	ReconciliationAt    string        `envconfig:"SMARTINV_SCHEDULER_RECONCILIATION_AT" default:"03:00"`
	SelloutReportAt     string        `envconfig:"SMARTINV_SCHEDULER_SELLOUT_REPORT_AT" default:"09:00"`
	Timezone            string        `envconfig:"SMARTINV_SCHEDULER_TIMEZONE" default:"UTC"`
	TickLockTTL         time.Duration `envconfig:"SMARTINV_SCHEDULER_TICK_LOCK_TTL" default:"1h"`
}

// Location resolves the configured timezone, falling back to UTC.
func (s SchedulerConfig) Location() *time.Location {
	loc, err := time.LoadLocation(strings.TrimSpace(s.Timezone))
	if err != nil || loc == nil {
		return time.UTC
	}
	return loc
}

func (s SchedulerConfig) validate() error {
	for env, value := range map[string]string{
		EnvSchedulerMaintenanceAt:    s.MaintenanceAt,
		EnvSchedulerReconciliationAt: s.ReconciliationAt,
		EnvSchedulerSelloutReportAt:  s.SelloutReportAt,
	} {
		if _, err := time.Parse("15:04", strings.TrimSpace(value)); err != nil {
			return fmt.Errorf("%s must be HH:MM: %w", env, err)
		}
	}
	return nil
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
