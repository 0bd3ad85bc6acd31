package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	Store        StoreConfig
	DB           DBConfig
	Redis        RedisConfig
	Pipeline     PipelineConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Store.validate(); err != nil {
		return nil, err
	}
	if cfg.Store.UsesSQL() {
		if err := cfg.DB.ensureDSN(cfg.Store.Backend); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PALLETFLOW_APP_ENV" required:"true"`
	Port         string `envconfig:"PALLETFLOW_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"PALLETFLOW_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PALLETFLOW_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"PALLETFLOW_LOG_FORMAT" default:"json"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

type ServiceConfig struct {
	Kind string `envconfig:"PALLETFLOW_SERVICE_KIND" default:"api"`
}

// StoreConfig selects where the four warehouse tables live.
type StoreConfig struct {
	Backend           string `envconfig:"PALLETFLOW_STORE_BACKEND" default:"postgres"`
	WorkbookPath      string `envconfig:"PALLETFLOW_STORE_WORKBOOK_PATH"`
	BuildSheet        string `envconfig:"PALLETFLOW_STORE_BUILD_SHEET" default:"Pallet_Build_IB_04"`
	LedgerSheet       string `envconfig:"PALLETFLOW_STORE_LEDGER_SHEET" default:"Pallet_Transaction_Ledger"`
	StatusSheet       string `envconfig:"PALLETFLOW_STORE_STATUS_SHEET" default:"Pallet_Status_02"`
	GRNSheet          string `envconfig:"PALLETFLOW_STORE_GRN_SHEET" default:"GRN_Entry_IB_01"`
	DecorateOccupancy bool   `envconfig:"PALLETFLOW_STORE_DECORATE_OCCUPANCY" default:"false"`
}

// UsesSQL reports whether the backend is served by gorm.
func (s StoreConfig) UsesSQL() bool {
	switch strings.ToLower(strings.TrimSpace(s.Backend)) {
	case StoreBackendPostgres, StoreBackendSQLite:
		return true
	}
	return false
}

// UsesWorkbook reports whether the backend is an xlsx workbook.
func (s StoreConfig) UsesWorkbook() bool {
	return strings.EqualFold(strings.TrimSpace(s.Backend), StoreBackendXLSX)
}

func (s StoreConfig) validate() error {
	if !s.UsesSQL() && !s.UsesWorkbook() {
		return fmt.Errorf("%s must be one of %s, %s, %s", EnvStoreBackend, StoreBackendPostgres, StoreBackendSQLite, StoreBackendXLSX)
	}
	if s.UsesWorkbook() && strings.TrimSpace(s.WorkbookPath) == "" {
		return fmt.Errorf("%s is required when %s=%s", EnvStoreWorkbookPath, EnvStoreBackend, StoreBackendXLSX)
	}
	return nil
}

type DBConfig struct {
	DSN string `envconfig:"PALLETFLOW_DB_DSN"`

	LegacyHost     string `envconfig:"PALLETFLOW_DB_HOST"`
	LegacyPort     int    `envconfig:"PALLETFLOW_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PALLETFLOW_DB_USER"`
	LegacyPassword string `envconfig:"PALLETFLOW_DB_PASSWORD"`
	LegacyName     string `envconfig:"PALLETFLOW_DB_NAME"`
	LegacySSLMode  string `envconfig:"PALLETFLOW_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PALLETFLOW_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"PALLETFLOW_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"PALLETFLOW_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PALLETFLOW_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"PALLETFLOW_DB_SLOW_QUERY_THRESHOLD" default:"500ms"`

	// Driver is filled from StoreConfig.Backend during Load.
	Driver string `ignored:"true"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PALLETFLOW_REDIS_URL"`
	Address      string        `envconfig:"PALLETFLOW_REDIS_ADDR"`
	Password     string        `envconfig:"PALLETFLOW_REDIS_PASSWORD"`
	DB           int           `envconfig:"PALLETFLOW_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PALLETFLOW_REDIS_POOL_SIZE" default:"5"`
	MinIdleConns int           `envconfig:"PALLETFLOW_REDIS_MIN_IDLE_CONNS" default:"1"`
	DialTimeout  time.Duration `envconfig:"PALLETFLOW_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PALLETFLOW_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PALLETFLOW_REDIS_WRITE_TIMEOUT" default:"5s"`
	KeyPrefix    string        `envconfig:"PALLETFLOW_REDIS_KEY_PREFIX" default:"palletflow"`
}

// Enabled reports whether a Redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type PipelineConfig struct {
	LockEnabled       bool          `envconfig:"PALLETFLOW_PIPELINE_LOCK_ENABLED" default:"true"`
	LockTTL           time.Duration `envconfig:"PALLETFLOW_PIPELINE_LOCK_TTL" default:"5m"`
	PollInterval      time.Duration `envconfig:"PALLETFLOW_PIPELINE_POLL_INTERVAL" default:"1m"`
	RebuildInterval   time.Duration `envconfig:"PALLETFLOW_PIPELINE_REBUILD_INTERVAL" default:"24h"`
	SkipExpiryOnEmpty bool          `envconfig:"PALLETFLOW_PIPELINE_SKIP_EXPIRY_ON_EMPTY" default:"false"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PALLETFLOW_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	IdempotencyTTL time.Duration `envconfig:"PALLETFLOW_EVENTING_IDEMPOTENCY_TTL" default:"72h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"PALLETFLOW_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"PALLETFLOW_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"PALLETFLOW_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	BuildEventsSubscription string `envconfig:"PALLETFLOW_PUBSUB_BUILD_EVENTS_SUBSCRIPTION"`
	MaxOutstandingMessages  int    `envconfig:"PALLETFLOW_PUBSUB_MAX_OUTSTANDING" default:"4"`
	NumGoroutines           int    `envconfig:"PALLETFLOW_PUBSUB_NUM_GOROUTINES" default:"1"`
}

func (db *DBConfig) ensureDSN(backend string) error {
	db.Driver = strings.ToLower(strings.TrimSpace(backend))
	if db.DSN != "" {
		return nil
	}
	if db.Driver == StoreBackendSQLite {
		return fmt.Errorf("%s is required for the sqlite backend", EnvDBDSN)
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
