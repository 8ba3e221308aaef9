package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all configuration for the bridge
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	ERP       ERPConfig
	Platform  PlatformConfig
	Sync      SyncConfig
	Storage   StorageConfig
	Scheduler SchedulerConfig
	HTTP      HTTPConfig
	Telemetry TelemetryConfig
}

// AppConfig holds application-level configuration
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds bridge database configuration
type DatabaseConfig struct {
	Driver          string `validate:"oneof=postgres sqlite"`
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	Path            string // sqlite file, ":memory:" for a throwaway database
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // minutes
	ConnMaxIdleTime int // minutes
	LogLevel        string
	SlowThreshold   time.Duration
}

// RedisConfig holds redis configuration for the run lock
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	LockTTL  time.Duration
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string
	Output string
}

// ERPConfig holds the ERP connection settings
type ERPConfig struct {
	Driver            string `validate:"oneof=memory"`
	FixturePath       string
	PersistFixture    bool
	CustomerNumberMin int64 `validate:"gt=0"`
	CustomerNumberMax int64 `validate:"gtfield=CustomerNumberMin"`
	Language          string
}

// PlatformConfig holds the e-commerce platform API settings.
// An empty BaseURL disables every from-bridge operation.
type PlatformConfig struct {
	BaseURL        string        `validate:"omitempty,url"`
	ClientID       string        `validate:"required_with=BaseURL"`
	ClientSecret   string        `validate:"required_with=BaseURL"`
	Timeout        time.Duration `validate:"gte=0"`
	RetryCount     int           `validate:"gte=0"`
	RetryWait      time.Duration
	CurrencyID     string
	LanguageID     string
	MediaFolderID  string
	CustomerPacing time.Duration
}

// Enabled reports whether a platform endpoint is configured
func (p *PlatformConfig) Enabled() bool {
	return p.BaseURL != ""
}

// SyncConfig holds defaults used while mapping records
type SyncConfig struct {
	SalesChannelIDs    []string
	DefaultTaxRate     float64
	DefaultPriceFactor float64
	ChangedLookback    time.Duration
}

// StorageConfig holds the media file source configuration
type StorageConfig struct {
	Type      string `validate:"oneof=local s3"`
	LocalPath string `validate:"required_if=Type local"`
	S3        S3Config
}

// S3Config holds S3 media bucket settings
type S3Config struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// SchedulerConfig holds scheduled sync configuration
type SchedulerConfig struct {
	Enabled    bool
	JobTimeout time.Duration
	Jobs       []JobConfig
}

// JobConfig schedules the changed-records sync of one kind and direction
type JobConfig struct {
	Kind      string `mapstructure:"kind" validate:"required"`
	Direction string `mapstructure:"direction" validate:"oneof=to from"`
	Spec      string `mapstructure:"spec" validate:"required"`
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	TrustedProxies []string
	TokenSecret    string        // HS256 secret of the trigger API service tokens, empty disables the check
	TokenIssuer    string
	TokenTTL       time.Duration // lifetime of tokens issued by "bridge token"
}

// TelemetryConfig holds OpenTelemetry configuration. Everything is off unless Enabled is set.
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string  `validate:"required_if=Enabled true"`
	Insecure          bool
	SamplingRatio     float64 `validate:"gte=0,lte=1"`
	MetricsInterval   time.Duration
	LogsEnabled       bool
	DBTraceEnabled    bool
	DBLogFullSQL      bool
	DBSlowThreshold   time.Duration

	ProfilingEnabled bool
	ProfilingAddress string `validate:"required_if=ProfilingEnabled true"`
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with BRIDGE_ prefix (e.g., BRIDGE_PLATFORM_CLIENT_SECRET)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file. An empty path searches the default locations.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/bridge")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("BRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			Path:            v.GetString("database.path"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
			LogLevel:        v.GetString("database.log_level"),
			SlowThreshold:   v.GetDuration("database.slow_threshold"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			LockTTL:  v.GetDuration("redis.lock_ttl"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		ERP: ERPConfig{
			Driver:            v.GetString("erp.driver"),
			FixturePath:       v.GetString("erp.fixture_path"),
			PersistFixture:    v.GetBool("erp.persist_fixture"),
			CustomerNumberMin: v.GetInt64("erp.customer_number_min"),
			CustomerNumberMax: v.GetInt64("erp.customer_number_max"),
			Language:          v.GetString("erp.language"),
		},
		Platform: PlatformConfig{
			BaseURL:        v.GetString("platform.base_url"),
			ClientID:       v.GetString("platform.client_id"),
			ClientSecret:   v.GetString("platform.client_secret"),
			Timeout:        v.GetDuration("platform.timeout"),
			RetryCount:     v.GetInt("platform.retry_count"),
			RetryWait:      v.GetDuration("platform.retry_wait"),
			CurrencyID:     v.GetString("platform.currency_id"),
			LanguageID:     v.GetString("platform.language_id"),
			MediaFolderID:  v.GetString("platform.media_folder_id"),
			CustomerPacing: v.GetDuration("platform.customer_pacing"),
		},
		Sync: SyncConfig{
			SalesChannelIDs:    v.GetStringSlice("sync.sales_channel_ids"),
			DefaultTaxRate:     v.GetFloat64("sync.default_tax_rate"),
			DefaultPriceFactor: v.GetFloat64("sync.default_price_factor"),
			ChangedLookback:    v.GetDuration("sync.changed_lookback"),
		},
		Storage: StorageConfig{
			Type:      v.GetString("storage.type"),
			LocalPath: v.GetString("storage.local_path"),
			S3: S3Config{
				Bucket:          v.GetString("storage.s3.bucket"),
				Prefix:          v.GetString("storage.s3.prefix"),
				Region:          v.GetString("storage.s3.region"),
				Endpoint:        v.GetString("storage.s3.endpoint"),
				AccessKeyID:     v.GetString("storage.s3.access_key_id"),
				SecretAccessKey: v.GetString("storage.s3.secret_access_key"),
				UsePathStyle:    v.GetBool("storage.s3.use_path_style"),
			},
		},
		Scheduler: SchedulerConfig{
			Enabled:    v.GetBool("scheduler.enabled"),
			JobTimeout: v.GetDuration("scheduler.job_timeout"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
			TokenSecret:    v.GetString("http.token_secret"),
			TokenIssuer:    v.GetString("http.token_issuer"),
			TokenTTL:       v.GetDuration("http.token_ttl"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			Insecure:          v.GetBool("telemetry.insecure"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			DBSlowThreshold:   v.GetDuration("telemetry.db_slow_threshold"),
			ProfilingEnabled:  v.GetBool("telemetry.profiling_enabled"),
			ProfilingAddress:  v.GetString("telemetry.profiling_address"),
		},
	}

	// unset means sample everything, an explicit 0 turns tracing into a no-op
	if !v.IsSet("telemetry.sampling_ratio") {
		cfg.Telemetry.SamplingRatio = 1.0
	}

	if err := v.UnmarshalKey("scheduler.jobs", &cfg.Scheduler.Jobs); err != nil {
		return nil, fmt.Errorf("error reading scheduler.jobs: %w", err)
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// applyDefaults sets default values for empty configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "erp-bridge"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "bridge"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "bridge.db"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 2
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Database.LogLevel == "" {
		cfg.Database.LogLevel = "warn"
	}
	if cfg.Database.SlowThreshold == 0 {
		cfg.Database.SlowThreshold = 200 * time.Millisecond
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Redis.LockTTL == 0 {
		cfg.Redis.LockTTL = 2 * time.Hour
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.ERP.Driver == "" {
		cfg.ERP.Driver = "memory"
	}
	if cfg.ERP.CustomerNumberMin == 0 {
		cfg.ERP.CustomerNumberMin = 10000
	}
	if cfg.ERP.CustomerNumberMax == 0 {
		cfg.ERP.CustomerNumberMax = 69999
	}
	if cfg.ERP.Language == "" {
		cfg.ERP.Language = "de-DE"
	}
	if cfg.Platform.Timeout == 0 {
		cfg.Platform.Timeout = 30 * time.Second
	}
	if cfg.Platform.RetryCount == 0 {
		cfg.Platform.RetryCount = 2
	}
	if cfg.Platform.RetryWait == 0 {
		cfg.Platform.RetryWait = time.Second
	}
	if cfg.Platform.CustomerPacing == 0 {
		cfg.Platform.CustomerPacing = 200 * time.Millisecond
	}
	if cfg.Sync.DefaultTaxRate == 0 {
		cfg.Sync.DefaultTaxRate = 19
	}
	if cfg.Sync.DefaultPriceFactor == 0 {
		cfg.Sync.DefaultPriceFactor = 1
	}
	if cfg.Sync.ChangedLookback == 0 {
		cfg.Sync.ChangedLookback = 24 * time.Hour
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "local"
	}
	if cfg.Storage.Type == "local" && cfg.Storage.LocalPath == "" {
		cfg.Storage.LocalPath = "./media"
	}
	if cfg.Scheduler.JobTimeout == 0 {
		cfg.Scheduler.JobTimeout = 30 * time.Minute
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 5 * time.Minute
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.TokenIssuer == "" {
		cfg.HTTP.TokenIssuer = cfg.App.Name
	}
	if cfg.HTTP.TokenTTL == 0 {
		cfg.HTTP.TokenTTL = 24 * time.Hour
	}
	if cfg.Telemetry.CollectorEndpoint == "" && cfg.Telemetry.Enabled {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 60 * time.Second
	}
	if cfg.Telemetry.DBSlowThreshold == 0 {
		cfg.Telemetry.DBSlowThreshold = cfg.Database.SlowThreshold
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	validate := validator.New()
	sections := []struct {
		name  string
		value any
	}{
		{"database", &c.Database},
		{"erp", &c.ERP},
		{"platform", &c.Platform},
		{"storage", &c.Storage},
		{"telemetry", &c.Telemetry},
	}
	for _, s := range sections {
		if err := validate.Struct(s.value); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	if c.Storage.Type == "s3" && c.Storage.S3.Bucket == "" {
		return fmt.Errorf("storage.s3.bucket is required when storage.type is s3")
	}
	for i := range c.Scheduler.Jobs {
		if err := validate.Struct(&c.Scheduler.Jobs[i]); err != nil {
			return fmt.Errorf("scheduler.jobs[%d]: %w", i, err)
		}
	}
	if c.Sync.DefaultPriceFactor < 0 {
		return fmt.Errorf("sync.default_price_factor cannot be negative, got %f", c.Sync.DefaultPriceFactor)
	}

	if c.App.Env == "production" {
		if c.Database.Driver == "postgres" && c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.Driver == "postgres" && c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.ERP.PersistFixture {
			return fmt.Errorf("erp.persist_fixture must be false in production")
		}
		if c.HTTP.TokenSecret != "" && len(c.HTTP.TokenSecret) < 32 {
			return fmt.Errorf("http.token_secret must be at least 32 characters in production")
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	if d.Driver == "sqlite" {
		return d.Path
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns host:port of the redis server
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
