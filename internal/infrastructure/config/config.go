package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Scheduler SchedulerConfig
	Zoho      ZohoConfig
	Sync      SyncConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	MaxBodySize    int64
	TrustedProxies []string
}

// SchedulerConfig holds the daily sync scheduler configuration
type SchedulerConfig struct {
	Enabled           bool
	DailyCronSchedule string
	JobTimeout        time.Duration
}

// ZohoConfig holds ZOHO provider credentials and endpoints
type ZohoConfig struct {
	Region         string // com, eu, in, com.au, com.cn
	ClientID       string
	ClientSecret   string
	RefreshToken   string
	OrganizationID string // ZOHO Billing organization
	TimeoutSeconds int
	AccountsURL    string // override, used in tests
	CRMURL         string // override, used in tests
	BillingURL     string // override, used in tests
}

// SyncConfig holds synchronization tuning knobs
type SyncConfig struct {
	DailyCap        int           // max records per daily run
	BatchSize       int           // records per batch within a run
	ItemDelay       time.Duration // pause between records in a batch
	BatchDelay      time.Duration // pause between batches
	StaleAge        time.Duration // ok records older than this are re-synced
	RetryQueueLimit int           // max failed records loaded per retry pass
	RetryPacing     time.Duration // pause between retried records
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with CIRCLETEL_ prefix (e.g., CIRCLETEL_ZOHO_CLIENT_SECRET)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	// Set config file settings
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	// Enable environment variable override
	v.SetEnvPrefix("CIRCLETEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Build config struct
	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
			MaxBodySize:    v.GetInt64("http.max_body_size"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
		},
		Scheduler: SchedulerConfig{
			Enabled:           v.GetBool("scheduler.enabled"),
			DailyCronSchedule: v.GetString("scheduler.daily_cron_schedule"),
			JobTimeout:        v.GetDuration("scheduler.job_timeout"),
		},
		Zoho: ZohoConfig{
			Region:         v.GetString("zoho.region"),
			ClientID:       v.GetString("zoho.client_id"),
			ClientSecret:   v.GetString("zoho.client_secret"),
			RefreshToken:   v.GetString("zoho.refresh_token"),
			OrganizationID: v.GetString("zoho.organization_id"),
			TimeoutSeconds: v.GetInt("zoho.timeout_seconds"),
			AccountsURL:    v.GetString("zoho.accounts_url"),
			CRMURL:         v.GetString("zoho.crm_url"),
			BillingURL:     v.GetString("zoho.billing_url"),
		},
		Sync: SyncConfig{
			DailyCap:        v.GetInt("sync.daily_cap"),
			BatchSize:       v.GetInt("sync.batch_size"),
			ItemDelay:       v.GetDuration("sync.item_delay"),
			BatchDelay:      v.GetDuration("sync.batch_delay"),
			StaleAge:        v.GetDuration("sync.stale_age"),
			RetryQueueLimit: v.GetInt("sync.retry_queue_limit"),
			RetryPacing:     v.GetDuration("sync.retry_pacing"),
		},
	}

	// Apply defaults for empty values
	applyDefaults(cfg)

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "circletel-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
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
		cfg.Database.DBName = "circletel"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
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
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 10 << 20 // 10MB
	}
	if cfg.Scheduler.DailyCronSchedule == "" {
		cfg.Scheduler.DailyCronSchedule = "0 2 * * *"
	}
	if cfg.Scheduler.JobTimeout == 0 {
		cfg.Scheduler.JobTimeout = 30 * time.Minute
	}
	if cfg.Zoho.Region == "" {
		cfg.Zoho.Region = "com"
	}
	if cfg.Zoho.TimeoutSeconds == 0 {
		cfg.Zoho.TimeoutSeconds = 30
	}
	if cfg.Sync.DailyCap == 0 {
		cfg.Sync.DailyCap = 100
	}
	if cfg.Sync.BatchSize == 0 {
		cfg.Sync.BatchSize = 20
	}
	if cfg.Sync.ItemDelay == 0 {
		cfg.Sync.ItemDelay = 700 * time.Millisecond
	}
	if cfg.Sync.BatchDelay == 0 {
		cfg.Sync.BatchDelay = 15 * time.Second
	}
	if cfg.Sync.StaleAge == 0 {
		cfg.Sync.StaleAge = 24 * time.Hour
	}
	if cfg.Sync.RetryQueueLimit == 0 {
		cfg.Sync.RetryQueueLimit = 50
	}
	if cfg.Sync.RetryPacing == 0 {
		cfg.Sync.RetryPacing = time.Second
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	// Validate connection pool settings
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

	// Provider credentials are required to do anything useful
	if c.Zoho.ClientID == "" {
		return fmt.Errorf("zoho.client_id is required")
	}
	if c.Zoho.ClientSecret == "" {
		return fmt.Errorf("zoho.client_secret is required")
	}
	if c.Zoho.RefreshToken == "" {
		return fmt.Errorf("zoho.refresh_token is required")
	}
	if c.Zoho.OrganizationID == "" {
		return fmt.Errorf("zoho.organization_id is required")
	}
	switch c.Zoho.Region {
	case "com", "eu", "in", "com.au", "com.cn":
	default:
		return fmt.Errorf("zoho.region %q is not a known data center", c.Zoho.Region)
	}

	if c.Sync.BatchSize > c.Sync.DailyCap {
		return fmt.Errorf("sync.batch_size (%d) cannot exceed sync.daily_cap (%d)",
			c.Sync.BatchSize, c.Sync.DailyCap)
	}

	// Production-specific validations
	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Zoho.AccountsURL != "" || c.Zoho.CRMURL != "" || c.Zoho.BillingURL != "" {
			return fmt.Errorf("zoho endpoint overrides are not allowed in production")
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
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
