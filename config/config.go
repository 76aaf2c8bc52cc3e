// config/config.go
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/cheapflightsfrom/backend/models"
)

type ServerConfig struct {
	Port       string `yaml:"port"`
	CronSecret string `yaml:"cron_secret"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // postgres or mysql
	URL      string `yaml:"url"`    // takes precedence over the discrete fields below
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`

	MaxOpenConns        int    `yaml:"max_open_conns"`
	MaxAttempts         int    `yaml:"max_attempts"`
	IdleTimeoutStr      string `yaml:"idle_timeout"`
	ConnectTimeoutStr   string `yaml:"connect_timeout"`
	BackoffStepStr      string `yaml:"backoff_step"`
	SlowQueryStr        string `yaml:"slow_query_threshold"`
	AuxiliaryPriceTable string `yaml:"auxiliary_price_table"`

	IdleTimeout        time.Duration `yaml:"-"`
	ConnectTimeout     time.Duration `yaml:"-"`
	BackoffStep        time.Duration `yaml:"-"`
	SlowQueryThreshold time.Duration `yaml:"-"`
}

type BreakerConfig struct {
	ConsecutiveFailures uint32        `yaml:"consecutive_failures"`
	OpenTimeoutStr      string        `yaml:"open_timeout"`
	OpenTimeout         time.Duration `yaml:"-"`
}

// TTLConfig is the staleness policy per read-model category.
type TTLConfig struct {
	HubStr         string `yaml:"hub"`
	RouteStr       string `yaml:"route"`
	CheapestNowStr string `yaml:"cheapest_now"`
	DealsStr       string `yaml:"deals"`
	StatsStr       string `yaml:"stats"`
	SchemaProbeStr string `yaml:"schema_probe"`

	Hub         time.Duration `yaml:"-"`
	Route       time.Duration `yaml:"-"`
	CheapestNow time.Duration `yaml:"-"`
	Deals       time.Duration `yaml:"-"`
	Stats       time.Duration `yaml:"-"`
	SchemaProbe time.Duration `yaml:"-"`
}

type CacheConfig struct {
	Backend           string    `yaml:"backend"` // memory or redis
	RedisAddr         string    `yaml:"redis_addr"`
	RedisPassword     string    `yaml:"redis_password"`
	RedisDB           int       `yaml:"redis_db"`
	KeyPrefix         string    `yaml:"key_prefix"`
	ComputeTimeoutStr string    `yaml:"compute_timeout"`
	SweepIntervalStr  string    `yaml:"sweep_interval"`
	TTL               TTLConfig `yaml:"ttl"`

	ComputeTimeout time.Duration `yaml:"-"`
	SweepInterval  time.Duration `yaml:"-"`
}

type RegionsConfig struct {
	// Default is the region assigned to codes no static set or heuristic matches.
	Default string `yaml:"default"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type WarmConfig struct {
	Metros []string `yaml:"metros"` // metro slugs warmed by the admin endpoint
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Breaker  BreakerConfig  `yaml:"breaker"`
	Cache    CacheConfig    `yaml:"cache"`
	Regions  RegionsConfig  `yaml:"regions"`
	Logging  LoggingConfig  `yaml:"logging"`
	Warm     WarmConfig     `yaml:"warm"`
}

// Default returns the configuration used when no file or env override is present.
func Default() Config {
	return Config{
		Server: ServerConfig{Port: "8080"},
		Database: DatabaseConfig{
			Driver:              "postgres",
			MaxOpenConns:        1,
			MaxAttempts:         3,
			IdleTimeoutStr:      "5s",
			ConnectTimeoutStr:   "5s",
			BackoffStepStr:      "1s",
			SlowQueryStr:        "500ms",
			AuxiliaryPriceTable: "matrix_prices_archive",
		},
		Breaker: BreakerConfig{ConsecutiveFailures: 5, OpenTimeoutStr: "30s"},
		Cache: CacheConfig{
			Backend:           "memory",
			KeyPrefix:         "insights",
			ComputeTimeoutStr: "30s",
			SweepIntervalStr:  "5m",
			TTL: TTLConfig{
				HubStr:         "4h",
				RouteStr:       "4h",
				CheapestNowStr: "1h",
				DealsStr:       "1h",
				StatsStr:       "4h",
				SchemaProbeStr: "24h",
			},
		},
		Regions: RegionsConfig{Default: string(models.RegionEurope)},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Warm: WarmConfig{Metros: []string{
			"atlanta", "dallas", "oklahoma-city", "boston", "miami", "new-york-city",
		}},
	}
}

// Load reads configuration from the YAML file at configPath (optional), a .env file
// in the working directory (optional), then environment variables.
// An empty configPath searches the usual locations.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath == "" {
		for _, p := range []string{"config.yaml", "config/config.yaml"} {
			if _, err := os.Stat(p); err == nil {
				configPath = p
				break
			}
		}
	}

	if configPath != "" {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(file, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	applyEnv(&cfg)

	if err := cfg.parseDurations(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Database.URL, "DATABASE_URL")
	setString(&cfg.Database.Driver, "DATABASE_DRIVER")
	setString(&cfg.Cache.Backend, "CACHE_BACKEND")
	setString(&cfg.Cache.RedisAddr, "REDIS_ADDR")
	setString(&cfg.Cache.RedisPassword, "REDIS_PASSWORD")
	setString(&cfg.Server.Port, "PORT")
	setString(&cfg.Server.CronSecret, "CRON_SECRET")
	setString(&cfg.Logging.Level, "LOG_LEVEL")
	setString(&cfg.Logging.Format, "LOG_FORMAT")
	setString(&cfg.Regions.Default, "REGION_DEFAULT")
	if v := os.Getenv("SLOW_QUERY_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.Database.SlowQueryStr = fmt.Sprintf("%dms", ms)
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (c *Config) parseDurations() error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"database.idle_timeout", c.Database.IdleTimeoutStr, &c.Database.IdleTimeout},
		{"database.connect_timeout", c.Database.ConnectTimeoutStr, &c.Database.ConnectTimeout},
		{"database.backoff_step", c.Database.BackoffStepStr, &c.Database.BackoffStep},
		{"database.slow_query_threshold", c.Database.SlowQueryStr, &c.Database.SlowQueryThreshold},
		{"breaker.open_timeout", c.Breaker.OpenTimeoutStr, &c.Breaker.OpenTimeout},
		{"cache.compute_timeout", c.Cache.ComputeTimeoutStr, &c.Cache.ComputeTimeout},
		{"cache.sweep_interval", c.Cache.SweepIntervalStr, &c.Cache.SweepInterval},
		{"cache.ttl.hub", c.Cache.TTL.HubStr, &c.Cache.TTL.Hub},
		{"cache.ttl.route", c.Cache.TTL.RouteStr, &c.Cache.TTL.Route},
		{"cache.ttl.cheapest_now", c.Cache.TTL.CheapestNowStr, &c.Cache.TTL.CheapestNow},
		{"cache.ttl.deals", c.Cache.TTL.DealsStr, &c.Cache.TTL.Deals},
		{"cache.ttl.stats", c.Cache.TTL.StatsStr, &c.Cache.TTL.Stats},
		{"cache.ttl.schema_probe", c.Cache.TTL.SchemaProbeStr, &c.Cache.TTL.SchemaProbe},
	}
	for _, f := range fields {
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("failed to parse %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}
	return nil
}

// Validate rejects configurations the connection manager or cache cannot run with.
func (c *Config) Validate() error {
	if _, ok := NormalizeDriver(c.Database.Driver); !ok {
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.MaxOpenConns < 1 {
		return fmt.Errorf("database.max_open_conns must be at least 1, got %d", c.Database.MaxOpenConns)
	}
	if c.Database.MaxAttempts < 1 {
		return fmt.Errorf("database.max_attempts must be at least 1, got %d", c.Database.MaxAttempts)
	}
	switch c.Cache.Backend {
	case "memory":
	case "redis":
		if c.Cache.RedisAddr == "" {
			return errors.New("cache.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unsupported cache backend %q", c.Cache.Backend)
	}
	if !models.Region(c.Regions.Default).Valid() {
		return fmt.Errorf("regions.default %q is not a known region", c.Regions.Default)
	}
	return nil
}

// NormalizeDriver maps a configured driver name or alias onto "postgres" or "mysql".
func NormalizeDriver(driver string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "postgres", "postgresql", "pq":
		return "postgres", true
	case "mysql", "mariadb":
		return "mysql", true
	}
	return "", false
}

// DSN builds the driver connection string. URL wins when set.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	timeout := d.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if driver, _ := NormalizeDriver(d.Driver); driver == "mysql" {
		// username:password@protocol(address)/dbname?param=value
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&timeout=%s",
			d.User, d.Password, d.Host, d.Port, d.DBName, timeout)
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host + ":" + d.Port,
		Path:     "/" + d.DBName,
		RawQuery: fmt.Sprintf("sslmode=disable&connect_timeout=%d", int(timeout.Seconds())),
	}
	return u.String()
}
