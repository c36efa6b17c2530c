package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix namespaces every environment variable the service reads.
	EnvPrefix = "MARKETRUN"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	Matching MatchingConfig
	Markets  MarketsConfig
	PubSub   PubSubConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MARKETRUN_APP_ENV" required:"true"`
	Port         string `envconfig:"MARKETRUN_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"MARKETRUN_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MARKETRUN_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"MARKETRUN_DB_DSN"`

	Host     string `envconfig:"MARKETRUN_DB_HOST"`
	Port     int    `envconfig:"MARKETRUN_DB_PORT" default:"5432"`
	User     string `envconfig:"MARKETRUN_DB_USER"`
	Password string `envconfig:"MARKETRUN_DB_PASSWORD"`
	Name     string `envconfig:"MARKETRUN_DB_NAME"`
	SSLMode  string `envconfig:"MARKETRUN_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MARKETRUN_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MARKETRUN_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MARKETRUN_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MARKETRUN_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// ensureDSN assembles a postgres DSN from discrete settings when one was not
// provided directly.
func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("either MARKETRUN_DB_DSN or MARKETRUN_DB_HOST/USER/NAME must be set")
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   "/" + d.Name,
	}
	if d.Password != "" {
		u.User = url.UserPassword(d.User, d.Password)
	} else {
		u.User = url.User(d.User)
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()

	d.DSN = u.String()
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"MARKETRUN_REDIS_URL"`
	Address      string        `envconfig:"MARKETRUN_REDIS_ADDR"`
	Password     string        `envconfig:"MARKETRUN_REDIS_PASSWORD"`
	DB           int           `envconfig:"MARKETRUN_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MARKETRUN_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MARKETRUN_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MARKETRUN_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MARKETRUN_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MARKETRUN_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// MatchingConfig carries the proximity search defaults. The values mirror the
// dispatch policy: start close, widen in fixed steps, stop at the cap.
type MatchingConfig struct {
	InitialRadiusKm float64 `envconfig:"MARKETRUN_MATCHING_INITIAL_RADIUS_KM" default:"5"`
	MaxRadiusKm     float64 `envconfig:"MARKETRUN_MATCHING_MAX_RADIUS_KM" default:"20"`
	StepKm          float64 `envconfig:"MARKETRUN_MATCHING_STEP_KM" default:"5"`
	Limit           int     `envconfig:"MARKETRUN_MATCHING_LIMIT" default:"10"`
}

type MarketsConfig struct {
	CoordinateCacheTTL time.Duration `envconfig:"MARKETRUN_MARKET_COORD_CACHE_TTL" default:"15m"`
}

type PubSubConfig struct {
	ProjectID          string `envconfig:"MARKETRUN_PUBSUB_PROJECT_ID"`
	OrderAssignedTopic string `envconfig:"MARKETRUN_PUBSUB_ORDER_ASSIGNED_TOPIC" default:"order-assigned"`
}

// Enabled reports whether eventing is configured at all.
func (p PubSubConfig) Enabled() bool {
	return strings.TrimSpace(p.ProjectID) != ""
}
