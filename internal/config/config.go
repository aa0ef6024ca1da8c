package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const EnvProduction = "production"

type Config struct {
	Env             string        `env:"APP_ENV"`
	Port            string        `env:"PORT"              envDefault:"10000"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT"  envDefault:"15s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"20s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT"    envDefault:"12s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT"   envDefault:"10s"`
	LogLevel        string        `env:"LOG_LEVEL"          envDefault:"info"`

	MaxBodyBytes     int64    `env:"MAX_BODY_BYTES" envDefault:"10485760"`
	CorsOrigins      []string `env:"CORS_ORIGINS"   envDefault:"http://localhost:3000,http://localhost:3001,https://conforma-remitos.vercel.app"`
	MetricsAllowCIDR string   `env:"METRICS_ALLOW"  envDefault:"127.0.0.1/32"`

	RateRPS   float64 `env:"RATE_RPS"   envDefault:"20"`
	RateBurst int     `env:"RATE_BURST" envDefault:"40"`

	// Redis is optional; when Addr is empty the in-process limiter is used.
	Redis Redis `envPrefix:"REDIS_"`

	OTELEndpoint string  `env:"OTEL_ENDPOINT"`
	OTELSample   float64 `env:"OTEL_SAMPLE" envDefault:"0"`

	// KeepAliveInterval only applies in production.
	KeepAliveInterval time.Duration `env:"KEEPALIVE_INTERVAL" envDefault:"14m"`

	DB DB `envPrefix:"DB_"`
}

type Redis struct {
	Addr     string        `env:"ADDR"`
	Password string        `env:"PASSWORD"`
	DB       int           `env:"DB"          envDefault:"0"`
	TLS      bool          `env:"TLS"         envDefault:"false"`
	Limit    int           `env:"RATE_LIMIT"  envDefault:"600"`
	Window   time.Duration `env:"RATE_WINDOW" envDefault:"1m"`
}

// DB describes the remote database. DSN, when set, wins over the
// individual fields.
type DB struct {
	Driver   string `env:"DRIVER"   envDefault:"sqlserver"`
	DSN      string `env:"DSN"`
	Host     string `env:"HOST"     envDefault:"localhost"`
	Port     int    `env:"PORT"     envDefault:"0"`
	Name     string `env:"NAME"     envDefault:"EstProd"`
	User     string `env:"USER"`
	Password string `env:"PASSWORD"`
	// Domain switches SQL Server to NTLM (DOMAIN\user) authentication.
	Domain string `env:"DOMAIN"`

	Encrypt         bool          `env:"ENCRYPT"           envDefault:"true"`
	TrustServerCert bool          `env:"TRUST_SERVER_CERT" envDefault:"true"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS"    envDefault:"5"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS"    envDefault:"0"`
	ConnMaxIdleTime time.Duration `env:"CONN_IDLE_TIME"    envDefault:"20s"`
	ConnectTimeout  time.Duration `env:"CONNECT_TIMEOUT"   envDefault:"15s"`
}

func (c Config) IsProduction() bool { return c.Env == EnvProduction }

// Load reads .env (if any) and then the process environment.
func Load() (Config, error) {
	LoadDotEnvUp(6)

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg.Sanitize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Sanitize fills environment-dependent values and clamps obvious mistakes.
func (c *Config) Sanitize() {
	if c.Env == "" {
		c.Env = os.Getenv("NODE_ENV")
	}
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	switch c.Env {
	case "prod":
		c.Env = EnvProduction
	case "":
		c.Env = "development"
	}
	if !c.IsProduction() {
		c.KeepAliveInterval = 0
	}

	c.DB.Driver = strings.ToLower(strings.TrimSpace(c.DB.Driver))
	if c.DB.MaxOpenConns < 1 {
		c.DB.MaxOpenConns = 1
	}
	if c.DB.MaxIdleConns < 0 {
		c.DB.MaxIdleConns = 0
	}
	if c.DB.MaxIdleConns > c.DB.MaxOpenConns {
		c.DB.MaxIdleConns = c.DB.MaxOpenConns
	}
	if c.RateBurst < 1 {
		c.RateBurst = 1
	}

	origins := c.CorsOrigins[:0]
	for _, o := range c.CorsOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	c.CorsOrigins = origins
}

func (c Config) Validate() error {
	switch c.DB.Driver {
	case "sqlserver", "mysql", "postgres":
	default:
		return fmt.Errorf("config: unsupported DB_DRIVER %q", c.DB.Driver)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("config: REQUEST_TIMEOUT must be positive")
	}
	if c.Port == "" {
		return fmt.Errorf("config: PORT is empty")
	}
	return nil
}
