package config

import (
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v11"
	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
)

// DefaultEnvFiles are tried in order; later files do not override earlier ones.
var DefaultEnvFiles = []string{".env", "../.env", "../../.env"}

// LoadEnv loads every env file that exists without overriding variables
// already present in the environment. It returns the number of files loaded.
func LoadEnv(files ...string) (int, error) {
	if len(files) == 0 {
		files = DefaultEnvFiles
	}
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

// DatabaseOptions selects the driver and connection parameters.
type DatabaseOptions struct {
	Driver         string `env:"DB_DRIVER" envDefault:"postgres"`
	DSN            string `env:"DB_DSN"`
	Host           string `env:"DB_HOST" envDefault:"localhost"`
	Port           string `env:"DB_PORT" envDefault:"5432"`
	User           string `env:"DB_USER" envDefault:"postgres"`
	Password       string `env:"DB_PASSWORD" envDefault:"postgres"`
	Name           string `env:"DB_NAME" envDefault:"publicworks"`
	MaxConnections int    `env:"DB_MAX_CONNECTIONS" envDefault:"20"`
	SQLitePath     string `env:"SQLITE_PATH" envDefault:"publicworks.db"`
}

// ConnectionString returns DB_DSN when set, otherwise a DSN built for the driver.
func (d *DatabaseOptions) ConnectionString() string {
	if d.DSN != "" {
		return d.DSN
	}
	switch d.Driver {
	case "sqlite":
		return "file:" + d.SQLitePath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
	case "pgx":
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
			d.User, d.Password, d.Host, d.Port, d.Name)
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Password, d.Name)
}

// WebOptions configures the query API server.
type WebOptions struct {
	Host          string        `env:"WEB_HOST" envDefault:"localhost"`
	Port          int           `env:"WEB_PORT" envDefault:"8080"`
	ReadTimeout   time.Duration `env:"WEB_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout  time.Duration `env:"WEB_WRITE_TIMEOUT" envDefault:"60s"`
	AllowedOrigin []string      `env:"WEB_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
}

// S3Options configures s3:// sources. An empty endpoint uses AWS.
type S3Options struct {
	Region    string `env:"S3_REGION" envDefault:"us-east-1"`
	Endpoint  string `env:"S3_ENDPOINT"`
	PathStyle bool   `env:"S3_PATH_STYLE" envDefault:"false"`
}

// Config is the full runtime configuration.
type Config struct {
	Database DatabaseOptions
	Web      WebOptions
	S3       S3Options

	TimeZone       string `env:"TIME_ZONE" envDefault:"America/Chicago"`
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	Debug          bool   `env:"DEBUG" envDefault:"false"`
	MetricsEnabled bool   `env:"METRICS_ENABLED" envDefault:"true"`
	ExportEnabled  bool   `env:"EXPORT_ENABLED" envDefault:"true"`
}

// Load parses the environment into a Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, "parse environment")
	}
	if _, err := cfg.Location(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Location resolves TIME_ZONE, the civil timezone import timestamps are read in.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid TIME_ZONE %q", c.TimeZone)
	}
	return loc, nil
}

// Address is the host:port the web server listens on.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Web.Host, c.Web.Port)
}
