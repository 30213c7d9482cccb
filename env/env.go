// Package env reads service configuration from the environment.
package env

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

type Config struct {
	HTTPAddr string

	StoreDriver    string
	DatabaseURL    string
	DBMaxOpenConns int
	DBMaxIdleConns int

	JWTSecret      string
	TokenTTL       time.Duration
	RequestTimeout time.Duration

	NatsUsername string
	NatsPassword string
	NatsHostname string
	NatsPort     string

	SubjectPrefix string

	AWSRegion    string
	AWSBucket    string
	UploadURLTTL time.Duration

	LogLevel  string
	LogFormat string
}

// lookup reads environment variables and remembers the ones that failed
// to parse.
type lookup struct {
	getenv func(string) string
	errs   *multierror.Error
}

func (l *lookup) str(key, def string) string {
	if v := strings.TrimSpace(l.getenv(key)); v != "" {
		return v
	}
	return def
}

func (l *lookup) int(key string, def int) int {
	v := l.str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		l.errs = multierror.Append(l.errs, fmt.Errorf("%s: %q is not an integer", key, v))
		return def
	}
	return n
}

func (l *lookup) duration(key string, def time.Duration) time.Duration {
	v := l.str(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		l.errs = multierror.Append(l.errs, fmt.Errorf("%s: %q is not a duration", key, v))
		return def
	}
	return d
}

// Load reads the process environment.
func Load() (Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (Config, error) {
	l := &lookup{getenv: getenv}
	cfg := Config{
		HTTPAddr:       l.str("HTTP_ADDR", ":5000"),
		StoreDriver:    l.str("STORE_DRIVER", DriverMemory),
		DatabaseURL:    l.str("DATABASE_URL", ""),
		DBMaxOpenConns: l.int("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns: l.int("DB_MAX_IDLE_CONNS", 10),
		JWTSecret:      l.str("JWT_SECRET", ""),
		TokenTTL:       l.duration("TOKEN_TTL", 7*24*time.Hour),
		RequestTimeout: l.duration("REQUEST_TIMEOUT", 10*time.Second),
		NatsUsername:   l.str("NATS_USERNAME", ""),
		NatsPassword:   l.str("NATS_PASSWORD", ""),
		NatsHostname:   l.str("NATS_HOSTNAME", ""),
		NatsPort:       l.str("NATS_PORT", "4222"),
		SubjectPrefix:  l.str("SUBJECT_PREFIX", ""),
		AWSRegion:      l.str("AWS_REGION", "ap-south-1"),
		AWSBucket:      l.str("AWS_BUCKET_NAME", ""),
		UploadURLTTL:   l.duration("UPLOAD_URL_TTL", 60*time.Second),
		LogLevel:       l.str("LOG_LEVEL", "info"),
		LogFormat:      l.str("LOG_FORMAT", "text"),
	}
	return cfg, l.errs.ErrorOrNil()
}

// Validate reports every problem with cfg at once.
func (c Config) Validate() error {
	var result *multierror.Error
	switch c.StoreDriver {
	case DriverMemory:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			result = multierror.Append(result, fmt.Errorf("DATABASE_URL is required for the %s driver", c.StoreDriver))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("STORE_DRIVER: unknown driver %q", c.StoreDriver))
	}
	if c.JWTSecret == "" {
		result = multierror.Append(result, fmt.Errorf("JWT_SECRET is required"))
	}
	if c.RequestTimeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("REQUEST_TIMEOUT must be positive"))
	}
	if c.DBMaxOpenConns < 1 {
		result = multierror.Append(result, fmt.Errorf("DB_MAX_OPEN_CONNS must be at least 1"))
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		result = multierror.Append(result, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		result = multierror.Append(result, fmt.Errorf("LOG_FORMAT must be text or json"))
	}
	return result.ErrorOrNil()
}

// NatsEnabled reports whether a NATS server is configured.
func (c Config) NatsEnabled() bool {
	return c.NatsHostname != ""
}

func (c Config) NatsURL() string {
	u := url.URL{Scheme: "nats", Host: c.NatsHostname + ":" + c.NatsPort}
	if c.NatsUsername != "" {
		u.User = url.UserPassword(c.NatsUsername, c.NatsPassword)
	}
	return u.String()
}

// ConfigureLogging applies LOG_LEVEL and LOG_FORMAT to the standard logger.
func (c Config) ConfigureLogging() {
	if level, err := logrus.ParseLevel(c.LogLevel); err == nil {
		logrus.SetLevel(level)
	}
	if c.LogFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

// EnsurePrefixed puts SUBJECT_PREFIX in front of a NATS subject, once.
func EnsurePrefixed(subject string) string {
	return ensurePrefixed(os.Getenv("SUBJECT_PREFIX"), subject)
}

func ensurePrefixed(prefix, subject string) string {
	if prefix == "" || strings.HasPrefix(subject, prefix) {
		return subject
	}
	return prefix + subject
}
