package config // package config loads application configuration from environment variables

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env  string // application environment (e.g. "dev", "prod")
	Port string // HTTP port to listen on

	DB DBConfig

	JWTSecret     string        // secret used to sign staff tokens
	TokenTTL      time.Duration // lifetime of a staff token
	BcryptCost    int           // bcrypt cost for password hashing
	AdminPassword string        // password of the seeded manager account

	LogLevel string // logrus level name
	LogFile  string // rotate logs into this file when set

	RabbitURL     string // AMQP broker URL; empty disables publishing
	EventsEnabled bool
	EventsQueue   string

	RoomLockTTL     time.Duration // lease held while a booking is admitted
	ShutdownTimeout time.Duration

	Redis     RedisConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
}

// DBConfig describes the primary and the read replica.  ReadHost and
// ReadPort default to the primary when unset.
type DBConfig struct {
	User            string
	Password        string
	Host            string
	Port            string
	Name            string
	ReadHost        string
	ReadPort        string
	MaxOpenConns    int
	StartupAttempts int
	StartupBackoff  time.Duration
}

// Load reads configuration values from environment variables.  Every
// missing or malformed variable is reported in the returned error.
func Load() (Config, error) {
	var l loader
	cfg := Config{
		Env:  l.must("APP_ENV"),
		Port: l.must("APP_PORT"),
		DB: DBConfig{
			User:            l.must("DB_USER"),
			Password:        os.Getenv("DB_PASSWORD"),
			Host:            l.must("DB_HOST"),
			Port:            l.must("DB_PORT"),
			Name:            l.must("DB_NAME"),
			ReadHost:        os.Getenv("DB_READ_HOST"),
			ReadPort:        os.Getenv("DB_READ_PORT"),
			MaxOpenConns:    l.int("DB_MAX_OPEN_CONNS", 10),
			StartupAttempts: l.int("DB_STARTUP_ATTEMPTS", 30),
			StartupBackoff:  l.dur("DB_STARTUP_BACKOFF", 5*time.Second),
		},
		JWTSecret:       l.must("JWT_SECRET"),
		TokenTTL:        l.dur("TOKEN_TTL", 8*time.Hour),
		BcryptCost:      l.int("BCRYPT_COST", 10),
		AdminPassword:   getenv("ADMIN_PASSWORD", "admin1234"),
		LogLevel:        getenv("LOG_LEVEL", "info"),
		LogFile:         os.Getenv("LOG_FILE"),
		RabbitURL:       os.Getenv("RABBITMQ_URL"),
		EventsEnabled:   envBool("EVENTS_ENABLED", true),
		EventsQueue:     getenv("EVENTS_QUEUE", "booking.events"),
		RoomLockTTL:     l.dur("ROOM_LOCK_TTL", 10*time.Second),
		ShutdownTimeout: l.dur("SHUTDOWN_TIMEOUT", 10*time.Second),
		Redis:           LoadRedisConfig(),
		RateLimit:       LoadRateLimitConfig(),
		Cache:           LoadCacheConfig(),
	}
	if cfg.DB.ReadHost == "" {
		cfg.DB.ReadHost = cfg.DB.Host
	}
	if cfg.DB.ReadPort == "" {
		cfg.DB.ReadPort = cfg.DB.Port
	}
	if cfg.DB.StartupAttempts < 1 {
		l.fail(errors.New("DB_STARTUP_ATTEMPTS: must be at least 1"))
	}
	if err := l.err(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// loader accumulates problems so that one run reports all of them.
type loader struct {
	errs []error
}

func (l *loader) fail(err error) { l.errs = append(l.errs, err) }

func (l *loader) err() error { return errors.Join(l.errs...) }

// must retrieves the value of a required environment variable.
func (l *loader) must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		l.fail(fmt.Errorf("missing required env var: %s", key))
	}
	return v
}

func (l *loader) int(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		l.fail(fmt.Errorf("invalid int for %s: %q", key, s))
		return def
	}
	return n
}

func (l *loader) dur(key string, def time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		l.fail(fmt.Errorf("invalid duration for %s: %q", key, s))
		return def
	}
	return d
}
