package utils

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type AuthConfig struct {
	JWTSecret   string        `yaml:"jwt_secret"`
	JWTIssuer   string        `yaml:"jwt_issuer"`
	JWTDuration time.Duration `yaml:"jwt_ttl"`
	// Operators maps a username to a bcrypt hash for the login endpoint.
	Operators map[string]string `yaml:"operators"`
}

type DBConfig struct {
	// Driver is sqlite or postgres.
	Driver   string `yaml:"driver"`
	Path     string `yaml:"path"`
	DSN      string `yaml:"dsn"`
	MaxConns int    `yaml:"max_conns"`
}

type SessionConfig struct {
	StallTimeout time.Duration  `yaml:"stall_timeout"`
	HardTimeout  time.Duration  `yaml:"hard_timeout"`
	AuthTimeout  time.Duration  `yaml:"auth_timeout"`
	AckTimeout   time.Duration  `yaml:"ack_timeout"`
	MaxBounces   int            `yaml:"max_bounces"`
	AuthRetries  int            `yaml:"auth_retries"`
	LogTail      int            `yaml:"log_tail"`
	Targets      map[int]string `yaml:"targets"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

type Config struct {
	HTTPAddr string        `yaml:"http_addr"`
	FeedAddr string        `yaml:"feed_addr"`
	GRPCAddr string        `yaml:"grpc_addr"`
	DB       DBConfig      `yaml:"db"`
	Auth     AuthConfig    `yaml:"auth"`
	Session  SessionConfig `yaml:"session"`
	Log      LogConfig     `yaml:"log"`
}

// Defaults is the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		HTTPAddr: ":8080",
		FeedAddr: ":9090",
		GRPCAddr: ":9092",
		DB:       DBConfig{Driver: "sqlite", MaxConns: 4},
		Auth: AuthConfig{
			// dev default (change for production)
			JWTSecret:   "dev-secret-change-me",
			JWTIssuer:   "cruisesync",
			JWTDuration: 24 * time.Hour,
		},
		Session: SessionConfig{
			StallTimeout: 30 * time.Second,
			HardTimeout:  5 * time.Minute,
			AuthTimeout:  2 * time.Minute,
			AckTimeout:   10 * time.Second,
			MaxBounces:   2,
			AuthRetries:  3,
			LogTail:      200,
		},
		Log: LogConfig{Level: "info"},
	}
}

// LoadConfig returns the defaults overridden by CRUISESYNC_* environment
// variables.
func LoadConfig() Config {
	cfg := Defaults()
	applyEnv(&cfg)
	return cfg
}

// LoadConfigFile layers a YAML file over the defaults, then applies the
// environment. An empty path behaves like LoadConfig.
func LoadConfigFile(path string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	switch c.DB.Driver {
	case "sqlite":
	case "postgres":
		if c.DB.DSN == "" {
			errs = append(errs, errors.New("db.dsn is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown db driver %q", c.DB.Driver))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is empty"))
	}
	if c.Session.StallTimeout <= 0 || c.Session.HardTimeout <= 0 || c.Session.AuthTimeout <= 0 || c.Session.AckTimeout <= 0 {
		errs = append(errs, errors.New("session timeouts must be positive"))
	}
	if c.Session.MaxBounces < 0 || c.Session.AuthRetries < 0 {
		errs = append(errs, errors.New("session.max_bounces and session.auth_retries cannot be negative"))
	}
	return errors.Join(errs...)
}

func applyEnv(c *Config) {
	envString(&c.HTTPAddr, "CRUISESYNC_HTTP_ADDR")
	envString(&c.FeedAddr, "CRUISESYNC_FEED_ADDR")
	envString(&c.GRPCAddr, "CRUISESYNC_GRPC_ADDR")

	envString(&c.DB.Driver, "CRUISESYNC_DB_DRIVER")
	envString(&c.DB.Path, "CRUISESYNC_DB_PATH")
	envString(&c.DB.DSN, "CRUISESYNC_DB_DSN")

	envString(&c.Auth.JWTSecret, "CRUISESYNC_JWT_SECRET")
	envString(&c.Auth.JWTIssuer, "CRUISESYNC_JWT_ISSUER")
	if h, ok := envInt("CRUISESYNC_JWT_TTL_HOURS"); ok && h > 0 {
		c.Auth.JWTDuration = time.Duration(h) * time.Hour
	}

	envDuration(&c.Session.StallTimeout, "CRUISESYNC_STALL_TIMEOUT")
	envDuration(&c.Session.HardTimeout, "CRUISESYNC_HARD_TIMEOUT")
	envDuration(&c.Session.AuthTimeout, "CRUISESYNC_AUTH_TIMEOUT")
	envDuration(&c.Session.AckTimeout, "CRUISESYNC_ACK_TIMEOUT")
	if n, ok := envInt("CRUISESYNC_MAX_BOUNCES"); ok {
		c.Session.MaxBounces = n
	}
	if n, ok := envInt("CRUISESYNC_AUTH_RETRIES"); ok {
		c.Session.AuthRetries = n
	}
	if n, ok := envInt("CRUISESYNC_LOG_TAIL"); ok {
		c.Session.LogTail = n
	}

	envString(&c.Log.Level, "CRUISESYNC_LOG_LEVEL")
	if v := os.Getenv("CRUISESYNC_LOG_JSON"); v != "" {
		c.Log.JSON, _ = strconv.ParseBool(v)
	}
}

func envString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

// envDuration accepts Go durations ("45s") and falls back to whole seconds.
func envDuration(dst *time.Duration, key string) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		*dst = d
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = time.Duration(n) * time.Second
	}
}

func envInt(key string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	return n, err == nil
}
