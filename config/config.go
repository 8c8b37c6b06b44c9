package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultPath = "./config/config.yaml"

type HTTP struct {
	Addr           string        `yaml:"addr"`     // ":8080"
	Disabled       bool          `yaml:"disabled"` // выключает и polling, и /ws
	ReadTimeout    time.Duration `yaml:"readTimeout"`
	IdleTimeout    time.Duration `yaml:"idleTimeout"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`
	AllowedOrigins []string      `yaml:"allowedOrigins"`
}

type GRPC struct {
	Addr          string        `yaml:"addr"` // ":9090"
	Disabled      bool          `yaml:"disabled"`
	DeadlineGuard time.Duration `yaml:"deadlineGuard"`
}

type Sync struct {
	EventLogCapacity   int           `yaml:"eventLogCapacity"`   // 100
	DefaultSinceWindow time.Duration `yaml:"defaultSinceWindow"` // 5s
	PushDisabled       bool          `yaml:"pushDisabled"`
}

type WS struct {
	PingInterval   time.Duration `yaml:"pingInterval"`
	WriteTimeout   time.Duration `yaml:"writeTimeout"`
	SendBuffer     int           `yaml:"sendBuffer"`
	MaxMessageSize int64         `yaml:"maxMessageSize"`
	AllowedOrigins []string      `yaml:"allowedOrigins"`
}

type Auth struct {
	Alg           string        `yaml:"alg"` // HS256|RS256
	JWTSecret     string        `yaml:"jwtSecret"`
	PublicKeyPath string        `yaml:"publicKeyPath"`
	Issuer        string        `yaml:"issuer"`
	Audience      string        `yaml:"audience"`
	ClockSkew     time.Duration `yaml:"clockSkew"`
}

func (a Auth) Validate() error {
	switch a.Alg {
	case "HS256":
		if a.JWTSecret == "" {
			return errors.New("auth.jwtSecret (or JWT_SECRET) is required for HS256")
		}
	case "RS256":
		if a.PublicKeyPath == "" {
			return errors.New("auth.publicKeyPath is required for RS256")
		}
	default:
		return fmt.Errorf("auth.alg %q is not supported", a.Alg)
	}
	if a.ClockSkew < 0 || a.ClockSkew > time.Minute {
		return errors.New("auth.clockSkew must be in [0..1m]")
	}
	return nil
}

type Logging struct {
	Env       string `yaml:"env"`       // dev|prod
	Service   string `yaml:"service"`   // room-sync
	Version   string `yaml:"version"`   // v0.1.0
	Backend   string `yaml:"backend"`   // std|zap
	AddSource bool   `yaml:"addSource"` // false|true
	Debug     bool   `yaml:"debug"`     // false|true
}

type Config struct {
	HTTP            HTTP          `yaml:"http"`
	GRPC            GRPC          `yaml:"grpc"`
	Sync            Sync          `yaml:"sync"`
	WS              WS            `yaml:"ws"`
	Auth            Auth          `yaml:"auth"`
	Logging         Logging       `yaml:"logging"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// LoadConfig: .env (если есть) -> YAML -> переменные окружения -> дефолты -> валидация.
// Без явного пути и без CONFIG_PATH отсутствие файла не ошибка.
func LoadConfig(path ...string) (*Config, error) {
	_ = godotenv.Load()

	filename := os.Getenv("CONFIG_PATH")
	if len(path) > 0 && strings.TrimSpace(path[0]) != "" {
		filename = path[0]
	}
	explicit := filename != ""
	if !explicit {
		filename = defaultPath
	}

	var cfg Config
	data, err := os.ReadFile(filename)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config.parse %s: %w", filename, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("config.read: %w", err)
	}

	cfg.applyEnv()
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		c.HTTP.Addr = v
	}
	if v := os.Getenv("GRPC_ADDR"); v != "" {
		c.GRPC.Addr = v
	}
	if v := os.Getenv("APP_ENV"); v != "" {
		c.Logging.Env = v
	}
}

// установка дефолтов, если значения не указаны
func (c *Config) setDefaults() {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	c.HTTP.ReadTimeout = durationOr(c.HTTP.ReadTimeout, 15*time.Second)
	c.HTTP.IdleTimeout = durationOr(c.HTTP.IdleTimeout, 60*time.Second)
	c.HTTP.RequestTimeout = durationOr(c.HTTP.RequestTimeout, 30*time.Second)

	if c.GRPC.Addr == "" {
		c.GRPC.Addr = ":9090"
	}
	c.GRPC.DeadlineGuard = durationOr(c.GRPC.DeadlineGuard, 10*time.Second)

	if c.Sync.EventLogCapacity == 0 {
		c.Sync.EventLogCapacity = 100
	}
	c.Sync.DefaultSinceWindow = durationOr(c.Sync.DefaultSinceWindow, 5*time.Second)

	c.WS.PingInterval = durationOr(c.WS.PingInterval, 15*time.Second)
	c.WS.WriteTimeout = durationOr(c.WS.WriteTimeout, 5*time.Second)
	if c.WS.SendBuffer <= 0 {
		c.WS.SendBuffer = 256
	}
	if c.WS.MaxMessageSize <= 0 {
		c.WS.MaxMessageSize = 64 << 10
	}

	if c.Auth.Alg == "" {
		c.Auth.Alg = "HS256"
	}
	c.Auth.Alg = strings.ToUpper(c.Auth.Alg)

	if c.Logging.Service == "" {
		c.Logging.Service = "room-sync"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}

	c.ShutdownTimeout = durationOr(c.ShutdownTimeout, 10*time.Second)
}

func (c *Config) Validate() error {
	if c.HTTP.Disabled && c.GRPC.Disabled {
		return errors.New("at least one of http or grpc must be enabled")
	}
	if c.Sync.EventLogCapacity <= 0 {
		return errors.New("sync.eventLogCapacity must be > 0")
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	switch c.Logging.Backend {
	case "std", "zap":
	default:
		return fmt.Errorf("logging.backend %q is not supported", c.Logging.Backend)
	}
	return nil
}

func durationOr(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}
