package config

import (
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

const EnvPrefix = "FLOWORK"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	Port          string `envconfig:"PORT" default:"8080" validate:"required,numeric"`
	Env           string `envconfig:"APP_ENV" default:"dev" validate:"oneof=dev prod"`
	AllowedOrigin string `envconfig:"ALLOWED_ORIGIN" default:"http://127.0.0.1:3000"`

	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"LOG_FORMAT" default:"json" validate:"oneof=json console"`
	LogWarnStack bool   `envconfig:"LOG_WARN_STACK" default:"false"`

	UpstreamBaseURL       string        `envconfig:"UPSTREAM_BASE_URL" validate:"required,url"`
	UpstreamCSRFToken     string        `envconfig:"UPSTREAM_CSRF_TOKEN"`
	UpstreamCSRFPage      string        `envconfig:"UPSTREAM_CSRF_PAGE"`
	UpstreamSessionCookie string        `envconfig:"UPSTREAM_SESSION_COOKIE"`
	UpstreamTimeout       time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"15s" validate:"gt=0"`
	UpstreamRPS           float64       `envconfig:"UPSTREAM_RPS" default:"20" validate:"gte=0"`

	RedisAddr     string        `envconfig:"REDIS_ADDR"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0" validate:"gte=0"`
	HeldCartTTL   time.Duration `envconfig:"HELD_CART_TTL" default:"12h" validate:"gt=0"`
	SettingsTTL   time.Duration `envconfig:"SETTINGS_TTL" default:"5m" validate:"gte=0"`

	AuthSecret        string        `envconfig:"AUTH_SECRET"`
	TokenTTL          time.Duration `envconfig:"TOKEN_TTL" default:"8h" validate:"gt=0"`
	ManagerPIN        string        `envconfig:"MANAGER_PIN"`
	AdminUsername     string        `envconfig:"ADMIN_USERNAME" default:"admin"`
	AdminPasswordHash string        `envconfig:"ADMIN_PASSWORD_HASH"`

	SessionIdleTTL  time.Duration `envconfig:"SESSION_IDLE_TTL" default:"30m" validate:"gt=0"`
	PollInterval    time.Duration `envconfig:"POLL_INTERVAL" default:"1s" validate:"gt=0"`
	PollMaxInterval time.Duration `envconfig:"POLL_MAX_INTERVAL" default:"5s" validate:"gtefield=PollInterval"`
	PollMaxAttempts uint64        `envconfig:"POLL_MAX_ATTEMPTS" default:"600" validate:"gt=0"`
}

// Load reads an optional .env file, then the FLOWORK_* environment, and
// validates the result.
func Load(dotenvFiles ...string) (Config, error) {
	if err := loadDotEnv(dotenvFiles...); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "parsing config")
	}
	cfg.AuthSecret = strings.TrimSpace(cfg.AuthSecret)
	cfg.ManagerPIN = strings.TrimSpace(cfg.ManagerPIN)
	cfg.UpstreamBaseURL = strings.TrimRight(strings.TrimSpace(cfg.UpstreamBaseURL), "/")

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, errors.Wrap(err, "validating config")
	}
	return cfg, nil
}

func loadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return errors.Wrapf(err, "loading %s", file)
		}
	}
	return nil
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) IsProd() bool {
	return strings.EqualFold(c.Env, AppEnvProd)
}
