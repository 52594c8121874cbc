// Package config предоставялет структуры и функции для парсинга и загрузки конфига.
//
// Конфиг читается из YAML-файла по пути CONFIG_PATH, значения переопределяются
// переменными окружения. Если CONFIG_PATH не задан, конфиг собирается только из окружения.
// Перед чтением подгружается .env, если он есть рядом с бинарником.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	// EnvLocal локальное окружение разработчика.
	EnvLocal = "local"
	// EnvDev тестовый стенд.
	EnvDev = "dev"
	// EnvProd боевое окружение.
	EnvProd = "prod"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_DSN"`
	MigrationsPath          string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
	GRPCAuthAddress         string `yaml:"grpc_auth_address" env:"GRPC_AUTH_ADDRESS" env-default:":50051"`
	AuthRemoteAddress       string `yaml:"auth_remote_address" env:"AUTH_REMOTE_ADDRESS"`
	HTTPServer              `yaml:"http_server"`
	RedisConnection         `yaml:"redis_connection"`
	RabbitMQ                `yaml:"rabbitmq"`
	JWTToken                `yaml:"jwttoken"`
	Entitlement             `yaml:"entitlement"`
	Scheduler               `yaml:"scheduler"`
	LoginRateLimit          `yaml:"login_rate_limit"`

	// Warnings накапливает предупреждения, найденные при загрузке.
	// Логгер ещё не создан в момент загрузки, поэтому их выводит main.
	Warnings []string `yaml:"-" env:"-"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env:"HTTP_ADDRESS" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env:"HTTP_TIMEOUT" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis.
// Пустой адрес отключает кеш и отзыв токенов.
type RedisConnection struct {
	RedisAddress     string        `yaml:"addressredis" env:"REDIS_ADDRESS"`
	RedisPassword    string        `yaml:"password" env:"REDIS_PASSWORD"`
	RedisUser        string        `yaml:"user" env:"REDIS_USER"`
	RedisDB          int           `yaml:"db" env:"REDIS_DB"`
	RedisMaxRetries  int           `yaml:"max_retries" env:"REDIS_MAX_RETRIES" env-default:"3"`
	RedisDialTimeout time.Duration `yaml:"dial_timeout" env:"REDIS_DIAL_TIMEOUT" env-default:"5s"`
	RedisTimeout     time.Duration `yaml:"timeoutredis" env:"REDIS_TIMEOUT" env-default:"3s"`
}

// RabbitMQ структура для подключения к брокеру событий.
// Пустой URL отключает публикацию событий.
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url" env:"RABBITMQ_URL"`
	RabbitMQMaxRetries int           `yaml:"max_retries" env:"RABBITMQ_MAX_RETRIES" env-default:"5"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env:"RABBITMQ_RETRY_DELAY" env-default:"2s"`
}

// JWTToken структура для работы с jwt-токеном
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET"`
	TokenTTL     time.Duration `yaml:"token_ttl" env:"JWT_EXPIRES_IN" env-default:"24h"`
}

// Entitlement параметры политики доступа.
type Entitlement struct {
	TrialDays         int `yaml:"trial_days" env:"TRIAL_DAYS" env-default:"7"`
	PasswordMinLength int `yaml:"password_min_length" env:"PASSWORD_MIN_LENGTH" env-default:"6"`
}

// Scheduler расписание поиска истекающих подписок (формат robfig/cron).
type Scheduler struct {
	SchedulerSpec string `yaml:"spec" env:"SCHEDULER_SPEC" env-default:"@daily"`
}

// LoginRateLimit ограничение частоты запросов на вход с одного адреса.
type LoginRateLimit struct {
	LoginRate  float64 `yaml:"rate" env:"LOGIN_RATE_LIMIT" env-default:"1"`
	LoginBurst int     `yaml:"burst" env:"LOGIN_RATE_BURST" env-default:"5"`
}

// ErrMissingSecret возвращается, если в боевом окружении не задан ключ подписи токенов.
var ErrMissingSecret = errors.New("JWT_SECRET must be set in prod")

// Секреты-заглушки из примеров и старых ревизий, которые нельзя использовать.
var knownPlaceholderSecrets = map[string]struct{}{
	"secret":                               {},
	"changeme":                             {},
	"your-secret-key":                      {},
	"your_jwt_secret":                      {},
	"super-secret-key-change-this-in-prod": {},
}

// Load читает конфиг и проверяет его. В отличие от MustLoad не завершает процесс.
func Load() (*Config, error) {
	const op = "config.Load"

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var cfg Config
	configPath := os.Getenv("CONFIG_PATH")
	if configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: file %s does not exist", op, configPath)
		}
		if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := cfg.resolveSecret(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &cfg, nil
}

// MustLoad функция для загрузки конфига, завершает процесс при ошибке.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

func (c *Config) validate() error {
	switch {
	case c.TokenTTL <= 0:
		return fmt.Errorf("token ttl must be positive, got %s", c.TokenTTL)
	case c.TrialDays < 0:
		return fmt.Errorf("trial days must not be negative, got %d", c.TrialDays)
	case c.PasswordMinLength < 1:
		return fmt.Errorf("password min length must be positive, got %d", c.PasswordMinLength)
	}
	return nil
}

// resolveSecret проверяет ключ подписи. Пустой или общеизвестный ключ в prod
// является ошибкой, в остальных окружениях заменяется случайным ключом процесса.
func (c *Config) resolveSecret() error {
	_, placeholder := knownPlaceholderSecrets[strings.ToLower(c.JWTSecretKey)]
	if c.JWTSecretKey != "" && !placeholder {
		return nil
	}
	if c.Env == EnvProd {
		return ErrMissingSecret
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Errorf("generate fallback secret: %w", err)
	}
	c.JWTSecretKey = hex.EncodeToString(buf)
	c.Warnings = append(c.Warnings,
		"JWT_SECRET is not set or is a placeholder: using a random per-process secret, tokens will not survive a restart")
	return nil
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"Redis: %s (db %d)\n"+
			"RabbitMQ: %t\n"+
			"JWTToken:\n"+
			"  JWTSecretKey: ***\n"+
			"  TokenTTL: %s\n"+
			"Entitlement:\n"+
			"  TrialDays: %d\n"+
			"  PasswordMinLength: %d\n",
		c.Env,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.RedisAddress,
		c.RedisDB,
		c.RabbitMQURL != "",
		c.TokenTTL,
		c.TrialDays,
		c.PasswordMinLength,
	)
}
