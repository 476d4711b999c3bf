// config предоставляет структуру конфигурации сервиса и функции
// загрузки из файла/переменных окружения с предсказуемым приоритетом.
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config — корневая конфигурация (общая для auth-service и gateway).
// Источники значений (по убыванию приоритета):
//  1. явный путь через флаг --config;
//  2. путь в переменной окружения CONFIG_PATH;
//  3. файл local.yaml из рабочей директории;
//  4. переменные окружения (cleanenv).
//
// Секреты, TTL и пороги живут только здесь и передаются в компоненты
// при конструировании; ядро не читает окружение само.
type Config struct {
	Env      string        `yaml:"env" env:"ENV" env-default:"local"`
	HTTP     HTTPConfig    `yaml:"http"`
	Auth     AuthConfig    `yaml:"auth"`
	DB       DBConfig      `yaml:"db"`
	Cookies  CookieConfig  `yaml:"cookies"`
	Gateway  GatewayConfig `yaml:"gateway"`
	Limits   LimitsConfig  `yaml:"limits"`
	Timeouts TimeoutConfig `yaml:"timeouts"`
}

// TimeoutConfig — таймауты сервиса.
type TimeoutConfig struct {
	Service time.Duration `yaml:"service" env:"SERVICE_TIMEOUT" env-default:"5s"`
}

// HTTPConfig — сетевые настройки HTTP-сервера auth-service.
type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"4000"`
}

// Addr возвращает адрес в формате host:port.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

// AuthConfig содержит параметры выпуска/валидации токенов и политику блокировки.
type AuthConfig struct {
	// AccessSecret и RefreshSecret обязаны различаться: утечка одного
	// не должна позволять подделывать токены другого класса.
	AccessSecret    string        `yaml:"access_secret" env:"JWT_ACCESS_SECRET" env-required:"true"`
	RefreshSecret   string        `yaml:"refresh_secret" env:"JWT_REFRESH_SECRET" env-required:"true"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl" env:"ACCESS_TOKEN_TTL" env-default:"15m"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl" env:"REFRESH_TOKEN_TTL" env-default:"168h"`
	Issuer          string        `yaml:"issuer" env:"ISSUER" env-default:"service-desk"`
	// LockThreshold — число неудачных попыток входа до блокировки.
	LockThreshold int           `yaml:"lock_threshold" env:"ACCOUNT_LOCK_THRESHOLD" env-default:"5"`
	LockDuration  time.Duration `yaml:"lock_duration" env:"ACCOUNT_LOCK_DURATION" env-default:"15m"`
}

// DBConfig — настройки подключения к базе данных.
type DBConfig struct {
	DatabaseURL string `yaml:"db_url" env:"DATABASE_URL" env-required:"true"`
}

// CookieConfig — параметры сессионных cookie.
// Оба cookie всегда HttpOnly и SameSite=Strict; Secure отключается
// только в локальной разработке.
type CookieConfig struct {
	Domain      string `yaml:"domain" env:"COOKIE_DOMAIN" env-default:"localhost"`
	Secure      bool   `yaml:"secure" env:"SECURE_COOKIES" env-default:"true"`
	AccessName  string `yaml:"access_name" env:"ACCESS_COOKIE_NAME" env-default:"sd_access"`
	RefreshName string `yaml:"refresh_name" env:"REFRESH_COOKIE_NAME" env-default:"sd_refresh"`
}

// GatewayConfig — настройки периметра.
type GatewayConfig struct {
	Host         string `yaml:"host" env:"GATEWAY_HOST" env-default:"0.0.0.0"`
	Port         string `yaml:"port" env:"GATEWAY_PORT" env-default:"8443"`
	RedirectPort string `yaml:"redirect_port" env:"GATEWAY_REDIRECT_PORT" env-default:"8080"`
	AuthUpstream string `yaml:"auth_upstream" env:"AUTH_SERVICE_URL" env-default:"http://localhost:4000"`
	APIUpstream  string `yaml:"api_upstream" env:"API_SERVICE_URL" env-default:"http://localhost:5000"`
	TLSCertPath  string `yaml:"tls_cert" env:"TLS_CERT_PATH"`
	TLSKeyPath   string `yaml:"tls_key" env:"TLS_KEY_PATH"`
}

// Addr возвращает адрес в формате host:port.
func (g GatewayConfig) Addr() string {
	return net.JoinHostPort(g.Host, g.Port)
}

// RedirectAddr — адрес plain-HTTP листенера с редиректом на HTTPS.
func (g GatewayConfig) RedirectAddr() string {
	return net.JoinHostPort(g.Host, g.RedirectPort)
}

// LimitsConfig — параметры fixed-window rate-limiter'ов.
type LimitsConfig struct {
	// Login* ограничивает POST /login в auth-service.
	LoginMax    int           `yaml:"login_max" env:"LOGIN_RATE_MAX" env-default:"10"`
	LoginWindow time.Duration `yaml:"login_window" env:"LOGIN_RATE_WINDOW" env-default:"15m"`
	// Gateway* ограничивает запросы на каждый префикс периметра.
	GatewayMax    int           `yaml:"gateway_max" env:"GATEWAY_RATE_MAX" env-default:"100"`
	GatewayWindow time.Duration `yaml:"gateway_window" env:"GATEWAY_RATE_WINDOW" env-default:"15m"`
	// RedisURL — опциональный общий бэкенд счётчиков; пусто — память процесса.
	RedisURL string `yaml:"redis_url" env:"RATE_REDIS_URL"`
}

// MustLoad — обёртка над Load с panic при ошибке.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

// Load загружает конфигурацию по приоритету:
// 1) явный путь; 2) CONFIG_PATH; 3) ./local.yaml; 4) ENV.
// ВАЖНО: после чтения файла накладываем ENV-переменные поверх значений из YAML.
func Load(path string) (*Config, error) {
	var cfg Config

	// чтение файла + overlay ENV.
	tryRead := func(p string) (*Config, error) {
		if p == "" {
			return nil, fmt.Errorf("empty config path")
		}

		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		return &cfg, nil
	}

	// 1) Явный путь.
	if path != "" {
		c, err := tryRead(path)
		if err != nil {
			return nil, err
		}

		return c, c.validate()
	}

	// 2) CONFIG_PATH.
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		c, err := tryRead(envPath)
		if err != nil {
			return nil, err
		}

		return c, c.validate()
	}

	// 3) ./local.yaml.
	if _, err := os.Stat("local.yaml"); err == nil {
		if err := cleanenv.ReadConfig("local.yaml", &cfg); err != nil {
			return nil, fmt.Errorf("failed to read local.yaml: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		return &cfg, cfg.validate()
	}

	// 4) Только ENV.
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}

	return &cfg, cfg.validate()
}

// validate проверяет инварианты, которые cleanenv выразить не может.
func (c *Config) validate() error {
	if c.Auth.AccessSecret == c.Auth.RefreshSecret {
		return fmt.Errorf("access and refresh secrets must differ")
	}

	if c.Auth.LockThreshold <= 0 {
		return fmt.Errorf("lock threshold must be positive")
	}

	return nil
}
