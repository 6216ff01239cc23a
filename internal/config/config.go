// config предоставляет структуру конфигурации клиентского ядра магазина
// и функции загрузки из файла/переменных окружения с предсказуемым приоритетом.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config — корневая конфигурация клиента.
// Источники значений (по убыванию приоритета):
//  1. явный путь через флаг --config;
//  2. путь в переменной окружения CONFIG_PATH;
//  3. файл local.yaml из рабочей директории;
//  4. переменные окружения (cleanenv).
type Config struct {
	Env          string             `yaml:"env" env:"ENV" env-default:"local"`
	API          APIConfig          `yaml:"api"`
	Auth         AuthConfig         `yaml:"auth"`
	Tokens       TokensConfig       `yaml:"tokens"`
	Verification VerificationConfig `yaml:"verification"`
}

// APIConfig — адрес и таймаут удалённого API магазина.
type APIConfig struct {
	BaseURL string        `yaml:"base_url" env:"API_BASE_URL" env-required:"true"`
	Timeout time.Duration `yaml:"timeout" env:"API_TIMEOUT" env-default:"15s"`
}

// AuthConfig — пути аутентификационных эндпоинтов.
// Базовый URL общий (APIConfig.BaseURL), здесь только относительные пути.
type AuthConfig struct {
	LoginPath          string `yaml:"login_path" env:"AUTH_LOGIN_PATH" env-default:"/api/auth/login"`
	RefreshPath        string `yaml:"refresh_path" env:"AUTH_REFRESH_PATH" env-default:"/api/auth/token"`
	RecheckPath        string `yaml:"recheck_path" env:"AUTH_RECHECK_PATH" env-default:"/api/auth/login/recheck"`
	ChangePasswordPath string `yaml:"change_password_path" env:"AUTH_CHANGE_PASSWORD_PATH" env-default:"/api/auth/change/password"`
}

// Бэкенды хранилища токенов.
const (
	TokensBackendMemory = "memory"
	TokensBackendFile   = "file"
	TokensBackendRedis  = "redis"
)

// TokensConfig — выбор и настройки хранилища пары токенов.
type TokensConfig struct {
	Backend string `yaml:"backend" env:"TOKENS_BACKEND" env-default:"memory"`
	// FilePath — путь к файлу для backend=file.
	FilePath string `yaml:"file_path" env:"TOKENS_FILE_PATH" env-default:""`
	// RedisURL — URL Redis для backend=redis (redis://:pass@host:6379/0).
	RedisURL string `yaml:"redis_url" env:"TOKENS_REDIS_URL" env-default:""`
	// RedisPrefix — префикс ключей; пустой заменяется на "store:auth:".
	RedisPrefix string `yaml:"redis_prefix" env:"TOKENS_REDIS_PREFIX" env-default:""`
}

// VerificationConfig — окна действия кода подтверждения по потокам.
// Константы окон фиксированы политикой продукта (120–300 секунд),
// поэтому дефолты здесь — источник истинности.
type VerificationConfig struct {
	EmailWindow    time.Duration `yaml:"email_window" env:"VERIFY_EMAIL_WINDOW" env-default:"300s"`
	PhoneWindow    time.Duration `yaml:"phone_window" env:"VERIFY_PHONE_WINDOW" env-default:"180s"`
	LoginIDWindow  time.Duration `yaml:"login_id_window" env:"VERIFY_LOGIN_ID_WINDOW" env-default:"180s"`
	PasswordWindow time.Duration `yaml:"password_window" env:"VERIFY_PASSWORD_WINDOW" env-default:"300s"`
	// TickInterval — период тика обратного отсчёта. В продакшене всегда
	// секунда; в тестах сокращается.
	TickInterval time.Duration `yaml:"tick_interval" env:"VERIFY_TICK_INTERVAL" env-default:"1s"`
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
// После чтения файла ENV-переменные накладываются поверх значений из YAML.
func Load(path string) (*Config, error) {
	var cfg Config

	tryRead := func(p string) (*Config, error) {
		if p == "" {
			return nil, fmt.Errorf("empty config path")
		}

		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file does not exist: %q: %w", p, err)
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
		return tryRead(path)
	}

	// 2) CONFIG_PATH.
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return tryRead(envPath)
	}

	// 3) ./local.yaml.
	if _, err := os.Stat("local.yaml"); err == nil {
		return tryRead("local.yaml")
	}

	// 4) Только ENV.
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read env config: %w", err)
	}

	return &cfg, nil
}

// Window возвращает окно действия кода для указанного потока.
// Неизвестный поток получает минимальное окно политики.
func (v VerificationConfig) Window(flow string) time.Duration {
	switch flow {
	case "email":
		return v.EmailWindow
	case "phone":
		return v.PhoneWindow
	case "login-id":
		return v.LoginIDWindow
	case "password":
		return v.PasswordWindow
	default:
		return 120 * time.Second
	}
}
