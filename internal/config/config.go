// Пакет config — загрузка и валидация конфигурации API-ETL
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Значения по умолчанию для секретов шифрования токена.
// Совпадают с исходной инсталляцией, иначе выданные ранее токены
// перестанут расшифровываться.
const (
	DefaultTokenEncryptionKey = "960d2c71052"
	DefaultTokenEncryptionIV  = "354712Zxvagjalwq"
)

// Режимы проверки пользователя в каталоге.
const (
	DirectoryModeStatic   = "static"
	DirectoryModeKeycloak = "keycloak"
)

// Config содержит все параметры конфигурации API-ETL.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- PostgreSQL ---

	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string

	// --- Токены ---

	// Секрет подписи JWT (HS256), обязательный
	JWTSecret string
	// Время жизни выдаваемого токена
	JWTExpiresIn time.Duration
	// Исходная строка для вывода ключа AES
	TokenEncryptionKey string
	// Исходная строка для вывода IV AES
	TokenEncryptionIV string
	// true, если хотя бы один секрет шифрования взят по умолчанию
	TokenEncryptionDefaults bool

	// --- Каталог пользователей ---

	// Режим каталога: static или keycloak
	DirectoryMode string
	// Пользователи статического каталога
	DirectoryUsers []string

	// --- Keycloak (только для DirectoryMode=keycloak) ---

	KeycloakURL          string
	KeycloakRealm        string
	KeycloakClientID     string
	KeycloakClientSecret string

	// --- topologymetrics ---

	// Группа в метриках зависимостей
	DephealthGroup string
	// Интервал проверки зависимостей
	DephealthCheckInterval time.Duration

	// --- Graceful shutdown ---

	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
// Вызывается один раз при старте, до приёма трафика.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// ETL_PORT — порт HTTP-сервера (по умолчанию 3000)
	cfg.Port, err = getEnvInt("ETL_PORT", 3000)
	if err != nil {
		return nil, fmt.Errorf("ETL_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("ETL_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	cfg.LogLevel, err = parseLogLevel(getEnvDefault("ETL_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("ETL_LOG_LEVEL: %w", err)
	}

	cfg.LogFormat = getEnvDefault("ETL_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("ETL_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- PostgreSQL ---

	cfg.DBHost, err = getEnvRequired("ETL_DB_HOST")
	if err != nil {
		return nil, err
	}

	cfg.DBPort, err = getEnvInt("ETL_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("ETL_DB_PORT: %w", err)
	}

	cfg.DBName, err = getEnvRequired("ETL_DB_NAME")
	if err != nil {
		return nil, err
	}

	cfg.DBUser, err = getEnvRequired("ETL_DB_USER")
	if err != nil {
		return nil, err
	}

	cfg.DBPassword, err = getEnvRequired("ETL_DB_PASSWORD")
	if err != nil {
		return nil, err
	}

	cfg.DBSSLMode = getEnvDefault("ETL_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("ETL_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// --- Токены ---

	// ETL_JWT_SECRET — обязательный, без него сервис не стартует
	cfg.JWTSecret, err = getEnvRequired("ETL_JWT_SECRET")
	if err != nil {
		return nil, err
	}

	cfg.JWTExpiresIn, err = getEnvDuration("ETL_JWT_EXPIRES_IN", 8*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("ETL_JWT_EXPIRES_IN: %w", err)
	}
	if cfg.JWTExpiresIn <= 0 {
		return nil, fmt.Errorf("ETL_JWT_EXPIRES_IN: значение должно быть положительным, получено %s", cfg.JWTExpiresIn)
	}

	cfg.TokenEncryptionKey = os.Getenv("ETL_TOKEN_ENCRYPTION_KEY")
	cfg.TokenEncryptionIV = os.Getenv("ETL_TOKEN_ENCRYPTION_IV")
	if cfg.TokenEncryptionKey == "" {
		cfg.TokenEncryptionKey = DefaultTokenEncryptionKey
		cfg.TokenEncryptionDefaults = true
	}
	if cfg.TokenEncryptionIV == "" {
		cfg.TokenEncryptionIV = DefaultTokenEncryptionIV
		cfg.TokenEncryptionDefaults = true
	}

	// --- Каталог ---

	cfg.DirectoryMode = getEnvDefault("ETL_DIRECTORY_MODE", DirectoryModeStatic)
	switch cfg.DirectoryMode {
	case DirectoryModeStatic:
		cfg.DirectoryUsers = parseCSV(getEnvDefault("ETL_DIRECTORY_USERS",
			"admin_user,consultor_user,consultor_dos,UsuarioPruebaLog2"))
	case DirectoryModeKeycloak:
		cfg.KeycloakURL, err = getEnvRequired("ETL_KEYCLOAK_URL")
		if err != nil {
			return nil, err
		}
		cfg.KeycloakURL = strings.TrimRight(cfg.KeycloakURL, "/")
		cfg.KeycloakRealm = getEnvDefault("ETL_KEYCLOAK_REALM", "etl")
		cfg.KeycloakClientID, err = getEnvRequired("ETL_KEYCLOAK_CLIENT_ID")
		if err != nil {
			return nil, err
		}
		cfg.KeycloakClientSecret, err = getEnvRequired("ETL_KEYCLOAK_CLIENT_SECRET")
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("ETL_DIRECTORY_MODE: недопустимое значение %q, допустимые: static, keycloak", cfg.DirectoryMode)
	}

	// --- topologymetrics ---

	cfg.DephealthGroup = getEnvDefault("ETL_DEPHEALTH_GROUP", "etl-monitoring")
	cfg.DephealthCheckInterval, err = getEnvDuration("ETL_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("ETL_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	cfg.ShutdownTimeout, err = getEnvDuration("ETL_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("ETL_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL PostgreSQL без пароля (для лейблов метрик).
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%d/%s", c.DBHost, c.DBPort, c.DBName)
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler).With(slog.String("service", "api-etl"))
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 8h)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}

// parseCSV разбирает строку, разделённую запятыми, на срез строк.
// Пробелы вокруг элементов убираются, пустые элементы игнорируются.
func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
