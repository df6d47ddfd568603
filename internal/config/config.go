// Пакет config — загрузка и валидация конфигурации Contract Review
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

// Config содержит все параметры конфигурации сервиса.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- PostgreSQL ---

	// Хост PostgreSQL
	DBHost string
	// Порт PostgreSQL
	DBPort int
	// Имя базы данных
	DBName string
	// Имя пользователя PostgreSQL
	DBUser string
	// Пароль пользователя PostgreSQL
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string

	// --- Идентификация ---

	// Разрешены ли доверенные заголовки X-Remote-User / X-User-Roles
	// (dev-режим или доверенный gateway без подписи)
	AllowDevHeaders bool
	// Секрет для HS256-валидации токена идентификации от gateway.
	// Пустая строка — режим токена отключён.
	GatewaySecret string
	// Роли, присваиваемые каждому запросу по умолчанию (через запятую)
	DefaultRoles []string

	// --- Хранилище документов ---

	// Корневой каталог локального хранилища документов
	StorageRoot string
	// База UNC-пути, записываемого в реестр документов
	UNCBase string

	// --- SMTP ---

	// Хост SMTP-сервера. Пустая строка — почта отключена.
	SMTPHost string
	// Порт SMTP-сервера
	SMTPPort int
	// Адрес отправителя
	SMTPSender string
	// Имя пользователя SMTP (опционально)
	SMTPUsername string
	// Пароль SMTP (опционально)
	SMTPPassword string
	// Использовать STARTTLS
	SMTPStartTLS bool
	// Таймаут соединения и отправки
	SMTPTimeout time.Duration

	// --- Напоминания ---

	// Интервал фоновой проверки стареющих workflow.
	// Ноль — фоновые напоминания отключены.
	ReminderInterval time.Duration
	// Имя синтетического системного пользователя планировщика
	SystemUser string

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// CR_PORT — порт HTTP-сервера (по умолчанию 8000)
	cfg.Port, err = getEnvInt("CR_PORT", 8000)
	if err != nil {
		return nil, fmt.Errorf("CR_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("CR_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	// CR_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("CR_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("CR_LOG_LEVEL: %w", err)
	}

	// CR_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("CR_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("CR_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- PostgreSQL ---

	// CR_DB_HOST — обязательный
	cfg.DBHost, err = getEnvRequired("CR_DB_HOST")
	if err != nil {
		return nil, err
	}

	// CR_DB_PORT — порт PostgreSQL (по умолчанию 5432)
	cfg.DBPort, err = getEnvInt("CR_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("CR_DB_PORT: %w", err)
	}

	// CR_DB_NAME — обязательный
	cfg.DBName, err = getEnvRequired("CR_DB_NAME")
	if err != nil {
		return nil, err
	}

	// CR_DB_USER — обязательный
	cfg.DBUser, err = getEnvRequired("CR_DB_USER")
	if err != nil {
		return nil, err
	}

	// CR_DB_PASSWORD — обязательный
	cfg.DBPassword, err = getEnvRequired("CR_DB_PASSWORD")
	if err != nil {
		return nil, err
	}

	// CR_DB_SSL_MODE — режим SSL (по умолчанию disable)
	cfg.DBSSLMode = getEnvDefault("CR_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("CR_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// --- Идентификация ---

	// CR_ALLOW_DEV_HEADERS — доверять заголовкам X-Remote-User / X-User-Roles (по умолчанию true)
	cfg.AllowDevHeaders, err = getEnvBool("CR_ALLOW_DEV_HEADERS", true)
	if err != nil {
		return nil, fmt.Errorf("CR_ALLOW_DEV_HEADERS: %w", err)
	}

	// CR_GATEWAY_SECRET — секрет для HS256-токена gateway (опционально)
	cfg.GatewaySecret = getEnvDefault("CR_GATEWAY_SECRET", "")

	// CR_DEFAULT_ROLES — роли по умолчанию (через запятую, опционально)
	cfg.DefaultRoles = parseCSV(getEnvDefault("CR_DEFAULT_ROLES", ""))

	// --- Хранилище документов ---

	// CR_STORAGE_ROOT — корень локального хранилища (по умолчанию "storage")
	cfg.StorageRoot = getEnvDefault("CR_STORAGE_ROOT", "storage")

	// CR_UNC_BASE — база UNC-пути реестра документов
	cfg.UNCBase = getEnvDefault("CR_UNC_BASE", `\\FQDN\Subfolder`)

	// --- SMTP ---

	// CR_SMTP_HOST — хост SMTP (пусто — почта отключена)
	cfg.SMTPHost = getEnvDefault("CR_SMTP_HOST", "")

	// CR_SMTP_PORT — порт SMTP (по умолчанию 25)
	cfg.SMTPPort, err = getEnvInt("CR_SMTP_PORT", 25)
	if err != nil {
		return nil, fmt.Errorf("CR_SMTP_PORT: %w", err)
	}

	// CR_SMTP_SENDER — адрес отправителя
	cfg.SMTPSender = getEnvDefault("CR_SMTP_SENDER", "noreply@contractreview.local")

	// CR_SMTP_USERNAME / CR_SMTP_PASSWORD — учётные данные (опционально)
	cfg.SMTPUsername = getEnvDefault("CR_SMTP_USERNAME", "")
	cfg.SMTPPassword = getEnvDefault("CR_SMTP_PASSWORD", "")

	// CR_SMTP_STARTTLS — использовать STARTTLS (по умолчанию false)
	cfg.SMTPStartTLS, err = getEnvBool("CR_SMTP_STARTTLS", false)
	if err != nil {
		return nil, fmt.Errorf("CR_SMTP_STARTTLS: %w", err)
	}

	// CR_SMTP_TIMEOUT — таймаут SMTP (по умолчанию 10s)
	cfg.SMTPTimeout, err = getEnvDuration("CR_SMTP_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CR_SMTP_TIMEOUT: %w", err)
	}

	// --- Напоминания ---

	// CR_REMINDER_INTERVAL — интервал фоновой проверки (0 — отключено)
	cfg.ReminderInterval, err = getEnvDuration("CR_REMINDER_INTERVAL", 0)
	if err != nil {
		return nil, fmt.Errorf("CR_REMINDER_INTERVAL: %w", err)
	}

	// CR_SYSTEM_USER — имя системного пользователя планировщика
	cfg.SystemUser = getEnvDefault("CR_SYSTEM_USER", "system.scheduler")

	// --- Graceful shutdown ---

	// CR_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("CR_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CR_SHUTDOWN_TIMEOUT: %w", err)
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

// MailEnabled сообщает, настроена ли отправка почты.
func (c *Config) MailEnabled() bool {
	return c.SMTPHost != ""
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

	logger := slog.New(handler)
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

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
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

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q", val)
	}
	return b, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
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
