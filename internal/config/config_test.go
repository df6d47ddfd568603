package config

import (
	"log/slog"
	"os"
	"testing"
	"time"
)

// setEnvs устанавливает переменные окружения для теста.
func setEnvs(t *testing.T, envs map[string]string) {
	t.Helper()
	for k, v := range envs {
		t.Setenv(k, v)
	}
}

// minimalEnvs возвращает минимальный набор обязательных переменных.
func minimalEnvs() map[string]string {
	return map[string]string{
		"CR_DB_HOST":     "localhost",
		"CR_DB_NAME":     "contractreview",
		"CR_DB_USER":     "contractreview",
		"CR_DB_PASSWORD": "secret",
	}
}

func TestLoad_MinimalConfig(t *testing.T) {
	setEnvs(t, minimalEnvs())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}

	// Проверяем значения по умолчанию
	if cfg.Port != 8000 {
		t.Errorf("Port = %d, ожидается 8000", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, ожидается Info", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, ожидается json", cfg.LogFormat)
	}
	if cfg.DBHost != "localhost" {
		t.Errorf("DBHost = %q, ожидается localhost", cfg.DBHost)
	}
	if cfg.DBPort != 5432 {
		t.Errorf("DBPort = %d, ожидается 5432", cfg.DBPort)
	}
	if cfg.DBSSLMode != "disable" {
		t.Errorf("DBSSLMode = %q, ожидается disable", cfg.DBSSLMode)
	}
	if !cfg.AllowDevHeaders {
		t.Error("AllowDevHeaders = false, ожидается true по умолчанию")
	}
	if cfg.GatewaySecret != "" {
		t.Errorf("GatewaySecret = %q, ожидается пусто", cfg.GatewaySecret)
	}
	if cfg.StorageRoot != "storage" {
		t.Errorf("StorageRoot = %q, ожидается storage", cfg.StorageRoot)
	}
	if cfg.UNCBase != `\\FQDN\Subfolder` {
		t.Errorf("UNCBase = %q, ожидается \\\\FQDN\\Subfolder", cfg.UNCBase)
	}
	if cfg.MailEnabled() {
		t.Error("MailEnabled() = true, ожидается false без CR_SMTP_HOST")
	}
	if cfg.SMTPPort != 25 {
		t.Errorf("SMTPPort = %d, ожидается 25", cfg.SMTPPort)
	}
	if cfg.SMTPTimeout != 10*time.Second {
		t.Errorf("SMTPTimeout = %v, ожидается 10s", cfg.SMTPTimeout)
	}
	if cfg.ReminderInterval != 0 {
		t.Errorf("ReminderInterval = %v, ожидается 0", cfg.ReminderInterval)
	}
	if cfg.SystemUser != "system.scheduler" {
		t.Errorf("SystemUser = %q, ожидается system.scheduler", cfg.SystemUser)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("ShutdownTimeout = %v, ожидается 5s", cfg.ShutdownTimeout)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	envs := minimalEnvs()
	envs["CR_PORT"] = "8005"
	envs["CR_LOG_LEVEL"] = "debug"
	envs["CR_LOG_FORMAT"] = "text"
	envs["CR_DB_PORT"] = "5433"
	envs["CR_DB_SSL_MODE"] = "require"
	envs["CR_ALLOW_DEV_HEADERS"] = "false"
	envs["CR_GATEWAY_SECRET"] = "gw-secret"
	envs["CR_DEFAULT_ROLES"] = "Customer Service, Technical"
	envs["CR_SMTP_HOST"] = "smtp.example.com"
	envs["CR_SMTP_STARTTLS"] = "true"
	envs["CR_REMINDER_INTERVAL"] = "15m"
	envs["CR_SYSTEM_USER"] = "scheduler"
	envs["CR_SHUTDOWN_TIMEOUT"] = "10s"
	setEnvs(t, envs)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}

	if cfg.Port != 8005 {
		t.Errorf("Port = %d, ожидается 8005", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, ожидается Debug", cfg.LogLevel)
	}
	if cfg.LogFormat != "text" {
		t.Errorf("LogFormat = %q, ожидается text", cfg.LogFormat)
	}
	if cfg.DBPort != 5433 {
		t.Errorf("DBPort = %d, ожидается 5433", cfg.DBPort)
	}
	if cfg.DBSSLMode != "require" {
		t.Errorf("DBSSLMode = %q, ожидается require", cfg.DBSSLMode)
	}
	if cfg.AllowDevHeaders {
		t.Error("AllowDevHeaders = true, ожидается false")
	}
	if cfg.GatewaySecret != "gw-secret" {
		t.Errorf("GatewaySecret = %q, ожидается gw-secret", cfg.GatewaySecret)
	}
	if len(cfg.DefaultRoles) != 2 || cfg.DefaultRoles[0] != "Customer Service" || cfg.DefaultRoles[1] != "Technical" {
		t.Errorf("DefaultRoles = %v, ожидается [Customer Service Technical]", cfg.DefaultRoles)
	}
	if !cfg.MailEnabled() {
		t.Error("MailEnabled() = false, ожидается true")
	}
	if !cfg.SMTPStartTLS {
		t.Error("SMTPStartTLS = false, ожидается true")
	}
	if cfg.ReminderInterval != 15*time.Minute {
		t.Errorf("ReminderInterval = %v, ожидается 15m", cfg.ReminderInterval)
	}
	if cfg.SystemUser != "scheduler" {
		t.Errorf("SystemUser = %q, ожидается scheduler", cfg.SystemUser)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, ожидается 10s", cfg.ShutdownTimeout)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	requiredVars := []string{
		"CR_DB_HOST", "CR_DB_NAME", "CR_DB_USER", "CR_DB_PASSWORD",
	}

	for _, missing := range requiredVars {
		t.Run(missing, func(t *testing.T) {
			envs := minimalEnvs()
			delete(envs, missing)
			// Очищаем все переменные окружения
			for k := range minimalEnvs() {
				os.Unsetenv(k)
			}
			setEnvs(t, envs)

			_, err := Load()
			if err == nil {
				t.Errorf("Load() не вернул ошибку при отсутствии %s", missing)
			}
		})
	}
}

func TestLoad_InvalidPort(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"ноль", "0"},
		{"выше диапазона", "70000"},
		{"не число", "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			envs := minimalEnvs()
			envs["CR_PORT"] = tt.value
			setEnvs(t, envs)

			_, err := Load()
			if err == nil {
				t.Errorf("Load() не вернул ошибку при CR_PORT=%q", tt.value)
			}
		})
	}
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	envs := minimalEnvs()
	envs["CR_LOG_LEVEL"] = "verbose"
	setEnvs(t, envs)

	_, err := Load()
	if err == nil {
		t.Error("Load() не вернул ошибку при CR_LOG_LEVEL=verbose")
	}
}

func TestLoad_InvalidLogFormat(t *testing.T) {
	envs := minimalEnvs()
	envs["CR_LOG_FORMAT"] = "xml"
	setEnvs(t, envs)

	_, err := Load()
	if err == nil {
		t.Error("Load() не вернул ошибку при CR_LOG_FORMAT=xml")
	}
}

func TestLoad_InvalidSSLMode(t *testing.T) {
	envs := minimalEnvs()
	envs["CR_DB_SSL_MODE"] = "prefer"
	setEnvs(t, envs)

	_, err := Load()
	if err == nil {
		t.Error("Load() не вернул ошибку при CR_DB_SSL_MODE=prefer")
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	envs := minimalEnvs()
	envs["CR_REMINDER_INTERVAL"] = "abc"
	setEnvs(t, envs)

	_, err := Load()
	if err == nil {
		t.Error("Load() не вернул ошибку при CR_REMINDER_INTERVAL=abc")
	}
}

func TestDatabaseDSN(t *testing.T) {
	cfg := &Config{
		DBHost:     "db.example.com",
		DBPort:     5432,
		DBName:     "contractreview",
		DBUser:     "user",
		DBPassword: "pass",
		DBSSLMode:  "disable",
	}
	expected := "host=db.example.com port=5432 dbname=contractreview user=user password=pass sslmode=disable"
	if dsn := cfg.DatabaseDSN(); dsn != expected {
		t.Errorf("DatabaseDSN() = %q, ожидается %q", dsn, expected)
	}
}

func TestSetupLogger(t *testing.T) {
	tests := []struct {
		name   string
		format string
	}{
		{"json", "json"},
		{"text", "text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				LogLevel:  slog.LevelInfo,
				LogFormat: tt.format,
			}
			logger := SetupLogger(cfg)
			if logger == nil {
				t.Error("SetupLogger() вернул nil")
			}
		})
	}
}

func TestParseCSV(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"", nil},
		{"Admin", []string{"Admin"}},
		{"Admin, Legal", []string{"Admin", "Legal"}},
		{"Admin,,Legal,", []string{"Admin", "Legal"}},
		{" Admin , Legal , Technical ", []string{"Admin", "Legal", "Technical"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := parseCSV(tt.input)
			if len(result) != len(tt.expected) {
				t.Fatalf("parseCSV(%q) = %v (len %d), ожидается %v (len %d)",
					tt.input, result, len(result), tt.expected, len(tt.expected))
			}
			for i, v := range result {
				if v != tt.expected[i] {
					t.Errorf("parseCSV(%q)[%d] = %q, ожидается %q", tt.input, i, v, tt.expected[i])
				}
			}
		})
	}
}
