// Точка входа Contract Review — сервис согласования договорных документов.
// Загружает конфигурацию, подключается к PostgreSQL, применяет миграции,
// создаёт сервисный слой и API handlers, запускает фоновые напоминания
// о старении, HTTP-сервер с определением идентичности и graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/bigkaa/contractflow/internal/api/handlers"
	"github.com/bigkaa/contractflow/internal/api/middleware"
	"github.com/bigkaa/contractflow/internal/config"
	"github.com/bigkaa/contractflow/internal/database"
	"github.com/bigkaa/contractflow/internal/mailer"
	"github.com/bigkaa/contractflow/internal/repository"
	"github.com/bigkaa/contractflow/internal/server"
	"github.com/bigkaa/contractflow/internal/service"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Contract Review запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 5. Store — репозитории поверх пула с поддержкой транзакций
	store := repository.NewStore(pool)

	// 6. Почта и уведомления
	mail := mailer.New(cfg, logger)
	if mail.Enabled() {
		logger.Info("Отправка почты включена",
			slog.String("host", cfg.SMTPHost),
			slog.Int("port", cfg.SMTPPort),
		)
	} else {
		logger.Info("Отправка почты отключена (CR_SMTP_HOST не задан)")
	}
	notifier := service.NewNotifier(mail, logger)

	// 7. Реестр документов
	ledger := service.NewDocumentLedger(cfg.StorageRoot, cfg.UNCBase, logger)

	// 8. Services
	workflowSvc := service.NewWorkflowService(store, ledger, notifier, logger)
	dashboardSvc := service.NewDashboardService(store, logger)
	notificationSvc := service.NewNotificationService(store)
	settingsSvc := service.NewSettingsService(store, logger)
	roleSvc := service.NewRoleService(store, logger)
	reminderSvc := service.NewReminderService(store, notifier, cfg.SystemUser, cfg.ReminderInterval, logger)

	// 9. Readiness checker и health handler
	pgChecker := database.NewReadinessChecker(pool)
	healthHandler := handlers.NewHealthHandler(pgChecker)

	// 10. API handler
	apiHandler := handlers.NewAPIHandler(
		healthHandler,
		workflowSvc,
		dashboardSvc,
		notificationSvc,
		settingsSvc,
		roleSvc,
		reminderSvc,
		logger,
	)

	// 11. Middleware определения идентичности.
	// Привязки ролей из user_roles читаются напрямую из пула (вне транзакций).
	identity := middleware.NewIdentityResolver(
		cfg.AllowDevHeaders,
		cfg.GatewaySecret,
		cfg.DefaultRoles,
		store.Repos().Roles,
		logger,
	)
	if cfg.AllowDevHeaders {
		logger.Warn("Доверенные заголовки X-Remote-User включены (CR_ALLOW_DEV_HEADERS=true)")
	}

	// 12. Запуск фоновых напоминаний о старении
	reminderSvc.Start(ctx)

	// 13. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, apiHandler, identity)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 14. Graceful shutdown фоновых задач
	logger.Info("Останавливаем фоновые задачи...")
	reminderSvc.Stop()

	logger.Info("Contract Review остановлен")
}
