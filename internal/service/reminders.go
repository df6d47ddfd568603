// reminders.go — сервис напоминаний о стареющих workflow.
//
// ReminderService запускает фоновую горутину с ticker (CR_REMINDER_INTERVAL),
// которая находит workflow, пересёкшие порог старения, и отправляет
// напоминание ответственному за самый ранний ожидающий шаг.
//
// Журнал reminder_log дедуплицирует напоминания: каждая пара
// (workflow, порог) срабатывает не более одного раза.
//
// Prometheus-метрики:
//   - cr_reminder_sweep_duration_seconds — длительность прохода
//   - cr_reminders_sent_total — количество отправленных напоминаний
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/contractflow/internal/domain/model"
	"github.com/bigkaa/contractflow/internal/domain/rbac"
	"github.com/bigkaa/contractflow/internal/repository"
)

// Prometheus-метрики проходов напоминаний.
var (
	reminderSweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cr_reminder_sweep_duration_seconds",
		Help:    "Длительность прохода напоминаний о старении",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms … ~20s
	})

	remindersSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cr_reminders_sent_total",
		Help: "Количество отправленных напоминаний о старении",
	})
)

// ReminderService — фоновый сервис напоминаний о старении workflow.
type ReminderService struct {
	store      Store
	notifier   *Notifier
	systemUser string
	interval   time.Duration
	logger     *slog.Logger
	now        func() time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// NewReminderService создаёт сервис напоминаний.
func NewReminderService(store Store, notifier *Notifier, systemUser string, interval time.Duration, logger *slog.Logger) *ReminderService {
	return &ReminderService{
		store:      store,
		notifier:   notifier,
		systemUser: systemUser,
		interval:   interval,
		logger:     logger.With(slog.String("component", "reminders")),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Start запускает фоновую горутину с периодическим проходом напоминаний.
// Нулевой интервал отключает фоновые проходы; ручной запуск
// через RunAs остаётся доступным.
func (s *ReminderService) Start(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Info("Фоновые напоминания отключены (интервал не задан)")
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)

		s.logger.Info("Периодические напоминания о старении запущены",
			slog.String("interval", s.interval.String()),
		)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info("Периодические напоминания о старении остановлены")
				return
			case <-ticker.C:
				identity := model.NewIdentity(s.systemUser, rbac.RoleAdmin)
				sent, err := s.RunAs(ctx, identity)
				if err != nil {
					s.logger.Error("Ошибка прохода напоминаний", slog.String("error", err.Error()))
				} else if sent > 0 {
					s.logger.Info("Проход напоминаний завершён", slog.Int("sent", sent))
				}
			}
		}
	}()
}

// Stop останавливает фоновую горутину и ждёт завершения.
func (s *ReminderService) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.done != nil {
		<-s.done
	}
}

// RunAs выполняет один проход напоминаний от имени identity.
// Требует system:reminders. Возвращает количество отправленных напоминаний.
func (s *ReminderService) RunAs(ctx context.Context, identity model.Identity) (int, error) {
	if !rbac.HasPermission(identity, rbac.PermSystemReminders) {
		return 0, ErrPermissionDenied
	}

	startedAt := s.now()
	sent := 0

	err := s.store.WithinTx(ctx, func(r *repository.Repos) error {
		workflows, err := r.Workflows.List(ctx)
		if err != nil {
			return err
		}
		settings, err := r.Settings.GetAll(ctx)
		if err != nil {
			return err
		}
		thresholds := agingThresholds(settings)

		for _, item := range evaluateAging(workflows, thresholds, startedAt) {
			exists, err := r.Reminders.Exists(ctx, item.WorkflowID, item.ReminderLevel)
			if err != nil {
				return err
			}
			if exists {
				continue
			}

			step, err := r.Steps.FirstPending(ctx, item.WorkflowID)
			if err != nil {
				return err
			}
			// Все шаги завершены, но workflow ещё в рабочем статусе —
			// напоминать некому
			if step == nil {
				continue
			}

			recipient := "unassigned"
			if step.AssignedTo != nil && *step.AssignedTo != "" {
				recipient = *step.AssignedTo
			}

			payload := map[string]any{
				"workflowId":    item.WorkflowID,
				"title":         item.Title,
				"status":        item.Status,
				"daysOpen":      item.DaysOpen,
				"reminderLevel": item.ReminderLevel,
				"stepId":        step.ID,
				"requiredRole":  step.RequiredRole,
			}
			if err := s.notifier.Notify(ctx, r, &item.WorkflowID, EventAgingReminder, []string{recipient}, payload, startedAt); err != nil {
				return err
			}

			entry := &model.ReminderLogEntry{
				WorkflowID:    item.WorkflowID,
				StepID:        &step.ID,
				ThresholdDays: item.ReminderLevel,
				RemindedAt:    startedAt,
			}
			if err := r.Reminders.Create(ctx, entry); err != nil {
				// Параллельный проход успел записать тот же порог
				if errors.Is(err, repository.ErrConflict) {
					continue
				}
				return err
			}
			sent++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("ошибка прохода напоминаний: %w", err)
	}

	reminderSweepDuration.Observe(s.now().Sub(startedAt).Seconds())
	remindersSentTotal.Add(float64(sent))
	return sent, nil
}
