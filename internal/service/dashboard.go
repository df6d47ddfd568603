package service

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bigkaa/contractflow/internal/domain/model"
	"github.com/bigkaa/contractflow/internal/domain/rbac"
	"github.com/bigkaa/contractflow/internal/repository"
)

// agingThresholdPrefix — префикс ключей порогов старения в настройках.
const agingThresholdPrefix = "aging_threshold_"

// DashboardService — агрегированные представления для дашборда.
// Пользователи с dashboard:full видят все workflow,
// остальные — только видимые им.
type DashboardService struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// NewDashboardService создаёт сервис дашборда.
func NewDashboardService(store Store, logger *slog.Logger) *DashboardService {
	return &DashboardService{
		store:  store,
		logger: logger.With("component", "dashboard"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Summary возвращает счётчики дашборда.
func (s *DashboardService) Summary(ctx context.Context, identity model.Identity) (*model.DashboardSummary, error) {
	r := s.store.Repos()

	ids, full, err := s.scopeIDs(ctx, r, identity)
	if err != nil {
		return nil, err
	}

	inProcess, err := r.Workflows.CountInStatuses(ctx, ids, model.InProcessStatuses)
	if err != nil {
		return nil, err
	}
	pending, err := r.Steps.CountPendingAll(ctx, ids)
	if err != nil {
		return nil, err
	}

	var correction int
	if full {
		correction, err = r.Workflows.CountCorrection(ctx, nil)
	} else {
		// Очередь исправлений не-привилегированного пользователя —
		// только его собственные workflow
		var items []model.CorrectionItem
		items, err = r.Workflows.ListCorrection(ctx, false, identity.User)
		correction = len(items)
	}
	if err != nil {
		return nil, err
	}

	return &model.DashboardSummary{
		WorkflowsInProcess: inProcess,
		PendingApprovals:   pending,
		CorrectionQueue:    correction,
	}, nil
}

// Pending возвращает ожидающие решения шаги.
func (s *DashboardService) Pending(ctx context.Context, identity model.Identity) ([]model.PendingStep, error) {
	r := s.store.Repos()

	ids, _, err := s.scopeIDs(ctx, r, identity)
	if err != nil {
		return nil, err
	}
	return r.Steps.ListPending(ctx, ids)
}

// Aging возвращает workflow, пересёкшие порог старения.
func (s *DashboardService) Aging(ctx context.Context, identity model.Identity) ([]model.AgingItem, error) {
	r := s.store.Repos()

	ids, full, err := s.scopeIDs(ctx, r, identity)
	if err != nil {
		return nil, err
	}

	var workflows []model.Workflow
	if full {
		workflows, err = r.Workflows.List(ctx)
	} else {
		workflows, err = r.Workflows.ListByIDs(ctx, ids)
	}
	if err != nil {
		return nil, err
	}

	settings, err := r.Settings.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	thresholds := agingThresholds(settings)

	return evaluateAging(workflows, thresholds, s.now()), nil
}

// CorrectionQueue возвращает очередь исправлений.
func (s *DashboardService) CorrectionQueue(ctx context.Context, identity model.Identity) ([]model.CorrectionItem, error) {
	r := s.store.Repos()

	if rbac.HasPermission(identity, rbac.PermDashboardFull) {
		return r.Workflows.ListCorrection(ctx, true, "")
	}
	return r.Workflows.ListCorrection(ctx, false, identity.User)
}

// scopeIDs возвращает идентификаторы workflow в области видимости
// пользователя. (nil, true) — полный доступ без фильтра.
func (s *DashboardService) scopeIDs(ctx context.Context, r *repository.Repos, identity model.Identity) ([]string, bool, error) {
	if rbac.HasPermission(identity, rbac.PermDashboardFull) {
		return nil, true, nil
	}
	ids, err := r.Workflows.VisibleIDs(ctx, identity.User, identity.RoleList())
	if err != nil {
		return nil, false, err
	}
	// nil-срез означает «без фильтра» — пустая видимость должна
	// остаться пустым фильтром
	if ids == nil {
		ids = []string{}
	}
	return ids, false, nil
}

// agingThresholds извлекает пороги старения из настроек:
// положительные целые значения ключей aging_threshold_*, по возрастанию.
func agingThresholds(settings map[string]string) []int {
	var thresholds []int
	for key, value := range settings {
		if !strings.HasPrefix(key, agingThresholdPrefix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n <= 0 {
			continue
		}
		thresholds = append(thresholds, n)
	}
	sort.Ints(thresholds)
	return thresholds
}

// evaluateAging вычисляет элементы старения: не приостановленный workflow,
// возраст которого пересёк хотя бы один порог. Статус не учитывается —
// у отклонённого workflow может оставаться нерешённый шаг.
// ReminderLevel — максимальный пересечённый порог.
func evaluateAging(workflows []model.Workflow, thresholds []int, now time.Time) []model.AgingItem {
	var items []model.AgingItem
	for _, w := range workflows {
		if w.IsHold {
			continue
		}
		daysOpen := int(now.Sub(w.CreatedDate).Hours() / 24)
		level := 0
		for _, t := range thresholds {
			if daysOpen >= t {
				level = t
			}
		}
		if level == 0 {
			continue
		}
		items = append(items, model.AgingItem{
			WorkflowID:    w.ID,
			Title:         w.Title,
			Status:        w.CurrentStatus,
			DaysOpen:      daysOpen,
			ReminderLevel: level,
		})
	}
	return items
}
