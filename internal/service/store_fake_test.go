package service

// store_fake_test.go — in-memory реализация Store для unit-тестов
// сервисного слоя без PostgreSQL. Транзакции не эмулируются:
// WithinTx выполняет fn на том же наборе репозиториев.

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bigkaa/contractflow/internal/domain/model"
	"github.com/bigkaa/contractflow/internal/repository"
)

// memStore реализует Store поверх памяти.
type memStore struct {
	workflows     map[string]*model.Workflow
	steps         map[string]*model.Step
	documents     []*model.Document
	history       []*model.StatusHistoryEntry
	decisions     []*model.ApprovalDecision
	notifications []*model.Notification
	auditLog      []*model.AuditEntry
	reminders     []*model.ReminderLogEntry
	settings      map[string]string
	roles         map[string]bool
	userRoles     map[string]map[string]bool

	repos *repository.Repos
}

func newMemStore() *memStore {
	s := &memStore{
		workflows: make(map[string]*model.Workflow),
		steps:     make(map[string]*model.Step),
		settings: map[string]string{
			"aging_threshold_1": "2",
			"aging_threshold_2": "5",
			"aging_threshold_3": "10",
			"aging_threshold_4": "15",
			"aging_threshold_5": "30",
		},
		roles: map[string]bool{
			"Customer Service": true, "Technical": true,
			"Commercial": true, "Legal": true, "Admin": true,
		},
		userRoles: make(map[string]map[string]bool),
	}
	s.repos = &repository.Repos{
		Workflows:     (*memWorkflows)(s),
		Steps:         (*memSteps)(s),
		Documents:     (*memDocuments)(s),
		History:       (*memHistory)(s),
		Decisions:     (*memDecisions)(s),
		Notifications: (*memNotifications)(s),
		Audit:         (*memAudit)(s),
		Reminders:     (*memReminders)(s),
		Settings:      (*memSettings)(s),
		Roles:         (*memRoles)(s),
	}
	return s
}

func (s *memStore) Repos() *repository.Repos { return s.repos }

func (s *memStore) WithinTx(_ context.Context, fn func(r *repository.Repos) error) error {
	return fn(s.repos)
}

// --- WorkflowRepository ---

type memWorkflows memStore

func (m *memWorkflows) Create(_ context.Context, w *model.Workflow) error {
	cp := *w
	m.workflows[w.ID] = &cp
	return nil
}

func (m *memWorkflows) GetByID(_ context.Context, id string) (*model.Workflow, error) {
	w, ok := m.workflows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (m *memWorkflows) List(_ context.Context) ([]model.Workflow, error) {
	var out []model.Workflow
	for _, w := range m.workflows {
		out = append(out, *w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedDate.After(out[j].CreatedDate) })
	return out, nil
}

func (m *memWorkflows) visible(w *model.Workflow, user string, roles []string) bool {
	if w.CreatedBy == user {
		return true
	}
	roleSet := make(map[string]bool, len(roles))
	for _, r := range roles {
		roleSet[r] = true
	}
	for _, s := range m.steps {
		if s.WorkflowID != w.ID {
			continue
		}
		if s.AssignedTo != nil && *s.AssignedTo == user {
			return true
		}
		if roleSet[s.RequiredRole] {
			return true
		}
	}
	return false
}

func (m *memWorkflows) ListVisible(_ context.Context, user string, roles []string) ([]model.Workflow, error) {
	var out []model.Workflow
	for _, w := range m.workflows {
		if m.visible(w, user, roles) {
			out = append(out, *w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedDate.After(out[j].CreatedDate) })
	return out, nil
}

func (m *memWorkflows) ListByIDs(_ context.Context, ids []string) ([]model.Workflow, error) {
	var out []model.Workflow
	for _, id := range ids {
		if w, ok := m.workflows[id]; ok {
			out = append(out, *w)
		}
	}
	return out, nil
}

func (m *memWorkflows) VisibleIDs(ctx context.Context, user string, roles []string) ([]string, error) {
	list, _ := m.ListVisible(ctx, user, roles)
	var ids []string
	for _, w := range list {
		ids = append(ids, w.ID)
	}
	return ids, nil
}

func (m *memWorkflows) IsParticipant(_ context.Context, id, user string, roles []string) (bool, error) {
	w, ok := m.workflows[id]
	if !ok {
		return false, nil
	}
	return m.visible(w, user, roles), nil
}

func (m *memWorkflows) SetStatus(_ context.Context, id, status string, updatedAt time.Time) error {
	w, ok := m.workflows[id]
	if !ok {
		return repository.ErrNotFound
	}
	w.CurrentStatus = status
	w.UpdatedDate = updatedAt
	return nil
}

func (m *memWorkflows) SetStatusResubmitted(_ context.Context, id, status string, resubmitted bool, updatedAt time.Time) error {
	w, ok := m.workflows[id]
	if !ok {
		return repository.ErrNotFound
	}
	w.CurrentStatus = status
	w.Resubmitted = resubmitted
	w.UpdatedDate = updatedAt
	return nil
}

func (m *memWorkflows) SetHold(_ context.Context, id string, hold bool, updatedAt time.Time) error {
	w, ok := m.workflows[id]
	if !ok {
		return repository.ErrNotFound
	}
	w.IsHold = hold
	w.UpdatedDate = updatedAt
	return nil
}

func (m *memWorkflows) inScope(id string, ids []string) bool {
	if ids == nil {
		return true
	}
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func (m *memWorkflows) CountInStatuses(_ context.Context, ids []string, statuses []string) (int, error) {
	count := 0
	for _, w := range m.workflows {
		if !m.inScope(w.ID, ids) {
			continue
		}
		for _, st := range statuses {
			if w.CurrentStatus == st {
				count++
				break
			}
		}
	}
	return count, nil
}

func (m *memWorkflows) CountCorrection(_ context.Context, ids []string) (int, error) {
	count := 0
	for _, w := range m.workflows {
		if m.inScope(w.ID, ids) && w.CurrentStatus == model.StatusRejected && !w.Resubmitted {
			count++
		}
	}
	return count, nil
}

func (m *memWorkflows) ListCorrection(_ context.Context, all bool, user string) ([]model.CorrectionItem, error) {
	var out []model.CorrectionItem
	for _, w := range m.workflows {
		if w.CurrentStatus != model.StatusRejected || w.Resubmitted {
			continue
		}
		if !all && w.CreatedBy != user {
			continue
		}
		out = append(out, model.CorrectionItem{WorkflowID: w.ID, Title: w.Title, UpdatedDate: w.UpdatedDate})
	}
	return out, nil
}

// --- StepRepository ---

type memSteps memStore

func (m *memSteps) CreateBatch(_ context.Context, steps []model.Step) error {
	for _, s := range steps {
		cp := s
		m.steps[s.ID] = &cp
	}
	return nil
}

func (m *memSteps) GetByID(_ context.Context, id string) (*model.Step, error) {
	s, ok := m.steps[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSteps) ListByWorkflow(_ context.Context, workflowID string) ([]model.Step, error) {
	var out []model.Step
	for _, s := range m.steps {
		if s.WorkflowID == workflowID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SequenceOrder < out[j].SequenceOrder })
	return out, nil
}

func (m *memSteps) Complete(_ context.Context, stepID, decision, comment, decidedBy string, decidedAt time.Time) error {
	s, ok := m.steps[stepID]
	if !ok {
		return repository.ErrNotFound
	}
	s.Status = model.StepCompleted
	s.Decision = &decision
	s.DecisionComment = &comment
	s.DecisionBy = &decidedBy
	s.DecisionDate = &decidedAt
	return nil
}

func (m *memSteps) CountPending(_ context.Context, workflowID string) (int, error) {
	count := 0
	for _, s := range m.steps {
		if s.WorkflowID == workflowID && s.Status == model.StepPending {
			count++
		}
	}
	return count, nil
}

func (m *memSteps) CountPendingAll(ctx context.Context, workflowIDs []string) (int, error) {
	steps, err := m.ListPending(ctx, workflowIDs)
	return len(steps), err
}

func (m *memSteps) ListPending(_ context.Context, workflowIDs []string) ([]model.PendingStep, error) {
	inProcess := make(map[string]bool)
	for _, st := range model.InProcessStatuses {
		inProcess[st] = true
	}
	var out []model.PendingStep
	for _, s := range m.steps {
		w, ok := m.workflows[s.WorkflowID]
		if !ok || s.Status != model.StepPending || !inProcess[w.CurrentStatus] {
			continue
		}
		if !(*memWorkflows)(m).inScope(s.WorkflowID, workflowIDs) {
			continue
		}
		out = append(out, model.PendingStep{
			StepID: s.ID, WorkflowID: s.WorkflowID, Title: w.Title,
			RequiredRole: s.RequiredRole, AssignedTo: s.AssignedTo, AssignedDate: s.AssignedDate,
		})
	}
	return out, nil
}

func (m *memSteps) FirstPending(ctx context.Context, workflowID string) (*model.Step, error) {
	steps, _ := m.ListByWorkflow(ctx, workflowID)
	for _, s := range steps {
		if s.Status == model.StepPending {
			cp := s
			return &cp, nil
		}
	}
	return nil, nil
}

// --- DocumentRepository ---

type memDocuments memStore

func (m *memDocuments) Create(_ context.Context, d *model.Document) error {
	if d.IsGolden {
		for _, x := range m.documents {
			if x.WorkflowID == d.WorkflowID && x.IsGolden {
				return repository.ErrConflict
			}
		}
	}
	cp := *d
	m.documents = append(m.documents, &cp)
	return nil
}

func (m *memDocuments) ListByWorkflow(_ context.Context, workflowID string) ([]model.Document, error) {
	var out []model.Document
	for _, d := range m.documents {
		if d.WorkflowID == workflowID {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

func (m *memDocuments) CountGolden(_ context.Context, workflowID string) (int, error) {
	count := 0
	for _, d := range m.documents {
		if d.WorkflowID == workflowID && d.IsGolden {
			count++
		}
	}
	return count, nil
}

func (m *memDocuments) MaxVersion(_ context.Context, workflowID string) (int, error) {
	maxV := 0
	for _, d := range m.documents {
		if d.WorkflowID == workflowID && d.Version > maxV {
			maxV = d.Version
		}
	}
	return maxV, nil
}

// --- HistoryRepository ---

type memHistory memStore

func (m *memHistory) Append(_ context.Context, e *model.StatusHistoryEntry) error {
	cp := *e
	cp.ID = int64(len(m.history) + 1)
	e.ID = cp.ID
	m.history = append(m.history, &cp)
	return nil
}

func (m *memHistory) ListByWorkflow(_ context.Context, workflowID string) ([]model.StatusHistoryEntry, error) {
	var out []model.StatusHistoryEntry
	for _, e := range m.history {
		if e.WorkflowID == workflowID {
			out = append(out, *e)
		}
	}
	return out, nil
}

// --- DecisionRepository ---

type memDecisions memStore

func (m *memDecisions) Create(_ context.Context, d *model.ApprovalDecision) error {
	cp := *d
	m.decisions = append(m.decisions, &cp)
	return nil
}

func (m *memDecisions) ListByWorkflow(_ context.Context, workflowID string) ([]model.ApprovalDecision, error) {
	var out []model.ApprovalDecision
	for _, d := range m.decisions {
		if d.WorkflowID == workflowID {
			out = append(out, *d)
		}
	}
	return out, nil
}

// --- NotificationRepository ---

type memNotifications memStore

func (m *memNotifications) Create(_ context.Context, n *model.Notification) error {
	cp := *n
	cp.ID = int64(len(m.notifications) + 1)
	n.ID = cp.ID
	m.notifications = append(m.notifications, &cp)
	return nil
}

func (m *memNotifications) List(_ context.Context, workflowID *string) ([]model.Notification, error) {
	var out []model.Notification
	for i := len(m.notifications) - 1; i >= 0; i-- {
		n := m.notifications[i]
		if workflowID != nil && (n.WorkflowID == nil || *n.WorkflowID != *workflowID) {
			continue
		}
		out = append(out, *n)
	}
	return out, nil
}

// --- AuditRepository ---

type memAudit memStore

func (m *memAudit) Append(_ context.Context, e *model.AuditEntry) error {
	cp := *e
	cp.ID = int64(len(m.auditLog) + 1)
	e.ID = cp.ID
	m.auditLog = append(m.auditLog, &cp)
	return nil
}

func (m *memAudit) ListByEntity(_ context.Context, entityType, entityID string) ([]model.AuditEntry, error) {
	var out []model.AuditEntry
	for _, e := range m.auditLog {
		if e.EntityType == entityType && e.EntityID == entityID {
			out = append(out, *e)
		}
	}
	return out, nil
}

// --- ReminderRepository ---

type memReminders memStore

func (m *memReminders) Exists(_ context.Context, workflowID string, thresholdDays int) (bool, error) {
	for _, e := range m.reminders {
		if e.WorkflowID == workflowID && e.ThresholdDays == thresholdDays {
			return true, nil
		}
	}
	return false, nil
}

func (m *memReminders) Create(ctx context.Context, e *model.ReminderLogEntry) error {
	exists, _ := m.Exists(ctx, e.WorkflowID, e.ThresholdDays)
	if exists {
		return repository.ErrConflict
	}
	cp := *e
	cp.ID = int64(len(m.reminders) + 1)
	e.ID = cp.ID
	m.reminders = append(m.reminders, &cp)
	return nil
}

// --- SettingsRepository ---

type memSettings memStore

func (m *memSettings) GetAll(_ context.Context) (map[string]string, error) {
	out := make(map[string]string, len(m.settings))
	for k, v := range m.settings {
		out[k] = v
	}
	return out, nil
}

func (m *memSettings) Get(_ context.Context, key string) (string, error) {
	v, ok := m.settings[key]
	if !ok {
		return "", repository.ErrNotFound
	}
	return v, nil
}

func (m *memSettings) Upsert(_ context.Context, key, value string) error {
	m.settings[key] = value
	return nil
}

// --- RoleRepository ---

type memRoles memStore

func (m *memRoles) List(_ context.Context) ([]string, error) {
	var out []string
	for name := range m.roles {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func (m *memRoles) Create(_ context.Context, name string) error {
	m.roles[name] = true
	return nil
}

func (m *memRoles) ListUserRoles(_ context.Context, user string) ([]model.UserRole, error) {
	var out []model.UserRole
	for u, roles := range m.userRoles {
		if user != "" && u != user {
			continue
		}
		for r := range roles {
			out = append(out, model.UserRole{UserName: u, RoleName: r})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UserName != out[j].UserName {
			return out[i].UserName < out[j].UserName
		}
		return out[i].RoleName < out[j].RoleName
	})
	return out, nil
}

func (m *memRoles) RolesForUser(_ context.Context, user string) ([]string, error) {
	var out []string
	for r := range m.userRoles[user] {
		out = append(out, r)
	}
	sort.Strings(out)
	return out, nil
}

func (m *memRoles) ReplaceUserRoles(_ context.Context, user string, roles []string) error {
	set := make(map[string]bool, len(roles))
	for _, r := range roles {
		set[r] = true
	}
	m.userRoles[user] = set
	return nil
}

// --- EventMailer для тестов ---

// fakeMailer фиксирует отправленные письма; failFor имитирует отказ SMTP.
type fakeMailer struct {
	enabled bool
	failFor map[string]bool
	sent    []string // "recipient:event"
}

func (f *fakeMailer) Enabled() bool { return f.enabled }

func (f *fakeMailer) SendEvent(recipient, event string, _ map[string]any) error {
	if f.failFor[recipient] {
		return fmt.Errorf("имитация отказа SMTP для %s", recipient)
	}
	f.sent = append(f.sent, recipient+":"+event)
	return nil
}

func (f *fakeMailer) sentCount(event string) int {
	count := 0
	for _, s := range f.sent {
		if strings.HasSuffix(s, ":"+event) {
			count++
		}
	}
	return count
}
