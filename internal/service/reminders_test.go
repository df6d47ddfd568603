package service

import (
	"context"
	"errors"
	"testing"

	"github.com/bigkaa/contractflow/internal/domain/model"
	"github.com/bigkaa/contractflow/internal/domain/rbac"
)

func TestRemindersPermission(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.reminders.RunAs(context.Background(), model.NewIdentity("alice", "Customer Service"))
	if !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("RunAs без system:reminders: ожидали ErrPermissionDenied, получили %v", err)
	}
}

func TestRemindersSweep(t *testing.T) {
	env := newTestEnv(t)
	env.createWorkflow(t)
	ctx := context.Background()
	system := model.NewIdentity("system.scheduler", rbac.RoleAdmin)

	// Сразу после создания напоминать не о чем
	sent, err := env.reminders.RunAs(ctx, system)
	if err != nil {
		t.Fatalf("RunAs() ошибка: %v", err)
	}
	if sent != 0 {
		t.Errorf("sent = %d, хотели 0", sent)
	}

	// Через 3 дня пересечён порог 2 — одно напоминание назначенному
	// на самый ранний ожидающий шаг
	env.clock = env.clock.AddDate(0, 0, 3)
	sent2, err := env.reminders.RunAs(ctx, system)
	if err != nil {
		t.Fatalf("RunAs() ошибка: %v", err)
	}
	if sent2 != 1 {
		t.Errorf("sent = %d, хотели 1", sent2)
	}
	if env.mailer.sentCount(EventAgingReminder) != 1 {
		t.Error("письмо AgingReminder не отправлено")
	}

	// Повторный проход того же порога — дедупликация
	sent3, err := env.reminders.RunAs(ctx, system)
	if err != nil {
		t.Fatalf("RunAs() повторный ошибка: %v", err)
	}
	if sent3 != 0 {
		t.Errorf("повторный проход: sent = %d, хотели 0", sent3)
	}

	// Следующий порог (5 дней) срабатывает отдельно
	env.clock = env.clock.AddDate(0, 0, 3)
	sent4, err := env.reminders.RunAs(ctx, system)
	if err != nil {
		t.Fatalf("RunAs() ошибка: %v", err)
	}
	if sent4 != 1 {
		t.Errorf("следующий порог: sent = %d, хотели 1", sent4)
	}
}

func TestRemindersSkipHold(t *testing.T) {
	env := newTestEnv(t)
	details := env.createWorkflow(t)
	ctx := context.Background()
	system := model.NewIdentity("system.scheduler", rbac.RoleAdmin)

	if _, err := env.workflows.SetHold(ctx, model.NewIdentity("root", "Admin"), details.ID, true, ""); err != nil {
		t.Fatalf("SetHold() ошибка: %v", err)
	}

	env.clock = env.clock.AddDate(0, 0, 10)
	sent, err := env.reminders.RunAs(ctx, system)
	if err != nil {
		t.Fatalf("RunAs() ошибка: %v", err)
	}
	if sent != 0 {
		t.Errorf("приостановленный workflow: sent = %d, хотели 0", sent)
	}
}

func TestRemindersRejectedWithPendingStep(t *testing.T) {
	env := newTestEnv(t)
	details := env.createWorkflow(t)
	ctx := context.Background()
	system := model.NewIdentity("system.scheduler", rbac.RoleAdmin)

	// Отклонение не снимает напоминания: шаг Legal остаётся Pending
	if _, err := env.workflows.DecideStep(ctx, model.NewIdentity("bob", "Technical"), details.Steps[0].ID, model.DecisionReject, "нет"); err != nil {
		t.Fatalf("DecideStep() ошибка: %v", err)
	}

	env.clock = env.clock.AddDate(0, 0, 3)
	sent, err := env.reminders.RunAs(ctx, system)
	if err != nil {
		t.Fatalf("RunAs() ошибка: %v", err)
	}
	if sent != 1 {
		t.Errorf("отклонённый workflow с ожидающим шагом: sent = %d, хотели 1", sent)
	}
}

func TestRemindersUnassignedRecipient(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	creator := model.NewIdentity("alice", "Customer Service")

	// Шаг без назначенного согласующего
	if _, err := env.workflows.Create(ctx, creator, CreateWorkflowInput{
		Title:   "Без назначенного",
		DocType: model.DocTypePO,
		Steps:   []StepInput{{RequiredRole: "Technical", SequenceOrder: 1}},
	}); err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}

	env.clock = env.clock.AddDate(0, 0, 3)
	system := model.NewIdentity("system.scheduler", rbac.RoleAdmin)
	sent, err := env.reminders.RunAs(ctx, system)
	if err != nil {
		t.Fatalf("RunAs() ошибка: %v", err)
	}
	if sent != 1 {
		t.Fatalf("sent = %d, хотели 1", sent)
	}

	// Получатель — заглушка unassigned
	notifications, _ := env.store.Repos().Notifications.List(ctx, nil)
	found := false
	for _, n := range notifications {
		if n.Event == EventAgingReminder && n.Recipient == "unassigned" {
			found = true
		}
	}
	if !found {
		t.Error("напоминание без назначенного не адресовано unassigned")
	}
}
