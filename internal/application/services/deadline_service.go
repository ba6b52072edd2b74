package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/taskhub/core/internal/domain/entities"
	"github.com/taskhub/core/internal/infrastructure/logger"
	"github.com/taskhub/core/internal/ports"
)

// DeadlineNotifier emits TASK_DUE_SOON and TASK_OVERDUE notifications. It is
// invoked once per run of the notify deadlines command.
type DeadlineNotifier struct {
	taskRepo         ports.TaskRepository
	notificationRepo ports.NotificationRepository
	notifier         *Notifier
	window           time.Duration
	logger           *logger.Logger
	now              func() time.Time
}

// NewDeadlineNotifier creates a deadline notifier looking window ahead.
func NewDeadlineNotifier(taskRepo ports.TaskRepository, notificationRepo ports.NotificationRepository, notifier *Notifier, window time.Duration, logger *logger.Logger) *DeadlineNotifier {
	return &DeadlineNotifier{
		taskRepo:         taskRepo,
		notificationRepo: notificationRepo,
		notifier:         notifier,
		window:           window,
		logger:           logger.WithComponent("deadlines"),
		now:              time.Now,
	}
}

// Run scans once. A task produces at most one notification of each type per assignee.
func (d *DeadlineNotifier) Run(ctx context.Context) (*ports.DeadlineScanResult, error) {
	now := d.now()
	result := &ports.DeadlineScanResult{}

	dueSoon, err := d.taskRepo.GetTasksDueBetween(ctx, now, now.Add(d.window))
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks due soon: %w", err)
	}
	for _, task := range dueSoon {
		sent, err := d.notifyOnce(ctx, task, taskDueSoon(task))
		if err != nil {
			return nil, err
		}
		if sent {
			result.DueSoon++
		} else {
			result.Skipped++
		}
	}

	overdue, err := d.taskRepo.GetOverdueTasks(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to load overdue tasks: %w", err)
	}
	for _, task := range overdue {
		sent, err := d.notifyOnce(ctx, task, taskOverdue(task))
		if err != nil {
			return nil, err
		}
		if sent {
			result.Overdue++
		} else {
			result.Skipped++
		}
	}

	d.logger.Infow("Deadline scan finished",
		"due_soon", result.DueSoon,
		"overdue", result.Overdue,
		"skipped", result.Skipped,
	)

	return result, nil
}

func (d *DeadlineNotifier) notifyOnce(ctx context.Context, task *entities.Task, tmpl entities.Notification) (bool, error) {
	if !task.IsAssigned() {
		return false, nil
	}
	assigneeID := *task.AssigneeID

	exists, err := d.notificationRepo.Exists(ctx, assigneeID, task.ID, tmpl.Type)
	if err != nil {
		return false, fmt.Errorf("failed to check existing notification: %w", err)
	}
	if exists {
		return false, nil
	}

	return d.notifier.Send(ctx, []uuid.UUID{assigneeID}, tmpl) > 0, nil
}
