package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/taskhub/core/internal/domain/entities"
	"github.com/taskhub/core/internal/infrastructure/logger"
	"github.com/taskhub/core/internal/infrastructure/metrics"
	"github.com/taskhub/core/internal/ports"
)

// Notifier writes notification rows after a mutation has been committed.
// Delivery is best effort: a failed insert is logged and counted, never returned.
type Notifier struct {
	repo    ports.NotificationRepository
	metrics *metrics.Metrics
	logger  *logger.Logger
}

// NewNotifier creates a new notifier. m may be nil when metrics are disabled.
func NewNotifier(repo ports.NotificationRepository, m *metrics.Metrics, logger *logger.Logger) *Notifier {
	return &Notifier{
		repo:    repo,
		metrics: m,
		logger:  logger.WithComponent("notifier"),
	}
}

// Send creates one copy of tmpl per recipient and returns how many were written.
func (n *Notifier) Send(ctx context.Context, recipients []uuid.UUID, tmpl entities.Notification) int {
	sent := 0
	for _, userID := range recipients {
		if userID == uuid.Nil {
			continue
		}

		notification := tmpl
		notification.ID = uuid.Nil
		notification.UserID = userID

		if err := n.repo.Create(ctx, &notification); err != nil {
			n.metrics.FanoutFailed()
			n.logger.Errorw("Failed to create notification",
				"error", err,
				"type", tmpl.Type,
				"user_id", userID,
			)
			continue
		}

		n.metrics.NotificationCreated(tmpl.Type)
		sent++
	}
	return sent
}

func taskCommented(task *entities.Task) entities.Notification {
	return entities.Notification{
		Type:      entities.NotificationTaskCommented,
		Title:     "New comment",
		Message:   fmt.Sprintf("A new comment was added to task %q", task.Title),
		ProjectID: &task.ProjectID,
		TaskID:    &task.ID,
	}
}

func taskUpdated(task *entities.Task) entities.Notification {
	return entities.Notification{
		Type:      entities.NotificationTaskUpdated,
		Title:     "Task updated",
		Message:   fmt.Sprintf("Task %q was updated", task.Title),
		ProjectID: &task.ProjectID,
		TaskID:    &task.ID,
	}
}

func taskAssigned(task *entities.Task) entities.Notification {
	return entities.Notification{
		Type:      entities.NotificationTaskAssigned,
		Title:     "Task assigned",
		Message:   fmt.Sprintf("You were assigned to task %q", task.Title),
		ProjectID: &task.ProjectID,
		TaskID:    &task.ID,
	}
}

func projectInvited(project *entities.Project) entities.Notification {
	return entities.Notification{
		Type:      entities.NotificationProjectInvited,
		Title:     "Project invitation",
		Message:   fmt.Sprintf("You were invited to project %q", project.Name),
		ProjectID: &project.ID,
	}
}

func projectUpdated(project *entities.Project) entities.Notification {
	return entities.Notification{
		Type:      entities.NotificationProjectUpdated,
		Title:     "Project updated",
		Message:   fmt.Sprintf("Project %q was updated", project.Name),
		ProjectID: &project.ID,
	}
}

func taskDueSoon(task *entities.Task) entities.Notification {
	return entities.Notification{
		Type:      entities.NotificationTaskDueSoon,
		Title:     "Task due soon",
		Message:   fmt.Sprintf("Task %q is due on %s", task.Title, task.DueDate.UTC().Format(time.RFC1123)),
		ProjectID: &task.ProjectID,
		TaskID:    &task.ID,
	}
}

func taskOverdue(task *entities.Task) entities.Notification {
	return entities.Notification{
		Type:      entities.NotificationTaskOverdue,
		Title:     "Task overdue",
		Message:   fmt.Sprintf("Task %q is past its due date", task.Title),
		ProjectID: &task.ProjectID,
		TaskID:    &task.ID,
	}
}
