package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/taskhub/core/internal/domain/entities"
	"github.com/taskhub/core/internal/infrastructure/logger"
	"github.com/taskhub/core/internal/ports"
)

// NotificationService exposes a user's own notifications
type NotificationService struct {
	notificationRepo ports.NotificationRepository
	logger           *logger.Logger
}

// NewNotificationService creates a new notification service
func NewNotificationService(notificationRepo ports.NotificationRepository, logger *logger.Logger) *NotificationService {
	return &NotificationService{
		notificationRepo: notificationRepo,
		logger:           logger,
	}
}

func (s *NotificationService) ListNotifications(ctx context.Context, actorID uuid.UUID, filter ports.NotificationFilter) ([]*entities.Notification, int, error) {
	if actorID == uuid.Nil {
		return nil, 0, entities.ErrNotAuthenticated
	}

	notifications, total, err := s.notificationRepo.ListForUser(ctx, actorID, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, total, nil
}

func (s *NotificationService) GetNotification(ctx context.Context, actorID, id uuid.UUID) (*entities.Notification, error) {
	if actorID == uuid.Nil {
		return nil, entities.ErrNotAuthenticated
	}

	notification, err := s.notificationRepo.GetForUser(ctx, id, actorID)
	if err != nil {
		return nil, notFoundOr("failed to get notification", err)
	}
	return notification, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, actorID uuid.UUID) (int, error) {
	if actorID == uuid.Nil {
		return 0, entities.ErrNotAuthenticated
	}

	count, err := s.notificationRepo.CountUnread(ctx, actorID)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// MarkAsRead flags one notification and returns it.
func (s *NotificationService) MarkAsRead(ctx context.Context, actorID, id uuid.UUID) (*entities.Notification, error) {
	if actorID == uuid.Nil {
		return nil, entities.ErrNotAuthenticated
	}

	if err := s.notificationRepo.MarkRead(ctx, id, actorID); err != nil {
		return nil, notFoundOr("failed to mark notification read", err)
	}

	return s.GetNotification(ctx, actorID, id)
}

// MarkAllAsRead returns the number of notifications that changed.
func (s *NotificationService) MarkAllAsRead(ctx context.Context, actorID uuid.UUID) (int64, error) {
	if actorID == uuid.Nil {
		return 0, entities.ErrNotAuthenticated
	}

	count, err := s.notificationRepo.MarkAllRead(ctx, actorID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}

	s.logger.Infow("Notifications marked as read", "user_id", actorID, "count", count)
	return count, nil
}

func (s *NotificationService) DeleteNotification(ctx context.Context, actorID, id uuid.UUID) error {
	if actorID == uuid.Nil {
		return entities.ErrNotAuthenticated
	}

	if err := s.notificationRepo.Delete(ctx, id, actorID); err != nil {
		return notFoundOr("failed to delete notification", err)
	}
	return nil
}

func notFoundOr(msg string, err error) error {
	if errors.Is(err, entities.ErrNotFound) {
		return entities.ErrNotFound
	}
	return fmt.Errorf("%s: %w", msg, err)
}
