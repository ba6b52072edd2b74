package http

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/taskhub/core/internal/domain/entities"
	"github.com/taskhub/core/internal/infrastructure/logger"
	"github.com/taskhub/core/internal/ports"
)

// NotificationService is the subset of the notification service used by NotificationHandler.
type NotificationService interface {
	ListNotifications(ctx context.Context, actorID uuid.UUID, filter ports.NotificationFilter) ([]*entities.Notification, int, error)
	GetNotification(ctx context.Context, actorID, id uuid.UUID) (*entities.Notification, error)
	UnreadCount(ctx context.Context, actorID uuid.UUID) (int, error)
	MarkAsRead(ctx context.Context, actorID, id uuid.UUID) (*entities.Notification, error)
	MarkAllAsRead(ctx context.Context, actorID uuid.UUID) (int64, error)
	DeleteNotification(ctx context.Context, actorID, id uuid.UUID) error
}

type NotificationHandler struct {
	notificationService NotificationService
	logger              *logger.Logger
}

func NewNotificationHandler(notificationService NotificationService, logger *logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
		logger:              logger,
	}
}

type UnreadCountResponse struct {
	Count int `json:"count"`
}

type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}

// ListNotifications godoc
// @Summary List the caller's notifications, newest first
// @Tags notifications
// @Produce json
// @Param unreadOnly query bool false "Only unread notifications"
// @Param page query int false "Page number"
// @Param perPage query int false "Page size (max 100)"
// @Success 200 {object} ListResponse[NotificationResponse]
// @Security BearerAuth
// @Router /notifications [get]
func (h *NotificationHandler) ListNotifications(c echo.Context) error {
	page, err := queryPage(c, ports.DefaultNotificationsPerPage)
	if err != nil {
		return err
	}
	unreadOnly, err := queryBool(c, "unreadOnly")
	if err != nil {
		return err
	}

	filter := ports.NotificationFilter{Page: page}
	if unreadOnly != nil {
		filter.UnreadOnly = *unreadOnly
	}

	notifications, total, err := h.notificationService.ListNotifications(c.Request().Context(), actorID(c), filter)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, presentList(notifications, page, total, presentNotification))
}

// UnreadCount godoc
// @Summary Number of unread notifications
// @Tags notifications
// @Produce json
// @Success 200 {object} UnreadCountResponse
// @Security BearerAuth
// @Router /notifications/unread-count [get]
func (h *NotificationHandler) UnreadCount(c echo.Context) error {
	count, err := h.notificationService.UnreadCount(c.Request().Context(), actorID(c))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, UnreadCountResponse{Count: count})
}

// GetNotification godoc
// @Summary Get notification by ID
// @Tags notifications
// @Produce json
// @Param id path string true "Notification ID"
// @Success 200 {object} NotificationResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /notifications/{id} [get]
func (h *NotificationHandler) GetNotification(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	notification, err := h.notificationService.GetNotification(c.Request().Context(), actorID(c), id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, presentNotification(notification))
}

// MarkAsRead godoc
// @Summary Mark one notification as read
// @Tags notifications
// @Produce json
// @Param id path string true "Notification ID"
// @Success 200 {object} NotificationResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /notifications/{id}/read [post]
func (h *NotificationHandler) MarkAsRead(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	notification, err := h.notificationService.MarkAsRead(c.Request().Context(), actorID(c), id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, presentNotification(notification))
}

// MarkAllAsRead godoc
// @Summary Mark every notification of the caller as read
// @Tags notifications
// @Produce json
// @Success 200 {object} MarkAllReadResponse
// @Security BearerAuth
// @Router /notifications/read-all [post]
func (h *NotificationHandler) MarkAllAsRead(c echo.Context) error {
	updated, err := h.notificationService.MarkAllAsRead(c.Request().Context(), actorID(c))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, MarkAllReadResponse{Updated: updated})
}

// DeleteNotification godoc
// @Summary Delete a notification
// @Tags notifications
// @Param id path string true "Notification ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /notifications/{id} [delete]
func (h *NotificationHandler) DeleteNotification(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if err := h.notificationService.DeleteNotification(c.Request().Context(), actorID(c), id); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}
