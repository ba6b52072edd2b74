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

// CommentService is the subset of the comment service used by CommentHandler.
type CommentService interface {
	CreateComment(ctx context.Context, actorID uuid.UUID, req ports.CreateCommentRequest) (*ports.CommentCreateResult, error)
	ListComments(ctx context.Context, actorID, taskID uuid.UUID, page ports.Page) ([]*entities.Comment, int, error)
	GetComment(ctx context.Context, actorID, id uuid.UUID) (*entities.Comment, error)
	UpdateComment(ctx context.Context, actorID, id uuid.UUID, req ports.UpdateCommentRequest) (*entities.Comment, error)
	DeleteComment(ctx context.Context, actorID, id uuid.UUID) error
}

type CommentHandler struct {
	commentService CommentService
	logger         *logger.Logger
}

func NewCommentHandler(commentService CommentService, logger *logger.Logger) *CommentHandler {
	return &CommentHandler{
		commentService: commentService,
		logger:         logger,
	}
}

type CommentCreateResponse struct {
	CommentResponse
	NotificationsSent int `json:"notificationsSent"`
}

// CreateComment godoc
// @Summary Comment on a task
// @Tags comments
// @Accept json
// @Produce json
// @Param request body ports.CreateCommentRequest true "Comment"
// @Success 201 {object} CommentCreateResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /comments [post]
func (h *CommentHandler) CreateComment(c echo.Context) error {
	var req ports.CreateCommentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.commentService.CreateComment(c.Request().Context(), actorID(c), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, CommentCreateResponse{
		CommentResponse:   presentComment(result.Comment),
		NotificationsSent: result.NotificationsSent,
	})
}

// ListComments godoc
// @Summary List the comments of a task, oldest first
// @Tags comments
// @Produce json
// @Param taskId query string true "Task ID"
// @Param page query int false "Page number"
// @Param perPage query int false "Page size (max 100)"
// @Success 200 {object} ListResponse[CommentResponse]
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /comments [get]
func (h *CommentHandler) ListComments(c echo.Context) error {
	taskID, err := uuid.Parse(c.QueryParam("taskId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid taskId parameter")
	}
	page, err := queryPage(c, ports.DefaultCommentsPerPage)
	if err != nil {
		return err
	}

	comments, total, err := h.commentService.ListComments(c.Request().Context(), actorID(c), taskID, page)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, presentList(comments, page, total, presentComment))
}

// GetComment godoc
// @Summary Get comment by ID
// @Tags comments
// @Produce json
// @Param id path string true "Comment ID"
// @Success 200 {object} CommentResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /comments/{id} [get]
func (h *CommentHandler) GetComment(c echo.Context) error {
	commentID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	comment, err := h.commentService.GetComment(c.Request().Context(), actorID(c), commentID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, presentComment(comment))
}

// UpdateComment godoc
// @Summary Edit a comment (author only)
// @Tags comments
// @Accept json
// @Produce json
// @Param id path string true "Comment ID"
// @Param request body ports.UpdateCommentRequest true "New content"
// @Success 200 {object} CommentResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /comments/{id} [patch]
func (h *CommentHandler) UpdateComment(c echo.Context) error {
	commentID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req ports.UpdateCommentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	comment, err := h.commentService.UpdateComment(c.Request().Context(), actorID(c), commentID, req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, presentComment(comment))
}

// DeleteComment godoc
// @Summary Delete a comment
// @Tags comments
// @Param id path string true "Comment ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /comments/{id} [delete]
func (h *CommentHandler) DeleteComment(c echo.Context) error {
	commentID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if err := h.commentService.DeleteComment(c.Request().Context(), actorID(c), commentID); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}
