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

// TaskService is the subset of the task service used by TaskHandler.
type TaskService interface {
	CreateTask(ctx context.Context, actorID uuid.UUID, req ports.CreateTaskRequest) (*entities.Task, error)
	ListTasks(ctx context.Context, actorID uuid.UUID, filter ports.TaskFilter) ([]*entities.Task, int, error)
	GetTask(ctx context.Context, actorID, id uuid.UUID) (*entities.Task, error)
	UpdateTask(ctx context.Context, actorID, id uuid.UUID, req ports.UpdateTaskRequest) (*ports.TaskMutationResult, error)
	DeleteTask(ctx context.Context, actorID, id uuid.UUID) error
	AssignTask(ctx context.Context, actorID, id uuid.UUID, req ports.AssignTaskRequest) (*ports.TaskMutationResult, error)
}

// TaskHandler handles task-related requests
type TaskHandler struct {
	taskService TaskService
	logger      *logger.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(taskService TaskService, logger *logger.Logger) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		logger:      logger,
	}
}

type TaskMutationResponse struct {
	TaskResponse
	NotificationSent bool `json:"notificationSent"`
}

// CreateTask godoc
// @Summary Create a task in a project
// @Tags tasks
// @Accept json
// @Produce json
// @Param request body ports.CreateTaskRequest true "Task data"
// @Success 201 {object} TaskResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /tasks [post]
func (h *TaskHandler) CreateTask(c echo.Context) error {
	var req ports.CreateTaskRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	task, err := h.taskService.CreateTask(c.Request().Context(), actorID(c), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, presentTask(task))
}

// ListTasks godoc
// @Summary List the tasks of a project
// @Description Ordered by priority (URGENT first) then newest first
// @Tags tasks
// @Produce json
// @Param projectId query string true "Project ID"
// @Param status query string false "TODO, IN_PROGRESS, REVIEW or DONE"
// @Param priority query string false "LOW, MEDIUM, HIGH or URGENT"
// @Param assigneeId query string false "Assignee ID"
// @Param search query string false "Matches title or description"
// @Param page query int false "Page number"
// @Param perPage query int false "Page size (max 100)"
// @Success 200 {object} ListResponse[TaskResponse]
// @Security BearerAuth
// @Router /tasks [get]
func (h *TaskHandler) ListTasks(c echo.Context) error {
	filter, err := taskFilterFromQuery(c)
	if err != nil {
		return err
	}

	tasks, total, err := h.taskService.ListTasks(c.Request().Context(), actorID(c), filter)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, presentList(tasks, filter.Page, total, presentTask))
}

func taskFilterFromQuery(c echo.Context) (ports.TaskFilter, error) {
	var filter ports.TaskFilter

	projectID, err := uuid.Parse(c.QueryParam("projectId"))
	if err != nil {
		return filter, echo.NewHTTPError(http.StatusBadRequest, "Invalid projectId parameter")
	}
	filter.ProjectID = projectID

	if raw := c.QueryParam("status"); raw != "" {
		status := entities.TaskStatus(raw)
		if !status.IsValid() {
			return filter, echo.NewHTTPError(http.StatusBadRequest, "Invalid status parameter")
		}
		filter.Status = &status
	}

	if raw := c.QueryParam("priority"); raw != "" {
		priority := entities.Priority(raw)
		if !priority.IsValid() {
			return filter, echo.NewHTTPError(http.StatusBadRequest, "Invalid priority parameter")
		}
		filter.Priority = &priority
	}

	if raw := c.QueryParam("assigneeId"); raw != "" {
		assigneeID, err := uuid.Parse(raw)
		if err != nil {
			return filter, echo.NewHTTPError(http.StatusBadRequest, "Invalid assigneeId parameter")
		}
		filter.AssigneeID = &assigneeID
	}

	filter.Search = queryString(c, "search")

	filter.Page, err = queryPage(c, ports.DefaultTasksPerPage)
	return filter, err
}

// GetTask godoc
// @Summary Get task by ID
// @Description Includes creator, assignee and comments (oldest first)
// @Tags tasks
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} TaskResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id} [get]
func (h *TaskHandler) GetTask(c echo.Context) error {
	taskID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	task, err := h.taskService.GetTask(c.Request().Context(), actorID(c), taskID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, presentTask(task))
}

// UpdateTask godoc
// @Summary Update a task
// @Tags tasks
// @Accept json
// @Produce json
// @Param id path string true "Task ID"
// @Param request body ports.UpdateTaskRequest true "Fields to change"
// @Success 200 {object} TaskMutationResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id} [patch]
func (h *TaskHandler) UpdateTask(c echo.Context) error {
	taskID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req ports.UpdateTaskRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.taskService.UpdateTask(c.Request().Context(), actorID(c), taskID, req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, presentMutation(result))
}

// DeleteTask godoc
// @Summary Delete a task
// @Tags tasks
// @Param id path string true "Task ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id} [delete]
func (h *TaskHandler) DeleteTask(c echo.Context) error {
	taskID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if err := h.taskService.DeleteTask(c.Request().Context(), actorID(c), taskID); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

// AssignTask godoc
// @Summary Assign a task, or unassign it with a null assigneeId
// @Tags tasks
// @Accept json
// @Produce json
// @Param id path string true "Task ID"
// @Param request body ports.AssignTaskRequest true "Assignee"
// @Success 200 {object} TaskMutationResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id}/assign [post]
func (h *TaskHandler) AssignTask(c echo.Context) error {
	taskID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req ports.AssignTaskRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.taskService.AssignTask(c.Request().Context(), actorID(c), taskID, req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, presentMutation(result))
}

func presentMutation(result *ports.TaskMutationResult) TaskMutationResponse {
	return TaskMutationResponse{
		TaskResponse:     presentTask(result.Task),
		NotificationSent: result.NotificationSent,
	}
}
