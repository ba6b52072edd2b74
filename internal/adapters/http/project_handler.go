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

// ProjectService is the subset of the project service used by ProjectHandler.
type ProjectService interface {
	CreateProject(ctx context.Context, actorID uuid.UUID, req ports.CreateProjectRequest) (*entities.Project, error)
	ListProjects(ctx context.Context, actorID uuid.UUID, filter ports.ProjectFilter) ([]*entities.Project, int, error)
	GetProject(ctx context.Context, actorID, id uuid.UUID) (*entities.Project, error)
	UpdateProject(ctx context.Context, actorID, id uuid.UUID, req ports.UpdateProjectRequest) (*ports.ProjectUpdateResult, error)
	DeleteProject(ctx context.Context, actorID, id uuid.UUID) error
	InviteUser(ctx context.Context, actorID, projectID uuid.UUID, req ports.InviteUserRequest) (*ports.InviteResult, error)
	RemoveMember(ctx context.Context, actorID, projectID, userID uuid.UUID) error
	UpdateMemberRole(ctx context.Context, actorID, projectID, userID uuid.UUID, req ports.UpdateMemberRoleRequest) (*entities.ProjectMember, error)
}

// ProjectHandler handles project-related requests
type ProjectHandler struct {
	projectService ProjectService
	logger         *logger.Logger
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(projectService ProjectService, logger *logger.Logger) *ProjectHandler {
	return &ProjectHandler{
		projectService: projectService,
		logger:         logger,
	}
}

type ProjectUpdateResponse struct {
	ProjectResponse
	NotificationsSent int `json:"notificationsSent"`
}

type InviteResponse struct {
	Member           MemberResponse `json:"member"`
	NotificationSent bool           `json:"notificationSent"`
}

// CreateProject godoc
// @Summary Create a new project
// @Description The caller becomes the owner
// @Tags projects
// @Accept json
// @Produce json
// @Param request body ports.CreateProjectRequest true "Project data"
// @Success 201 {object} ProjectResponse
// @Failure 400 {object} ErrorResponse
// @Security BearerAuth
// @Router /projects [post]
func (h *ProjectHandler) CreateProject(c echo.Context) error {
	var req ports.CreateProjectRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	project, err := h.projectService.CreateProject(c.Request().Context(), actorID(c), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, presentProject(project))
}

// ListProjects godoc
// @Summary List projects visible to the caller
// @Tags projects
// @Produce json
// @Param page query int false "Page number"
// @Param perPage query int false "Page size (max 100)"
// @Param search query string false "Matches name or description"
// @Param isPublic query bool false "Visibility filter"
// @Success 200 {object} ListResponse[ProjectResponse]
// @Security BearerAuth
// @Router /projects [get]
func (h *ProjectHandler) ListProjects(c echo.Context) error {
	page, err := queryPage(c, ports.DefaultProjectsPerPage)
	if err != nil {
		return err
	}
	isPublic, err := queryBool(c, "isPublic")
	if err != nil {
		return err
	}

	filter := ports.ProjectFilter{
		Search:   queryString(c, "search"),
		IsPublic: isPublic,
		Page:     page,
	}

	projects, total, err := h.projectService.ListProjects(c.Request().Context(), actorID(c), filter)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, presentList(projects, page, total, presentProject))
}

// GetProject godoc
// @Summary Get project by ID
// @Description Includes owner, members and tasks
// @Tags projects
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} ProjectResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /projects/{id} [get]
func (h *ProjectHandler) GetProject(c echo.Context) error {
	projectID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	project, err := h.projectService.GetProject(c.Request().Context(), actorID(c), projectID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, presentProject(project))
}

// UpdateProject godoc
// @Summary Update a project
// @Tags projects
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param request body ports.UpdateProjectRequest true "Fields to change"
// @Success 200 {object} ProjectUpdateResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /projects/{id} [patch]
func (h *ProjectHandler) UpdateProject(c echo.Context) error {
	projectID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req ports.UpdateProjectRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.projectService.UpdateProject(c.Request().Context(), actorID(c), projectID, req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, ProjectUpdateResponse{
		ProjectResponse:   presentProject(result.Project),
		NotificationsSent: result.NotificationsSent,
	})
}

// DeleteProject godoc
// @Summary Delete a project
// @Tags projects
// @Param id path string true "Project ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /projects/{id} [delete]
func (h *ProjectHandler) DeleteProject(c echo.Context) error {
	projectID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if err := h.projectService.DeleteProject(c.Request().Context(), actorID(c), projectID); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

// InviteUser godoc
// @Summary Invite a registered user by e-mail
// @Tags projects
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param request body ports.InviteUserRequest true "Invitation"
// @Success 201 {object} InviteResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /projects/{id}/members [post]
func (h *ProjectHandler) InviteUser(c echo.Context) error {
	projectID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req ports.InviteUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.projectService.InviteUser(c.Request().Context(), actorID(c), projectID, req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, InviteResponse{
		Member:           presentMember(result.Member),
		NotificationSent: result.NotificationSent,
	})
}

// RemoveMember godoc
// @Summary Remove a member from a project
// @Tags projects
// @Param id path string true "Project ID"
// @Param userId path string true "User ID"
// @Success 204
// @Failure 400 {object} ErrorResponse
// @Security BearerAuth
// @Router /projects/{id}/members/{userId} [delete]
func (h *ProjectHandler) RemoveMember(c echo.Context) error {
	projectID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	userID, err := pathID(c, "userId")
	if err != nil {
		return err
	}

	if err := h.projectService.RemoveMember(c.Request().Context(), actorID(c), projectID, userID); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

// UpdateMemberRole godoc
// @Summary Change the role of a member
// @Tags projects
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param userId path string true "User ID"
// @Param request body ports.UpdateMemberRoleRequest true "New role"
// @Success 200 {object} MemberResponse
// @Failure 400 {object} ErrorResponse
// @Security BearerAuth
// @Router /projects/{id}/members/{userId} [patch]
func (h *ProjectHandler) UpdateMemberRole(c echo.Context) error {
	projectID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	userID, err := pathID(c, "userId")
	if err != nil {
		return err
	}

	var req ports.UpdateMemberRoleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	member, err := h.projectService.UpdateMemberRole(c.Request().Context(), actorID(c), projectID, userID, req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, presentMember(member))
}
