package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/taskhub/core/internal/domain/entities"
	"github.com/taskhub/core/internal/infrastructure/logger"
	"github.com/taskhub/core/internal/ports"
)

// ProjectService handles project and membership operations
type ProjectService struct {
	projectRepo ports.ProjectRepository
	userRepo    ports.UserRepository
	taskRepo    ports.TaskRepository
	tx          ports.TxManager
	notifier    *Notifier
	logger      *logger.Logger
}

// NewProjectService creates a new project service
func NewProjectService(projectRepo ports.ProjectRepository, userRepo ports.UserRepository, taskRepo ports.TaskRepository, tx ports.TxManager, notifier *Notifier, logger *logger.Logger) *ProjectService {
	return &ProjectService{
		projectRepo: projectRepo,
		userRepo:    userRepo,
		taskRepo:    taskRepo,
		tx:          tx,
		notifier:    notifier,
		logger:      logger,
	}
}

// CreateProject creates a project owned by the actor
func (s *ProjectService) CreateProject(ctx context.Context, actorID uuid.UUID, req ports.CreateProjectRequest) (*entities.Project, error) {
	if actorID == uuid.Nil {
		return nil, entities.ErrNotAuthenticated
	}

	project := &entities.Project{
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
		IsPublic:    req.IsPublic,
		OwnerID:     actorID,
	}
	if project.Color == "" {
		project.Color = entities.DefaultProjectColor
	}

	if err := s.projectRepo.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	s.logger.Infow("Project created successfully", "project_id", project.ID, "owner_id", actorID)

	return s.projectRepo.GetDetail(ctx, project.ID)
}

// ListProjects returns the projects the actor can read
func (s *ProjectService) ListProjects(ctx context.Context, actorID uuid.UUID, filter ports.ProjectFilter) ([]*entities.Project, int, error) {
	if actorID == uuid.Nil {
		return nil, 0, entities.ErrNotAuthenticated
	}

	projects, total, err := s.projectRepo.List(ctx, actorID, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list projects: %w", err)
	}

	return projects, total, nil
}

// GetProject returns a project with owner, members, and tasks
func (s *ProjectService) GetProject(ctx context.Context, actorID, id uuid.UUID) (*entities.Project, error) {
	if _, err := s.scoped(ctx, actorID, id, entities.AccessRead); err != nil {
		return nil, err
	}

	return s.projectRepo.GetDetail(ctx, id)
}

// UpdateProject applies a partial update and tells every other member about it
func (s *ProjectService) UpdateProject(ctx context.Context, actorID, id uuid.UUID, req ports.UpdateProjectRequest) (*ports.ProjectUpdateResult, error) {
	project, err := s.scoped(ctx, actorID, id, entities.AccessManage)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		project.Name = *req.Name
	}
	if req.Description != nil {
		project.Description = req.Description
	}
	if req.Color != nil {
		project.Color = *req.Color
	}
	if req.IsPublic != nil {
		project.IsPublic = *req.IsPublic
	}

	if err := s.projectRepo.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	sent := s.notifier.Send(ctx, entities.ProjectUpdateRecipients(project, actorID), projectUpdated(project))

	s.logger.Infow("Project updated successfully", "project_id", id, "actor_id", actorID, "notifications_sent", sent)

	detail, err := s.projectRepo.GetDetail(ctx, id)
	if err != nil {
		return nil, err
	}

	return &ports.ProjectUpdateResult{Project: detail, NotificationsSent: sent}, nil
}

// DeleteProject removes a project and everything in it. Owner only.
func (s *ProjectService) DeleteProject(ctx context.Context, actorID, id uuid.UUID) error {
	if _, err := s.scoped(ctx, actorID, id, entities.AccessOwner); err != nil {
		return err
	}

	if err := s.projectRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	s.logger.Infow("Project deleted successfully", "project_id", id, "actor_id", actorID)
	return nil
}

// InviteUser adds the user with the given e-mail as a member
func (s *ProjectService) InviteUser(ctx context.Context, actorID, projectID uuid.UUID, req ports.InviteUserRequest) (*ports.InviteResult, error) {
	role := req.Role
	if role == "" {
		role = entities.MemberRoleMember
	}

	project, err := s.scoped(ctx, actorID, projectID, entities.AccessManage)
	if err != nil {
		return nil, err
	}

	if !role.IsAssignable() {
		return nil, entities.ErrInvalidRole
	}

	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, entities.ErrUserNotFound) {
			return nil, entities.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if project.IsOwner(user.ID) {
		return nil, fmt.Errorf("user owns the project: %w", entities.ErrConflict)
	}
	if _, ok := project.Member(user.ID); ok {
		return nil, fmt.Errorf("user is already a member: %w", entities.ErrConflict)
	}

	member := &entities.ProjectMember{
		ProjectID: projectID,
		UserID:    user.ID,
		Role:      role,
	}
	if err := s.projectRepo.AddMember(ctx, member); err != nil {
		return nil, fmt.Errorf("failed to add member: %w", err)
	}
	member.User = user

	s.logger.LogUserAction(actorID.String(), "member_invited", map[string]interface{}{
		"project_id": projectID.String(),
		"target_id":  user.ID.String(),
		"role":       string(role),
	})

	sent := s.notifier.Send(ctx, []uuid.UUID{user.ID}, projectInvited(project))

	return &ports.InviteResult{Member: member, NotificationSent: sent > 0}, nil
}

// RemoveMember removes a member. The owner cannot be removed.
func (s *ProjectService) RemoveMember(ctx context.Context, actorID, projectID, userID uuid.UUID) error {
	project, err := s.scoped(ctx, actorID, projectID, entities.AccessManage)
	if err != nil {
		return err
	}

	if project.IsOwner(userID) {
		return entities.ErrOwnerImmutable
	}

	// Assignees must stay members, so their tasks are released with the membership.
	var unassigned int64
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.projectRepo.RemoveMember(ctx, projectID, userID); err != nil {
			if errors.Is(err, entities.ErrNotMember) {
				return err
			}
			return fmt.Errorf("failed to remove member: %w", err)
		}

		n, err := s.taskRepo.UnassignUser(ctx, projectID, userID)
		if err != nil {
			return fmt.Errorf("failed to unassign tasks: %w", err)
		}
		unassigned = n
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.LogUserAction(actorID.String(), "member_removed", map[string]interface{}{
		"project_id":       projectID.String(),
		"target_id":        userID.String(),
		"tasks_unassigned": unassigned,
	})

	return nil
}

// UpdateMemberRole changes a member's role. Owner only, and never on the owner.
func (s *ProjectService) UpdateMemberRole(ctx context.Context, actorID, projectID, userID uuid.UUID, req ports.UpdateMemberRoleRequest) (*entities.ProjectMember, error) {
	project, err := s.scoped(ctx, actorID, projectID, entities.AccessOwner)
	if err != nil {
		return nil, err
	}

	if !req.Role.IsAssignable() {
		return nil, entities.ErrInvalidRole
	}

	if project.IsOwner(userID) {
		return nil, entities.ErrOwnerImmutable
	}

	member := &entities.ProjectMember{
		ProjectID: projectID,
		UserID:    userID,
		Role:      req.Role,
	}
	if err := s.projectRepo.UpdateMemberRole(ctx, member); err != nil {
		if errors.Is(err, entities.ErrNotMember) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update member role: %w", err)
	}

	s.logger.LogUserAction(actorID.String(), "member_role_updated", map[string]interface{}{
		"project_id": projectID.String(),
		"target_id":  userID.String(),
		"role":       string(req.Role),
	})

	return member, nil
}

// scoped fetches the project at the given access level. Missing and forbidden
// projects both surface as entities.ErrNotFound.
func (s *ProjectService) scoped(ctx context.Context, actorID, id uuid.UUID, level entities.AccessLevel) (*entities.Project, error) {
	if actorID == uuid.Nil {
		return nil, entities.ErrNotAuthenticated
	}

	project, err := s.projectRepo.GetScoped(ctx, id, actorID, level)
	if err != nil {
		if errors.Is(err, entities.ErrNotFound) {
			return nil, entities.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return project, nil
}
