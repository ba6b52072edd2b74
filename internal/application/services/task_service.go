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

// TaskService handles task-related operations
type TaskService struct {
	taskRepo    ports.TaskRepository
	projectRepo ports.ProjectRepository
	tx          ports.TxManager
	notifier    *Notifier
	logger      *logger.Logger
}

// NewTaskService creates a new task service
func NewTaskService(taskRepo ports.TaskRepository, projectRepo ports.ProjectRepository, tx ports.TxManager, notifier *Notifier, logger *logger.Logger) *TaskService {
	return &TaskService{
		taskRepo:    taskRepo,
		projectRepo: projectRepo,
		tx:          tx,
		notifier:    notifier,
		logger:      logger,
	}
}

// CreateTask creates a task in a project the actor contributes to
func (s *TaskService) CreateTask(ctx context.Context, actorID uuid.UUID, req ports.CreateTaskRequest) (*entities.Task, error) {
	if actorID == uuid.Nil {
		return nil, entities.ErrNotAuthenticated
	}

	task := &entities.Task{
		ProjectID:   req.ProjectID,
		CreatorID:   actorID,
		AssigneeID:  req.AssigneeID,
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
	}
	if task.Status == "" {
		task.Status = entities.TaskStatusTodo
	}
	if task.Priority == "" {
		task.Priority = entities.PriorityMedium
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.scopedProject(ctx, actorID, req.ProjectID, entities.AccessContribute); err != nil {
			return err
		}

		if err := s.requireAssignee(ctx, req.ProjectID, req.AssigneeID); err != nil {
			return err
		}

		if err := s.taskRepo.Create(ctx, task); err != nil {
			return fmt.Errorf("failed to create task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infow("Task created successfully", "task_id", task.ID, "project_id", task.ProjectID, "creator_id", actorID)

	return s.taskRepo.GetDetail(ctx, task.ID)
}

// ListTasks returns a page of a readable project's tasks
func (s *TaskService) ListTasks(ctx context.Context, actorID uuid.UUID, filter ports.TaskFilter) ([]*entities.Task, int, error) {
	if _, err := s.scopedProject(ctx, actorID, filter.ProjectID, entities.AccessRead); err != nil {
		return nil, 0, err
	}

	tasks, total, err := s.taskRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}

	return tasks, total, nil
}

// GetTask returns a task with its assignee, creator, and comments
func (s *TaskService) GetTask(ctx context.Context, actorID, id uuid.UUID) (*entities.Task, error) {
	if _, err := s.scopedTask(ctx, actorID, id, entities.AccessRead); err != nil {
		return nil, err
	}

	return s.taskRepo.GetDetail(ctx, id)
}

// UpdateTask applies a partial update and tells the assignee about it
func (s *TaskService) UpdateTask(ctx context.Context, actorID, id uuid.UUID, req ports.UpdateTaskRequest) (*ports.TaskMutationResult, error) {
	var task *entities.Task

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		task, err = s.scopedTask(ctx, actorID, id, entities.AccessContribute)
		if err != nil {
			return err
		}

		if err := s.requireAssignee(ctx, task.ProjectID, req.AssigneeID); err != nil {
			return err
		}

		if req.Title != nil {
			task.Title = *req.Title
		}
		if req.Description != nil {
			task.Description = req.Description
		}
		if req.Status != nil {
			task.Status = *req.Status
		}
		if req.Priority != nil {
			task.Priority = *req.Priority
		}
		if req.DueDate != nil {
			task.DueDate = req.DueDate
		}
		if req.AssigneeID != nil {
			task.AssigneeID = req.AssigneeID
		}

		if err := s.taskRepo.Update(ctx, task); err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sent := 0
	if recipient, ok := entities.UpdateRecipient(task, actorID); ok {
		sent = s.notifier.Send(ctx, []uuid.UUID{recipient}, taskUpdated(task))
	}

	s.logger.Infow("Task updated successfully", "task_id", id, "actor_id", actorID)

	detail, err := s.taskRepo.GetDetail(ctx, id)
	if err != nil {
		return nil, err
	}

	return &ports.TaskMutationResult{Task: detail, NotificationSent: sent > 0}, nil
}

// DeleteTask removes a task and its comments
func (s *TaskService) DeleteTask(ctx context.Context, actorID, id uuid.UUID) error {
	if _, err := s.scopedTask(ctx, actorID, id, entities.AccessContribute); err != nil {
		return err
	}

	if err := s.taskRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	s.logger.Infow("Task deleted successfully", "task_id", id, "actor_id", actorID)
	return nil
}

// AssignTask sets or clears the assignee and tells the new assignee
func (s *TaskService) AssignTask(ctx context.Context, actorID, id uuid.UUID, req ports.AssignTaskRequest) (*ports.TaskMutationResult, error) {
	var task *entities.Task

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		task, err = s.scopedTask(ctx, actorID, id, entities.AccessContribute)
		if err != nil {
			return err
		}

		if err := s.requireAssignee(ctx, task.ProjectID, req.AssigneeID); err != nil {
			return err
		}

		task.AssigneeID = req.AssigneeID
		if err := s.taskRepo.Update(ctx, task); err != nil {
			return fmt.Errorf("failed to assign task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sent := 0
	if recipient, ok := entities.AssignRecipient(req.AssigneeID, actorID); ok {
		sent = s.notifier.Send(ctx, []uuid.UUID{recipient}, taskAssigned(task))
	}

	s.logger.Infow("Task assigned successfully", "task_id", id, "actor_id", actorID, "assignee_id", req.AssigneeID)

	detail, err := s.taskRepo.GetDetail(ctx, id)
	if err != nil {
		return nil, err
	}

	return &ports.TaskMutationResult{Task: detail, NotificationSent: sent > 0}, nil
}

// requireAssignee checks that assigneeID, when set, has a member row in the project.
// Called inside a transaction so the row stays locked until the write commits.
func (s *TaskService) requireAssignee(ctx context.Context, projectID uuid.UUID, assigneeID *uuid.UUID) error {
	if assigneeID == nil {
		return nil
	}

	if _, err := s.projectRepo.GetMember(ctx, projectID, *assigneeID); err != nil {
		if errors.Is(err, entities.ErrNotMember) {
			return entities.ErrInvalidAssignee
		}
		return fmt.Errorf("failed to check assignee: %w", err)
	}
	return nil
}

func (s *TaskService) scopedProject(ctx context.Context, actorID, id uuid.UUID, level entities.AccessLevel) (*entities.Project, error) {
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

func (s *TaskService) scopedTask(ctx context.Context, actorID, id uuid.UUID, level entities.AccessLevel) (*entities.Task, error) {
	if actorID == uuid.Nil {
		return nil, entities.ErrNotAuthenticated
	}

	task, err := s.taskRepo.GetScoped(ctx, id, actorID, level)
	if err != nil {
		if errors.Is(err, entities.ErrNotFound) {
			return nil, entities.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}
