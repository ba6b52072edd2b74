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

// CommentService handles comment operations
type CommentService struct {
	commentRepo ports.CommentRepository
	taskRepo    ports.TaskRepository
	projectRepo ports.ProjectRepository
	notifier    *Notifier
	logger      *logger.Logger
}

// NewCommentService creates a new comment service
func NewCommentService(commentRepo ports.CommentRepository, taskRepo ports.TaskRepository, projectRepo ports.ProjectRepository, notifier *Notifier, logger *logger.Logger) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		taskRepo:    taskRepo,
		projectRepo: projectRepo,
		notifier:    notifier,
		logger:      logger,
	}
}

// CreateComment adds a comment and notifies the task's creator and assignee
func (s *CommentService) CreateComment(ctx context.Context, actorID uuid.UUID, req ports.CreateCommentRequest) (*ports.CommentCreateResult, error) {
	task, err := s.scopedTask(ctx, actorID, req.TaskID, entities.AccessContribute)
	if err != nil {
		return nil, err
	}

	comment := &entities.Comment{
		TaskID:   task.ID,
		AuthorID: actorID,
		Content:  req.Content,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	sent := s.notifier.Send(ctx, entities.CommentRecipients(task, actorID), taskCommented(task))

	s.logger.Infow("Comment created successfully", "comment_id", comment.ID, "task_id", task.ID, "notifications_sent", sent)

	return &ports.CommentCreateResult{Comment: comment, NotificationsSent: sent}, nil
}

// ListComments returns a page of a readable task's comments, oldest first
func (s *CommentService) ListComments(ctx context.Context, actorID, taskID uuid.UUID, page ports.Page) ([]*entities.Comment, int, error) {
	if _, err := s.scopedTask(ctx, actorID, taskID, entities.AccessRead); err != nil {
		return nil, 0, err
	}

	comments, total, err := s.commentRepo.ListByTask(ctx, taskID, page)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list comments: %w", err)
	}

	return comments, total, nil
}

// GetComment returns a comment on a task the actor can read
func (s *CommentService) GetComment(ctx context.Context, actorID, id uuid.UUID) (*entities.Comment, error) {
	comment, err := s.getComment(ctx, actorID, id)
	if err != nil {
		return nil, err
	}

	if _, err := s.scopedTask(ctx, actorID, comment.TaskID, entities.AccessRead); err != nil {
		return nil, err
	}

	return comment, nil
}

// UpdateComment edits a comment. Only its author may do so, while still a contributor.
func (s *CommentService) UpdateComment(ctx context.Context, actorID, id uuid.UUID, req ports.UpdateCommentRequest) (*entities.Comment, error) {
	comment, err := s.getComment(ctx, actorID, id)
	if err != nil {
		return nil, err
	}

	if comment.AuthorID != actorID {
		return nil, entities.ErrNotFound
	}

	if _, err := s.scopedTask(ctx, actorID, comment.TaskID, entities.AccessContribute); err != nil {
		return nil, err
	}

	comment.Content = req.Content
	if err := s.commentRepo.Update(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to update comment: %w", err)
	}

	s.logger.Infow("Comment updated successfully", "comment_id", id, "actor_id", actorID)
	return comment, nil
}

// DeleteComment removes a comment. Allowed for its author, the project owner, and admins.
func (s *CommentService) DeleteComment(ctx context.Context, actorID, id uuid.UUID) error {
	comment, err := s.getComment(ctx, actorID, id)
	if err != nil {
		return err
	}

	task, err := s.scopedTask(ctx, actorID, comment.TaskID, entities.AccessRead)
	if err != nil {
		return err
	}

	project, err := s.projectRepo.GetScoped(ctx, task.ProjectID, actorID, entities.AccessRead)
	if err != nil {
		if errors.Is(err, entities.ErrNotFound) {
			return entities.ErrNotFound
		}
		return fmt.Errorf("failed to get project: %w", err)
	}

	if !entities.CanModifyComment(actorID, comment, project) {
		return entities.ErrNotFound
	}

	if err := s.commentRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}

	s.logger.Infow("Comment deleted successfully", "comment_id", id, "actor_id", actorID)
	return nil
}

func (s *CommentService) getComment(ctx context.Context, actorID, id uuid.UUID) (*entities.Comment, error) {
	if actorID == uuid.Nil {
		return nil, entities.ErrNotAuthenticated
	}

	comment, err := s.commentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, entities.ErrNotFound) {
			return nil, entities.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}
	return comment, nil
}

func (s *CommentService) scopedTask(ctx context.Context, actorID, id uuid.UUID, level entities.AccessLevel) (*entities.Task, error) {
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
