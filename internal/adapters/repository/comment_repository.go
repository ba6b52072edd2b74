package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/taskhub/core/internal/domain/entities"
	"github.com/taskhub/core/internal/infrastructure/database"
	"github.com/taskhub/core/internal/ports"
)

const commentColumns = `id, task_id, author_id, content, created_at, updated_at`

// CommentRepositoryImpl implements the CommentRepository interface
type CommentRepositoryImpl struct {
	db *sqlx.DB
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(db *sqlx.DB) ports.CommentRepository {
	return &CommentRepositoryImpl{db: db}
}

func (r *CommentRepositoryImpl) Create(ctx context.Context, comment *entities.Comment) error {
	query := `
		INSERT INTO comments (id, task_id, author_id, content)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`

	if comment.ID == uuid.Nil {
		comment.ID = uuid.New()
	}

	q := database.Conn(ctx, r.db)
	err := q.QueryRowxContext(ctx, query,
		comment.ID, comment.TaskID, comment.AuthorID, comment.Content,
	).Scan(&comment.CreatedAt, &comment.UpdatedAt)
	if err != nil {
		return wrapWrite("create comment", err)
	}

	return attachAuthors(ctx, q, []*entities.Comment{comment})
}

func (r *CommentRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*entities.Comment, error) {
	q := database.Conn(ctx, r.db)
	query := `SELECT ` + commentColumns + ` FROM comments WHERE id = $1`

	var comment entities.Comment
	if err := sqlx.GetContext(ctx, q, &comment, query, id); err != nil {
		return nil, notFound("get comment", err, entities.ErrNotFound)
	}

	if err := attachAuthors(ctx, q, []*entities.Comment{&comment}); err != nil {
		return nil, err
	}

	return &comment, nil
}

func (r *CommentRepositoryImpl) Update(ctx context.Context, comment *entities.Comment) error {
	query := `
		UPDATE comments
		SET content = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING updated_at`

	err := database.Conn(ctx, r.db).QueryRowxContext(ctx, query, comment.ID, comment.Content).Scan(&comment.UpdatedAt)
	if err != nil {
		return notFound("update comment", err, entities.ErrNotFound)
	}

	return nil
}

func (r *CommentRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := database.Conn(ctx, r.db).ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return entities.ErrNotFound
	}

	return nil
}

// ListByTask returns a page of the task's comments, oldest first.
func (r *CommentRepositoryImpl) ListByTask(ctx context.Context, taskID uuid.UUID, page ports.Page) ([]*entities.Comment, int, error) {
	q := database.Conn(ctx, r.db)

	var total int
	if err := sqlx.GetContext(ctx, q, &total, `SELECT COUNT(*) FROM comments WHERE task_id = $1`, taskID); err != nil {
		return nil, 0, fmt.Errorf("failed to count comments: %w", err)
	}

	query := `SELECT ` + commentColumns + ` FROM comments
		WHERE task_id = $1
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3`

	var comments []*entities.Comment
	if err := sqlx.SelectContext(ctx, q, &comments, query, taskID, page.Take(), page.Skip()); err != nil {
		return nil, 0, fmt.Errorf("failed to list comments: %w", err)
	}

	if err := attachAuthors(ctx, q, comments); err != nil {
		return nil, 0, err
	}

	return comments, total, nil
}

func attachAuthors(ctx context.Context, q sqlx.QueryerContext, comments []*entities.Comment) error {
	ids := make([]uuid.UUID, 0, len(comments))
	for _, c := range comments {
		ids = append(ids, c.AuthorID)
	}

	users, err := loadUsers(ctx, q, ids)
	if err != nil {
		return err
	}

	for _, c := range comments {
		c.Author = users[c.AuthorID]
	}
	return nil
}
