package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/taskhub/core/internal/domain/entities"
	"github.com/taskhub/core/internal/infrastructure/database"
	"github.com/taskhub/core/internal/ports"
)

const notificationSelect = `
	SELECT n.id, n.type, n.title, n.message, n.user_id, n.project_id, n.task_id, n.is_read, n.created_at,
		p.name AS project_name, p.color AS project_color,
		t.title AS task_title, t.status AS task_status
	FROM notifications n
	LEFT JOIN projects p ON p.id = n.project_id
	LEFT JOIN tasks t ON t.id = n.task_id`

type notificationRow struct {
	entities.Notification
	ProjectName  sql.NullString `db:"project_name"`
	ProjectColor sql.NullString `db:"project_color"`
	TaskTitle    sql.NullString `db:"task_title"`
	TaskStatus   sql.NullString `db:"task_status"`
}

func (row *notificationRow) toEntity() *entities.Notification {
	n := row.Notification
	if n.ProjectID != nil && row.ProjectName.Valid {
		n.Project = &entities.NotificationProject{
			ID:    *n.ProjectID,
			Name:  row.ProjectName.String,
			Color: row.ProjectColor.String,
		}
	}
	if n.TaskID != nil && row.TaskTitle.Valid {
		n.Task = &entities.NotificationTask{
			ID:     *n.TaskID,
			Title:  row.TaskTitle.String,
			Status: entities.TaskStatus(row.TaskStatus.String),
		}
	}
	return &n
}

// NotificationRepositoryImpl implements the NotificationRepository interface
type NotificationRepositoryImpl struct {
	db *sqlx.DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *sqlx.DB) ports.NotificationRepository {
	return &NotificationRepositoryImpl{db: db}
}

func (r *NotificationRepositoryImpl) Create(ctx context.Context, notification *entities.Notification) error {
	query := `
		INSERT INTO notifications (id, type, title, message, user_id, project_id, task_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING is_read, created_at`

	if notification.ID == uuid.Nil {
		notification.ID = uuid.New()
	}

	err := database.Conn(ctx, r.db).QueryRowxContext(ctx, query,
		notification.ID, notification.Type, notification.Title, notification.Message,
		notification.UserID, notification.ProjectID, notification.TaskID,
	).Scan(&notification.IsRead, &notification.CreatedAt)
	if err != nil {
		return wrapWrite("create notification", err)
	}

	return nil
}

func (r *NotificationRepositoryImpl) GetForUser(ctx context.Context, id, userID uuid.UUID) (*entities.Notification, error) {
	var row notificationRow
	query := notificationSelect + ` WHERE n.id = $1 AND n.user_id = $2`
	if err := sqlx.GetContext(ctx, database.Conn(ctx, r.db), &row, query, id, userID); err != nil {
		return nil, notFound("get notification", err, entities.ErrNotFound)
	}

	return row.toEntity(), nil
}

func (r *NotificationRepositoryImpl) ListForUser(ctx context.Context, userID uuid.UUID, filter ports.NotificationFilter) ([]*entities.Notification, int, error) {
	whereClause := `WHERE n.user_id = $1`
	if filter.UnreadOnly {
		whereClause += ` AND n.is_read = FALSE`
	}

	q := database.Conn(ctx, r.db)

	var total int
	if err := sqlx.GetContext(ctx, q, &total, `SELECT COUNT(*) FROM notifications n `+whereClause, userID); err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	query := notificationSelect + ` ` + whereClause + `
		ORDER BY n.created_at DESC
		LIMIT $2 OFFSET $3`

	var rows []notificationRow
	if err := sqlx.SelectContext(ctx, q, &rows, query, userID, filter.Page.Take(), filter.Page.Skip()); err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}

	notifications := make([]*entities.Notification, 0, len(rows))
	for i := range rows {
		notifications = append(notifications, rows[i].toEntity())
	}

	return notifications, total, nil
}

func (r *NotificationRepositoryImpl) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE`
	if err := sqlx.GetContext(ctx, database.Conn(ctx, r.db), &count, query, userID); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

func (r *NotificationRepositoryImpl) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	query := `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`

	result, err := database.Conn(ctx, r.db).ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
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

// MarkAllRead flags every unread notification of userID and returns how many changed.
func (r *NotificationRepositoryImpl) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	query := `UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE`

	result, err := database.Conn(ctx, r.db).ExecContext(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}

	return rowsAffected, nil
}

func (r *NotificationRepositoryImpl) Delete(ctx context.Context, id, userID uuid.UUID) error {
	query := `DELETE FROM notifications WHERE id = $1 AND user_id = $2`

	result, err := database.Conn(ctx, r.db).ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
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

func (r *NotificationRepositoryImpl) Exists(ctx context.Context, userID, taskID uuid.UUID, notificationType entities.NotificationType) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM notifications WHERE user_id = $1 AND task_id = $2 AND type = $3)`

	var exists bool
	if err := sqlx.GetContext(ctx, database.Conn(ctx, r.db), &exists, query, userID, taskID, notificationType); err != nil {
		return false, fmt.Errorf("check notification exists: %w", err)
	}
	return exists, nil
}
