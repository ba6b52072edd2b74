package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/taskhub/core/internal/domain/entities"
	"github.com/taskhub/core/internal/infrastructure/database"
	"github.com/taskhub/core/internal/ports"
)

const taskSelect = `
	SELECT t.id, t.project_id, t.creator_id, t.assignee_id, t.title, t.description, t.status,
		t.priority, t.due_date, t.created_at, t.updated_at,
		(SELECT COUNT(*) FROM comments c WHERE c.task_id = t.id) AS comment_count
	FROM tasks t`

// URGENT > HIGH > MEDIUM > LOW
const priorityRank = `CASE t.priority WHEN 'URGENT' THEN 4 WHEN 'HIGH' THEN 3 WHEN 'MEDIUM' THEN 2 ELSE 1 END`

// TaskRepositoryImpl implements the TaskRepository interface
type TaskRepositoryImpl struct {
	db *sqlx.DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *sqlx.DB) ports.TaskRepository {
	return &TaskRepositoryImpl{db: db}
}

func (r *TaskRepositoryImpl) Create(ctx context.Context, task *entities.Task) error {
	query := `
		INSERT INTO tasks (id, project_id, creator_id, assignee_id, title, description, status, priority, due_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`

	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}

	err := database.Conn(ctx, r.db).QueryRowxContext(ctx, query,
		task.ID, task.ProjectID, task.CreatorID, task.AssigneeID, task.Title,
		task.Description, task.Status, task.Priority, task.DueDate,
	).Scan(&task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return wrapWrite("create task", err)
	}

	return nil
}

// GetScoped resolves the task through the guard of its project.
func (r *TaskRepositoryImpl) GetScoped(ctx context.Context, id, actorID uuid.UUID, level entities.AccessLevel) (*entities.Task, error) {
	query := taskSelect + `
		JOIN projects p ON p.id = t.project_id
		WHERE t.id = $1 AND ` + accessClause(level, 2)

	var task entities.Task
	if err := sqlx.GetContext(ctx, database.Conn(ctx, r.db), &task, query, id, actorID); err != nil {
		return nil, notFound("get task", err, entities.ErrNotFound)
	}

	return &task, nil
}

// GetDetail loads the task with assignee, creator, and comments. It performs no access check.
func (r *TaskRepositoryImpl) GetDetail(ctx context.Context, id uuid.UUID) (*entities.Task, error) {
	q := database.Conn(ctx, r.db)

	var task entities.Task
	if err := sqlx.GetContext(ctx, q, &task, taskSelect+` WHERE t.id = $1`, id); err != nil {
		return nil, notFound("get task detail", err, entities.ErrNotFound)
	}

	var comments []*entities.Comment
	query := `SELECT ` + commentColumns + ` FROM comments WHERE task_id = $1 ORDER BY created_at ASC`
	if err := sqlx.SelectContext(ctx, q, &comments, query, id); err != nil {
		return nil, fmt.Errorf("get task comments: %w", err)
	}
	if err := attachAuthors(ctx, q, comments); err != nil {
		return nil, err
	}
	task.Comments = comments

	if err := attachTaskUsers(ctx, q, []*entities.Task{&task}); err != nil {
		return nil, err
	}

	return &task, nil
}

func (r *TaskRepositoryImpl) Update(ctx context.Context, task *entities.Task) error {
	query := `
		UPDATE tasks
		SET assignee_id = $2, title = $3, description = $4, status = $5, priority = $6,
			due_date = $7, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING updated_at`

	err := database.Conn(ctx, r.db).QueryRowxContext(ctx, query,
		task.ID, task.AssigneeID, task.Title, task.Description, task.Status, task.Priority, task.DueDate,
	).Scan(&task.UpdatedAt)
	if err != nil {
		return notFound("update task", err, entities.ErrNotFound)
	}

	return nil
}

func (r *TaskRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := database.Conn(ctx, r.db).ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
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

// List returns one project's tasks, highest priority first, newest first within a priority.
func (r *TaskRepositoryImpl) List(ctx context.Context, filter ports.TaskFilter) ([]*entities.Task, int, error) {
	conditions := []string{"t.project_id = $1"}
	args := []interface{}{filter.ProjectID}
	argIndex := 2

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("t.status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}

	if filter.Priority != nil {
		conditions = append(conditions, fmt.Sprintf("t.priority = $%d", argIndex))
		args = append(args, *filter.Priority)
		argIndex++
	}

	if filter.AssigneeID != nil {
		conditions = append(conditions, fmt.Sprintf("t.assignee_id = $%d", argIndex))
		args = append(args, *filter.AssigneeID)
		argIndex++
	}

	if filter.Search != nil && *filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf(`(t.title ILIKE $%d ESCAPE '\' OR t.description ILIKE $%d ESCAPE '\')`, argIndex, argIndex))
		args = append(args, containsPattern(*filter.Search))
		argIndex++
	}

	whereClause := "WHERE " + strings.Join(conditions, " AND ")
	q := database.Conn(ctx, r.db)

	var total int
	if err := sqlx.GetContext(ctx, q, &total, "SELECT COUNT(*) FROM tasks t "+whereClause, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count tasks: %w", err)
	}

	query := fmt.Sprintf(`%s %s
		ORDER BY %s DESC, t.created_at DESC
		LIMIT $%d OFFSET $%d`, taskSelect, whereClause, priorityRank, argIndex, argIndex+1)
	args = append(args, filter.Page.Take(), filter.Page.Skip())

	tasks, err := selectTasks(ctx, q, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	if err := attachTaskUsers(ctx, q, tasks); err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// GetTasksDueBetween returns open, assigned tasks whose due date falls in [from, to].
func (r *TaskRepositoryImpl) GetTasksDueBetween(ctx context.Context, from, to time.Time) ([]*entities.Task, error) {
	query := taskSelect + `
		WHERE t.status <> 'DONE' AND t.assignee_id IS NOT NULL
			AND t.due_date >= $1 AND t.due_date <= $2
		ORDER BY t.due_date ASC`

	tasks, err := selectTasks(ctx, database.Conn(ctx, r.db), query, from, to)
	if err != nil {
		return nil, fmt.Errorf("get tasks due between: %w", err)
	}
	return tasks, nil
}

// GetOverdueTasks returns open, assigned tasks whose due date is before now.
func (r *TaskRepositoryImpl) GetOverdueTasks(ctx context.Context, now time.Time) ([]*entities.Task, error) {
	query := taskSelect + `
		WHERE t.status <> 'DONE' AND t.assignee_id IS NOT NULL AND t.due_date < $1
		ORDER BY t.due_date ASC`

	tasks, err := selectTasks(ctx, database.Conn(ctx, r.db), query, now)
	if err != nil {
		return nil, fmt.Errorf("get overdue tasks: %w", err)
	}
	return tasks, nil
}

func (r *TaskRepositoryImpl) UnassignUser(ctx context.Context, projectID, userID uuid.UUID) (int64, error) {
	query := `
		UPDATE tasks
		SET assignee_id = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE project_id = $1 AND assignee_id = $2`

	result, err := database.Conn(ctx, r.db).ExecContext(ctx, query, projectID, userID)
	if err != nil {
		return 0, fmt.Errorf("unassign user tasks: %w", err)
	}

	return result.RowsAffected()
}

func selectTasks(ctx context.Context, q sqlx.QueryerContext, query string, args ...interface{}) ([]*entities.Task, error) {
	var tasks []*entities.Task
	if err := sqlx.SelectContext(ctx, q, &tasks, query, args...); err != nil {
		return nil, err
	}
	return tasks, nil
}

// attachTaskUsers fills Assignee and Creator on every task.
func attachTaskUsers(ctx context.Context, q sqlx.QueryerContext, tasks []*entities.Task) error {
	ids := make([]uuid.UUID, 0, len(tasks)*2)
	for _, t := range tasks {
		ids = append(ids, t.CreatorID)
		if t.AssigneeID != nil {
			ids = append(ids, *t.AssigneeID)
		}
	}

	users, err := loadUsers(ctx, q, ids)
	if err != nil {
		return err
	}

	for _, t := range tasks {
		t.Creator = users[t.CreatorID]
		if t.AssigneeID != nil {
			t.Assignee = users[*t.AssigneeID]
		}
	}
	return nil
}
