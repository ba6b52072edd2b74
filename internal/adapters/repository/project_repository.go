package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/taskhub/core/internal/domain/entities"
	"github.com/taskhub/core/internal/infrastructure/database"
	"github.com/taskhub/core/internal/ports"
)

const projectSelect = `
	SELECT p.id, p.name, p.description, p.color, p.is_public, p.owner_id, p.created_at, p.updated_at,
		(SELECT COUNT(*) FROM tasks t WHERE t.project_id = p.id) AS task_count,
		(SELECT COUNT(*) FROM project_members m WHERE m.project_id = p.id) AS member_count
	FROM projects p`

const memberColumns = `id, project_id, user_id, role, created_at, updated_at`

// ProjectRepositoryImpl implements the ProjectRepository interface
type ProjectRepositoryImpl struct {
	db *sqlx.DB
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db *sqlx.DB) ports.ProjectRepository {
	return &ProjectRepositoryImpl{db: db}
}

func (r *ProjectRepositoryImpl) Create(ctx context.Context, project *entities.Project) error {
	query := `
		INSERT INTO projects (id, name, description, color, is_public, owner_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`

	if project.ID == uuid.Nil {
		project.ID = uuid.New()
	}

	err := database.Conn(ctx, r.db).QueryRowxContext(ctx, query,
		project.ID, project.Name, project.Description, project.Color, project.IsPublic, project.OwnerID,
	).Scan(&project.CreatedAt, &project.UpdatedAt)
	if err != nil {
		return wrapWrite("create project", err)
	}

	return nil
}

// GetScoped fetches the project only if actorID reaches it at level, with members loaded.
func (r *ProjectRepositoryImpl) GetScoped(ctx context.Context, id, actorID uuid.UUID, level entities.AccessLevel) (*entities.Project, error) {
	query := projectSelect + ` WHERE p.id = $1 AND ` + accessClause(level, 2)

	var project entities.Project
	if err := sqlx.GetContext(ctx, database.Conn(ctx, r.db), &project, query, id, actorID); err != nil {
		return nil, notFound("get project", err, entities.ErrNotFound)
	}

	members, err := r.GetMembers(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	project.Members = members

	return &project, nil
}

// GetDetail loads the project with owner, members, and tasks. It performs no access check.
func (r *ProjectRepositoryImpl) GetDetail(ctx context.Context, id uuid.UUID) (*entities.Project, error) {
	q := database.Conn(ctx, r.db)

	var project entities.Project
	if err := sqlx.GetContext(ctx, q, &project, projectSelect+` WHERE p.id = $1`, id); err != nil {
		return nil, notFound("get project detail", err, entities.ErrNotFound)
	}

	members, err := r.GetMembers(ctx, id)
	if err != nil {
		return nil, err
	}
	project.Members = members

	tasks, err := selectTasks(ctx, q, taskSelect+` WHERE t.project_id = $1 ORDER BY t.created_at DESC`, id)
	if err != nil {
		return nil, fmt.Errorf("get project tasks: %w", err)
	}
	if err := attachTaskUsers(ctx, q, tasks); err != nil {
		return nil, err
	}
	project.Tasks = tasks

	owners, err := loadUsers(ctx, q, []uuid.UUID{project.OwnerID})
	if err != nil {
		return nil, err
	}
	project.Owner = owners[project.OwnerID]

	return &project, nil
}

func (r *ProjectRepositoryImpl) Update(ctx context.Context, project *entities.Project) error {
	query := `
		UPDATE projects
		SET name = $2, description = $3, color = $4, is_public = $5, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING updated_at`

	err := database.Conn(ctx, r.db).QueryRowxContext(ctx, query,
		project.ID, project.Name, project.Description, project.Color, project.IsPublic,
	).Scan(&project.UpdatedAt)
	if err != nil {
		return notFound("update project", err, entities.ErrNotFound)
	}

	return nil
}

func (r *ProjectRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := database.Conn(ctx, r.db).ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
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

// List returns the projects actorID can read, newest activity first.
func (r *ProjectRepositoryImpl) List(ctx context.Context, actorID uuid.UUID, filter ports.ProjectFilter) ([]*entities.Project, int, error) {
	conditions := []string{accessClause(entities.AccessRead, 1)}
	args := []interface{}{actorID}
	argIndex := 2

	if filter.Search != nil && *filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf(`(p.name ILIKE $%d ESCAPE '\' OR p.description ILIKE $%d ESCAPE '\')`, argIndex, argIndex))
		args = append(args, containsPattern(*filter.Search))
		argIndex++
	}

	if filter.IsPublic != nil {
		conditions = append(conditions, fmt.Sprintf("p.is_public = $%d", argIndex))
		args = append(args, *filter.IsPublic)
		argIndex++
	}

	whereClause := "WHERE " + strings.Join(conditions, " AND ")
	q := database.Conn(ctx, r.db)

	var total int
	if err := sqlx.GetContext(ctx, q, &total, "SELECT COUNT(*) FROM projects p "+whereClause, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count projects: %w", err)
	}

	query := fmt.Sprintf(`%s %s
		ORDER BY p.updated_at DESC
		LIMIT $%d OFFSET $%d`, projectSelect, whereClause, argIndex, argIndex+1)
	args = append(args, filter.Page.Take(), filter.Page.Skip())

	var projects []*entities.Project
	if err := sqlx.SelectContext(ctx, q, &projects, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list projects: %w", err)
	}

	ownerIDs := make([]uuid.UUID, 0, len(projects))
	for _, p := range projects {
		ownerIDs = append(ownerIDs, p.OwnerID)
	}
	owners, err := loadUsers(ctx, q, ownerIDs)
	if err != nil {
		return nil, 0, err
	}
	for _, p := range projects {
		p.Owner = owners[p.OwnerID]
	}

	return projects, total, nil
}

func (r *ProjectRepositoryImpl) GetMembers(ctx context.Context, projectID uuid.UUID) ([]entities.ProjectMember, error) {
	q := database.Conn(ctx, r.db)
	query := `SELECT ` + memberColumns + ` FROM project_members WHERE project_id = $1 ORDER BY created_at`

	var members []entities.ProjectMember
	if err := sqlx.SelectContext(ctx, q, &members, query, projectID); err != nil {
		return nil, fmt.Errorf("get project members: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.UserID)
	}
	users, err := loadUsers(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	for i := range members {
		members[i].User = users[members[i].UserID]
	}

	return members, nil
}

// GetMember returns entities.ErrNotMember when there is no row. Inside a transaction
// the row is share-locked until commit.
func (r *ProjectRepositoryImpl) GetMember(ctx context.Context, projectID, userID uuid.UUID) (*entities.ProjectMember, error) {
	query := `SELECT ` + memberColumns + ` FROM project_members WHERE project_id = $1 AND user_id = $2`
	if database.InTx(ctx) {
		query += ` FOR SHARE`
	}

	var member entities.ProjectMember
	if err := sqlx.GetContext(ctx, database.Conn(ctx, r.db), &member, query, projectID, userID); err != nil {
		return nil, notFound("get project member", err, entities.ErrNotMember)
	}

	return &member, nil
}

func (r *ProjectRepositoryImpl) AddMember(ctx context.Context, member *entities.ProjectMember) error {
	query := `
		INSERT INTO project_members (id, project_id, user_id, role)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`

	if member.ID == uuid.Nil {
		member.ID = uuid.New()
	}

	err := database.Conn(ctx, r.db).QueryRowxContext(ctx, query,
		member.ID, member.ProjectID, member.UserID, member.Role,
	).Scan(&member.CreatedAt, &member.UpdatedAt)
	if err != nil {
		return wrapWrite("add project member", err)
	}

	return nil
}

func (r *ProjectRepositoryImpl) UpdateMemberRole(ctx context.Context, member *entities.ProjectMember) error {
	query := `
		UPDATE project_members
		SET role = $3, updated_at = CURRENT_TIMESTAMP
		WHERE project_id = $1 AND user_id = $2
		RETURNING id, created_at, updated_at`

	err := database.Conn(ctx, r.db).QueryRowxContext(ctx, query,
		member.ProjectID, member.UserID, member.Role,
	).Scan(&member.ID, &member.CreatedAt, &member.UpdatedAt)
	if err != nil {
		return notFound("update member role", err, entities.ErrNotMember)
	}

	return nil
}

func (r *ProjectRepositoryImpl) RemoveMember(ctx context.Context, projectID, userID uuid.UUID) error {
	query := `DELETE FROM project_members WHERE project_id = $1 AND user_id = $2`

	result, err := database.Conn(ctx, r.db).ExecContext(ctx, query, projectID, userID)
	if err != nil {
		return fmt.Errorf("remove project member: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return entities.ErrNotMember
	}

	return nil
}
