package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/taskhub/core/internal/domain/entities"
)

const uniqueViolation = "23505"

// isUniqueViolation reports whether err is a PostgreSQL unique constraint violation.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// wrapWrite maps driver errors from INSERT/UPDATE statements to domain errors.
func wrapWrite(op string, err error) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("%s: %w", op, entities.ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern turns user input into an ILIKE pattern matching it as a
// literal substring. Use with ESCAPE '\'.
func containsPattern(search string) string {
	return "%" + likeEscaper.Replace(search) + "%"
}

// accessClause returns the WHERE fragment granting actor (bound at $arg) the given
// level on the project aliased p.
func accessClause(level entities.AccessLevel, arg int) string {
	isMember := fmt.Sprintf(
		"EXISTS (SELECT 1 FROM project_members pm WHERE pm.project_id = p.id AND pm.user_id = $%d)", arg)

	switch level {
	case entities.AccessRead:
		return fmt.Sprintf("(p.owner_id = $%d OR p.is_public OR %s)", arg, isMember)
	case entities.AccessContribute:
		return fmt.Sprintf("(p.owner_id = $%d OR %s)", arg, isMember)
	case entities.AccessManage:
		return fmt.Sprintf(
			"(p.owner_id = $%d OR EXISTS (SELECT 1 FROM project_members pm WHERE pm.project_id = p.id AND pm.user_id = $%d AND pm.role IN ('OWNER', 'ADMIN')))",
			arg, arg)
	default:
		return fmt.Sprintf("p.owner_id = $%d", arg)
	}
}

const userColumns = `id, email, username, name, password_hash, is_active, last_login_at, created_at, updated_at`

// loadUsers fetches the given users keyed by id. Unknown ids are skipped.
func loadUsers(ctx context.Context, q sqlx.QueryerContext, ids []uuid.UUID) (map[uuid.UUID]*entities.User, error) {
	users := make(map[uuid.UUID]*entities.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	seen := make(map[uuid.UUID]struct{}, len(ids))
	keys := make(pq.StringArray, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == uuid.Nil {
			continue
		}
		seen[id] = struct{}{}
		keys = append(keys, id.String())
	}

	var rows []*entities.User
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ANY($1::uuid[])`
	if err := sqlx.SelectContext(ctx, q, &rows, query, keys); err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}

	for _, u := range rows {
		users[u.ID] = u
	}
	return users, nil
}

// notFound converts sql.ErrNoRows into target and wraps anything else with op.
func notFound(op string, err error, target error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return target
	}
	return fmt.Errorf("%s: %w", op, err)
}
