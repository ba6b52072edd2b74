package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/taskhub/core/internal/domain/entities"
)

// TxManager runs fn inside a database transaction. Repositories called with the
// ctx handed to fn join that transaction.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *entities.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error)
	GetByEmail(ctx context.Context, email string) (*entities.User, error)
	GetByUsername(ctx context.Context, username string) (*entities.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

// ProjectRepository defines the interface for project data operations.
// GetScoped returns entities.ErrNotFound both for a missing project and for one
// the actor does not reach at the requested level.
type ProjectRepository interface {
	Create(ctx context.Context, project *entities.Project) error
	GetScoped(ctx context.Context, id, actorID uuid.UUID, level entities.AccessLevel) (*entities.Project, error)
	GetDetail(ctx context.Context, id uuid.UUID) (*entities.Project, error)
	Update(ctx context.Context, project *entities.Project) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, actorID uuid.UUID, filter ProjectFilter) ([]*entities.Project, int, error)

	GetMembers(ctx context.Context, projectID uuid.UUID) ([]entities.ProjectMember, error)
	// GetMember locks the row against concurrent removal when ctx carries a transaction.
	GetMember(ctx context.Context, projectID, userID uuid.UUID) (*entities.ProjectMember, error)
	AddMember(ctx context.Context, member *entities.ProjectMember) error
	UpdateMemberRole(ctx context.Context, member *entities.ProjectMember) error
	RemoveMember(ctx context.Context, projectID, userID uuid.UUID) error
}

// TaskRepository defines the interface for task data operations
type TaskRepository interface {
	Create(ctx context.Context, task *entities.Task) error
	// GetScoped resolves the task through its project's guard at the given level.
	GetScoped(ctx context.Context, id, actorID uuid.UUID, level entities.AccessLevel) (*entities.Task, error)
	GetDetail(ctx context.Context, id uuid.UUID) (*entities.Task, error)
	Update(ctx context.Context, task *entities.Task) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter TaskFilter) ([]*entities.Task, int, error)
	GetTasksDueBetween(ctx context.Context, from, to time.Time) ([]*entities.Task, error)
	GetOverdueTasks(ctx context.Context, now time.Time) ([]*entities.Task, error)
	// UnassignUser clears the assignee on every task of the project assigned to userID.
	UnassignUser(ctx context.Context, projectID, userID uuid.UUID) (int64, error)
}

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	Create(ctx context.Context, comment *entities.Comment) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Comment, error)
	Update(ctx context.Context, comment *entities.Comment) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByTask(ctx context.Context, taskID uuid.UUID, page Page) ([]*entities.Comment, int, error)
}

// NotificationRepository defines the interface for notification data operations.
// Every read and write except Create is scoped to the recipient.
type NotificationRepository interface {
	Create(ctx context.Context, notification *entities.Notification) error
	GetForUser(ctx context.Context, id, userID uuid.UUID) (*entities.Notification, error)
	ListForUser(ctx context.Context, userID uuid.UUID, filter NotificationFilter) ([]*entities.Notification, int, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	Delete(ctx context.Context, id, userID uuid.UUID) error
	Exists(ctx context.Context, userID, taskID uuid.UUID, notificationType entities.NotificationType) (bool, error)
}

// AuthRepository defines the interface for authentication operations
type AuthRepository interface {
	CreateRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	GetRefreshToken(ctx context.Context, tokenHash string) (*RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
	RevokeAllUserTokens(ctx context.Context, userID uuid.UUID) error
}

// Filter types for repository queries
type ProjectFilter struct {
	Search   *string
	IsPublic *bool
	Page     Page
}

type TaskFilter struct {
	ProjectID  uuid.UUID
	Status     *entities.TaskStatus
	Priority   *entities.Priority
	AssigneeID *uuid.UUID
	Search     *string
	Page       Page
}

type NotificationFilter struct {
	UnreadOnly bool
	Page       Page
}

// RefreshToken represents a refresh token record
type RefreshToken struct {
	ID        uuid.UUID  `db:"id"`
	UserID    uuid.UUID  `db:"user_id"`
	TokenHash string     `db:"token_hash"`
	ExpiresAt time.Time  `db:"expires_at"`
	CreatedAt time.Time  `db:"created_at"`
	RevokedAt *time.Time `db:"revoked_at"`
}

// IsExpired checks if the refresh token is expired
func (rt *RefreshToken) IsExpired() bool {
	return time.Now().After(rt.ExpiresAt)
}

// IsRevoked checks if the refresh token is revoked
func (rt *RefreshToken) IsRevoked() bool {
	return rt.RevokedAt != nil
}

// IsValid checks if the refresh token is valid
func (rt *RefreshToken) IsValid() bool {
	return !rt.IsExpired() && !rt.IsRevoked()
}
