package entities

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrNotFound         = errors.New("not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrInvalidAssignee  = errors.New("assignee is not a project member")
	ErrConflict         = errors.New("conflict")
	ErrOwnerImmutable   = errors.New("project owner cannot be changed through membership")
	ErrNotMember        = errors.New("user is not a project member")
	ErrInvalidRole      = errors.New("invalid member role")
	ErrInvalidToken     = errors.New("invalid token")
	ErrInactiveAccount  = errors.New("account is inactive")
)

// Enums and types
type MemberRole string

const (
	MemberRoleOwner  MemberRole = "OWNER"
	MemberRoleAdmin  MemberRole = "ADMIN"
	MemberRoleMember MemberRole = "MEMBER"
)

type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "TODO"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusReview     TaskStatus = "REVIEW"
	TaskStatusDone       TaskStatus = "DONE"
)

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

type NotificationType string

const (
	NotificationTaskAssigned   NotificationType = "TASK_ASSIGNED"
	NotificationTaskUpdated    NotificationType = "TASK_UPDATED"
	NotificationTaskCommented  NotificationType = "TASK_COMMENTED"
	NotificationProjectInvited NotificationType = "PROJECT_INVITED"
	NotificationProjectUpdated NotificationType = "PROJECT_UPDATED"
	NotificationTaskDueSoon    NotificationType = "TASK_DUE_SOON"
	NotificationTaskOverdue    NotificationType = "TASK_OVERDUE"
)

// DefaultProjectColor is applied when a project is created without a color.
const DefaultProjectColor = "#3B82F6"

// User represents a user in the system
type User struct {
	ID           uuid.UUID  `db:"id"`
	Email        string     `db:"email"`
	Username     string     `db:"username"`
	Name         *string    `db:"name"`
	PasswordHash string     `db:"password_hash"`
	IsActive     bool       `db:"is_active"`
	LastLoginAt  *time.Time `db:"last_login_at"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}

// Project represents a project in the system
type Project struct {
	ID          uuid.UUID `db:"id"`
	Name        string    `db:"name"`
	Description *string   `db:"description"`
	Color       string    `db:"color"`
	IsPublic    bool      `db:"is_public"`
	OwnerID     uuid.UUID `db:"owner_id"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`

	// Loaded on demand by the repositories.
	Owner       *User           `db:"-"`
	Members     []ProjectMember `db:"-"`
	Tasks       []*Task         `db:"-"`
	TaskCount   int             `db:"task_count"`
	MemberCount int             `db:"member_count"`
}

// ProjectMember grants a user a role inside a project. The owner never has a row.
type ProjectMember struct {
	ID        uuid.UUID  `db:"id"`
	ProjectID uuid.UUID  `db:"project_id"`
	UserID    uuid.UUID  `db:"user_id"`
	Role      MemberRole `db:"role"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`

	User *User `db:"-"`
}

// Task represents a task in the system
type Task struct {
	ID          uuid.UUID  `db:"id"`
	ProjectID   uuid.UUID  `db:"project_id"`
	CreatorID   uuid.UUID  `db:"creator_id"`
	AssigneeID  *uuid.UUID `db:"assignee_id"`
	Title       string     `db:"title"`
	Description *string    `db:"description"`
	Status      TaskStatus `db:"status"`
	Priority    Priority   `db:"priority"`
	DueDate     *time.Time `db:"due_date"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`

	Assignee     *User      `db:"-"`
	Creator      *User      `db:"-"`
	Comments     []*Comment `db:"-"`
	CommentCount int        `db:"comment_count"`
}

// Comment represents a comment left on a task
type Comment struct {
	ID        uuid.UUID `db:"id"`
	TaskID    uuid.UUID `db:"task_id"`
	AuthorID  uuid.UUID `db:"author_id"`
	Content   string    `db:"content"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	Author *User `db:"-"`
}

// Notification is immutable once created, except for IsRead.
type Notification struct {
	ID        uuid.UUID        `db:"id"`
	Type      NotificationType `db:"type"`
	Title     string           `db:"title"`
	Message   string           `db:"message"`
	UserID    uuid.UUID        `db:"user_id"`
	ProjectID *uuid.UUID       `db:"project_id"`
	TaskID    *uuid.UUID       `db:"task_id"`
	IsRead    bool             `db:"is_read"`
	CreatedAt time.Time        `db:"created_at"`

	Project *NotificationProject `db:"-"`
	Task    *NotificationTask    `db:"-"`
}

// NotificationProject is the slice of a project shown next to a notification.
type NotificationProject struct {
	ID    uuid.UUID `db:"id"`
	Name  string    `db:"name"`
	Color string    `db:"color"`
}

// NotificationTask is the slice of a task shown next to a notification.
type NotificationTask struct {
	ID     uuid.UUID  `db:"id"`
	Title  string     `db:"title"`
	Status TaskStatus `db:"status"`
}

// Business logic methods for Task
func (t *Task) IsAssigned() bool {
	return t.AssigneeID != nil && *t.AssigneeID != uuid.Nil
}

func (t *Task) IsOverdue(now time.Time) bool {
	if t.DueDate == nil {
		return false
	}
	return now.After(*t.DueDate) && t.Status != TaskStatusDone
}

func (t *Task) IsDueWithin(now time.Time, window time.Duration) bool {
	if t.DueDate == nil || t.Status == TaskStatusDone {
		return false
	}
	return !now.After(*t.DueDate) && t.DueDate.Sub(now) <= window
}

// Utility methods
func (r MemberRole) IsValid() bool {
	switch r {
	case MemberRoleOwner, MemberRoleAdmin, MemberRoleMember:
		return true
	default:
		return false
	}
}

// IsAssignable reports whether the role can be granted through invitations or role updates.
func (r MemberRole) IsAssignable() bool {
	return r == MemberRoleAdmin || r == MemberRoleMember
}

func (ts TaskStatus) IsValid() bool {
	switch ts {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusReview, TaskStatusDone:
		return true
	default:
		return false
	}
}

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	default:
		return false
	}
}

// Rank orders priorities from LOW (1) to URGENT (4).
func (p Priority) Rank() int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityMedium:
		return 2
	case PriorityHigh:
		return 3
	case PriorityUrgent:
		return 4
	default:
		return 0
	}
}

func (nt NotificationType) IsValid() bool {
	switch nt {
	case NotificationTaskAssigned, NotificationTaskUpdated, NotificationTaskCommented,
		NotificationProjectInvited, NotificationProjectUpdated,
		NotificationTaskDueSoon, NotificationTaskOverdue:
		return true
	default:
		return false
	}
}
