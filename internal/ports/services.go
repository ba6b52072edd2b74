package ports

import (
	"time"

	"github.com/google/uuid"
	"github.com/taskhub/core/internal/domain/entities"
)

// Request/Response Types

// Auth related types
type RegisterRequest struct {
	Email    string  `json:"email" validate:"required,email"`
	Username string  `json:"username" validate:"required,min=3,max=50,alphanum"`
	Password string  `json:"password" validate:"required,min=8,max=72"`
	Name     *string `json:"name" validate:"omitempty,max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type AuthResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
	User         *entities.User
}

type Claims struct {
	UserID uuid.UUID
	Email  string
}

// Project related types
type CreateProjectRequest struct {
	Name        string  `json:"name" validate:"required,min=3,max=50"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	Color       string  `json:"color" validate:"omitempty,hexcolor6"`
	IsPublic    bool    `json:"isPublic"`
}

type UpdateProjectRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=3,max=50"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	Color       *string `json:"color" validate:"omitempty,hexcolor6"`
	IsPublic    *bool   `json:"isPublic"`
}

type ProjectUpdateResult struct {
	Project           *entities.Project
	NotificationsSent int
}

type InviteUserRequest struct {
	Email string              `json:"email" validate:"required,email"`
	Role  entities.MemberRole `json:"role" validate:"omitempty,oneof=ADMIN MEMBER"`
}

type InviteResult struct {
	Member           *entities.ProjectMember
	NotificationSent bool
}

type UpdateMemberRoleRequest struct {
	Role entities.MemberRole `json:"role" validate:"required,oneof=ADMIN MEMBER"`
}

// Task related types
type CreateTaskRequest struct {
	ProjectID   uuid.UUID           `json:"projectId" validate:"required"`
	Title       string              `json:"title" validate:"required,min=3,max=100"`
	Description *string             `json:"description" validate:"omitempty,max=1000"`
	Status      entities.TaskStatus `json:"status" validate:"omitempty,oneof=TODO IN_PROGRESS REVIEW DONE"`
	Priority    entities.Priority   `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	DueDate     *time.Time          `json:"dueDate"`
	AssigneeID  *uuid.UUID          `json:"assigneeId"`
}

type UpdateTaskRequest struct {
	Title       *string              `json:"title" validate:"omitempty,min=3,max=100"`
	Description *string              `json:"description" validate:"omitempty,max=1000"`
	Status      *entities.TaskStatus `json:"status" validate:"omitempty,oneof=TODO IN_PROGRESS REVIEW DONE"`
	Priority    *entities.Priority   `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	DueDate     *time.Time           `json:"dueDate"`
	AssigneeID  *uuid.UUID           `json:"assigneeId"`
}

// AssignTaskRequest assigns the task, or clears the assignee when AssigneeID is nil.
type AssignTaskRequest struct {
	AssigneeID *uuid.UUID `json:"assigneeId"`
}

type TaskMutationResult struct {
	Task             *entities.Task
	NotificationSent bool
}

// Comment related types
type CreateCommentRequest struct {
	TaskID  uuid.UUID `json:"taskId" validate:"required"`
	Content string    `json:"content" validate:"required,min=1,max=2000"`
}

type UpdateCommentRequest struct {
	Content string `json:"content" validate:"required,min=1,max=2000"`
}

type CommentCreateResult struct {
	Comment           *entities.Comment
	NotificationsSent int
}

// DeadlineScanResult summarizes one run of the deadline notifier.
type DeadlineScanResult struct {
	DueSoon int
	Overdue int
	Skipped int
}
