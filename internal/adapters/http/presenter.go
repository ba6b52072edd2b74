package http

import (
	"time"

	"github.com/google/uuid"

	"github.com/taskhub/core/internal/domain/entities"
	"github.com/taskhub/core/internal/ports"
)

// Response DTOs. Only the fields listed here ever leave the server.

type UserResponse struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	Username string    `json:"username"`
	Name     *string   `json:"name"`
}

// MeResponse adds account metadata visible to the user themselves.
type MeResponse struct {
	UserResponse
	IsActive    bool       `json:"isActive"`
	LastLoginAt *time.Time `json:"lastLoginAt"`
	CreatedAt   time.Time  `json:"createdAt"`
}

type AuthResponse struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	ExpiresIn    int64        `json:"expiresIn"`
	User         UserResponse `json:"user"`
}

type MemberResponse struct {
	ID        uuid.UUID           `json:"id"`
	UserID    uuid.UUID           `json:"userId"`
	Role      entities.MemberRole `json:"role"`
	CreatedAt time.Time           `json:"createdAt"`
	User      *UserResponse       `json:"user,omitempty"`
}

type ProjectCount struct {
	Tasks   int `json:"tasks"`
	Members int `json:"members"`
}

type ProjectResponse struct {
	ID          uuid.UUID        `json:"id"`
	Name        string           `json:"name"`
	Description *string          `json:"description"`
	Color       string           `json:"color"`
	IsPublic    bool             `json:"isPublic"`
	OwnerID     uuid.UUID        `json:"ownerId"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
	Owner       *UserResponse    `json:"owner,omitempty"`
	Members     []MemberResponse `json:"members,omitempty"`
	Tasks       []TaskResponse   `json:"tasks,omitempty"`
	Count       ProjectCount     `json:"_count"`
}

type TaskCount struct {
	Comments int `json:"comments"`
}

type TaskResponse struct {
	ID          uuid.UUID           `json:"id"`
	ProjectID   uuid.UUID           `json:"projectId"`
	Title       string              `json:"title"`
	Description *string             `json:"description"`
	Status      entities.TaskStatus `json:"status"`
	Priority    entities.Priority   `json:"priority"`
	DueDate     *time.Time          `json:"dueDate"`
	CreatorID   uuid.UUID           `json:"creatorId"`
	AssigneeID  *uuid.UUID          `json:"assigneeId"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
	Creator     *UserResponse       `json:"creator,omitempty"`
	Assignee    *UserResponse       `json:"assignee,omitempty"`
	Comments    []CommentResponse   `json:"comments,omitempty"`
	Count       TaskCount           `json:"_count"`
}

type CommentResponse struct {
	ID        uuid.UUID     `json:"id"`
	TaskID    uuid.UUID     `json:"taskId"`
	AuthorID  uuid.UUID     `json:"authorId"`
	Content   string        `json:"content"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
	Author    *UserResponse `json:"author,omitempty"`
}

type NotificationResponse struct {
	ID        uuid.UUID                    `json:"id"`
	Type      entities.NotificationType    `json:"type"`
	Title     string                       `json:"title"`
	Message   string                       `json:"message"`
	IsRead    bool                         `json:"isRead"`
	ProjectID *uuid.UUID                   `json:"projectId"`
	TaskID    *uuid.UUID                   `json:"taskId"`
	CreatedAt time.Time                    `json:"createdAt"`
	Project   *NotificationProjectResponse `json:"project,omitempty"`
	Task      *NotificationTaskResponse    `json:"task,omitempty"`
}

type NotificationProjectResponse struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Color string    `json:"color"`
}

type NotificationTaskResponse struct {
	ID     uuid.UUID           `json:"id"`
	Title  string              `json:"title"`
	Status entities.TaskStatus `json:"status"`
}

// ListResponse is the envelope of every paginated endpoint.
type ListResponse[T any] struct {
	Data []T            `json:"data"`
	Meta ports.PageMeta `json:"meta"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

func presentUser(u *entities.User) *UserResponse {
	if u == nil {
		return nil
	}
	return &UserResponse{ID: u.ID, Email: u.Email, Username: u.Username, Name: u.Name}
}

func presentMe(u *entities.User) MeResponse {
	return MeResponse{
		UserResponse: *presentUser(u),
		IsActive:     u.IsActive,
		LastLoginAt:  u.LastLoginAt,
		CreatedAt:    u.CreatedAt,
	}
}

func presentAuth(r *ports.AuthResult) AuthResponse {
	return AuthResponse{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		ExpiresIn:    int64(r.ExpiresIn.Seconds()),
		User:         *presentUser(r.User),
	}
}

func presentMember(m *entities.ProjectMember) MemberResponse {
	return MemberResponse{
		ID:        m.ID,
		UserID:    m.UserID,
		Role:      m.Role,
		CreatedAt: m.CreatedAt,
		User:      presentUser(m.User),
	}
}

func presentProject(p *entities.Project) ProjectResponse {
	resp := ProjectResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Color:       p.Color,
		IsPublic:    p.IsPublic,
		OwnerID:     p.OwnerID,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		Owner:       presentUser(p.Owner),
		Count:       ProjectCount{Tasks: p.TaskCount, Members: p.MemberCount},
	}
	for i := range p.Members {
		resp.Members = append(resp.Members, presentMember(&p.Members[i]))
	}
	for _, t := range p.Tasks {
		resp.Tasks = append(resp.Tasks, presentTask(t))
	}
	return resp
}

func presentTask(t *entities.Task) TaskResponse {
	resp := TaskResponse{
		ID:          t.ID,
		ProjectID:   t.ProjectID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		DueDate:     t.DueDate,
		CreatorID:   t.CreatorID,
		AssigneeID:  t.AssigneeID,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		Creator:     presentUser(t.Creator),
		Assignee:    presentUser(t.Assignee),
		Count:       TaskCount{Comments: t.CommentCount},
	}
	for _, c := range t.Comments {
		resp.Comments = append(resp.Comments, presentComment(c))
	}
	return resp
}

func presentComment(c *entities.Comment) CommentResponse {
	return CommentResponse{
		ID:        c.ID,
		TaskID:    c.TaskID,
		AuthorID:  c.AuthorID,
		Content:   c.Content,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
		Author:    presentUser(c.Author),
	}
}

func presentNotification(n *entities.Notification) NotificationResponse {
	resp := NotificationResponse{
		ID:        n.ID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		IsRead:    n.IsRead,
		ProjectID: n.ProjectID,
		TaskID:    n.TaskID,
		CreatedAt: n.CreatedAt,
	}
	if n.Project != nil {
		resp.Project = &NotificationProjectResponse{ID: n.Project.ID, Name: n.Project.Name, Color: n.Project.Color}
	}
	if n.Task != nil {
		resp.Task = &NotificationTaskResponse{ID: n.Task.ID, Title: n.Task.Title, Status: n.Task.Status}
	}
	return resp
}

// presentList maps a page of entities into the list envelope.
func presentList[E any, T any](items []E, page ports.Page, total int, present func(E) T) ListResponse[T] {
	data := make([]T, 0, len(items))
	for _, item := range items {
		data = append(data, present(item))
	}
	return ListResponse[T]{Data: data, Meta: ports.NewPageMeta(page, total)}
}
