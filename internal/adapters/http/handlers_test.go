package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/taskhub/core/internal/domain/entities"
	"github.com/taskhub/core/internal/infrastructure/logger"
	"github.com/taskhub/core/internal/ports"
)

type testValidator struct{ v *validator.Validate }

func (tv testValidator) Validate(i interface{}) error { return tv.v.Struct(i) }

func newTestEcho() *echo.Echo {
	e := echo.New()
	v := validator.New()
	_ = v.RegisterValidation("hexcolor6", func(fl validator.FieldLevel) bool { return true })
	e.Validator = testValidator{v}
	e.HTTPErrorHandler = ErrorHandler(logger.NewNop())
	return e
}

// serve runs h for one request, optionally as actor.
func serve(t *testing.T, e *echo.Echo, method, target, body string, actor uuid.UUID, h echo.HandlerFunc, params ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if actor != uuid.Nil {
		c.Set(ContextUserKey, actor)
	}
	if len(params) > 0 {
		var names, values []string
		for i := 0; i+1 < len(params); i += 2 {
			names = append(names, params[i])
			values = append(values, params[i+1])
		}
		c.SetParamNames(names...)
		c.SetParamValues(values...)
	}
	if err := h(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestMapError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err     error
		status  int
		message string
		code    string
	}{
		{entities.ErrNotAuthenticated, http.StatusUnauthorized, "unauthorized", "UNAUTHORIZED"},
		{fmt.Errorf("login: %w", entities.ErrInvalidToken), http.StatusUnauthorized, "unauthorized", "UNAUTHORIZED"},
		{entities.ErrNotFound, http.StatusNotFound, "unknownError", "NOT_FOUND"},
		{entities.ErrUserNotFound, http.StatusNotFound, "userNotFound", "NOT_FOUND"},
		{entities.ErrInvalidAssignee, http.StatusBadRequest, "userNotMember", "BAD_REQUEST"},
		{fmt.Errorf("invite: %w", entities.ErrConflict), http.StatusBadRequest, "unknownError", "BAD_REQUEST"},
		{entities.ErrOwnerImmutable, http.StatusBadRequest, "unknownError", "BAD_REQUEST"},
		{entities.ErrNotMember, http.StatusBadRequest, "unknownError", "BAD_REQUEST"},
		{errors.New("pq: connection refused"), http.StatusInternalServerError, "unknownError", "INTERNAL_SERVER_ERROR"},
		{echo.NewHTTPError(http.StatusBadRequest, "Invalid page parameter"), http.StatusBadRequest, "Invalid page parameter", "BAD_REQUEST"},
	}

	for _, tt := range tests {
		status, body := mapError(tt.err)
		if status != tt.status || body.Message != tt.message || body.Code != tt.code {
			t.Errorf("mapError(%v) = %d %+v, want %d %s/%s", tt.err, status, body, tt.status, tt.message, tt.code)
		}
	}
}

type stubUsers struct{ user *entities.User }

func (s stubUsers) GetMe(_ context.Context, actorID uuid.UUID) (*entities.User, error) {
	if actorID == uuid.Nil {
		return nil, entities.ErrNotAuthenticated
	}
	return s.user, nil
}

func TestGetMe(t *testing.T) {
	t.Parallel()
	e := newTestEcho()
	user := &entities.User{ID: uuid.New(), Email: "a@example.com", Username: "alice", PasswordHash: "$2a$10$secret", IsActive: true}
	h := NewUserHandler(stubUsers{user}, logger.NewNop())

	rec := serve(t, e, http.MethodGet, "/api/v1/me", "", uuid.Nil, h.GetMe)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d", rec.Code)
	}
	if body := decodeError(t, rec); body.Code != "UNAUTHORIZED" {
		t.Fatalf("anonymous body = %+v", body)
	}

	rec = serve(t, e, http.MethodGet, "/api/v1/me", "", user.ID, h.GetMe)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "secret") || strings.Contains(strings.ToLower(rec.Body.String()), "password") {
		t.Fatalf("password hash leaked: %s", rec.Body.String())
	}
}

type stubTasks struct {
	TaskService
	filter ports.TaskFilter
	total  int
	err    error
}

func (s *stubTasks) ListTasks(_ context.Context, _ uuid.UUID, filter ports.TaskFilter) ([]*entities.Task, int, error) {
	s.filter = filter
	tasks := make([]*entities.Task, 0, filter.Page.Take())
	for i := 0; i < filter.Page.Take() && filter.Page.Skip()+i < s.total; i++ {
		tasks = append(tasks, &entities.Task{ID: uuid.New(), ProjectID: filter.ProjectID})
	}
	return tasks, s.total, nil
}

func (s *stubTasks) CreateTask(_ context.Context, _ uuid.UUID, _ ports.CreateTaskRequest) (*entities.Task, error) {
	return nil, s.err
}

func TestListTasks_QueryParsing(t *testing.T) {
	t.Parallel()
	e := newTestEcho()
	stub := &stubTasks{total: 25}
	h := NewTaskHandler(stub, logger.NewNop())
	projectID := uuid.New()
	actor := uuid.New()

	rec := serve(t, e, http.MethodGet, "/api/v1/tasks?projectId="+projectID.String()+"&page=2&perPage=10&status=TODO&priority=URGENT", "", actor, h.ListTasks)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body.String())
	}
	if stub.filter.ProjectID != projectID || *stub.filter.Status != entities.TaskStatusTodo || *stub.filter.Priority != entities.PriorityUrgent {
		t.Fatalf("filter = %+v", stub.filter)
	}

	var body ListResponse[TaskResponse]
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Data) != 10 || body.Meta.Total != 25 || body.Meta.Page != 2 || body.Meta.TotalPages != 3 {
		t.Fatalf("meta = %+v, rows = %d", body.Meta, len(body.Data))
	}

	serve(t, e, http.MethodGet, "/api/v1/tasks?projectId="+projectID.String(), "", actor, h.ListTasks)
	if stub.filter.Page.PerPage != ports.DefaultTasksPerPage || stub.filter.Page.Number != 1 {
		t.Fatalf("default page = %+v", stub.filter.Page)
	}

	for _, query := range []string{"projectId=nope", "projectId=" + projectID.String() + "&status=DOING", "projectId=" + projectID.String() + "&page=x"} {
		rec := serve(t, e, http.MethodGet, "/api/v1/tasks?"+query, "", actor, h.ListTasks)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", query, rec.Code)
		}
	}
}

func TestListTasks_PageBounds(t *testing.T) {
	t.Parallel()
	e := newTestEcho()
	projectID := uuid.New()

	for _, paging := range []string{
		"page=0",
		"page=-3",
		"perPage=0",
		"perPage=101",
		"perPage=1000",
		"page=4611686018427387904&perPage=100",
		"page=1000001",
	} {
		stub := &stubTasks{total: 25}
		h := NewTaskHandler(stub, logger.NewNop())
		rec := serve(t, e, http.MethodGet, "/api/v1/tasks?projectId="+projectID.String()+"&"+paging, "", uuid.New(), h.ListTasks)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", paging, rec.Code)
			continue
		}
		if body := decodeError(t, rec); body.Code != "BAD_REQUEST" {
			t.Errorf("%s: body = %+v", paging, body)
		}
		if stub.filter.ProjectID != uuid.Nil {
			t.Errorf("%s: service called with %+v", paging, stub.filter)
		}
	}

	stub := &stubTasks{total: 25}
	h := NewTaskHandler(stub, logger.NewNop())
	rec := serve(t, e, http.MethodGet, "/api/v1/tasks?projectId="+projectID.String()+"&page=1000000&perPage=100", "", uuid.New(), h.ListTasks)
	if rec.Code != http.StatusOK {
		t.Fatalf("largest page: status = %d", rec.Code)
	}
	if stub.filter.Page.Skip() != (ports.MaxPage-1)*ports.MaxPerPage {
		t.Fatalf("skip = %d", stub.filter.Page.Skip())
	}
}

func TestCreateTask_ErrorShapes(t *testing.T) {
	t.Parallel()
	e := newTestEcho()
	stub := &stubTasks{err: entities.ErrInvalidAssignee}
	h := NewTaskHandler(stub, logger.NewNop())
	actor := uuid.New()

	rec := serve(t, e, http.MethodPost, "/api/v1/tasks", `{"projectId":"`+uuid.NewString()+`","title":"x"}`, actor, h.CreateTask)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("short title: status = %d", rec.Code)
	}
	if body := decodeError(t, rec); body.Message != "validation failed" || body.Details == "" {
		t.Fatalf("validation body = %+v", body)
	}

	rec = serve(t, e, http.MethodPost, "/api/v1/tasks", `{"projectId":"`+uuid.NewString()+`","title":"Write docs","assigneeId":"`+uuid.NewString()+`"}`, actor, h.CreateTask)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid assignee: status = %d", rec.Code)
	}
	if body := decodeError(t, rec); body.Message != "userNotMember" {
		t.Fatalf("invalid assignee body = %+v", body)
	}
}

type stubProjects struct {
	ProjectService
	calls int
}

func (s *stubProjects) GetProject(_ context.Context, _, _ uuid.UUID) (*entities.Project, error) {
	s.calls++
	return nil, entities.ErrNotFound
}

func TestGetProject_MalformedIDIsNotFound(t *testing.T) {
	t.Parallel()
	e := newTestEcho()
	stub := &stubProjects{}
	h := NewProjectHandler(stub, logger.NewNop())

	rec := serve(t, e, http.MethodGet, "/api/v1/projects/42", "", uuid.New(), h.GetProject, "id", "42")
	if rec.Code != http.StatusNotFound || stub.calls != 0 {
		t.Fatalf("status = %d, calls = %d", rec.Code, stub.calls)
	}

	rec = serve(t, e, http.MethodGet, "/api/v1/projects/x", "", uuid.New(), h.GetProject, "id", uuid.NewString())
	if rec.Code != http.StatusNotFound || stub.calls != 1 {
		t.Fatalf("status = %d, calls = %d", rec.Code, stub.calls)
	}
	if body := decodeError(t, rec); body.Message != "unknownError" || body.Code != "NOT_FOUND" {
		t.Fatalf("body = %+v", body)
	}
}

type stubComments struct {
	CommentService
}

func (stubComments) CreateComment(_ context.Context, actorID uuid.UUID, req ports.CreateCommentRequest) (*ports.CommentCreateResult, error) {
	return &ports.CommentCreateResult{
		Comment:           &entities.Comment{ID: uuid.New(), TaskID: req.TaskID, AuthorID: actorID, Content: req.Content},
		NotificationsSent: 2,
	}, nil
}

func TestCreateComment_ReportsNotificationsSent(t *testing.T) {
	t.Parallel()
	e := newTestEcho()
	h := NewCommentHandler(stubComments{}, logger.NewNop())

	rec := serve(t, e, http.MethodPost, "/api/v1/comments", `{"taskId":"`+uuid.NewString()+`","content":"looks good"}`, uuid.New(), h.CreateComment)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body.String())
	}

	var body CommentCreateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.NotificationsSent != 2 || body.Content != "looks good" {
		t.Fatalf("body = %+v", body)
	}
}
