package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taskhub/core/internal/domain/entities"
	"github.com/taskhub/core/internal/infrastructure/logger"
	"github.com/taskhub/core/internal/ports"
)

// fakeDB is an in-memory stand-in for PostgreSQL shared by all fake repositories.
type fakeDB struct {
	mu sync.RWMutex

	users         map[uuid.UUID]*entities.User
	projects      map[uuid.UUID]*entities.Project
	members       map[uuid.UUID][]entities.ProjectMember
	tasks         map[uuid.UUID]*entities.Task
	comments      map[uuid.UUID]*entities.Comment
	notifications []*entities.Notification
	tokens        map[string]*ports.RefreshToken

	// notification inserts for these users fail
	failNotify map[uuid.UUID]bool

	clock     time.Time
	taskWrite int
	txCalls   int
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		users:      make(map[uuid.UUID]*entities.User),
		projects:   make(map[uuid.UUID]*entities.Project),
		members:    make(map[uuid.UUID][]entities.ProjectMember),
		tasks:      make(map[uuid.UUID]*entities.Task),
		comments:   make(map[uuid.UUID]*entities.Comment),
		tokens:     make(map[string]*ports.RefreshToken),
		failNotify: make(map[uuid.UUID]bool),
		clock:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// tick returns a strictly increasing timestamp. Callers hold mu.
func (db *fakeDB) tick() time.Time {
	db.clock = db.clock.Add(time.Second)
	return db.clock
}

func (db *fakeDB) projectWithMembers(id uuid.UUID) (*entities.Project, bool) {
	p, ok := db.projects[id]
	if !ok {
		return nil, false
	}
	cp := *p
	cp.Members = append([]entities.ProjectMember(nil), db.members[id]...)
	cp.MemberCount = len(cp.Members)
	for _, t := range db.tasks {
		if t.ProjectID == id {
			cp.TaskCount++
		}
	}
	return &cp, true
}

func (db *fakeDB) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	db.mu.Lock()
	db.txCalls++
	db.mu.Unlock()
	return fn(ctx)
}

type fakeUserRepo struct{ db *fakeDB }

func (r fakeUserRepo) Create(_ context.Context, user *entities.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, u := range r.db.users {
		if u.Email == user.Email || u.Username == user.Username {
			return entities.ErrConflict
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = r.db.tick()
	user.UpdatedAt = user.CreatedAt
	cp := *user
	r.db.users[user.ID] = &cp
	return nil
}

func (r fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*entities.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	u, ok := r.db.users[id]
	if !ok {
		return nil, entities.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r fakeUserRepo) find(match func(*entities.User) bool) (*entities.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	for _, u := range r.db.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, entities.ErrUserNotFound
}

func (r fakeUserRepo) GetByEmail(_ context.Context, email string) (*entities.User, error) {
	return r.find(func(u *entities.User) bool { return u.Email == strings.ToLower(email) })
}

func (r fakeUserRepo) GetByUsername(_ context.Context, username string) (*entities.User, error) {
	return r.find(func(u *entities.User) bool { return u.Username == username })
}

func (r fakeUserRepo) UpdateLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return entities.ErrUserNotFound
	}
	u.LastLoginAt = &at
	return nil
}

type fakeProjectRepo struct{ db *fakeDB }

func (r fakeProjectRepo) Create(_ context.Context, project *entities.Project) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if project.ID == uuid.Nil {
		project.ID = uuid.New()
	}
	project.CreatedAt = r.db.tick()
	project.UpdatedAt = project.CreatedAt
	cp := *project
	r.db.projects[project.ID] = &cp
	return nil
}

func (r fakeProjectRepo) GetScoped(_ context.Context, id, actorID uuid.UUID, level entities.AccessLevel) (*entities.Project, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	p, ok := r.db.projectWithMembers(id)
	if !ok || !p.Allows(actorID, level) {
		return nil, entities.ErrNotFound
	}
	return p, nil
}

func (r fakeProjectRepo) GetDetail(_ context.Context, id uuid.UUID) (*entities.Project, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	p, ok := r.db.projectWithMembers(id)
	if !ok {
		return nil, entities.ErrNotFound
	}
	if owner, ok := r.db.users[p.OwnerID]; ok {
		cp := *owner
		p.Owner = &cp
	}
	for _, t := range r.db.tasks {
		if t.ProjectID == id {
			cp := *t
			p.Tasks = append(p.Tasks, &cp)
		}
	}
	sort.Slice(p.Tasks, func(i, j int) bool { return p.Tasks[i].CreatedAt.After(p.Tasks[j].CreatedAt) })
	return p, nil
}

func (r fakeProjectRepo) Update(_ context.Context, project *entities.Project) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.projects[project.ID]; !ok {
		return entities.ErrNotFound
	}
	project.UpdatedAt = r.db.tick()
	cp := *project
	cp.Members = nil
	r.db.projects[project.ID] = &cp
	return nil
}

func (r fakeProjectRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.projects[id]; !ok {
		return entities.ErrNotFound
	}
	delete(r.db.projects, id)
	delete(r.db.members, id)
	for tid, t := range r.db.tasks {
		if t.ProjectID == id {
			delete(r.db.tasks, tid)
		}
	}
	return nil
}

func (r fakeProjectRepo) List(_ context.Context, actorID uuid.UUID, filter ports.ProjectFilter) ([]*entities.Project, int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var out []*entities.Project
	for id := range r.db.projects {
		p, _ := r.db.projectWithMembers(id)
		if !p.Allows(actorID, entities.AccessRead) {
			continue
		}
		if filter.IsPublic != nil && p.IsPublic != *filter.IsPublic {
			continue
		}
		if filter.Search != nil && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(*filter.Search)) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return ports.Paginate(out, filter.Page), len(out), nil
}

func (r fakeProjectRepo) GetMembers(_ context.Context, projectID uuid.UUID) ([]entities.ProjectMember, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return append([]entities.ProjectMember(nil), r.db.members[projectID]...), nil
}

func (r fakeProjectRepo) GetMember(_ context.Context, projectID, userID uuid.UUID) (*entities.ProjectMember, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	for _, m := range r.db.members[projectID] {
		if m.UserID == userID {
			cp := m
			return &cp, nil
		}
	}
	return nil, entities.ErrNotMember
}

func (r fakeProjectRepo) AddMember(_ context.Context, member *entities.ProjectMember) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, m := range r.db.members[member.ProjectID] {
		if m.UserID == member.UserID {
			return entities.ErrConflict
		}
	}
	if member.ID == uuid.Nil {
		member.ID = uuid.New()
	}
	member.CreatedAt = r.db.tick()
	member.UpdatedAt = member.CreatedAt
	r.db.members[member.ProjectID] = append(r.db.members[member.ProjectID], *member)
	return nil
}

func (r fakeProjectRepo) UpdateMemberRole(_ context.Context, member *entities.ProjectMember) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	members := r.db.members[member.ProjectID]
	for i := range members {
		if members[i].UserID == member.UserID {
			members[i].Role = member.Role
			members[i].UpdatedAt = r.db.tick()
			member.ID = members[i].ID
			return nil
		}
	}
	return entities.ErrNotMember
}

func (r fakeProjectRepo) RemoveMember(_ context.Context, projectID, userID uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	members := r.db.members[projectID]
	for i := range members {
		if members[i].UserID == userID {
			r.db.members[projectID] = append(members[:i], members[i+1:]...)
			return nil
		}
	}
	return entities.ErrNotMember
}

type fakeTaskRepo struct{ db *fakeDB }

func (r fakeTaskRepo) Create(_ context.Context, task *entities.Task) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	task.CreatedAt = r.db.tick()
	task.UpdatedAt = task.CreatedAt
	cp := *task
	r.db.tasks[task.ID] = &cp
	r.db.taskWrite++
	return nil
}

func (r fakeTaskRepo) GetScoped(_ context.Context, id, actorID uuid.UUID, level entities.AccessLevel) (*entities.Task, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	t, ok := r.db.tasks[id]
	if !ok {
		return nil, entities.ErrNotFound
	}
	p, ok := r.db.projectWithMembers(t.ProjectID)
	if !ok || !p.Allows(actorID, level) {
		return nil, entities.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r fakeTaskRepo) GetDetail(_ context.Context, id uuid.UUID) (*entities.Task, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	t, ok := r.db.tasks[id]
	if !ok {
		return nil, entities.ErrNotFound
	}
	cp := *t
	for _, c := range r.db.comments {
		if c.TaskID == id {
			cc := *c
			cp.Comments = append(cp.Comments, &cc)
		}
	}
	sort.Slice(cp.Comments, func(i, j int) bool { return cp.Comments[i].CreatedAt.Before(cp.Comments[j].CreatedAt) })
	cp.CommentCount = len(cp.Comments)
	return &cp, nil
}

func (r fakeTaskRepo) Update(_ context.Context, task *entities.Task) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.tasks[task.ID]; !ok {
		return entities.ErrNotFound
	}
	task.UpdatedAt = r.db.tick()
	cp := *task
	r.db.tasks[task.ID] = &cp
	r.db.taskWrite++
	return nil
}

func (r fakeTaskRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.tasks[id]; !ok {
		return entities.ErrNotFound
	}
	delete(r.db.tasks, id)
	return nil
}

func (r fakeTaskRepo) List(_ context.Context, filter ports.TaskFilter) ([]*entities.Task, int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var out []*entities.Task
	for _, t := range r.db.tasks {
		if t.ProjectID != filter.ProjectID {
			continue
		}
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		if filter.Priority != nil && t.Priority != *filter.Priority {
			continue
		}
		if filter.AssigneeID != nil && (t.AssigneeID == nil || *t.AssigneeID != *filter.AssigneeID) {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority.Rank() != out[j].Priority.Rank() {
			return out[i].Priority.Rank() > out[j].Priority.Rank()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return ports.Paginate(out, filter.Page), len(out), nil
}

func (r fakeTaskRepo) open(match func(*entities.Task) bool) []*entities.Task {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var out []*entities.Task
	for _, t := range r.db.tasks {
		if t.Status == entities.TaskStatusDone || !t.IsAssigned() || t.DueDate == nil {
			continue
		}
		if match(t) {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out
}

func (r fakeTaskRepo) GetTasksDueBetween(_ context.Context, from, to time.Time) ([]*entities.Task, error) {
	return r.open(func(t *entities.Task) bool { return !t.DueDate.Before(from) && !t.DueDate.After(to) }), nil
}

func (r fakeTaskRepo) GetOverdueTasks(_ context.Context, now time.Time) ([]*entities.Task, error) {
	return r.open(func(t *entities.Task) bool { return t.DueDate.Before(now) }), nil
}

func (r fakeTaskRepo) UnassignUser(_ context.Context, projectID, userID uuid.UUID) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for _, t := range r.db.tasks {
		if t.ProjectID == projectID && t.AssigneeID != nil && *t.AssigneeID == userID {
			t.AssigneeID = nil
			t.UpdatedAt = r.db.tick()
			n++
		}
	}
	return n, nil
}

type fakeCommentRepo struct{ db *fakeDB }

func (r fakeCommentRepo) Create(_ context.Context, comment *entities.Comment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if comment.ID == uuid.Nil {
		comment.ID = uuid.New()
	}
	comment.CreatedAt = r.db.tick()
	comment.UpdatedAt = comment.CreatedAt
	cp := *comment
	r.db.comments[comment.ID] = &cp
	return nil
}

func (r fakeCommentRepo) GetByID(_ context.Context, id uuid.UUID) (*entities.Comment, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	c, ok := r.db.comments[id]
	if !ok {
		return nil, entities.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r fakeCommentRepo) Update(_ context.Context, comment *entities.Comment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.comments[comment.ID]
	if !ok {
		return entities.ErrNotFound
	}
	c.Content = comment.Content
	c.UpdatedAt = r.db.tick()
	comment.UpdatedAt = c.UpdatedAt
	return nil
}

func (r fakeCommentRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.comments[id]; !ok {
		return entities.ErrNotFound
	}
	delete(r.db.comments, id)
	return nil
}

func (r fakeCommentRepo) ListByTask(_ context.Context, taskID uuid.UUID, page ports.Page) ([]*entities.Comment, int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var out []*entities.Comment
	for _, c := range r.db.comments {
		if c.TaskID == taskID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return ports.Paginate(out, page), len(out), nil
}

type fakeNotificationRepo struct{ db *fakeDB }

var errNotifyDown = errors.New("notifications table unavailable")

func (r fakeNotificationRepo) Create(_ context.Context, n *entities.Notification) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.failNotify[n.UserID] {
		return errNotifyDown
	}
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	n.CreatedAt = r.db.tick()
	cp := *n
	r.db.notifications = append(r.db.notifications, &cp)
	return nil
}

func (r fakeNotificationRepo) GetForUser(_ context.Context, id, userID uuid.UUID) (*entities.Notification, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	for _, n := range r.db.notifications {
		if n.ID == id && n.UserID == userID {
			cp := *n
			return &cp, nil
		}
	}
	return nil, entities.ErrNotFound
}

func (r fakeNotificationRepo) ListForUser(_ context.Context, userID uuid.UUID, filter ports.NotificationFilter) ([]*entities.Notification, int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var out []*entities.Notification
	for _, n := range r.db.notifications {
		if n.UserID != userID || (filter.UnreadOnly && n.IsRead) {
			continue
		}
		cp := *n
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return ports.Paginate(out, filter.Page), len(out), nil
}

func (r fakeNotificationRepo) CountUnread(_ context.Context, userID uuid.UUID) (int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	count := 0
	for _, n := range r.db.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (r fakeNotificationRepo) MarkRead(_ context.Context, id, userID uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, n := range r.db.notifications {
		if n.ID == id && n.UserID == userID {
			n.IsRead = true
			return nil
		}
	}
	return entities.ErrNotFound
}

func (r fakeNotificationRepo) MarkAllRead(_ context.Context, userID uuid.UUID) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var count int64
	for _, n := range r.db.notifications {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			count++
		}
	}
	return count, nil
}

func (r fakeNotificationRepo) Delete(_ context.Context, id, userID uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for i, n := range r.db.notifications {
		if n.ID == id && n.UserID == userID {
			r.db.notifications = append(r.db.notifications[:i], r.db.notifications[i+1:]...)
			return nil
		}
	}
	return entities.ErrNotFound
}

func (r fakeNotificationRepo) Exists(_ context.Context, userID, taskID uuid.UUID, t entities.NotificationType) (bool, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	for _, n := range r.db.notifications {
		if n.UserID == userID && n.Type == t && n.TaskID != nil && *n.TaskID == taskID {
			return true, nil
		}
	}
	return false, nil
}

type fakeAuthRepo struct{ db *fakeDB }

func (r fakeAuthRepo) CreateRefreshToken(_ context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.tokens[tokenHash] = &ports.RefreshToken{
		ID:        uuid.New(),
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	return nil
}

func (r fakeAuthRepo) GetRefreshToken(_ context.Context, tokenHash string) (*ports.RefreshToken, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	t, ok := r.db.tokens[tokenHash]
	if !ok {
		return nil, entities.ErrInvalidToken
	}
	cp := *t
	return &cp, nil
}

func (r fakeAuthRepo) RevokeRefreshToken(_ context.Context, tokenHash string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if t, ok := r.db.tokens[tokenHash]; ok && t.RevokedAt == nil {
		now := time.Now()
		t.RevokedAt = &now
	}
	return nil
}

func (r fakeAuthRepo) RevokeAllUserTokens(_ context.Context, userID uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	now := time.Now()
	for _, t := range r.db.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			t.RevokedAt = &now
		}
	}
	return nil
}

// env wires every service against one fakeDB.
type env struct {
	db            *fakeDB
	projects      *ProjectService
	tasks         *TaskService
	comments      *CommentService
	notifications *NotificationService
	users         *UserService
}

func newEnv() *env {
	db := newFakeDB()
	log := logger.NewNop()
	notifier := NewNotifier(fakeNotificationRepo{db}, nil, log)

	return &env{
		db:            db,
		projects:      NewProjectService(fakeProjectRepo{db}, fakeUserRepo{db}, fakeTaskRepo{db}, db, notifier, log),
		tasks:         NewTaskService(fakeTaskRepo{db}, fakeProjectRepo{db}, db, notifier, log),
		comments:      NewCommentService(fakeCommentRepo{db}, fakeTaskRepo{db}, fakeProjectRepo{db}, notifier, log),
		notifications: NewNotificationService(fakeNotificationRepo{db}, log),
		users:         NewUserService(fakeUserRepo{db}, log),
	}
}

func (e *env) mustCreateUser(t testingT, name string) *entities.User {
	t.Helper()
	user := &entities.User{
		Email:    name + "@example.com",
		Username: name,
		IsActive: true,
	}
	if err := (fakeUserRepo{e.db}).Create(context.Background(), user); err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return user
}

func (e *env) mustCreateProject(t testingT, owner *entities.User, public bool) *entities.Project {
	t.Helper()
	project, err := e.projects.CreateProject(context.Background(), owner.ID, ports.CreateProjectRequest{
		Name:     "Project " + owner.Username,
		IsPublic: public,
	})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return project
}

func (e *env) mustInvite(t testingT, actor *entities.User, project *entities.Project, user *entities.User, role entities.MemberRole) {
	t.Helper()
	if _, err := e.projects.InviteUser(context.Background(), actor.ID, project.ID, ports.InviteUserRequest{
		Email: user.Email,
		Role:  role,
	}); err != nil {
		t.Fatalf("invite %s: %v", user.Username, err)
	}
}

func (e *env) mustCreateTask(t testingT, actor *entities.User, project *entities.Project, assignee *entities.User) *entities.Task {
	t.Helper()
	req := ports.CreateTaskRequest{ProjectID: project.ID, Title: "Write docs"}
	if assignee != nil {
		req.AssigneeID = &assignee.ID
	}
	task, err := e.tasks.CreateTask(context.Background(), actor.ID, req)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}

func (e *env) notificationsFor(userID uuid.UUID, typ entities.NotificationType) int {
	e.db.mu.RLock()
	defer e.db.mu.RUnlock()
	count := 0
	for _, n := range e.db.notifications {
		if n.UserID == userID && n.Type == typ {
			count++
		}
	}
	return count
}

// testingT is the subset of testing.TB used by the helpers.
type testingT interface {
	Helper()
	Fatalf(format string, args ...interface{})
}
