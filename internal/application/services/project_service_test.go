package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/taskhub/core/internal/domain/entities"
	"github.com/taskhub/core/internal/ports"
)

func TestCreateProject_DefaultsAndOwnership(t *testing.T) {
	t.Parallel()
	e := newEnv()
	owner := e.mustCreateUser(t, "owner")

	project := e.mustCreateProject(t, owner, false)

	if project.OwnerID != owner.ID {
		t.Fatalf("owner = %s, want %s", project.OwnerID, owner.ID)
	}
	if project.Color != entities.DefaultProjectColor {
		t.Fatalf("color = %q, want default", project.Color)
	}
	if len(project.Members) != 0 {
		t.Fatalf("owner must not be stored as a member row, got %d rows", len(project.Members))
	}
}

func TestCreateProject_RequiresActor(t *testing.T) {
	t.Parallel()
	e := newEnv()

	_, err := e.projects.CreateProject(context.Background(), uuid.Nil, ports.CreateProjectRequest{Name: "Nope"})
	if !errors.Is(err, entities.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestGetProject_NonDisclosure(t *testing.T) {
	t.Parallel()
	e := newEnv()
	owner := e.mustCreateUser(t, "owner")
	outsider := e.mustCreateUser(t, "outsider")
	project := e.mustCreateProject(t, owner, false)

	_, forbiddenErr := e.projects.GetProject(context.Background(), outsider.ID, project.ID)
	_, missingErr := e.projects.GetProject(context.Background(), outsider.ID, uuid.New())

	if !errors.Is(forbiddenErr, entities.ErrNotFound) || !errors.Is(missingErr, entities.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for both, got %v and %v", forbiddenErr, missingErr)
	}
	if forbiddenErr.Error() != missingErr.Error() {
		t.Fatalf("forbidden and missing must be indistinguishable: %q vs %q", forbiddenErr, missingErr)
	}
}

func TestGetProject_PublicReadableByAnyone(t *testing.T) {
	t.Parallel()
	e := newEnv()
	owner := e.mustCreateUser(t, "owner")
	outsider := e.mustCreateUser(t, "outsider")
	project := e.mustCreateProject(t, owner, true)

	got, err := e.projects.GetProject(context.Background(), outsider.ID, project.ID)
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	if got.ID != project.ID {
		t.Fatalf("got project %s, want %s", got.ID, project.ID)
	}

	_, err = e.projects.UpdateProject(context.Background(), outsider.ID, project.ID, ports.UpdateProjectRequest{})
	if !errors.Is(err, entities.ErrNotFound) {
		t.Fatalf("public visibility must not grant manage, got %v", err)
	}
}

func TestInviteUser(t *testing.T) {
	t.Parallel()
	e := newEnv()
	ctx := context.Background()
	owner := e.mustCreateUser(t, "owner")
	member := e.mustCreateUser(t, "member")
	guest := e.mustCreateUser(t, "guest")
	project := e.mustCreateProject(t, owner, false)

	res, err := e.projects.InviteUser(ctx, owner.ID, project.ID, ports.InviteUserRequest{Email: "MEMBER@example.com"})
	if err != nil {
		t.Fatalf("InviteUser: %v", err)
	}
	if res.Member.Role != entities.MemberRoleMember {
		t.Fatalf("default role = %s, want MEMBER", res.Member.Role)
	}
	if !res.NotificationSent || e.notificationsFor(member.ID, entities.NotificationProjectInvited) != 1 {
		t.Fatalf("invited user must receive PROJECT_INVITED")
	}

	tests := []struct {
		name  string
		actor uuid.UUID
		email string
		want  error
	}{
		{"already member", owner.ID, member.Email, entities.ErrConflict},
		{"owner", owner.ID, owner.Email, entities.ErrConflict},
		{"unknown email", owner.ID, "nobody@example.com", entities.ErrUserNotFound},
		{"plain member cannot invite", member.ID, guest.Email, entities.ErrNotFound},
		{"outsider cannot invite", guest.ID, guest.Email, entities.ErrNotFound},
	}
	for _, tt := range tests {
		_, err := e.projects.InviteUser(ctx, tt.actor, project.ID, ports.InviteUserRequest{Email: tt.email})
		if !errors.Is(err, tt.want) {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, err)
		}
	}
}

func TestInviteUser_AdminCanInvite(t *testing.T) {
	t.Parallel()
	e := newEnv()
	owner := e.mustCreateUser(t, "owner")
	admin := e.mustCreateUser(t, "admin")
	guest := e.mustCreateUser(t, "guest")
	project := e.mustCreateProject(t, owner, false)
	e.mustInvite(t, owner, project, admin, entities.MemberRoleAdmin)

	if _, err := e.projects.InviteUser(context.Background(), admin.ID, project.ID, ports.InviteUserRequest{
		Email: guest.Email,
		Role:  entities.MemberRoleAdmin,
	}); err != nil {
		t.Fatalf("admin invite: %v", err)
	}
}

func TestOwnerImmutability(t *testing.T) {
	t.Parallel()
	e := newEnv()
	ctx := context.Background()
	owner := e.mustCreateUser(t, "owner")
	admin := e.mustCreateUser(t, "admin")
	project := e.mustCreateProject(t, owner, false)
	e.mustInvite(t, owner, project, admin, entities.MemberRoleAdmin)

	if err := e.projects.RemoveMember(ctx, admin.ID, project.ID, owner.ID); !errors.Is(err, entities.ErrOwnerImmutable) {
		t.Fatalf("admin removing owner: expected ErrOwnerImmutable, got %v", err)
	}
	if err := e.projects.RemoveMember(ctx, owner.ID, project.ID, owner.ID); !errors.Is(err, entities.ErrOwnerImmutable) {
		t.Fatalf("owner removing self: expected ErrOwnerImmutable, got %v", err)
	}

	_, err := e.projects.UpdateMemberRole(ctx, owner.ID, project.ID, owner.ID, ports.UpdateMemberRoleRequest{Role: entities.MemberRoleMember})
	if !errors.Is(err, entities.ErrOwnerImmutable) {
		t.Fatalf("role change on owner: expected ErrOwnerImmutable, got %v", err)
	}

	p, err := e.projects.GetProject(ctx, owner.ID, project.ID)
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	if p.OwnerID != owner.ID {
		t.Fatalf("owner changed")
	}
}

func TestUpdateMemberRole(t *testing.T) {
	t.Parallel()
	e := newEnv()
	ctx := context.Background()
	owner := e.mustCreateUser(t, "owner")
	admin := e.mustCreateUser(t, "admin")
	member := e.mustCreateUser(t, "member")
	outsider := e.mustCreateUser(t, "outsider")
	project := e.mustCreateProject(t, owner, false)
	e.mustInvite(t, owner, project, admin, entities.MemberRoleAdmin)
	e.mustInvite(t, owner, project, member, entities.MemberRoleMember)

	_, err := e.projects.UpdateMemberRole(ctx, admin.ID, project.ID, member.ID, ports.UpdateMemberRoleRequest{Role: entities.MemberRoleAdmin})
	if !errors.Is(err, entities.ErrNotFound) {
		t.Fatalf("admin changing roles: expected ErrNotFound, got %v", err)
	}

	_, err = e.projects.UpdateMemberRole(ctx, owner.ID, project.ID, outsider.ID, ports.UpdateMemberRoleRequest{Role: entities.MemberRoleAdmin})
	if !errors.Is(err, entities.ErrNotMember) {
		t.Fatalf("non-member target: expected ErrNotMember, got %v", err)
	}

	updated, err := e.projects.UpdateMemberRole(ctx, owner.ID, project.ID, member.ID, ports.UpdateMemberRoleRequest{Role: entities.MemberRoleAdmin})
	if err != nil {
		t.Fatalf("UpdateMemberRole: %v", err)
	}
	if updated.Role != entities.MemberRoleAdmin {
		t.Fatalf("role = %s, want ADMIN", updated.Role)
	}

	if e.notificationsFor(member.ID, entities.NotificationProjectUpdated) != 0 {
		t.Fatalf("role changes must not notify")
	}
}

func TestRemoveMember(t *testing.T) {
	t.Parallel()
	e := newEnv()
	ctx := context.Background()
	owner := e.mustCreateUser(t, "owner")
	member := e.mustCreateUser(t, "member")
	outsider := e.mustCreateUser(t, "outsider")
	project := e.mustCreateProject(t, owner, false)
	e.mustInvite(t, owner, project, member, entities.MemberRoleMember)

	if err := e.projects.RemoveMember(ctx, owner.ID, project.ID, outsider.ID); !errors.Is(err, entities.ErrNotMember) {
		t.Fatalf("expected ErrNotMember, got %v", err)
	}
	if err := e.projects.RemoveMember(ctx, owner.ID, project.ID, member.ID); err != nil {
		t.Fatalf("RemoveMember: %v", err)
	}
	if _, err := e.projects.GetProject(ctx, member.ID, project.ID); !errors.Is(err, entities.ErrNotFound) {
		t.Fatalf("removed member must lose access, got %v", err)
	}
}

func TestRemoveMember_UnassignsTasks(t *testing.T) {
	t.Parallel()
	e := newEnv()
	ctx := context.Background()
	owner := e.mustCreateUser(t, "owner")
	member := e.mustCreateUser(t, "member")
	project := e.mustCreateProject(t, owner, false)
	other := e.mustCreateProject(t, owner, false)
	e.mustInvite(t, owner, project, member, entities.MemberRoleMember)
	e.mustInvite(t, owner, other, member, entities.MemberRoleMember)

	assigned := e.mustCreateTask(t, owner, project, member)
	elsewhere := e.mustCreateTask(t, owner, other, member)
	txBefore := e.db.txCalls

	if err := e.projects.RemoveMember(ctx, owner.ID, project.ID, member.ID); err != nil {
		t.Fatalf("RemoveMember: %v", err)
	}
	if e.db.txCalls != txBefore+1 {
		t.Fatalf("RemoveMember must run in one transaction, txCalls = %d", e.db.txCalls-txBefore)
	}

	task, err := e.tasks.GetTask(ctx, owner.ID, assigned.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if task.AssigneeID != nil {
		t.Fatalf("task still assigned to removed member %s", *task.AssigneeID)
	}

	task, err = e.tasks.GetTask(ctx, owner.ID, elsewhere.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if task.AssigneeID == nil || *task.AssigneeID != member.ID {
		t.Fatalf("task in another project must keep its assignee, got %v", task.AssigneeID)
	}

	before := e.notificationsFor(member.ID, entities.NotificationTaskUpdated)
	title := "Rewrite docs"
	if _, err := e.tasks.UpdateTask(ctx, owner.ID, assigned.ID, ports.UpdateTaskRequest{Title: &title}); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if got := e.notificationsFor(member.ID, entities.NotificationTaskUpdated); got != before {
		t.Fatalf("removed member notified about task update")
	}
}

func TestUpdateProject_NotifiesEveryoneButActor(t *testing.T) {
	t.Parallel()
	e := newEnv()
	owner := e.mustCreateUser(t, "owner")
	admin := e.mustCreateUser(t, "admin")
	member := e.mustCreateUser(t, "member")
	project := e.mustCreateProject(t, owner, false)
	e.mustInvite(t, owner, project, admin, entities.MemberRoleAdmin)
	e.mustInvite(t, owner, project, member, entities.MemberRoleMember)

	name := "Renamed project"
	res, err := e.projects.UpdateProject(context.Background(), admin.ID, project.ID, ports.UpdateProjectRequest{Name: &name})
	if err != nil {
		t.Fatalf("UpdateProject: %v", err)
	}
	if res.Project.Name != name {
		t.Fatalf("name = %q, want %q", res.Project.Name, name)
	}
	if res.NotificationsSent != 2 {
		t.Fatalf("notificationsSent = %d, want 2", res.NotificationsSent)
	}
	if e.notificationsFor(admin.ID, entities.NotificationProjectUpdated) != 0 {
		t.Fatalf("actor must not be notified")
	}
	if e.notificationsFor(owner.ID, entities.NotificationProjectUpdated) != 1 ||
		e.notificationsFor(member.ID, entities.NotificationProjectUpdated) != 1 {
		t.Fatalf("owner and member must be notified once")
	}
}

func TestUpdateProject_PlainMemberDenied(t *testing.T) {
	t.Parallel()
	e := newEnv()
	owner := e.mustCreateUser(t, "owner")
	member := e.mustCreateUser(t, "member")
	project := e.mustCreateProject(t, owner, false)
	e.mustInvite(t, owner, project, member, entities.MemberRoleMember)

	_, err := e.projects.UpdateProject(context.Background(), member.ID, project.ID, ports.UpdateProjectRequest{})
	if !errors.Is(err, entities.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteProject_OwnerOnly(t *testing.T) {
	t.Parallel()
	e := newEnv()
	ctx := context.Background()
	owner := e.mustCreateUser(t, "owner")
	admin := e.mustCreateUser(t, "admin")
	project := e.mustCreateProject(t, owner, false)
	e.mustInvite(t, owner, project, admin, entities.MemberRoleAdmin)

	if err := e.projects.DeleteProject(ctx, admin.ID, project.ID); !errors.Is(err, entities.ErrNotFound) {
		t.Fatalf("admin delete: expected ErrNotFound, got %v", err)
	}
	if err := e.projects.DeleteProject(ctx, owner.ID, project.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if _, err := e.projects.GetProject(ctx, owner.ID, project.ID); !errors.Is(err, entities.ErrNotFound) {
		t.Fatalf("deleted project still visible: %v", err)
	}
}

func TestListProjects_OnlyReadable(t *testing.T) {
	t.Parallel()
	e := newEnv()
	ctx := context.Background()
	alice := e.mustCreateUser(t, "alice")
	bob := e.mustCreateUser(t, "bob")
	e.mustCreateProject(t, alice, false)
	e.mustCreateProject(t, alice, true)
	e.mustCreateProject(t, bob, false)

	projects, total, err := e.projects.ListProjects(ctx, bob.ID, ports.ProjectFilter{
		Page: ports.NewPage(1, 0, ports.DefaultProjectsPerPage),
	})
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if total != 2 || len(projects) != 2 {
		t.Fatalf("bob sees %d/%d projects, want 2", len(projects), total)
	}
}
