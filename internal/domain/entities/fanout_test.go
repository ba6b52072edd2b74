package entities

import (
	"testing"

	"github.com/google/uuid"
)

func TestCommentRecipients(t *testing.T) {
	t.Parallel()

	creator, assignee, third := uuid.New(), uuid.New(), uuid.New()

	tests := []struct {
		name     string
		assignee *uuid.UUID
		author   uuid.UUID
		want     []uuid.UUID
	}{
		{"creator comments, no assignee", nil, creator, nil},
		{"creator comments, assigned to self", &creator, creator, nil},
		{"assignee comments", &assignee, assignee, []uuid.UUID{creator}},
		{"creator comments, other assignee", &assignee, creator, []uuid.UUID{assignee}},
		{"third party, other assignee", &assignee, third, []uuid.UUID{creator, assignee}},
		{"third party, creator is assignee", &creator, third, []uuid.UUID{creator}},
	}

	for _, tt := range tests {
		task := &Task{CreatorID: creator, AssigneeID: tt.assignee}
		got := CommentRecipients(task, tt.author)
		if len(got) != len(tt.want) {
			t.Fatalf("%s: got %v, want %v", tt.name, got, tt.want)
		}
		seen := map[uuid.UUID]bool{}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("%s: recipient %d = %s, want %s", tt.name, i, got[i], tt.want[i])
			}
			if seen[got[i]] {
				t.Errorf("%s: duplicate recipient %s", tt.name, got[i])
			}
			seen[got[i]] = true
		}
	}
}

func TestUpdateAndAssignRecipient(t *testing.T) {
	t.Parallel()

	actor, assignee := uuid.New(), uuid.New()

	if _, ok := UpdateRecipient(&Task{}, actor); ok {
		t.Errorf("unassigned task must not notify")
	}
	if _, ok := UpdateRecipient(&Task{AssigneeID: &actor}, actor); ok {
		t.Errorf("self-update must not notify")
	}
	if got, ok := UpdateRecipient(&Task{AssigneeID: &assignee}, actor); !ok || got != assignee {
		t.Errorf("UpdateRecipient = %s, %v; want %s, true", got, ok, assignee)
	}

	if _, ok := AssignRecipient(nil, actor); ok {
		t.Errorf("nil assignee must not notify")
	}
	if _, ok := AssignRecipient(&actor, actor); ok {
		t.Errorf("self-assignment must not notify")
	}
	if got, ok := AssignRecipient(&assignee, actor); !ok || got != assignee {
		t.Errorf("AssignRecipient = %s, %v; want %s, true", got, ok, assignee)
	}
}

func TestProjectUpdateRecipients(t *testing.T) {
	t.Parallel()

	owner, admin, member := uuid.New(), uuid.New(), uuid.New()
	project := newProject(owner, false,
		ProjectMember{UserID: admin, Role: MemberRoleAdmin},
		ProjectMember{UserID: member, Role: MemberRoleMember},
	)

	got := ProjectUpdateRecipients(project, admin)
	if len(got) != 2 || got[0] != owner || got[1] != member {
		t.Fatalf("ProjectUpdateRecipients(admin) = %v, want [owner member]", got)
	}

	got = ProjectUpdateRecipients(project, owner)
	if len(got) != 2 || got[0] != admin || got[1] != member {
		t.Fatalf("ProjectUpdateRecipients(owner) = %v, want [admin member]", got)
	}
}
