package entities

import "github.com/google/uuid"

// AccessLevel is the minimum relationship an actor needs with a project.
// Repositories translate each level into the WHERE clause of the scoped fetch,
// so a row that is missing and a row that is forbidden look the same.
type AccessLevel int

const (
	// AccessRead: owner, any member, or anyone when the project is public.
	AccessRead AccessLevel = iota
	// AccessContribute: owner or any member. Public visibility never grants writes.
	AccessContribute
	// AccessManage: owner or a member with role OWNER or ADMIN.
	AccessManage
	// AccessOwner: the owner only.
	AccessOwner
)

func (l AccessLevel) String() string {
	switch l {
	case AccessRead:
		return "read"
	case AccessContribute:
		return "contribute"
	case AccessManage:
		return "manage"
	case AccessOwner:
		return "owner"
	default:
		return "unknown"
	}
}

// IsOwner reports whether userID owns the project.
func (p *Project) IsOwner(userID uuid.UUID) bool {
	return userID != uuid.Nil && p.OwnerID == userID
}

// Member returns the membership row for userID, if any. Members must be loaded.
func (p *Project) Member(userID uuid.UUID) (*ProjectMember, bool) {
	for i := range p.Members {
		if p.Members[i].UserID == userID {
			return &p.Members[i], true
		}
	}
	return nil, false
}

// Allows evaluates the guard for the given level. Members must be loaded.
func (p *Project) Allows(actorID uuid.UUID, level AccessLevel) bool {
	if actorID == uuid.Nil {
		return false
	}
	if p.IsOwner(actorID) {
		return true
	}

	member, isMember := p.Member(actorID)
	switch level {
	case AccessRead:
		return p.IsPublic || isMember
	case AccessContribute:
		return isMember
	case AccessManage:
		return isMember && (member.Role == MemberRoleOwner || member.Role == MemberRoleAdmin)
	default:
		return false
	}
}

// CanAccessProject is true iff the actor owns the project, the project is public,
// or the actor has a membership row.
func CanAccessProject(actorID uuid.UUID, project *Project) bool {
	return project != nil && project.Allows(actorID, AccessRead)
}

// CanContributeToProject is true iff the actor owns the project or is a member.
func CanContributeToProject(actorID uuid.UUID, project *Project) bool {
	return project != nil && project.Allows(actorID, AccessContribute)
}

// CanAccessTask delegates to the guard of the task's project.
func CanAccessTask(actorID uuid.UUID, task *Task, project *Project) bool {
	if task == nil || project == nil || task.ProjectID != project.ID {
		return false
	}
	return CanAccessProject(actorID, project)
}

// CanManageProject is true iff the actor owns the project or holds an OWNER/ADMIN row.
func CanManageProject(actorID uuid.UUID, project *Project) bool {
	return project != nil && project.Allows(actorID, AccessManage)
}

// CanModifyComment is true iff the actor wrote the comment, owns the parent
// project, or is an ADMIN member of it.
func CanModifyComment(actorID uuid.UUID, comment *Comment, project *Project) bool {
	if comment == nil || project == nil || actorID == uuid.Nil {
		return false
	}
	if comment.AuthorID == actorID || project.IsOwner(actorID) {
		return true
	}
	member, ok := project.Member(actorID)
	return ok && member.Role == MemberRoleAdmin
}

// CanAccessNotification is true iff the actor is the recipient.
func CanAccessNotification(actorID uuid.UUID, n *Notification) bool {
	return n != nil && actorID != uuid.Nil && n.UserID == actorID
}
