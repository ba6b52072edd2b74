package entities

import "github.com/google/uuid"

// CommentRecipients returns who must be told about a new comment on task.
// The creator is notified unless they wrote the comment; the assignee is
// notified unless they wrote it or already got the creator's notification.
func CommentRecipients(task *Task, authorID uuid.UUID) []uuid.UUID {
	var recipients []uuid.UUID
	if task.CreatorID != authorID {
		recipients = append(recipients, task.CreatorID)
	}
	if task.IsAssigned() && *task.AssigneeID != authorID && *task.AssigneeID != task.CreatorID {
		recipients = append(recipients, *task.AssigneeID)
	}
	return recipients
}

// UpdateRecipient returns the current assignee unless they made the change.
func UpdateRecipient(task *Task, actorID uuid.UUID) (uuid.UUID, bool) {
	if !task.IsAssigned() || *task.AssigneeID == actorID {
		return uuid.Nil, false
	}
	return *task.AssigneeID, true
}

// AssignRecipient returns the new assignee unless they assigned themselves.
func AssignRecipient(assigneeID *uuid.UUID, actorID uuid.UUID) (uuid.UUID, bool) {
	if assigneeID == nil || *assigneeID == uuid.Nil || *assigneeID == actorID {
		return uuid.Nil, false
	}
	return *assigneeID, true
}

// ProjectUpdateRecipients returns every member plus the owner, minus the actor.
func ProjectUpdateRecipients(project *Project, actorID uuid.UUID) []uuid.UUID {
	var recipients []uuid.UUID
	if project.OwnerID != actorID {
		recipients = append(recipients, project.OwnerID)
	}
	for _, m := range project.Members {
		if m.UserID != actorID && m.UserID != project.OwnerID {
			recipients = append(recipients, m.UserID)
		}
	}
	return recipients
}
