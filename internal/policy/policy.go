// Package policy holds every group and task access rule in one place.
// Callers resolve the records involved and ask Evaluate for a decision.
package policy

import (
	"github.com/chepyr/go-group-tasks/internal/apperr"
	"github.com/chepyr/go-group-tasks/internal/models"
)

type Action string

const (
	GroupView          Action = "group:view"
	GroupUpdate        Action = "group:update"
	GroupDelete        Action = "group:delete"
	GroupManageMembers Action = "group:manage_members"
	GroupLeave         Action = "group:leave"
	InviteCreate       Action = "invite:create"
	InviteList         Action = "invite:list"
	InviteRevoke       Action = "invite:revoke"
	TaskCreate         Action = "task:create"
	TaskView           Action = "task:view"
	TaskUpdate         Action = "task:update"
	TaskDelete         Action = "task:delete"
	TaskMoveToGroup    Action = "task:move_to_group"
	UserManage         Action = "user:manage"
)

// Resource carries the records an action touches. Group is the group the
// action targets: the task's own group, a create/move target, or the
// invite's group.
type Resource struct {
	Group  *models.Group
	Task   *models.Task
	Invite *models.Invite
	UserID int
}

type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason string) Decision { return Decision{Reason: reason} }

// Err is nil when allowed and a Forbidden error carrying the reason otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return apperr.Forbidden("%s", d.Reason)
}

func Evaluate(actorID int, action Action, res Resource) Decision {
	switch action {
	case GroupView:
		return requireMember(actorID, res.Group, "only group members can view this group")
	case GroupUpdate, GroupDelete, GroupManageMembers, InviteCreate, InviteList:
		return requireOwner(actorID, res.Group)
	case GroupLeave:
		return requireMember(actorID, res.Group, "you are not a member of this group")
	case InviteRevoke:
		if res.Invite != nil && res.Invite.CreatedBy == actorID {
			return allow()
		}
		return requireOwner(actorID, res.Group)
	case TaskCreate:
		if res.Group == nil {
			return allow()
		}
		return requireMember(actorID, res.Group, "you are not a member of this group")
	case TaskView:
		return canViewTask(actorID, res.Task, res.Group)
	case TaskUpdate:
		return canEditTask(actorID, res.Task, res.Group)
	case TaskDelete:
		if d := canEditTask(actorID, res.Task, res.Group); d.Allowed {
			return d
		}
		if res.Task != nil && !res.Task.IsPersonal() && res.Group != nil && res.Group.OwnerID == actorID {
			return allow()
		}
		return deny("you can only delete your own tasks")
	case TaskMoveToGroup:
		return requireMember(actorID, res.Group, "you must be a member of the target group")
	case UserManage:
		if res.UserID == actorID {
			return allow()
		}
		return deny("you can only manage your own account")
	default:
		return deny("unknown action")
	}
}

func requireMember(actorID int, g *models.Group, reason string) Decision {
	if g != nil && g.HasMember(actorID) {
		return allow()
	}
	return deny(reason)
}

func requireOwner(actorID int, g *models.Group) Decision {
	if g != nil && g.OwnerID == actorID {
		return allow()
	}
	return deny("only the group owner can do this")
}

// A personal task is visible to its assignee; a group task to the group's members.
func canViewTask(actorID int, t *models.Task, g *models.Group) Decision {
	if t == nil {
		return deny("task not visible")
	}
	if t.IsPersonal() {
		if t.AssignedTo(actorID) {
			return allow()
		}
		return deny("you can only see your own personal tasks")
	}
	return requireMember(actorID, g, "you are not a member of this task's group")
}

// Field changes belong to the assignee. An unassigned group task is open to
// any member of its group.
func canEditTask(actorID int, t *models.Task, g *models.Group) Decision {
	if t == nil {
		return deny("task not editable")
	}
	if t.AssignedTo(actorID) {
		return allow()
	}
	if !t.IsPersonal() && t.AssignedToID == nil {
		return requireMember(actorID, g, "you are not a member of this task's group")
	}
	return deny("you can only modify your own tasks")
}
