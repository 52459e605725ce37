// Package authz is the single authorization decision point. Every mutating
// operation in the resource managers maps to exactly one rule here, so the
// per-handler role checks cannot drift apart.
package authz

import userdomain "crewdesk/backend/internal/user/domain"

// Action enumerates everything the resource managers may ask permission for.
// The set is closed; CanPerform denies unknown actions instead of defaulting
// to allow.
type Action string

const (
	ActionTeamRead            Action = "team.read"
	ActionInviteSend          Action = "team.invite_send"
	ActionInviteCancel        Action = "team.invite_cancel"
	ActionInviteCodeGenerate  Action = "team.invite_code_generate"
	ActionProjectCreate       Action = "project.create"
	ActionProjectUpdate       Action = "project.update"
	ActionProjectDelete       Action = "project.delete"
	ActionProjectMemberAdd    Action = "project.member_add"
	ActionProjectMemberRemove Action = "project.member_remove"
	ActionTaskCreate          Action = "task.create"
	ActionTaskUpdate          Action = "task.update"
	ActionTaskDelete          Action = "task.delete"
)

// Actor is the authenticated caller with role and team freshly resolved from
// the store, never taken from token claims alone.
type Actor struct {
	ID     string
	Role   userdomain.Role
	TeamID string
}

// Resource is an already-loaded snapshot of the resource an action targets.
// TeamID is the owning team, resolved through the parent project for member
// and task actions. CanPerform does no I/O; callers fill in only the refs the
// action needs.
type Resource struct {
	TeamID  string
	Project *ProjectRef
	Member  *MemberRef
	Task    *TaskRef
}

// ProjectRef describes the parent or target project.
type ProjectRef struct {
	ID            string
	CreatedBy     string
	ActorIsMember bool
}

// MemberRef describes the target user of a member add/remove.
type MemberRef struct {
	UserID    string
	TeamID    string
	IsCreator bool
}

// TaskRef describes the target task of an update/delete.
type TaskRef struct {
	CreatedBy string
}

// Decision is the outcome of an authorization check. Denied decisions carry
// the rule's reason verbatim; it is surfaced to the caller, never downgraded
// to a not-found.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision             { return Decision{Allowed: true} }
func deny(reason string) Decision { return Decision{Allowed: false, Reason: reason} }

// Denied reasons. Exported so tests and handlers can assert on them without
// string literals drifting.
const (
	ReasonNotYourTeam         = "not your team"
	ReasonInsufficientRole    = "insufficient role"
	ReasonCannotRemoveCreator = "cannot remove creator"
	ReasonCrossTeamMember     = "cross-team member"
	ReasonAdminRequired       = "admin role required"
	ReasonNotProjectMember    = "not a project member"
	ReasonNoMatchingRule      = "no matching rule"
)

// CanPerform decides whether actor may perform action on res. It is pure and
// total: every known action maps to exactly one rule, and the team-scope rule
// dominates regardless of role. First match wins.
func CanPerform(actor Actor, action Action, res Resource) Decision {
	// Rule 1: team scope. An empty actor team never matches, so team-less
	// users fail closed.
	if actor.TeamID == "" || actor.TeamID != res.TeamID {
		return deny(ReasonNotYourTeam)
	}

	// Rule 2: resource-specific rules.
	switch action {
	case ActionTeamRead, ActionProjectCreate:
		return allow()

	case ActionProjectUpdate, ActionProjectDelete:
		if actor.Role == userdomain.RoleAdmin || (res.Project != nil && actor.ID == res.Project.CreatedBy) {
			return allow()
		}
		return deny(ReasonInsufficientRole)

	case ActionProjectMemberAdd:
		if actor.Role != userdomain.RoleAdmin && (res.Project == nil || actor.ID != res.Project.CreatedBy) {
			return deny(ReasonInsufficientRole)
		}
		if res.Member != nil && res.Member.TeamID != res.TeamID {
			return deny(ReasonCrossTeamMember)
		}
		return allow()

	case ActionProjectMemberRemove:
		if actor.Role != userdomain.RoleAdmin && (res.Project == nil || actor.ID != res.Project.CreatedBy) {
			return deny(ReasonInsufficientRole)
		}
		// The creator's owner row is permanent, whoever asks.
		if res.Member != nil && res.Member.IsCreator {
			return deny(ReasonCannotRemoveCreator)
		}
		return allow()

	case ActionInviteSend, ActionInviteCancel, ActionInviteCodeGenerate:
		if actor.Role == userdomain.RoleAdmin {
			return allow()
		}
		return deny(ReasonAdminRequired)

	case ActionTaskCreate, ActionTaskUpdate:
		if actor.Role == userdomain.RoleAdmin {
			return allow()
		}
		if res.Project != nil && res.Project.ActorIsMember {
			return allow()
		}
		return deny(ReasonNotProjectMember)

	case ActionTaskDelete:
		if actor.Role == userdomain.RoleAdmin {
			return allow()
		}
		if res.Task != nil && actor.ID == res.Task.CreatedBy {
			return allow()
		}
		if res.Project != nil && actor.ID == res.Project.CreatedBy {
			return allow()
		}
		return deny(ReasonInsufficientRole)
	}

	// Rule 3: default deny for actions outside the table.
	return deny(ReasonNoMatchingRule)
}
