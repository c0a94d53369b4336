package paper

import (
	"errors"

	"github.com/EMS-UCU/ucu-uems-sub002/core/user"
)

var (
	// errors
	ErrNotFound          = errors.New("paper not found")
	ErrInvalidTransition = errors.New("transition not allowed from the paper's current status")
	ErrUnauthorized      = errors.New("role not authorized for this transition")
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrAlreadyHandled reports a lost conditional update: another worker
	// already performed the operation. Callers treat it as success-adjacent.
	ErrAlreadyHandled = errors.New("paper already handled by a concurrent update")
)

// edge is one permitted workflow step and the single role allowed to take it.
type edge struct {
	Target Status
	Role   string
}

// workflow is the closed transition table: status -> permitted successors.
// Each stage has exactly one authorized role able to advance it.
var workflow = map[Status][]edge{
	StatusDraft: {
		{StatusSubmitted, user.RoleSetter},
	},
	StatusSubmitted: {
		{StatusIntegrated, user.RoleTeamLead},
	},
	StatusIntegrated: {
		{StatusSentForReview, user.RoleTeamLead},
	},
	StatusSentForReview: {
		{StatusVettingAppointed, user.RoleChiefExaminer},
	},
	StatusVettingAppointed: {
		{StatusVettingInProgress, user.RoleVetter},
	},
	StatusVettingInProgress: {
		{StatusVetted, user.RoleVetter},
	},
	StatusVetted: {
		{StatusRevisionInProgress, user.RoleTeamLead},
		{StatusApprovedForPrint, user.RoleChiefExaminer},
		{StatusRejected, user.RoleChiefExaminer},
	},
	StatusRevisionInProgress: {
		{StatusResubmitted, user.RoleTeamLead},
	},
	StatusResubmitted: {
		{StatusApprovedForPrint, user.RoleChiefExaminer},
		{StatusRejected, user.RoleChiefExaminer},
	},
	StatusRejected: {
		{StatusRevisionInProgress, user.RoleTeamLead},
	},
	// approved_for_printing has no outgoing workflow edges; from there the
	// paper only moves through the vault's lock sub-states.
}

// checkTransition validates the current->target edge against the actor's roles.
func checkTransition(current, target Status, actorRoles []string) error {
	for _, e := range workflow[current] {
		if e.Target == target {
			for _, role := range actorRoles {
				if e.Role == role {
					return nil
				}
			}
			return ErrUnauthorized
		}
	}
	return ErrInvalidTransition
}

// NextStatuses lists the permitted successors of a status, for UI surfaces.
func NextStatuses(current Status) []Status {
	edges := workflow[current]
	targets := make([]Status, 0, len(edges))
	for _, e := range edges {
		targets = append(targets, e.Target)
	}
	return targets
}

// RoleCanRelock reports whether any of the roles may manually re-lock an
// unlocked paper.
func RoleCanRelock(roles ...string) bool {
	for _, role := range roles {
		if role == user.RoleChiefExaminer || role == user.RoleAdminOversight {
			return true
		}
	}
	return false
}
