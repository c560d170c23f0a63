// Package lifecycle holds the client-side view of the borrow-request
// lifecycle: which buttons to offer, what to show, and how to run an action.
// The API owns the state machine; nothing here computes a next status.
package lifecycle

import "github.com/equiplend/frontend/internal/models"

var transitions = map[models.Status][]models.Action{
	models.StatusPending:  {models.ActionApprove, models.ActionReject},
	models.StatusApproved: {models.ActionIssue},
	models.StatusIssued:   {models.ActionReturn},
}

// Actions lists the transition buttons for a request in status s as seen by
// role. Only staff and admins get any.
func Actions(s models.Status, role models.Role) []models.Action {
	if !role.Privileged() {
		return nil
	}
	acts := transitions[s]
	out := make([]models.Action, len(acts))
	copy(out, acts)
	return out
}

// Allowed reports whether action is offered for status s to role.
func Allowed(s models.Status, role models.Role, action models.Action) bool {
	for _, a := range Actions(s, role) {
		if a == action {
			return true
		}
	}
	return false
}

func ActionLabel(a models.Action) string {
	switch a {
	case models.ActionApprove:
		return "Approve"
	case models.ActionReject:
		return "Reject"
	case models.ActionIssue:
		return "Issue"
	case models.ActionReturn:
		return "Mark Returned"
	}
	return string(a)
}
