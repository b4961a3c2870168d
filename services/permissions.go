package services

import "fixit-be/models"

type party int

const (
	assignee party = iota
	reporter
)

// workflow lists the non-admin transitions and who may drive each one.
var workflow = map[models.IssueStatus]map[models.IssueStatus]party{
	models.StatusReported: {
		models.StatusInProgress: assignee,
	},
	models.StatusInProgress: {
		models.StatusResolved: assignee,
	},
	models.StatusResolved: {
		models.StatusClosed:     reporter,
		models.StatusInProgress: reporter,
	},
}

// CanTransition reports whether actor may move issue from one status to
// another. Admins may set any valid status.
func CanTransition(actor *models.User, issue *models.Issue, from, to models.IssueStatus) bool {
	if actor == nil || issue == nil || !from.Valid() || !to.Valid() {
		return false
	}
	if actor.IsAdmin() {
		return true
	}
	who, ok := workflow[from][to]
	if !ok {
		return false
	}
	switch who {
	case assignee:
		return issue.IsAssignee(actor.ID)
	case reporter:
		return issue.IsReporter(actor.ID)
	}
	return false
}

func CanAssign(actor *models.User) bool {
	return actor.HasRole(models.RoleAdmin, models.RoleGovernment, models.RoleManager)
}

func CanManageThresholds(actor *models.User) bool {
	return actor.HasRole(models.RoleAdmin, models.RoleGovernment)
}

func CanViewDashboard(actor *models.User) bool {
	return actor.HasRole(models.RoleAdmin, models.RoleGovernment, models.RoleManager)
}

// CanRemove reports whether actor may soft-delete issue.
func CanRemove(actor *models.User, issue *models.Issue) bool {
	if actor == nil {
		return false
	}
	return actor.IsAdmin() || issue.IsReporter(actor.ID)
}
