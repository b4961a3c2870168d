// Package repository persists the platform's documents in MongoDB.
package repository

import (
	"context"
	"time"

	"fixit-be/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IssueFilter narrows List results. Zero values mean "no constraint".
type IssueFilter struct {
	Category   models.Department
	Status     models.IssueStatus
	Search     string
	ReportedBy *primitive.ObjectID
	AssignedTo *primitive.ObjectID
	H3Cells    []string
	// IncludeInactive also returns soft-deleted issues.
	IncludeInactive bool
	// Sort is "newest" (default) or "oldest".
	Sort  string
	Page  int
	Limit int
}

type IssueRepository interface {
	Create(ctx context.Context, issue *models.Issue) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Issue, error)
	List(ctx context.Context, filter IssueFilter) ([]models.Issue, int64, error)
	// ListActive returns every issue that has not been soft-deleted.
	ListActive(ctx context.Context) ([]models.Issue, error)
	// Save replaces the stored document with issue.
	Save(ctx context.Context, issue *models.Issue) error
	// SaveTransition replaces the stored document only while it still has
	// status from. A concurrent transition makes it fail with a validation error.
	SaveTransition(ctx context.Context, issue *models.Issue, from models.IssueStatus) error
	UpdateVotes(ctx context.Context, issue *models.Issue) error
	AppendComment(ctx context.Context, id primitive.ObjectID, comment models.Comment) error
	SetAddress(ctx context.Context, id primitive.ObjectID, address string) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	CountOpenAssigned(ctx context.Context, userID primitive.ObjectID) (int64, error)
	// VotedBy returns the ids of issues the user up- and downvoted.
	VotedBy(ctx context.Context, userID primitive.ObjectID) (up, down []primitive.ObjectID, err error)
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	CountByEmail(ctx context.Context, email string) (int64, error)
	ListByRole(ctx context.Context, role models.Role, department *models.Department) ([]models.User, error)
	UpdateScore(ctx context.Context, id primitive.ObjectID, score, level int) error
	AddRedeemedReward(ctx context.Context, id primitive.ObjectID, reward models.RedeemedReward) error
	SetRole(ctx context.Context, id primitive.ObjectID, role models.Role, department *models.Department) error
}

type ThresholdRepository interface {
	// List returns all thresholds, active or not.
	List(ctx context.Context) ([]models.DepartmentThreshold, error)
	Get(ctx context.Context, department models.Department) (*models.DepartmentThreshold, error)
	// Upsert writes the threshold for its department and marks it active.
	Upsert(ctx context.Context, threshold *models.DepartmentThreshold) error
	Deactivate(ctx context.Context, department models.Department, by *primitive.ObjectID, at time.Time) error
}

type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListForUser(ctx context.Context, userID primitive.ObjectID, page, limit int) ([]models.Notification, int64, error)
	CountUnread(ctx context.Context, userID primitive.ObjectID) (int64, error)
	MarkRead(ctx context.Context, id, userID primitive.ObjectID) error
	MarkAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error)
}

// Normalize clamps paging values the way every List endpoint does.
func Normalize(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	return page, limit
}
