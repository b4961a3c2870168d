package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IssueStatus enum
type IssueStatus string

const (
	StatusReported   IssueStatus = "reported"
	StatusInProgress IssueStatus = "in_progress"
	StatusResolved   IssueStatus = "resolved"
	StatusClosed     IssueStatus = "closed"
)

var IssueStatuses = []IssueStatus{StatusReported, StatusInProgress, StatusResolved, StatusClosed}

func (s IssueStatus) Valid() bool {
	switch s {
	case StatusReported, StatusInProgress, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// Open reports whether work on the issue is still outstanding.
func (s IssueStatus) Open() bool {
	return s == StatusReported || s == StatusInProgress
}

// Severity enum
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Priority enum, derived from the vote balance.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// DerivePriority maps a net vote balance (upvotes - downvotes) to a priority.
func DerivePriority(balance int) Priority {
	switch {
	case balance >= 10:
		return PriorityUrgent
	case balance >= 5:
		return PriorityHigh
	case balance >= 0:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// ResolutionStatus tracks the reporter's review of a fix.
type ResolutionStatus string

const (
	ResolutionPendingReview ResolutionStatus = "pending_review"
	ResolutionVerified      ResolutionStatus = "verified"
	ResolutionRejected      ResolutionStatus = "rejected"
)

// Location is a GeoJSON point plus the human readable address.
type Location struct {
	Type        string    `bson:"type" json:"type"`
	Coordinates []float64 `bson:"coordinates" json:"coordinates"`
	Address     string    `bson:"address,omitempty" json:"address,omitempty"`
}

func NewLocation(latitude, longitude float64, address string) Location {
	return Location{Type: "Point", Coordinates: []float64{longitude, latitude}, Address: address}
}

func (l Location) Longitude() float64 {
	if len(l.Coordinates) < 2 {
		return 0
	}
	return l.Coordinates[0]
}

func (l Location) Latitude() float64 {
	if len(l.Coordinates) < 2 {
		return 0
	}
	return l.Coordinates[1]
}

// ValidateCoordinates checks latitude and longitude ranges.
func ValidateCoordinates(latitude, longitude float64) error {
	if latitude < -90 || latitude > 90 {
		return fmt.Errorf("latitude %v out of range [-90, 90]", latitude)
	}
	if longitude < -180 || longitude > 180 {
		return fmt.Errorf("longitude %v out of range [-180, 180]", longitude)
	}
	return nil
}

// StatusLogEntry is one immutable record of a status change.
type StatusLogEntry struct {
	Status    IssueStatus         `bson:"status" json:"status"`
	ChangedAt time.Time           `bson:"changedAt" json:"changedAt"`
	ChangedBy *primitive.ObjectID `bson:"changedBy,omitempty" json:"changedBy,omitempty"`
	Note      string              `bson:"note,omitempty" json:"note,omitempty"`
}

type Comment struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	Author    primitive.ObjectID `bson:"author" json:"author"`
	Text      string             `bson:"text" json:"text"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// Issue represents a civic issue reported by a user
type Issue struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
	Category    Department         `bson:"category" json:"category"`
	Severity    Severity           `bson:"severity" json:"severity"`
	Priority    Priority           `bson:"priority" json:"priority"`
	Status      IssueStatus        `bson:"status" json:"status"`
	Location    Location           `bson:"location" json:"location"`
	H3Index     string             `bson:"h3Index,omitempty" json:"h3Index,omitempty"`
	Images      []string           `bson:"images" json:"images"`
	IsAnonymous bool               `bson:"isAnonymous" json:"isAnonymous"`
	Tags        []string           `bson:"tags" json:"tags"`
	AIVerified  bool               `bson:"aiVerified" json:"aiVerified"`

	ReportedBy *primitive.ObjectID `bson:"reportedBy,omitempty" json:"reportedBy,omitempty"`
	AssignedTo *primitive.ObjectID `bson:"assignedTo,omitempty" json:"assignedTo,omitempty"`

	StatusLog  []StatusLogEntry     `bson:"statusLog" json:"statusLog"`
	Comments   []Comment            `bson:"comments" json:"comments"`
	Upvoters   []primitive.ObjectID `bson:"upvoters" json:"-"`
	Downvoters []primitive.ObjectID `bson:"downvoters" json:"-"`

	WorkStartedAt        *time.Time       `bson:"workStartedAt,omitempty" json:"workStartedAt,omitempty"`
	WorkStartedImage     string           `bson:"workStartedImage,omitempty" json:"workStartedImage,omitempty"`
	ResolvedAt           *time.Time       `bson:"resolvedAt,omitempty" json:"resolvedAt,omitempty"`
	ResolutionImage      string           `bson:"resolutionImage,omitempty" json:"resolutionImage,omitempty"`
	ResolutionStatus     ResolutionStatus `bson:"resolutionStatus,omitempty" json:"resolutionStatus,omitempty"`
	ResolutionConfidence *int             `bson:"resolutionConfidence,omitempty" json:"resolutionConfidence,omitempty"`
	ClosedAt             *time.Time       `bson:"closedAt,omitempty" json:"closedAt,omitempty"`

	IsActive  bool      `bson:"isActive" json:"isActive"`
	IsSpam    bool      `bson:"isSpam" json:"isSpam"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

func (i *Issue) IsReporter(userID primitive.ObjectID) bool {
	return i.ReportedBy != nil && *i.ReportedBy == userID
}

func (i *Issue) IsAssignee(userID primitive.ObjectID) bool {
	return i.AssignedTo != nil && *i.AssignedTo == userID
}

// AppendStatus sets the status and records it in the log. The entry's
// timestamp never precedes the previous entry's.
func (i *Issue) AppendStatus(status IssueStatus, actor *primitive.ObjectID, note string, now time.Time) {
	if n := len(i.StatusLog); n > 0 && now.Before(i.StatusLog[n-1].ChangedAt) {
		now = i.StatusLog[n-1].ChangedAt
	}
	i.Status = status
	i.StatusLog = append(i.StatusLog, StatusLogEntry{
		Status:    status,
		ChangedAt: now,
		ChangedBy: actor,
		Note:      note,
	})
	i.UpdatedAt = now
}

// LastTransitionTo returns when the issue most recently entered status.
func (i *Issue) LastTransitionTo(status IssueStatus) (time.Time, bool) {
	for idx := len(i.StatusLog) - 1; idx >= 0; idx-- {
		if i.StatusLog[idx].Status == status {
			return i.StatusLog[idx].ChangedAt, true
		}
	}
	return time.Time{}, false
}
