package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationType string

const (
	NotifyStatusUpdate     NotificationType = "status_update"
	NotifyAssignment       NotificationType = "assignment"
	NotifyResolutionReview NotificationType = "resolution_review"
	NotifyComment          NotificationType = "comment"
	NotifyPointsAwarded    NotificationType = "points_awarded"
	NotifyLevelUp          NotificationType = "level_up"
	NotifyRewardRedeemed   NotificationType = "reward_redeemed"
)

type NotificationPriority string

const (
	NotificationLow    NotificationPriority = "low"
	NotificationNormal NotificationPriority = "normal"
	NotificationHigh   NotificationPriority = "high"
)

type Notification struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID   `bson:"userId" json:"userId"`
	Type      NotificationType     `bson:"type" json:"type"`
	Title     string               `bson:"title" json:"title"`
	Message   string               `bson:"message" json:"message"`
	Priority  NotificationPriority `bson:"priority" json:"priority"`
	Read      bool                 `bson:"read" json:"read"`
	IssueID   *primitive.ObjectID  `bson:"issueId,omitempty" json:"issueId,omitempty"`
	CreatedAt time.Time            `bson:"createdAt" json:"createdAt"`
}

// IssueEventType names the messages published on the issue events queue.
type IssueEventType string

const (
	IssueCreated       IssueEventType = "issue.created"
	IssueStatusChanged IssueEventType = "issue.status_changed"
)

type IssueEvent struct {
	Type       IssueEventType `json:"type"`
	IssueID    string         `json:"issueId"`
	Status     IssueStatus    `json:"status"`
	ActorID    string         `json:"actorId,omitempty"`
	OccurredAt time.Time      `json:"occurredAt"`
}

// ImageAnalysis is what the image analysis service returns for a report photo.
type ImageAnalysis struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Severity    string   `json:"severity"`
	Tags        []string `json:"tags"`
	IsRelevant  bool     `json:"is_relevant"`
}
