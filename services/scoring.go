package services

import (
	"context"
	"fmt"
	"log"

	"fixit-be/apperrors"
	"fixit-be/models"
	"fixit-be/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PointEvent names an action that earns (or costs) impact points.
type PointEvent string

const (
	EventReportIssue       PointEvent = "REPORT_ISSUE"
	EventAIVerifiedReport  PointEvent = "AI_VERIFIED_REPORT"
	EventResolveIssue      PointEvent = "RESOLVE_ISSUE"
	EventConfirmResolution PointEvent = "CONFIRM_RESOLUTION"
	EventReceiveUpvote     PointEvent = "RECEIVE_UPVOTE"
	EventAddComment        PointEvent = "ADD_COMMENT"
	EventSpamPenalty       PointEvent = "SPAM_PENALTY"
)

var PointTable = map[PointEvent]int{
	EventReportIssue:       10,
	EventAIVerifiedReport:  5,
	EventResolveIssue:      20,
	EventConfirmResolution: 10,
	EventReceiveUpvote:     2,
	EventAddComment:        3,
	EventSpamPenalty:       -15,
}

type ScoreResult struct {
	PreviousScore int  `json:"previousScore"`
	Score         int  `json:"score"`
	Level         int  `json:"level"`
	LeveledUp     bool `json:"leveledUp"`
}

// Scorer applies point events to users. The read-modify-write is not
// serialized: concurrent awards to one user can lose an update.
type Scorer struct {
	users         repository.UserRepository
	notifications *NotificationService
}

func NewScorer(users repository.UserRepository, notifications *NotificationService) *Scorer {
	return &Scorer{users: users, notifications: notifications}
}

func (s *Scorer) AddPoints(ctx context.Context, userID primitive.ObjectID, event PointEvent) (*ScoreResult, error) {
	delta, ok := PointTable[event]
	if !ok {
		return nil, apperrors.Validation("unknown point event %q", event)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	currentLevel := user.Level
	if currentLevel < 1 {
		currentLevel = 1
	}
	result := &ScoreResult{
		PreviousScore: user.ImpactScore,
		Score:         user.ImpactScore + delta,
		Level:         models.LevelForScore(user.ImpactScore + delta),
	}
	// Levels are never taken away.
	if result.Level < currentLevel {
		result.Level = currentLevel
	}
	result.LeveledUp = result.Level > currentLevel

	if result.Score == user.ImpactScore && result.Level == user.Level {
		return result, nil
	}
	if err := s.users.UpdateScore(ctx, userID, result.Score, result.Level); err != nil {
		return nil, fmt.Errorf("updating score: %w", err)
	}

	if result.LeveledUp && s.notifications != nil {
		tier, _ := models.TierFor(result.Level)
		s.notifications.Notify(ctx, models.Notification{
			UserID:   userID,
			Type:     models.NotifyLevelUp,
			Title:    "Level up!",
			Message:  fmt.Sprintf("You reached level %d: %s", tier.Level, tier.Name),
			Priority: models.NotificationHigh,
		})
	}
	return result, nil
}

// award is AddPoints for side effects: errors are logged, not returned.
func (s *Scorer) award(ctx context.Context, userID *primitive.ObjectID, event PointEvent) {
	if s == nil || userID == nil {
		return
	}
	if _, err := s.AddPoints(ctx, *userID, event); err != nil {
		log.Printf("[SCORE] failed to award %s to %s: %v", event, userID.Hex(), err)
	}
}

// Stats summarizes a user's standing.
type Stats struct {
	ImpactScore     int                     `json:"impactScore"`
	Level           int                     `json:"level"`
	LevelName       string                  `json:"levelName"`
	NextLevelScore  *int                    `json:"nextLevelScore,omitempty"`
	Progress        int                     `json:"progress"`
	RedeemedRewards []models.RedeemedReward `json:"redeemedRewards"`
}

// StatsFor reports the user's level and percentage progress towards the next.
func StatsFor(user *models.User) Stats {
	level := user.Level
	if level < 1 {
		level = models.LevelForScore(user.ImpactScore)
	}
	tier, next := models.TierFor(level)
	stats := Stats{
		ImpactScore:     user.ImpactScore,
		Level:           tier.Level,
		LevelName:       tier.Name,
		Progress:        100,
		RedeemedRewards: user.RedeemedRewards,
	}
	if stats.RedeemedRewards == nil {
		stats.RedeemedRewards = []models.RedeemedReward{}
	}
	if next != nil {
		min := next.MinScore
		stats.NextLevelScore = &min
		span := next.MinScore - tier.MinScore
		gained := user.ImpactScore - tier.MinScore
		switch {
		case gained <= 0:
			stats.Progress = 0
		case gained >= span:
			stats.Progress = 100
		default:
			stats.Progress = gained * 100 / span
		}
	}
	return stats
}
