package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fixit-be/apperrors"
	"fixit-be/models"
	"fixit-be/repository"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RewardView struct {
	models.Reward
	Unlocked bool `json:"unlocked"`
	Redeemed bool `json:"redeemed"`
}

// RewardService serves the level-gated reward catalogue. Redeeming does not
// spend points.
type RewardService struct {
	users         repository.UserRepository
	notifications *NotificationService
	now           func() time.Time
}

func NewRewardService(users repository.UserRepository, notifications *NotificationService) *RewardService {
	return &RewardService{users: users, notifications: notifications, now: time.Now}
}

func (s *RewardService) Catalog(user *models.User) []RewardView {
	views := make([]RewardView, 0, len(models.RewardCatalog))
	for _, r := range models.RewardCatalog {
		views = append(views, RewardView{
			Reward:   r,
			Unlocked: user != nil && user.Level >= r.MinLevel,
			Redeemed: user != nil && user.HasRedeemed(r.ID),
		})
	}
	return views
}

func (s *RewardService) Stats(ctx context.Context, userID primitive.ObjectID) (*Stats, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	stats := StatsFor(user)
	return &stats, nil
}

func (s *RewardService) Redeem(ctx context.Context, userID primitive.ObjectID, rewardID string) (*models.RedeemedReward, error) {
	reward, ok := models.FindReward(rewardID)
	if !ok {
		return nil, apperrors.NotFound("Reward")
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Level < reward.MinLevel {
		return nil, apperrors.Forbidden(fmt.Sprintf("Reach level %d to redeem %s", reward.MinLevel, reward.Name))
	}
	if user.HasRedeemed(reward.ID) {
		return nil, apperrors.Validation("Reward %s has already been redeemed", reward.ID)
	}

	redeemed := models.RedeemedReward{
		RewardID:   reward.ID,
		Code:       strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12]),
		RedeemedAt: s.now(),
	}
	if err := s.users.AddRedeemedReward(ctx, userID, redeemed); err != nil {
		return nil, err
	}

	if s.notifications != nil {
		s.notifications.Notify(ctx, models.Notification{
			UserID:  userID,
			Type:    models.NotifyRewardRedeemed,
			Title:   "Reward redeemed",
			Message: fmt.Sprintf("Your code for %s is %s", reward.Name, redeemed.Code),
		})
	}
	return &redeemed, nil
}
