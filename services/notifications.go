package services

import (
	"context"
	"log"
	"time"

	"fixit-be/models"
	"fixit-be/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationService stores notifications and serves the polling reads.
type NotificationService struct {
	repo repository.NotificationRepository
	now  func() time.Time
}

func NewNotificationService(repo repository.NotificationRepository) *NotificationService {
	return &NotificationService{repo: repo, now: time.Now}
}

// Notify records a notification. Failures are logged and swallowed: the
// write that triggered the notification has already succeeded.
func (s *NotificationService) Notify(ctx context.Context, n models.Notification) {
	if n.UserID.IsZero() {
		return
	}
	if n.Priority == "" {
		n.Priority = models.NotificationNormal
	}
	n.Read = false
	n.CreatedAt = s.now()
	if err := s.repo.Create(ctx, &n); err != nil {
		log.Printf("[NOTIFY] failed to store %s notification for user %s: %v", n.Type, n.UserID.Hex(), err)
	}
}

type NotificationPage struct {
	Notifications []models.Notification `json:"notifications"`
	Total         int64                 `json:"total"`
	TotalPages    int                   `json:"totalPages"`
	CurrentPage   int                   `json:"currentPage"`
}

func (s *NotificationService) List(ctx context.Context, userID primitive.ObjectID, page, limit int) (*NotificationPage, error) {
	page, limit = repository.Normalize(page, limit)
	items, total, err := s.repo.ListForUser(ctx, userID, page, limit)
	if err != nil {
		return nil, err
	}
	return &NotificationPage{
		Notifications: items,
		Total:         total,
		TotalPages:    int((total + int64(limit) - 1) / int64(limit)),
		CurrentPage:   page,
	}, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *NotificationService) MarkRead(ctx context.Context, id, userID primitive.ObjectID) error {
	return s.repo.MarkRead(ctx, id, userID)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}
