package services_test

import (
	"context"
	"testing"

	"fixit-be/apperrors"
	"fixit-be/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestNotificationService_Flow(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	user := primitive.NewObjectID()

	for i := 0; i < 3; i++ {
		e.notifier.Notify(ctx, models.Notification{UserID: user, Type: models.NotifyComment, Title: "New comment"})
	}
	e.notifier.Notify(ctx, models.Notification{Type: models.NotifyComment})

	page, err := e.notifier.List(ctx, user, 1, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Notifications, 2)
	assert.Equal(t, models.NotificationNormal, page.Notifications[0].Priority)

	require.NoError(t, e.notifier.MarkRead(ctx, page.Notifications[0].ID, user))
	unread, err := e.notifier.UnreadCount(ctx, user)
	require.NoError(t, err)
	assert.EqualValues(t, 2, unread)

	err = e.notifier.MarkRead(ctx, page.Notifications[0].ID, primitive.NewObjectID())
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))

	n, err := e.notifier.MarkAllRead(ctx, user)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestNotify_StoreFailureIsSwallowed(t *testing.T) {
	e := newEnv(t, nil)
	e.notifications.Err = errBoom

	assert.NotPanics(t, func() {
		e.notifier.Notify(context.Background(), models.Notification{UserID: primitive.NewObjectID()})
	})
}
