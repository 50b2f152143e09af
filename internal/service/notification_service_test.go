package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"builders.to/backend/internal/model"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserNotificationChannel(t *testing.T) {
	userID := uuid.New()
	assert.Equal(t, "user_notifications:"+userID.String(), UserNotificationChannel(userID))
}

func TestCreateNotification(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	repo := newFakeNotificationRepo()
	svc := NewNotificationService(repo, client)

	ctx := context.Background()
	userID := uuid.New()

	pubsub := client.Subscribe(ctx, UserNotificationChannel(userID))
	defer pubsub.Close()
	_, err := pubsub.Receive(ctx)
	require.NoError(t, err)

	err = svc.CreateNotification(ctx, &model.Notification{
		UserID:  userID,
		Type:    model.NotificationTokensCredited,
		Title:   "Tokens received",
		Message: "You received 25 tokens",
	})
	require.NoError(t, err)

	require.Len(t, repo.notifications, 1)
	assert.Equal(t, model.NotificationTokensCredited, repo.notifications[0].Type)

	select {
	case msg := <-pubsub.Channel():
		var got model.Notification
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, userID, got.UserID)
		assert.Equal(t, model.NotificationTokensCredited, got.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("no notification arrived on the user channel")
	}

	t.Run("unread count and mark all as read", func(t *testing.T) {
		count, err := svc.UnreadCount(userID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		require.NoError(t, svc.MarkAllAsRead(userID))
		count, err = svc.UnreadCount(userID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)
	})
}

func TestCreateNotificationWithoutRedis(t *testing.T) {
	repo := newFakeNotificationRepo()
	svc := NewNotificationService(repo, nil)

	err := svc.CreateNotification(context.Background(), &model.Notification{
		UserID: uuid.New(),
		Type:   model.NotificationModAction,
		Title:  "Moderation notice",
	})
	require.NoError(t, err)
	assert.Len(t, repo.notifications, 1)
}
