package service

import (
	"context"
	"testing"
	"time"

	"builders.to/backend/internal/dto"
	"builders.to/backend/internal/model"
	"builders.to/backend/pkg/apperror"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckAndSetRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	userID := uuid.New()

	allowed, err := CheckAndSetRateLimit(ctx, client, userID, "post_message", time.Second)
	require.NoError(t, err)
	assert.True(t, allowed)

	t.Run("second attempt inside the window is denied", func(t *testing.T) {
		allowed, err := CheckAndSetRateLimit(ctx, client, userID, "post_message", time.Second)
		require.NoError(t, err)
		assert.False(t, allowed)
	})

	t.Run("other actions are independent", func(t *testing.T) {
		allowed, err := CheckAndSetRateLimit(ctx, client, userID, "other_action", time.Second)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("other users are independent", func(t *testing.T) {
		allowed, err := CheckAndSetRateLimit(ctx, client, uuid.New(), "post_message", time.Second)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("allowed again after the window expires", func(t *testing.T) {
		mr.FastForward(2 * time.Second)
		allowed, err := CheckAndSetRateLimit(ctx, client, userID, "post_message", time.Second)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("deleting the key removes the lock", func(t *testing.T) {
		require.NoError(t, client.Del(ctx, rateLimitKey(userID, "post_message")).Err())
		allowed, err := CheckAndSetRateLimit(ctx, client, userID, "post_message", time.Second)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("nil client allows everything", func(t *testing.T) {
		allowed, err := CheckAndSetRateLimit(ctx, nil, userID, "post_message", time.Second)
		require.NoError(t, err)
		assert.True(t, allowed)
	})
}

func TestPostMessageRateLimited(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	users := newFakeUserRepo()
	channels := newFakeChannelRepo()
	messages := newFakeMessageRepo()
	svc := NewMessageService(messages, channels, nil, client, time.Second)

	sender := users.addUser("sender")
	ch := channels.addChannel(model.ChannelPublic)
	channels.addMember(ch.ID, sender.ID, model.RoleMember)
	ctx := context.Background()

	_, err := svc.PostMessage(ctx, ch.ID, sender.ID, dto.PostMessageRequest{Content: "first"})
	require.NoError(t, err)

	_, err = svc.PostMessage(ctx, ch.ID, sender.ID, dto.PostMessageRequest{Content: "too fast"})
	assert.ErrorIs(t, err, apperror.ErrRateLimitExceeded)

	mr.FastForward(2 * time.Second)
	_, err = svc.PostMessage(ctx, ch.ID, sender.ID, dto.PostMessageRequest{Content: "after cooldown"})
	assert.NoError(t, err)
}

func TestPostMessageHonorsConfiguredWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	users := newFakeUserRepo()
	channels := newFakeChannelRepo()
	messages := newFakeMessageRepo()
	svc := NewMessageService(messages, channels, nil, client, 3*time.Second)

	sender := users.addUser("sender")
	ch := channels.addChannel(model.ChannelPublic)
	channels.addMember(ch.ID, sender.ID, model.RoleMember)
	ctx := context.Background()

	_, err := svc.PostMessage(ctx, ch.ID, sender.ID, dto.PostMessageRequest{Content: "first"})
	require.NoError(t, err)

	// The default one-second window has passed, the configured one has not.
	mr.FastForward(2 * time.Second)
	_, err = svc.PostMessage(ctx, ch.ID, sender.ID, dto.PostMessageRequest{Content: "still limited"})
	assert.ErrorIs(t, err, apperror.ErrRateLimitExceeded)

	mr.FastForward(2 * time.Second)
	_, err = svc.PostMessage(ctx, ch.ID, sender.ID, dto.PostMessageRequest{Content: "allowed"})
	assert.NoError(t, err)
}
