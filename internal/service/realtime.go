package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	EventMessagePosted   = "message_posted"
	EventMessageEdited   = "message_edited"
	EventMessageDeleted  = "message_deleted"
	EventMessagePinned   = "message_pinned"
	EventMessageUnpinned = "message_unpinned"
	EventReactionToggled = "reaction_toggled"
	EventMemberJoined    = "member_joined"
	EventMemberLeft      = "member_left"
)

// ChatEvent is what goes over the wire to connected clients. The store
// write is the durable fact; this stream is best-effort.
type ChatEvent struct {
	Type      string      `json:"type"`
	ChannelID uuid.UUID   `json:"channel_id"`
	Payload   interface{} `json:"payload,omitempty"`
	At        time.Time   `json:"at"`
}

// ChatEventChannel is the redis pub/sub channel for one chat channel.
func ChatEventChannel(channelID uuid.UUID) string {
	return fmt.Sprintf("chat_channel:%s", channelID.String())
}

// ChatEventPublisher fans chat events out to connected clients via redis.
// Publishing never blocks or fails the write path: errors are logged and
// dropped.
type ChatEventPublisher interface {
	Publish(ctx context.Context, event ChatEvent)
}

type chatEventPublisher struct {
	redisClient *redis.Client
}

func NewChatEventPublisher(redisClient *redis.Client) ChatEventPublisher {
	return &chatEventPublisher{redisClient: redisClient}
}

func (p *chatEventPublisher) Publish(ctx context.Context, event ChatEvent) {
	if p.redisClient == nil {
		return
	}
	if event.At.IsZero() {
		event.At = time.Now()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("realtime: failed to marshal %s event: %v", event.Type, err)
		return
	}

	if err := p.redisClient.Publish(ctx, ChatEventChannel(event.ChannelID), payload).Err(); err != nil {
		log.Printf("realtime: failed to publish %s event: %v", event.Type, err)
	}
}
