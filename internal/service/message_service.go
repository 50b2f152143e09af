package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"builders.to/backend/internal/dto"
	"builders.to/backend/internal/model"
	"builders.to/backend/internal/repository"
	"builders.to/backend/pkg/apperror"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
)

// defaultMessageRateLimit applies when no window is configured.
const defaultMessageRateLimit = time.Second

type MessageService interface {
	PostMessage(ctx context.Context, channelID, senderID uuid.UUID, req dto.PostMessageRequest) (*model.Message, error)
	EditMessage(ctx context.Context, messageID, editorID uuid.UUID, content string) (*model.Message, error)
	DeleteMessage(ctx context.Context, messageID, actorID uuid.UUID) error
	PinMessage(ctx context.Context, messageID, actorID uuid.UUID) error
	UnpinMessage(ctx context.Context, messageID, actorID uuid.UUID) error

	ListMessages(ctx context.Context, channelID, requesterID uuid.UUID, limit int, cursor string) (*dto.MessagePageResponse, error)
	GetThread(ctx context.Context, parentMessageID, requesterID uuid.UUID, limit int, cursor string) (*dto.MessagePageResponse, error)
	SearchMessages(ctx context.Context, requesterID uuid.UUID, query string, channelID *uuid.UUID, limit int) ([]dto.MessageResponse, error)

	ToggleReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) (bool, error)
	ToggleBookmark(ctx context.Context, messageID, userID uuid.UUID) (bool, error)
	ListBookmarks(ctx context.Context, userID uuid.UUID) ([]model.Bookmark, error)
}

type messageService struct {
	messageRepo repository.MessageRepository
	channelRepo repository.ChannelRepository
	publisher   ChatEventPublisher
	redisClient *redis.Client
	rateLimit   time.Duration
	sanitizer   *bluemonday.Policy
}

func NewMessageService(messageRepo repository.MessageRepository, channelRepo repository.ChannelRepository, publisher ChatEventPublisher, redisClient *redis.Client, rateLimit time.Duration) MessageService {
	if rateLimit <= 0 {
		rateLimit = defaultMessageRateLimit
	}
	return &messageService{
		messageRepo: messageRepo,
		channelRepo: channelRepo,
		publisher:   publisher,
		redisClient: redisClient,
		rateLimit:   rateLimit,
		sanitizer:   bluemonday.StrictPolicy(),
	}
}

func (s *messageService) PostMessage(ctx context.Context, channelID, senderID uuid.UUID, req dto.PostMessageRequest) (*model.Message, error) {
	member, err := s.channelRepo.GetMember(ctx, channelID, senderID)
	if err != nil {
		return nil, fmt.Errorf("%w: not a channel member", apperror.ErrForbidden)
	}
	if member.MutedUntil != nil && member.MutedUntil.After(time.Now()) {
		return nil, fmt.Errorf("%w: you are muted in this channel", apperror.ErrForbidden)
	}

	channel, err := s.channelRepo.FindByID(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if channel.IsArchived {
		return nil, fmt.Errorf("%w: channel is archived", apperror.ErrForbidden)
	}

	content := strings.TrimSpace(s.sanitizer.Sanitize(req.Content))
	if content == "" {
		return nil, fmt.Errorf("%w: message is empty", apperror.ErrInvalidInput)
	}

	if req.ThreadParentID != nil {
		parent, err := s.messageRepo.FindByID(ctx, *req.ThreadParentID)
		if err != nil {
			return nil, fmt.Errorf("%w: thread parent not found", apperror.ErrInvalidInput)
		}
		if parent.ChannelID != channelID {
			return nil, fmt.Errorf("%w: thread parent is in another channel", apperror.ErrInvalidInput)
		}
		// One level only: replying to a reply is rejected.
		if parent.ThreadParentID != nil {
			return nil, fmt.Errorf("%w: cannot reply to a thread reply", apperror.ErrInvalidInput)
		}
	}

	allowed, err := CheckAndSetRateLimit(ctx, s.redisClient, senderID, "post_message", s.rateLimit)
	if err == nil && !allowed {
		return nil, apperror.ErrRateLimitExceeded
	}

	message := &model.Message{
		ChannelID:      channelID,
		SenderID:       senderID,
		Content:        content,
		ThreadParentID: req.ThreadParentID,
	}
	if err := s.messageRepo.Create(ctx, message); err != nil {
		return nil, err
	}

	s.publish(ctx, EventMessagePosted, message)
	return message, nil
}

func (s *messageService) EditMessage(ctx context.Context, messageID, editorID uuid.UUID, content string) (*model.Message, error) {
	message, err := s.messageRepo.FindByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if message.SenderID != editorID {
		return nil, fmt.Errorf("%w: only the sender can edit a message", apperror.ErrForbidden)
	}
	if message.IsDeleted {
		return nil, fmt.Errorf("%w: message was deleted", apperror.ErrConflict)
	}

	sanitized := strings.TrimSpace(s.sanitizer.Sanitize(content))
	if sanitized == "" {
		return nil, fmt.Errorf("%w: message is empty", apperror.ErrInvalidInput)
	}

	now := time.Now()
	if err := s.messageRepo.UpdateContent(ctx, messageID, sanitized, now); err != nil {
		return nil, err
	}
	message.Content = sanitized
	message.EditedAt = &now

	s.publish(ctx, EventMessageEdited, message)
	return message, nil
}

func (s *messageService) DeleteMessage(ctx context.Context, messageID, actorID uuid.UUID) error {
	message, err := s.messageRepo.FindByID(ctx, messageID)
	if err != nil {
		return err
	}
	if message.IsDeleted {
		return nil // already gone, nothing to do
	}

	if message.SenderID != actorID {
		// Not the sender: needs moderator rank in the channel.
		member, err := s.channelRepo.GetMember(ctx, message.ChannelID, actorID)
		if err != nil || !member.Role.AtLeast(model.RoleModerator) {
			return fmt.Errorf("%w: requires moderator role", apperror.ErrForbidden)
		}
	}

	if err := s.messageRepo.SoftDelete(ctx, messageID, actorID); err != nil {
		return err
	}

	s.publish(ctx, EventMessageDeleted, map[string]string{
		"message_id": messageID.String(),
		"channel_id": message.ChannelID.String(),
	})
	return nil
}

func (s *messageService) PinMessage(ctx context.Context, messageID, actorID uuid.UUID) error {
	return s.setPinned(ctx, messageID, actorID, true)
}

func (s *messageService) UnpinMessage(ctx context.Context, messageID, actorID uuid.UUID) error {
	return s.setPinned(ctx, messageID, actorID, false)
}

func (s *messageService) setPinned(ctx context.Context, messageID, actorID uuid.UUID, pinned bool) error {
	message, err := s.messageRepo.FindByID(ctx, messageID)
	if err != nil {
		return err
	}

	member, err := s.channelRepo.GetMember(ctx, message.ChannelID, actorID)
	if err != nil || !member.Role.AtLeast(model.RoleModerator) {
		return fmt.Errorf("%w: requires moderator role", apperror.ErrForbidden)
	}

	var pinnedBy *uuid.UUID
	event := EventMessageUnpinned
	if pinned {
		pinnedBy = &actorID
		event = EventMessagePinned
	}
	if err := s.messageRepo.SetPinned(ctx, messageID, pinned, pinnedBy); err != nil {
		return err
	}

	s.publish(ctx, event, map[string]string{
		"message_id": messageID.String(),
		"channel_id": message.ChannelID.String(),
		"actor_id":   actorID.String(),
	})
	return nil
}

func (s *messageService) ListMessages(ctx context.Context, channelID, requesterID uuid.UUID, limit int, cursor string) (*dto.MessagePageResponse, error) {
	if _, err := s.channelRepo.GetMember(ctx, channelID, requesterID); err != nil {
		return nil, fmt.Errorf("%w: not a channel member", apperror.ErrForbidden)
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	before, beforeID, err := decodeMessageCursor(cursor)
	if err != nil {
		return nil, fmt.Errorf("%w: bad cursor", apperror.ErrInvalidInput)
	}

	messages, err := s.messageRepo.ListByChannel(ctx, channelID, limit+1, before, beforeID)
	if err != nil {
		return nil, err
	}

	return buildMessagePage(messages, limit), nil
}

func (s *messageService) GetThread(ctx context.Context, parentMessageID, requesterID uuid.UUID, limit int, cursor string) (*dto.MessagePageResponse, error) {
	parent, err := s.messageRepo.FindByID(ctx, parentMessageID)
	if err != nil {
		return nil, err
	}

	// Thread content is member-only even when the channel is public.
	if _, err := s.channelRepo.GetMember(ctx, parent.ChannelID, requesterID); err != nil {
		return nil, fmt.Errorf("%w: not a channel member", apperror.ErrForbidden)
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	after, afterID, err := decodeMessageCursor(cursor)
	if err != nil {
		return nil, fmt.Errorf("%w: bad cursor", apperror.ErrInvalidInput)
	}

	replies, err := s.messageRepo.ListThread(ctx, parentMessageID, limit+1, after, afterID)
	if err != nil {
		return nil, err
	}

	return buildMessagePage(replies, limit), nil
}

func (s *messageService) SearchMessages(ctx context.Context, requesterID uuid.UUID, query string, channelID *uuid.UUID, limit int) ([]dto.MessageResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty search query", apperror.ErrInvalidInput)
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var channelIDs []uuid.UUID
	if channelID != nil {
		if _, err := s.channelRepo.GetMember(ctx, *channelID, requesterID); err != nil {
			return nil, fmt.Errorf("%w: not a channel member", apperror.ErrForbidden)
		}
		channelIDs = []uuid.UUID{*channelID}
	} else {
		ids, err := s.channelRepo.ListMemberChannelIDs(ctx, requesterID)
		if err != nil {
			return nil, err
		}
		channelIDs = ids
	}

	messages, err := s.messageRepo.Search(ctx, channelIDs, query, limit)
	if err != nil {
		return nil, err
	}

	results := make([]dto.MessageResponse, 0, len(messages))
	for _, m := range messages {
		results = append(results, toMessageResponse(m))
	}
	return results, nil
}

func (s *messageService) ToggleReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) (bool, error) {
	message, err := s.messageRepo.FindByID(ctx, messageID)
	if err != nil {
		return false, err
	}
	if _, err := s.channelRepo.GetMember(ctx, message.ChannelID, userID); err != nil {
		return false, fmt.Errorf("%w: not a channel member", apperror.ErrForbidden)
	}

	present, err := s.messageRepo.ToggleReaction(ctx, messageID, userID, emoji)
	if err != nil {
		return false, err
	}

	s.publish(ctx, EventReactionToggled, map[string]interface{}{
		"message_id": messageID.String(),
		"channel_id": message.ChannelID.String(),
		"user_id":    userID.String(),
		"emoji":      emoji,
		"present":    present,
	})
	return present, nil
}

func (s *messageService) ToggleBookmark(ctx context.Context, messageID, userID uuid.UUID) (bool, error) {
	// Membership check on toggle only; existing bookmarks survive leaving
	// the channel.
	message, err := s.messageRepo.FindByID(ctx, messageID)
	if err != nil {
		return false, err
	}
	if _, err := s.channelRepo.GetMember(ctx, message.ChannelID, userID); err != nil {
		return false, fmt.Errorf("%w: not a channel member", apperror.ErrForbidden)
	}

	return s.messageRepo.ToggleBookmark(ctx, messageID, userID)
}

func (s *messageService) ListBookmarks(ctx context.Context, userID uuid.UUID) ([]model.Bookmark, error) {
	return s.messageRepo.ListBookmarks(ctx, userID)
}

func (s *messageService) publish(ctx context.Context, event string, payload interface{}) {
	if s.publisher == nil {
		return
	}

	var channelID uuid.UUID
	switch p := payload.(type) {
	case *model.Message:
		channelID = p.ChannelID
	case map[string]string:
		channelID, _ = uuid.Parse(p["channel_id"])
	case map[string]interface{}:
		if id, ok := p["channel_id"].(string); ok {
			channelID, _ = uuid.Parse(id)
		}
	}

	s.publisher.Publish(ctx, ChatEvent{
		Type:      event,
		ChannelID: channelID,
		Payload:   payload,
	})
}

func buildMessagePage(messages []model.Message, limit int) *dto.MessagePageResponse {
	hasMore := len(messages) > limit
	if hasMore {
		messages = messages[:limit]
	}

	resp := &dto.MessagePageResponse{
		Data: make([]dto.MessageResponse, 0, len(messages)),
		Meta: dto.PaginationMeta{HasMore: hasMore},
	}
	for _, m := range messages {
		resp.Data = append(resp.Data, toMessageResponse(m))
	}
	if hasMore && len(messages) > 0 {
		last := messages[len(messages)-1]
		resp.Meta.NextCursor = encodeMessageCursor(last.CreatedAt, last.ID)
	}
	return resp
}

func toMessageResponse(m model.Message) dto.MessageResponse {
	return dto.MessageResponse{
		ID:             m.ID,
		ChannelID:      m.ChannelID,
		SenderID:       m.SenderID,
		Content:        m.Content,
		ThreadParentID: m.ThreadParentID,
		IsDeleted:      m.IsDeleted,
		IsPinned:       m.IsPinned,
		EditedAt:       m.EditedAt,
		CreatedAt:      m.CreatedAt,
	}
}

func encodeMessageCursor(at time.Time, id uuid.UUID) string {
	raw := strconv.FormatInt(at.UnixNano(), 10) + "|" + id.String()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeMessageCursor(cursor string) (*time.Time, *uuid.UUID, error) {
	if cursor == "" {
		return nil, nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, nil, err
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 {
		return nil, nil, fmt.Errorf("malformed cursor")
	}
	nanos, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return nil, nil, err
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return nil, nil, err
	}
	at := time.Unix(0, nanos)
	return &at, &id, nil
}
