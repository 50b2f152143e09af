package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"builders.to/backend/internal/dto"
	"builders.to/backend/internal/model"
	"builders.to/backend/internal/repository"
	"builders.to/backend/pkg/apperror"
	"github.com/google/uuid"
)

type ModerationService interface {
	// PerformModAction writes the audit record first, then executes the
	// side effect. A failed side effect leaves the audit record standing.
	PerformModAction(ctx context.Context, channelID, moderatorID uuid.UUID, req dto.ModActionRequest) (*model.ChatModAction, error)
	GetChannelAuditLog(ctx context.Context, channelID, requesterID uuid.UUID, limit int) ([]model.ChatModAction, error)
}

type moderationService struct {
	moderationRepo      repository.ModerationRepository
	channelRepo         repository.ChannelRepository
	messageRepo         repository.MessageRepository
	notificationService NotificationService
}

func NewModerationService(moderationRepo repository.ModerationRepository, channelRepo repository.ChannelRepository, messageRepo repository.MessageRepository, notificationService NotificationService) ModerationService {
	return &moderationService{
		moderationRepo:      moderationRepo,
		channelRepo:         channelRepo,
		messageRepo:         messageRepo,
		notificationService: notificationService,
	}
}

func (s *moderationService) PerformModAction(ctx context.Context, channelID, moderatorID uuid.UUID, req dto.ModActionRequest) (*model.ChatModAction, error) {
	moderator, err := s.channelRepo.GetMember(ctx, channelID, moderatorID)
	if err != nil {
		return nil, fmt.Errorf("%w: not a channel member", apperror.ErrForbidden)
	}
	if !moderator.Role.AtLeast(model.RoleModerator) {
		return nil, fmt.Errorf("%w: requires moderator role", apperror.ErrForbidden)
	}
	if req.TargetUserID == moderatorID {
		return nil, fmt.Errorf("%w: cannot moderate yourself", apperror.ErrInvalidInput)
	}
	if model.ModActionType(req.Action) == model.ModDeleteMessage && req.MessageID == nil {
		return nil, fmt.Errorf("%w: delete-message requires a message id", apperror.ErrInvalidInput)
	}

	// A moderator cannot act on someone who outranks them. The target may
	// already be gone (e.g. re-banning) which is fine: the audit log does
	// not require a live membership.
	if target, err := s.channelRepo.GetMember(ctx, channelID, req.TargetUserID); err == nil {
		if target.Role.AtLeast(moderator.Role) && target.Role != moderator.Role {
			return nil, fmt.Errorf("%w: target outranks you", apperror.ErrForbidden)
		}
	}

	action := &model.ChatModAction{
		ChannelID:   channelID,
		TargetID:    req.TargetUserID,
		ModeratorID: moderatorID,
		Action:      model.ModActionType(req.Action),
		Reason:      req.Reason,
		MessageID:   req.MessageID,
	}
	if req.DurationSecs != nil {
		d := time.Duration(*req.DurationSecs) * time.Second
		action.Duration = &d
	}

	// The audit row commits before the side effect runs, and survives it
	// failing: completeness of the trail beats consistency with live state.
	if err := s.moderationRepo.CreateAction(ctx, action); err != nil {
		return nil, err
	}

	if err := s.applySideEffect(ctx, channelID, action); err != nil {
		log.Printf("moderation: side effect for %s (action %d) failed: %v", action.Action, action.ID, err)
	}

	s.notifyTarget(ctx, action)
	return action, nil
}

func (s *moderationService) applySideEffect(ctx context.Context, channelID uuid.UUID, action *model.ChatModAction) error {
	switch action.Action {
	case model.ModBanUser:
		return s.channelRepo.DeleteMember(ctx, channelID, action.TargetID)
	case model.ModUnbanUser:
		// Removing the ban record is enough; re-joining goes through the
		// normal join/invite path.
		return nil
	case model.ModMuteUser:
		until := time.Now().Add(time.Hour)
		if action.Duration != nil {
			until = time.Now().Add(*action.Duration)
		}
		return s.channelRepo.SetMutedUntil(ctx, channelID, action.TargetID, &until)
	case model.ModDeleteMessage:
		if action.MessageID == nil {
			return fmt.Errorf("%w: delete-message needs a message id", apperror.ErrInvalidInput)
		}
		return s.messageRepo.SoftDelete(ctx, *action.MessageID, action.ModeratorID)
	default:
		return fmt.Errorf("%w: unknown mod action %q", apperror.ErrInvalidInput, action.Action)
	}
}

func (s *moderationService) notifyTarget(ctx context.Context, action *model.ChatModAction) {
	if s.notificationService == nil {
		return
	}

	reason := ""
	if action.Reason != nil {
		reason = ": " + *action.Reason
	}
	err := s.notificationService.CreateNotification(ctx, &model.Notification{
		UserID:  action.TargetID,
		ActorID: &action.ModeratorID,
		Type:    model.NotificationModAction,
		Title:   "Moderation notice",
		Message: fmt.Sprintf("A moderator took action (%s)%s", action.Action, reason),
	})
	if err != nil {
		log.Printf("moderation: failed to notify target %s: %v", action.TargetID, err)
	}
}

func (s *moderationService) GetChannelAuditLog(ctx context.Context, channelID, requesterID uuid.UUID, limit int) ([]model.ChatModAction, error) {
	member, err := s.channelRepo.GetMember(ctx, channelID, requesterID)
	if err != nil {
		return nil, fmt.Errorf("%w: not a channel member", apperror.ErrForbidden)
	}
	if !member.Role.AtLeast(model.RoleModerator) {
		return nil, fmt.Errorf("%w: requires moderator role", apperror.ErrForbidden)
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.moderationRepo.ListByChannel(ctx, channelID, limit)
}
