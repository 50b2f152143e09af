package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"builders.to/backend/internal/dto"
	"builders.to/backend/internal/model"
	"builders.to/backend/internal/repository"
	"builders.to/backend/pkg/apperror"
	"github.com/google/uuid"
)

type ChannelService interface {
	CreateChannel(ctx context.Context, creatorID uuid.UUID, req dto.CreateChannelRequest) (*model.Channel, error)
	CreateDM(ctx context.Context, userID, targetUserID uuid.UUID) (*model.Channel, error)
	ArchiveChannel(ctx context.Context, channelID, actorID uuid.UUID) error

	InviteToChannel(ctx context.Context, channelID, inviterID, inviteeID uuid.UUID) error
	AcceptInvite(ctx context.Context, channelID, inviteeID uuid.UUID) error
	DeclineInvite(ctx context.Context, channelID, inviteeID uuid.UUID) error
	JoinChannel(ctx context.Context, channelID, userID uuid.UUID) error
	LeaveChannel(ctx context.Context, channelID, userID uuid.UUID) error
	SetRole(ctx context.Context, channelID, actorID, targetID uuid.UUID, role model.ChannelRole) error

	DiscoverChannels(ctx context.Context, requesterID uuid.UUID, query string, categoryID *uuid.UUID) ([]dto.ChannelResponse, error)
	GetMember(ctx context.Context, channelID, userID uuid.UUID) (*model.ChannelMember, error)
	MarkRead(ctx context.Context, channelID, userID, messageID uuid.UUID) error
	UnreadCount(ctx context.Context, channelID, userID uuid.UUID) (int64, error)
}

type channelService struct {
	channelRepo         repository.ChannelRepository
	messageRepo         repository.MessageRepository
	userRepo            repository.UserRepository
	notificationService NotificationService
	publisher           ChatEventPublisher
}

func NewChannelService(channelRepo repository.ChannelRepository, messageRepo repository.MessageRepository, userRepo repository.UserRepository, notificationService NotificationService, publisher ChatEventPublisher) ChannelService {
	return &channelService{
		channelRepo:         channelRepo,
		messageRepo:         messageRepo,
		userRepo:            userRepo,
		notificationService: notificationService,
		publisher:           publisher,
	}
}

func (s *channelService) CreateChannel(ctx context.Context, creatorID uuid.UUID, req dto.CreateChannelRequest) (*model.Channel, error) {
	slug := slugify(req.Name)
	if existing, _ := s.channelRepo.FindBySlug(ctx, slug); existing != nil {
		return nil, fmt.Errorf("%w: a channel named %q already exists", apperror.ErrConflict, req.Name)
	}

	channel := &model.Channel{
		Name:        req.Name,
		Slug:        slug,
		Type:        model.ChannelType(req.Type),
		Topic:       req.Topic,
		Description: req.Description,
		CategoryID:  req.CategoryID,
	}
	if err := s.channelRepo.Create(ctx, channel); err != nil {
		return nil, err
	}

	// Creator becomes OWNER.
	member := &model.ChannelMember{
		ChannelID: channel.ID,
		UserID:    creatorID,
		Role:      model.RoleOwner,
	}
	if err := s.channelRepo.CreateMember(ctx, member); err != nil {
		return nil, err
	}

	return channel, nil
}

func (s *channelService) CreateDM(ctx context.Context, userID, targetUserID uuid.UUID) (*model.Channel, error) {
	if userID == targetUserID {
		return nil, fmt.Errorf("%w: cannot open a DM with yourself", apperror.ErrInvalidInput)
	}
	if _, err := s.userRepo.FindByID(ctx, targetUserID); err != nil {
		return nil, err
	}

	dmKey := model.DMKeyFor(userID, targetUserID)

	// Fast path: the pair already has its channel.
	if existing, err := s.channelRepo.FindByDMKey(ctx, dmKey); err == nil {
		return existing, nil
	}

	channel := &model.Channel{
		Name:  "dm",
		Slug:  "dm-" + uuid.NewString(),
		Type:  model.ChannelDM,
		DMKey: &dmKey,
	}
	members := []model.ChannelMember{
		{UserID: userID, Role: model.RoleMember},
		{UserID: targetUserID, Role: model.RoleMember},
	}

	// The dm_key unique index makes the slow path race-safe: a concurrent
	// creation for the same pair yields the winner's channel.
	return s.channelRepo.CreateDM(ctx, channel, members)
}

func (s *channelService) ArchiveChannel(ctx context.Context, channelID, actorID uuid.UUID) error {
	if err := s.requireRole(ctx, channelID, actorID, model.RoleAdmin); err != nil {
		return err
	}
	return s.channelRepo.SetArchived(ctx, channelID, true)
}

func (s *channelService) InviteToChannel(ctx context.Context, channelID, inviterID, inviteeID uuid.UUID) error {
	if err := s.requireRole(ctx, channelID, inviterID, model.RoleAdmin); err != nil {
		return err
	}
	if _, err := s.userRepo.FindByID(ctx, inviteeID); err != nil {
		return err
	}
	if _, err := s.channelRepo.GetMember(ctx, channelID, inviteeID); err == nil {
		return fmt.Errorf("%w: user is already a member", apperror.ErrConflict)
	}

	invite := &model.ChannelInvite{
		ChannelID: channelID,
		InviteeID: inviteeID,
		InviterID: inviterID,
		Status:    model.InvitePending,
	}
	if err := s.channelRepo.UpsertInvite(ctx, invite); err != nil {
		return err
	}

	if s.notificationService != nil {
		err := s.notificationService.CreateNotification(ctx, &model.Notification{
			UserID:  inviteeID,
			ActorID: &inviterID,
			Type:    model.NotificationChannelInvite,
			Title:   "Channel invitation",
			Message: "You have been invited to a channel",
		})
		if err != nil {
			log.Printf("failed to notify invitee %s: %v", inviteeID, err)
		}
	}
	return nil
}

func (s *channelService) AcceptInvite(ctx context.Context, channelID, inviteeID uuid.UUID) error {
	invite, err := s.channelRepo.GetInvite(ctx, channelID, inviteeID)
	if err != nil {
		return err
	}
	if invite.Status != model.InvitePending {
		return fmt.Errorf("%w: invite is not pending", apperror.ErrConflict)
	}

	member := &model.ChannelMember{
		ChannelID: channelID,
		UserID:    inviteeID,
		Role:      model.RoleMember,
	}
	if err := s.channelRepo.CreateMember(ctx, member); err != nil {
		return err
	}
	if err := s.channelRepo.UpdateInviteStatus(ctx, channelID, inviteeID, model.InviteAccepted); err != nil {
		return err
	}

	s.publishMembership(ctx, channelID, inviteeID, EventMemberJoined)
	return nil
}

func (s *channelService) DeclineInvite(ctx context.Context, channelID, inviteeID uuid.UUID) error {
	invite, err := s.channelRepo.GetInvite(ctx, channelID, inviteeID)
	if err != nil {
		return err
	}
	if invite.Status != model.InvitePending {
		return fmt.Errorf("%w: invite is not pending", apperror.ErrConflict)
	}
	return s.channelRepo.UpdateInviteStatus(ctx, channelID, inviteeID, model.InviteDeclined)
}

func (s *channelService) JoinChannel(ctx context.Context, channelID, userID uuid.UUID) error {
	channel, err := s.channelRepo.FindByID(ctx, channelID)
	if err != nil {
		return err
	}
	if channel.Type != model.ChannelPublic {
		return fmt.Errorf("%w: channel is not public", apperror.ErrForbidden)
	}
	if channel.IsArchived {
		return fmt.Errorf("%w: channel is archived", apperror.ErrForbidden)
	}

	member := &model.ChannelMember{
		ChannelID: channelID,
		UserID:    userID,
		Role:      model.RoleMember,
	}
	if err := s.channelRepo.CreateMember(ctx, member); err != nil {
		return err
	}

	s.publishMembership(ctx, channelID, userID, EventMemberJoined)
	return nil
}

func (s *channelService) LeaveChannel(ctx context.Context, channelID, userID uuid.UUID) error {
	member, err := s.channelRepo.GetMember(ctx, channelID, userID)
	if err != nil {
		return err
	}

	// The owner cannot abandon a channel that still has other members.
	if member.Role == model.RoleOwner {
		count, err := s.channelRepo.CountMembers(ctx, channelID)
		if err != nil {
			return err
		}
		if count > 1 {
			return fmt.Errorf("%w: transfer ownership before leaving", apperror.ErrConflict)
		}
	}

	if err := s.channelRepo.DeleteMember(ctx, channelID, userID); err != nil {
		return err
	}

	s.publishMembership(ctx, channelID, userID, EventMemberLeft)
	return nil
}

func (s *channelService) SetRole(ctx context.Context, channelID, actorID, targetID uuid.UUID, role model.ChannelRole) error {
	actor, err := s.channelRepo.GetMember(ctx, channelID, actorID)
	if err != nil {
		return fmt.Errorf("%w: not a channel member", apperror.ErrForbidden)
	}
	if !actor.Role.AtLeast(model.RoleAdmin) {
		return fmt.Errorf("%w: requires admin role", apperror.ErrForbidden)
	}
	// Only the owner hands out or takes away ADMIN.
	if role == model.RoleAdmin && actor.Role != model.RoleOwner {
		return fmt.Errorf("%w: only the owner can grant admin", apperror.ErrForbidden)
	}
	if role == model.RoleOwner {
		return fmt.Errorf("%w: ownership cannot be granted here", apperror.ErrInvalidInput)
	}

	target, err := s.channelRepo.GetMember(ctx, channelID, targetID)
	if err != nil {
		return err
	}
	if target.Role == model.RoleOwner {
		return fmt.Errorf("%w: cannot change the owner's role", apperror.ErrForbidden)
	}
	if target.Role == model.RoleAdmin && actor.Role != model.RoleOwner {
		return fmt.Errorf("%w: only the owner can demote an admin", apperror.ErrForbidden)
	}

	return s.channelRepo.UpdateMemberRole(ctx, channelID, targetID, role)
}

func (s *channelService) DiscoverChannels(ctx context.Context, requesterID uuid.UUID, query string, categoryID *uuid.UUID) ([]dto.ChannelResponse, error) {
	channels, err := s.channelRepo.Search(ctx, query, categoryID)
	if err != nil {
		return nil, err
	}

	memberships, err := s.channelRepo.ListMemberships(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	roleByChannel := make(map[uuid.UUID]model.ChannelRole, len(memberships))
	for _, m := range memberships {
		roleByChannel[m.ChannelID] = m.Role
	}

	results := make([]dto.ChannelResponse, 0, len(channels))
	for _, ch := range channels {
		role, isMember := roleByChannel[ch.ID]
		results = append(results, dto.ChannelResponse{
			ID:          ch.ID,
			Name:        ch.Name,
			Slug:        ch.Slug,
			Type:        ch.Type,
			Topic:       ch.Topic,
			Description: ch.Description,
			IsArchived:  ch.IsArchived,
			IsMember:    isMember,
			MemberRole:  role,
			CreatedAt:   ch.CreatedAt,
		})
	}
	return results, nil
}

func (s *channelService) GetMember(ctx context.Context, channelID, userID uuid.UUID) (*model.ChannelMember, error) {
	return s.channelRepo.GetMember(ctx, channelID, userID)
}

func (s *channelService) MarkRead(ctx context.Context, channelID, userID, messageID uuid.UUID) error {
	message, err := s.messageRepo.FindByID(ctx, messageID)
	if err != nil {
		return err
	}
	if message.ChannelID != channelID {
		return fmt.Errorf("%w: message is not in this channel", apperror.ErrInvalidInput)
	}
	return s.channelRepo.SetLastRead(ctx, channelID, userID, messageID)
}

func (s *channelService) UnreadCount(ctx context.Context, channelID, userID uuid.UUID) (int64, error) {
	member, err := s.channelRepo.GetMember(ctx, channelID, userID)
	if err != nil {
		return 0, fmt.Errorf("%w: not a channel member", apperror.ErrForbidden)
	}
	return s.messageRepo.CountAfter(ctx, channelID, member.LastReadMessageID)
}

func (s *channelService) requireRole(ctx context.Context, channelID, userID uuid.UUID, role model.ChannelRole) error {
	member, err := s.channelRepo.GetMember(ctx, channelID, userID)
	if err != nil {
		return fmt.Errorf("%w: not a channel member", apperror.ErrForbidden)
	}
	if !member.Role.AtLeast(role) {
		return fmt.Errorf("%w: requires %s role", apperror.ErrForbidden, strings.ToLower(string(role)))
	}
	return nil
}

func (s *channelService) publishMembership(ctx context.Context, channelID, userID uuid.UUID, event string) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(ctx, ChatEvent{
		Type:      event,
		ChannelID: channelID,
		Payload:   map[string]string{"user_id": userID.String()},
	})
}

func slugify(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
}
