package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"builders.to/backend/internal/model"
	"builders.to/backend/pkg/apperror"
	"github.com/google/uuid"
)

// In-memory repository fakes. They reproduce the store-level guarantees the
// services lean on (unique indexes, conditional updates) so service behavior
// can be tested without a database.

type fakeUserRepo struct {
	users map[uuid.UUID]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*model.User)}
}

func (r *fakeUserRepo) addUser(username string) *model.User {
	u := &model.User{ID: uuid.New(), Username: username, Email: username + "@example.com"}
	r.users[u.ID] = u
	return u
}

func (r *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, apperror.ErrNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, apperror.ErrNotFound
}

func (r *fakeUserRepo) FindByReferralCode(ctx context.Context, code string) (*model.User, error) {
	for _, u := range r.users {
		if u.ReferralCode != nil && *u.ReferralCode == code {
			return u, nil
		}
	}
	return nil, apperror.ErrNotFound
}

func (r *fakeUserRepo) SetReferralCodeOnce(ctx context.Context, userID uuid.UUID, code string) error {
	u, ok := r.users[userID]
	if !ok {
		return apperror.ErrNotFound
	}
	if u.ReferralCode != nil {
		return apperror.ErrAlreadyProcessed
	}
	for _, other := range r.users {
		if other.ReferralCode != nil && *other.ReferralCode == code {
			return apperror.ErrConflict
		}
	}
	u.ReferralCode = &code
	return nil
}

func (r *fakeUserRepo) SetReferredByOnce(ctx context.Context, refereeID, referrerID uuid.UUID) error {
	u, ok := r.users[refereeID]
	if !ok {
		return apperror.ErrNotFound
	}
	if u.ReferredByID != nil {
		return apperror.ErrAlreadyProcessed
	}
	u.ReferredByID = &referrerID
	return nil
}

type fakeLedgerRepo struct {
	balances map[uuid.UUID]int64
	entries  []model.LedgerEntry
	nextID   uint
}

func newFakeLedgerRepo() *fakeLedgerRepo {
	return &fakeLedgerRepo{balances: make(map[uuid.UUID]int64), nextID: 1}
}

func (r *fakeLedgerRepo) Credit(ctx context.Context, entry *model.LedgerEntry) error {
	r.balances[entry.UserID] += entry.Amount
	entry.ID = r.nextID
	r.nextID++
	entry.CreatedAt = time.Now()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeLedgerRepo) Debit(ctx context.Context, entry *model.LedgerEntry) error {
	amount := -entry.Amount
	if r.balances[entry.UserID] < amount {
		return apperror.ErrInsufficientBalance
	}
	r.balances[entry.UserID] -= amount
	entry.ID = r.nextID
	r.nextID++
	entry.CreatedAt = time.Now()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeLedgerRepo) GetBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	return r.balances[userID], nil
}

func (r *fakeLedgerRepo) ListEntries(ctx context.Context, userID uuid.UUID, limit int, beforeID uint, txType *model.TransactionType) ([]model.LedgerEntry, error) {
	var out []model.LedgerEntry
	for _, e := range r.entries {
		if e.UserID != userID {
			continue
		}
		if beforeID > 0 && e.ID >= beforeID {
			continue
		}
		if txType != nil && e.Type != *txType {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeKarmaRepo struct {
	logs  []model.KarmaLog
	stats map[uuid.UUID]*model.KarmaStats
	marks map[string]bool
}

func newFakeKarmaRepo() *fakeKarmaRepo {
	return &fakeKarmaRepo{
		stats: make(map[uuid.UUID]*model.KarmaStats),
		marks: make(map[string]bool),
	}
}

func karmaAwardKey(log *model.KarmaLog) string {
	actor := ""
	if log.ActorID != nil {
		actor = log.ActorID.String()
	}
	return actor + "|" + log.ActionType + "|" + log.ReferenceID
}

func (r *fakeKarmaRepo) CreateLog(ctx context.Context, log *model.KarmaLog) error {
	key := karmaAwardKey(log)
	for i := range r.logs {
		if karmaAwardKey(&r.logs[i]) == key {
			return apperror.ErrAlreadyProcessed
		}
	}
	log.ID = uint(len(r.logs) + 1)
	log.CreatedAt = time.Now()
	r.logs = append(r.logs, *log)
	return nil
}

func (r *fakeKarmaRepo) UpsertStats(ctx context.Context, userID uuid.UUID, points int) error {
	st, ok := r.stats[userID]
	if !ok {
		st = &model.KarmaStats{UserID: userID}
		r.stats[userID] = st
	}
	st.TotalScoreAllTime += points
	st.TotalScoreMonthly += points
	st.TotalScoreWeekly += points
	return nil
}

func (r *fakeKarmaRepo) GetStats(ctx context.Context, userID uuid.UUID) (*model.KarmaStats, error) {
	st, ok := r.stats[userID]
	if !ok {
		return &model.KarmaStats{UserID: userID}, nil
	}
	return st, nil
}

func (r *fakeKarmaRepo) CreateHelpfulMark(ctx context.Context, mark *model.HelpfulMark) error {
	key := mark.CommentID + "|" + mark.MarkerID.String()
	if r.marks[key] {
		return apperror.ErrAlreadyProcessed
	}
	r.marks[key] = true
	return nil
}

func (r *fakeKarmaRepo) GetTopUsers(ctx context.Context, limit int, timeframe string) ([]model.KarmaStats, error) {
	var out []model.KarmaStats
	for _, st := range r.stats {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].TotalScoreAllTime > out[j].TotalScoreAllTime
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeKarmaRepo) GetWeeklyScores(ctx context.Context, userIDs []uuid.UUID, since time.Time) (map[uuid.UUID]int, error) {
	wanted := make(map[uuid.UUID]bool, len(userIDs))
	for _, id := range userIDs {
		wanted[id] = true
	}
	scores := make(map[uuid.UUID]int)
	for _, log := range r.logs {
		if wanted[log.UserID] && !log.CreatedAt.Before(since) {
			scores[log.UserID] += log.Points
		}
	}
	return scores, nil
}

type fakeChannelRepo struct {
	channels map[uuid.UUID]*model.Channel
	members  map[string]*model.ChannelMember
	invites  map[string]*model.ChannelInvite
}

func newFakeChannelRepo() *fakeChannelRepo {
	return &fakeChannelRepo{
		channels: make(map[uuid.UUID]*model.Channel),
		members:  make(map[string]*model.ChannelMember),
		invites:  make(map[string]*model.ChannelInvite),
	}
}

func memberKey(channelID, userID uuid.UUID) string {
	return channelID.String() + "|" + userID.String()
}

func (r *fakeChannelRepo) addChannel(chType model.ChannelType) *model.Channel {
	ch := &model.Channel{
		ID:   uuid.New(),
		Name: "test",
		Slug: "test-" + uuid.NewString(),
		Type: chType,
	}
	r.channels[ch.ID] = ch
	return ch
}

func (r *fakeChannelRepo) addMember(channelID, userID uuid.UUID, role model.ChannelRole) *model.ChannelMember {
	m := &model.ChannelMember{ChannelID: channelID, UserID: userID, Role: role}
	r.members[memberKey(channelID, userID)] = m
	return m
}

func (r *fakeChannelRepo) Create(ctx context.Context, channel *model.Channel) error {
	if channel.ID == uuid.Nil {
		channel.ID = uuid.New()
	}
	for _, ch := range r.channels {
		if ch.Slug == channel.Slug {
			return apperror.ErrConflict
		}
	}
	r.channels[channel.ID] = channel
	return nil
}

func (r *fakeChannelRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Channel, error) {
	ch, ok := r.channels[id]
	if !ok {
		return nil, apperror.ErrNotFound
	}
	return ch, nil
}

func (r *fakeChannelRepo) FindBySlug(ctx context.Context, slug string) (*model.Channel, error) {
	for _, ch := range r.channels {
		if ch.Slug == slug {
			return ch, nil
		}
	}
	return nil, apperror.ErrNotFound
}

func (r *fakeChannelRepo) FindByDMKey(ctx context.Context, dmKey string) (*model.Channel, error) {
	for _, ch := range r.channels {
		if ch.DMKey != nil && *ch.DMKey == dmKey {
			return ch, nil
		}
	}
	return nil, apperror.ErrNotFound
}

func (r *fakeChannelRepo) CreateDM(ctx context.Context, channel *model.Channel, members []model.ChannelMember) (*model.Channel, error) {
	if existing, err := r.FindByDMKey(ctx, *channel.DMKey); err == nil {
		return existing, nil
	}
	if channel.ID == uuid.Nil {
		channel.ID = uuid.New()
	}
	r.channels[channel.ID] = channel
	for i := range members {
		members[i].ChannelID = channel.ID
		m := members[i]
		r.members[memberKey(channel.ID, m.UserID)] = &m
	}
	return channel, nil
}

func (r *fakeChannelRepo) SetArchived(ctx context.Context, id uuid.UUID, archived bool) error {
	ch, ok := r.channels[id]
	if !ok {
		return apperror.ErrNotFound
	}
	ch.IsArchived = archived
	return nil
}

func (r *fakeChannelRepo) Search(ctx context.Context, query string, categoryID *uuid.UUID) ([]model.Channel, error) {
	var out []model.Channel
	for _, ch := range r.channels {
		if ch.Type != model.ChannelPublic || ch.IsArchived {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(ch.Name), strings.ToLower(query)) {
			continue
		}
		out = append(out, *ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *fakeChannelRepo) GetMember(ctx context.Context, channelID, userID uuid.UUID) (*model.ChannelMember, error) {
	m, ok := r.members[memberKey(channelID, userID)]
	if !ok {
		return nil, apperror.ErrNotFound
	}
	return m, nil
}

func (r *fakeChannelRepo) CreateMember(ctx context.Context, member *model.ChannelMember) error {
	key := memberKey(member.ChannelID, member.UserID)
	if _, ok := r.members[key]; ok {
		return apperror.ErrConflict
	}
	r.members[key] = member
	return nil
}

func (r *fakeChannelRepo) DeleteMember(ctx context.Context, channelID, userID uuid.UUID) error {
	key := memberKey(channelID, userID)
	if _, ok := r.members[key]; !ok {
		return apperror.ErrNotFound
	}
	delete(r.members, key)
	return nil
}

func (r *fakeChannelRepo) UpdateMemberRole(ctx context.Context, channelID, userID uuid.UUID, role model.ChannelRole) error {
	m, ok := r.members[memberKey(channelID, userID)]
	if !ok {
		return apperror.ErrNotFound
	}
	m.Role = role
	return nil
}

func (r *fakeChannelRepo) SetMutedUntil(ctx context.Context, channelID, userID uuid.UUID, until *time.Time) error {
	m, ok := r.members[memberKey(channelID, userID)]
	if !ok {
		return apperror.ErrNotFound
	}
	m.MutedUntil = until
	return nil
}

func (r *fakeChannelRepo) SetLastRead(ctx context.Context, channelID, userID, messageID uuid.UUID) error {
	m, ok := r.members[memberKey(channelID, userID)]
	if !ok {
		return apperror.ErrNotFound
	}
	m.LastReadMessageID = &messageID
	return nil
}

func (r *fakeChannelRepo) ListMembers(ctx context.Context, channelID uuid.UUID) ([]model.ChannelMember, error) {
	var out []model.ChannelMember
	for _, m := range r.members {
		if m.ChannelID == channelID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *fakeChannelRepo) CountMembers(ctx context.Context, channelID uuid.UUID) (int64, error) {
	var count int64
	for _, m := range r.members {
		if m.ChannelID == channelID {
			count++
		}
	}
	return count, nil
}

func (r *fakeChannelRepo) ListMemberChannelIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, m := range r.members {
		if m.UserID == userID {
			ids = append(ids, m.ChannelID)
		}
	}
	return ids, nil
}

func (r *fakeChannelRepo) ListMemberships(ctx context.Context, userID uuid.UUID) ([]model.ChannelMember, error) {
	var out []model.ChannelMember
	for _, m := range r.members {
		if m.UserID == userID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *fakeChannelRepo) UpsertInvite(ctx context.Context, invite *model.ChannelInvite) error {
	key := memberKey(invite.ChannelID, invite.InviteeID)
	if existing, ok := r.invites[key]; ok {
		existing.Status = model.InvitePending
		existing.InviterID = invite.InviterID
		return nil
	}
	invite.ID = uuid.New()
	r.invites[key] = invite
	return nil
}

func (r *fakeChannelRepo) GetInvite(ctx context.Context, channelID, inviteeID uuid.UUID) (*model.ChannelInvite, error) {
	inv, ok := r.invites[memberKey(channelID, inviteeID)]
	if !ok {
		return nil, apperror.ErrNotFound
	}
	return inv, nil
}

func (r *fakeChannelRepo) UpdateInviteStatus(ctx context.Context, channelID, inviteeID uuid.UUID, status model.InviteStatus) error {
	inv, ok := r.invites[memberKey(channelID, inviteeID)]
	if !ok {
		return apperror.ErrNotFound
	}
	inv.Status = status
	return nil
}

type fakeMessageRepo struct {
	messages  map[uuid.UUID]*model.Message
	order     []uuid.UUID
	reactions map[string]bool
	bookmarks map[string]bool
	clock     time.Time
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{
		messages:  make(map[uuid.UUID]*model.Message),
		reactions: make(map[string]bool),
		bookmarks: make(map[string]bool),
		clock:     time.Now().Add(-time.Hour),
	}
}

func (r *fakeMessageRepo) addMessage(channelID, senderID uuid.UUID, content string) *model.Message {
	m := &model.Message{
		ChannelID: channelID,
		SenderID:  senderID,
		Content:   content,
	}
	_ = r.Create(context.Background(), m)
	return m
}

func (r *fakeMessageRepo) Create(ctx context.Context, message *model.Message) error {
	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}
	// Strictly increasing timestamps keep keyset pagination deterministic.
	r.clock = r.clock.Add(time.Second)
	message.CreatedAt = r.clock
	r.messages[message.ID] = message
	r.order = append(r.order, message.ID)
	return nil
}

func (r *fakeMessageRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Message, error) {
	m, ok := r.messages[id]
	if !ok {
		return nil, apperror.ErrNotFound
	}
	return m, nil
}

func (r *fakeMessageRepo) UpdateContent(ctx context.Context, id uuid.UUID, content string, editedAt time.Time) error {
	m, ok := r.messages[id]
	if !ok {
		return apperror.ErrNotFound
	}
	m.Content = content
	m.EditedAt = &editedAt
	return nil
}

func (r *fakeMessageRepo) SoftDelete(ctx context.Context, id uuid.UUID, deletedBy uuid.UUID) error {
	m, ok := r.messages[id]
	if !ok {
		return apperror.ErrNotFound
	}
	m.Content = model.DeletedContent
	m.IsDeleted = true
	m.DeletedByID = &deletedBy
	return nil
}

func (r *fakeMessageRepo) SetPinned(ctx context.Context, id uuid.UUID, pinned bool, pinnedBy *uuid.UUID) error {
	m, ok := r.messages[id]
	if !ok {
		return apperror.ErrNotFound
	}
	m.IsPinned = pinned
	m.PinnedByID = pinnedBy
	return nil
}

func (r *fakeMessageRepo) ListByChannel(ctx context.Context, channelID uuid.UUID, limit int, before *time.Time, beforeID *uuid.UUID) ([]model.Message, error) {
	var out []model.Message
	for _, id := range r.order {
		m := r.messages[id]
		if m.ChannelID != channelID || m.ThreadParentID != nil {
			continue
		}
		if before != nil && !m.CreatedAt.Before(*before) {
			continue
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeMessageRepo) ListThread(ctx context.Context, parentID uuid.UUID, limit int, after *time.Time, afterID *uuid.UUID) ([]model.Message, error) {
	var out []model.Message
	for _, id := range r.order {
		m := r.messages[id]
		if m.ThreadParentID == nil || *m.ThreadParentID != parentID {
			continue
		}
		if after != nil && !m.CreatedAt.After(*after) {
			continue
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeMessageRepo) ListPinned(ctx context.Context, channelID uuid.UUID) ([]model.Message, error) {
	var out []model.Message
	for _, id := range r.order {
		m := r.messages[id]
		if m.ChannelID == channelID && m.IsPinned {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) Search(ctx context.Context, channelIDs []uuid.UUID, query string, limit int) ([]model.Message, error) {
	allowed := make(map[uuid.UUID]bool, len(channelIDs))
	for _, id := range channelIDs {
		allowed[id] = true
	}
	var out []model.Message
	for _, id := range r.order {
		m := r.messages[id]
		if !allowed[m.ChannelID] || m.IsDeleted {
			continue
		}
		if !strings.Contains(strings.ToLower(m.Content), strings.ToLower(query)) {
			continue
		}
		out = append(out, *m)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeMessageRepo) CountAfter(ctx context.Context, channelID uuid.UUID, afterMessageID *uuid.UUID) (int64, error) {
	var after *time.Time
	if afterMessageID != nil {
		if m, ok := r.messages[*afterMessageID]; ok {
			after = &m.CreatedAt
		}
	}
	var count int64
	for _, id := range r.order {
		m := r.messages[id]
		if m.ChannelID != channelID || m.IsDeleted {
			continue
		}
		if after != nil && !m.CreatedAt.After(*after) {
			continue
		}
		count++
	}
	return count, nil
}

func (r *fakeMessageRepo) ToggleReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) (bool, error) {
	key := fmt.Sprintf("%s|%s|%s", messageID, userID, emoji)
	if r.reactions[key] {
		delete(r.reactions, key)
		return false, nil
	}
	r.reactions[key] = true
	return true, nil
}

func (r *fakeMessageRepo) ListReactions(ctx context.Context, messageID uuid.UUID) ([]model.Reaction, error) {
	var out []model.Reaction
	for key := range r.reactions {
		parts := strings.SplitN(key, "|", 3)
		if parts[0] != messageID.String() {
			continue
		}
		userID, _ := uuid.Parse(parts[1])
		out = append(out, model.Reaction{MessageID: messageID, UserID: userID, Emoji: parts[2]})
	}
	return out, nil
}

func (r *fakeMessageRepo) ToggleBookmark(ctx context.Context, messageID, userID uuid.UUID) (bool, error) {
	key := messageID.String() + "|" + userID.String()
	if r.bookmarks[key] {
		delete(r.bookmarks, key)
		return false, nil
	}
	r.bookmarks[key] = true
	return true, nil
}

func (r *fakeMessageRepo) ListBookmarks(ctx context.Context, userID uuid.UUID) ([]model.Bookmark, error) {
	var out []model.Bookmark
	for key := range r.bookmarks {
		parts := strings.SplitN(key, "|", 2)
		if parts[1] != userID.String() {
			continue
		}
		messageID, _ := uuid.Parse(parts[0])
		out = append(out, model.Bookmark{MessageID: messageID, UserID: userID})
	}
	return out, nil
}

type fakeModerationRepo struct {
	actions []model.ChatModAction
}

func newFakeModerationRepo() *fakeModerationRepo {
	return &fakeModerationRepo{}
}

func (r *fakeModerationRepo) CreateAction(ctx context.Context, action *model.ChatModAction) error {
	action.ID = uint(len(r.actions) + 1)
	action.CreatedAt = time.Now()
	r.actions = append(r.actions, *action)
	return nil
}

func (r *fakeModerationRepo) ListByChannel(ctx context.Context, channelID uuid.UUID, limit int) ([]model.ChatModAction, error) {
	var out []model.ChatModAction
	for i := len(r.actions) - 1; i >= 0 && len(out) < limit; i-- {
		if r.actions[i].ChannelID == channelID {
			out = append(out, r.actions[i])
		}
	}
	return out, nil
}

func (r *fakeModerationRepo) ListByTarget(ctx context.Context, targetID uuid.UUID, limit int) ([]model.ChatModAction, error) {
	var out []model.ChatModAction
	for i := len(r.actions) - 1; i >= 0 && len(out) < limit; i-- {
		if r.actions[i].TargetID == targetID {
			out = append(out, r.actions[i])
		}
	}
	return out, nil
}

// capturingPublisher records published events for assertions.
type capturingPublisher struct {
	events []ChatEvent
}

func (p *capturingPublisher) Publish(ctx context.Context, event ChatEvent) {
	p.events = append(p.events, event)
}

type fakeNotificationRepo struct {
	notifications []model.Notification
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{}
}

func (r *fakeNotificationRepo) Create(notification *model.Notification) error {
	if notification.ID == uuid.Nil {
		notification.ID = uuid.New()
	}
	r.notifications = append(r.notifications, *notification)
	return nil
}

func (r *fakeNotificationRepo) GetByUserID(userID uuid.UUID, limit, offset int) ([]model.Notification, error) {
	var out []model.Notification
	for i := len(r.notifications) - 1; i >= 0; i-- {
		if r.notifications[i].UserID == userID {
			out = append(out, r.notifications[i])
		}
	}
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeNotificationRepo) MarkAsRead(id uuid.UUID) error {
	for i := range r.notifications {
		if r.notifications[i].ID == id {
			r.notifications[i].IsRead = true
		}
	}
	return nil
}

func (r *fakeNotificationRepo) MarkAllAsRead(userID uuid.UUID) error {
	for i := range r.notifications {
		if r.notifications[i].UserID == userID {
			r.notifications[i].IsRead = true
		}
	}
	return nil
}

func (r *fakeNotificationRepo) CountUnread(userID uuid.UUID) (int64, error) {
	var count int64
	for i := range r.notifications {
		if r.notifications[i].UserID == userID && !r.notifications[i].IsRead {
			count++
		}
	}
	return count, nil
}
