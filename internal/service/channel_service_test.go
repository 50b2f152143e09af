package service

import (
	"context"
	"testing"

	"builders.to/backend/internal/dto"
	"builders.to/backend/internal/model"
	"builders.to/backend/pkg/apperror"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type channelFixture struct {
	users    *fakeUserRepo
	channels *fakeChannelRepo
	messages *fakeMessageRepo
	pub      *capturingPublisher
	svc      ChannelService
}

func newChannelFixture() *channelFixture {
	f := &channelFixture{
		users:    newFakeUserRepo(),
		channels: newFakeChannelRepo(),
		messages: newFakeMessageRepo(),
		pub:      &capturingPublisher{},
	}
	f.svc = NewChannelService(f.channels, f.messages, f.users, nil, f.pub)
	return f
}

func TestCreateChannel(t *testing.T) {
	f := newChannelFixture()
	creator := f.users.addUser("creator")
	ctx := context.Background()

	channel, err := f.svc.CreateChannel(ctx, creator.ID, dto.CreateChannelRequest{
		Name: "Indie Hackers",
		Type: "PUBLIC",
	})
	require.NoError(t, err)
	assert.Equal(t, "indie-hackers", channel.Slug)

	t.Run("creator becomes owner", func(t *testing.T) {
		member, err := f.channels.GetMember(ctx, channel.ID, creator.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RoleOwner, member.Role)
	})

	t.Run("duplicate name conflicts", func(t *testing.T) {
		_, err := f.svc.CreateChannel(ctx, creator.ID, dto.CreateChannelRequest{
			Name: "indie hackers",
			Type: "PUBLIC",
		})
		assert.ErrorIs(t, err, apperror.ErrConflict)
	})
}

func TestCreateDM(t *testing.T) {
	f := newChannelFixture()
	alice := f.users.addUser("alice")
	bob := f.users.addUser("bob")
	ctx := context.Background()

	first, err := f.svc.CreateDM(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ChannelDM, first.Type)

	t.Run("same pair yields the same channel", func(t *testing.T) {
		again, err := f.svc.CreateDM(ctx, alice.ID, bob.ID)
		require.NoError(t, err)
		assert.Equal(t, first.ID, again.ID)
	})

	t.Run("argument order does not matter", func(t *testing.T) {
		swapped, err := f.svc.CreateDM(ctx, bob.ID, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, first.ID, swapped.ID)
	})

	t.Run("both users are members", func(t *testing.T) {
		_, err := f.channels.GetMember(ctx, first.ID, alice.ID)
		assert.NoError(t, err)
		_, err = f.channels.GetMember(ctx, first.ID, bob.ID)
		assert.NoError(t, err)
	})

	t.Run("cannot DM yourself", func(t *testing.T) {
		_, err := f.svc.CreateDM(ctx, alice.ID, alice.ID)
		assert.ErrorIs(t, err, apperror.ErrInvalidInput)
	})

	t.Run("target must exist", func(t *testing.T) {
		_, err := f.svc.CreateDM(ctx, alice.ID, uuid.New())
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})
}

func TestJoinChannel(t *testing.T) {
	f := newChannelFixture()
	user := f.users.addUser("joiner")
	ctx := context.Background()

	t.Run("joins a public channel", func(t *testing.T) {
		ch := f.channels.addChannel(model.ChannelPublic)
		require.NoError(t, f.svc.JoinChannel(ctx, ch.ID, user.ID))

		member, err := f.channels.GetMember(ctx, ch.ID, user.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RoleMember, member.Role)
	})

	t.Run("joining twice conflicts", func(t *testing.T) {
		ch := f.channels.addChannel(model.ChannelPublic)
		require.NoError(t, f.svc.JoinChannel(ctx, ch.ID, user.ID))
		err := f.svc.JoinChannel(ctx, ch.ID, user.ID)
		assert.ErrorIs(t, err, apperror.ErrConflict)
	})

	t.Run("cannot join a private channel", func(t *testing.T) {
		ch := f.channels.addChannel(model.ChannelPrivate)
		err := f.svc.JoinChannel(ctx, ch.ID, user.ID)
		assert.ErrorIs(t, err, apperror.ErrForbidden)
	})

	t.Run("cannot join an archived channel", func(t *testing.T) {
		ch := f.channels.addChannel(model.ChannelPublic)
		ch.IsArchived = true
		err := f.svc.JoinChannel(ctx, ch.ID, user.ID)
		assert.ErrorIs(t, err, apperror.ErrForbidden)
	})
}

func TestLeaveChannel(t *testing.T) {
	f := newChannelFixture()
	owner := f.users.addUser("owner")
	member := f.users.addUser("member")
	ctx := context.Background()

	ch := f.channels.addChannel(model.ChannelPublic)
	f.channels.addMember(ch.ID, owner.ID, model.RoleOwner)
	f.channels.addMember(ch.ID, member.ID, model.RoleMember)

	t.Run("owner cannot leave while others remain", func(t *testing.T) {
		err := f.svc.LeaveChannel(ctx, ch.ID, owner.ID)
		assert.ErrorIs(t, err, apperror.ErrConflict)
	})

	t.Run("a regular member can leave", func(t *testing.T) {
		require.NoError(t, f.svc.LeaveChannel(ctx, ch.ID, member.ID))
		_, err := f.channels.GetMember(ctx, ch.ID, member.ID)
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})

	t.Run("owner can leave once alone", func(t *testing.T) {
		require.NoError(t, f.svc.LeaveChannel(ctx, ch.ID, owner.ID))
	})
}

func TestInviteFlow(t *testing.T) {
	f := newChannelFixture()
	admin := f.users.addUser("admin")
	invitee := f.users.addUser("invitee")
	ctx := context.Background()

	ch := f.channels.addChannel(model.ChannelPrivate)
	f.channels.addMember(ch.ID, admin.ID, model.RoleAdmin)

	t.Run("a plain member cannot invite", func(t *testing.T) {
		pleb := f.users.addUser("pleb")
		f.channels.addMember(ch.ID, pleb.ID, model.RoleMember)
		err := f.svc.InviteToChannel(ctx, ch.ID, pleb.ID, invitee.ID)
		assert.ErrorIs(t, err, apperror.ErrForbidden)
	})

	require.NoError(t, f.svc.InviteToChannel(ctx, ch.ID, admin.ID, invitee.ID))

	t.Run("accept makes the invitee a member", func(t *testing.T) {
		require.NoError(t, f.svc.AcceptInvite(ctx, ch.ID, invitee.ID))

		member, err := f.channels.GetMember(ctx, ch.ID, invitee.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RoleMember, member.Role)
	})

	t.Run("accepting twice conflicts", func(t *testing.T) {
		err := f.svc.AcceptInvite(ctx, ch.ID, invitee.ID)
		assert.ErrorIs(t, err, apperror.ErrConflict)
	})

	t.Run("inviting an existing member conflicts", func(t *testing.T) {
		err := f.svc.InviteToChannel(ctx, ch.ID, admin.ID, invitee.ID)
		assert.ErrorIs(t, err, apperror.ErrConflict)
	})

	t.Run("decline leaves no membership", func(t *testing.T) {
		decliner := f.users.addUser("decliner")
		require.NoError(t, f.svc.InviteToChannel(ctx, ch.ID, admin.ID, decliner.ID))
		require.NoError(t, f.svc.DeclineInvite(ctx, ch.ID, decliner.ID))

		_, err := f.channels.GetMember(ctx, ch.ID, decliner.ID)
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})
}

func TestSetRole(t *testing.T) {
	f := newChannelFixture()
	owner := f.users.addUser("owner")
	admin := f.users.addUser("admin")
	target := f.users.addUser("target")
	ctx := context.Background()

	ch := f.channels.addChannel(model.ChannelPublic)
	f.channels.addMember(ch.ID, owner.ID, model.RoleOwner)
	f.channels.addMember(ch.ID, admin.ID, model.RoleAdmin)
	f.channels.addMember(ch.ID, target.ID, model.RoleMember)

	t.Run("admin can grant moderator", func(t *testing.T) {
		require.NoError(t, f.svc.SetRole(ctx, ch.ID, admin.ID, target.ID, model.RoleModerator))
		member, _ := f.channels.GetMember(ctx, ch.ID, target.ID)
		assert.Equal(t, model.RoleModerator, member.Role)
	})

	t.Run("only the owner grants admin", func(t *testing.T) {
		err := f.svc.SetRole(ctx, ch.ID, admin.ID, target.ID, model.RoleAdmin)
		assert.ErrorIs(t, err, apperror.ErrForbidden)

		require.NoError(t, f.svc.SetRole(ctx, ch.ID, owner.ID, target.ID, model.RoleAdmin))
	})

	t.Run("only the owner demotes an admin", func(t *testing.T) {
		err := f.svc.SetRole(ctx, ch.ID, admin.ID, target.ID, model.RoleMember)
		assert.ErrorIs(t, err, apperror.ErrForbidden)

		require.NoError(t, f.svc.SetRole(ctx, ch.ID, owner.ID, target.ID, model.RoleMember))
	})

	t.Run("ownership is not grantable", func(t *testing.T) {
		err := f.svc.SetRole(ctx, ch.ID, owner.ID, target.ID, model.RoleOwner)
		assert.ErrorIs(t, err, apperror.ErrInvalidInput)
	})

	t.Run("the owner's role cannot be changed", func(t *testing.T) {
		err := f.svc.SetRole(ctx, ch.ID, admin.ID, owner.ID, model.RoleMember)
		assert.ErrorIs(t, err, apperror.ErrForbidden)
	})

	t.Run("a moderator cannot set roles", func(t *testing.T) {
		mod := f.users.addUser("mod")
		f.channels.addMember(ch.ID, mod.ID, model.RoleModerator)
		err := f.svc.SetRole(ctx, ch.ID, mod.ID, target.ID, model.RoleMember)
		assert.ErrorIs(t, err, apperror.ErrForbidden)
	})
}

func TestArchiveChannel(t *testing.T) {
	f := newChannelFixture()
	admin := f.users.addUser("admin")
	member := f.users.addUser("member")
	ctx := context.Background()

	ch := f.channels.addChannel(model.ChannelPublic)
	f.channels.addMember(ch.ID, admin.ID, model.RoleAdmin)
	f.channels.addMember(ch.ID, member.ID, model.RoleMember)

	t.Run("member cannot archive", func(t *testing.T) {
		err := f.svc.ArchiveChannel(ctx, ch.ID, member.ID)
		assert.ErrorIs(t, err, apperror.ErrForbidden)
	})

	t.Run("admin can archive", func(t *testing.T) {
		require.NoError(t, f.svc.ArchiveChannel(ctx, ch.ID, admin.ID))
		assert.True(t, ch.IsArchived)
	})
}

func TestDiscoverChannels(t *testing.T) {
	f := newChannelFixture()
	user := f.users.addUser("finder")
	ctx := context.Background()

	joined := f.channels.addChannel(model.ChannelPublic)
	joined.Name = "golang"
	f.channels.addMember(joined.ID, user.ID, model.RoleMember)

	other := f.channels.addChannel(model.ChannelPublic)
	other.Name = "gophers"

	private := f.channels.addChannel(model.ChannelPrivate)
	private.Name = "golang-secret"

	archived := f.channels.addChannel(model.ChannelPublic)
	archived.Name = "golang-old"
	archived.IsArchived = true

	results, err := f.svc.DiscoverChannels(ctx, user.ID, "go", nil)
	require.NoError(t, err)
	require.Len(t, results, 2)

	byName := map[string]dto.ChannelResponse{}
	for _, r := range results {
		byName[r.Name] = r
	}
	assert.True(t, byName["golang"].IsMember)
	assert.Equal(t, model.RoleMember, byName["golang"].MemberRole)
	assert.False(t, byName["gophers"].IsMember)
	assert.Empty(t, byName["gophers"].MemberRole)
}

func TestMarkReadAndUnreadCount(t *testing.T) {
	f := newChannelFixture()
	user := f.users.addUser("reader")
	sender := f.users.addUser("sender")
	ctx := context.Background()

	ch := f.channels.addChannel(model.ChannelPublic)
	f.channels.addMember(ch.ID, user.ID, model.RoleMember)

	m1 := f.messages.addMessage(ch.ID, sender.ID, "first")
	f.messages.addMessage(ch.ID, sender.ID, "second")
	f.messages.addMessage(ch.ID, sender.ID, "third")

	t.Run("everything is unread at first", func(t *testing.T) {
		count, err := f.svc.UnreadCount(ctx, ch.ID, user.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
	})

	t.Run("marking read moves the watermark", func(t *testing.T) {
		require.NoError(t, f.svc.MarkRead(ctx, ch.ID, user.ID, m1.ID))
		count, err := f.svc.UnreadCount(ctx, ch.ID, user.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})

	t.Run("cannot mark read with a foreign message", func(t *testing.T) {
		otherCh := f.channels.addChannel(model.ChannelPublic)
		foreign := f.messages.addMessage(otherCh.ID, sender.ID, "elsewhere")
		err := f.svc.MarkRead(ctx, ch.ID, user.ID, foreign.ID)
		assert.ErrorIs(t, err, apperror.ErrInvalidInput)
	})

	t.Run("non-members get no unread count", func(t *testing.T) {
		stranger := f.users.addUser("stranger")
		_, err := f.svc.UnreadCount(ctx, ch.ID, stranger.ID)
		assert.ErrorIs(t, err, apperror.ErrForbidden)
	})
}
