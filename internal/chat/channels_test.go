package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tsudoi-app/tsudoi/internal/model"
	"github.com/tsudoi-app/tsudoi/internal/store/memstore"
)

type channelsFixture struct {
	svc   *Channels
	gate  *Gate
	convs *memstore.Conversations
	parts *memstore.Participants
	msgs  *memstore.Messages
	profs *memstore.Profiles
}

func newChannelsFixture() *channelsFixture {
	convs := memstore.NewConversations()
	parts := memstore.NewParticipants()
	msgs := memstore.NewMessages()
	profs := memstore.NewProfiles()
	return &channelsFixture{
		svc:   NewChannels(convs, parts, msgs, profs, zap.NewNop().Sugar()),
		gate:  NewGate(convs, parts),
		convs: convs,
		parts: parts,
		msgs:  msgs,
		profs: profs,
	}
}

func TestChannels_CreateJoinsOwner(t *testing.T) {
	ctx := context.Background()
	fx := newChannelsFixture()

	ch, err := fx.svc.Create(ctx, "alice", " general ", "town square")
	require.NoError(t, err)
	assert.Equal(t, "general", ch.Title)
	assert.Equal(t, "alice", ch.OwnerID)
	assert.Equal(t, model.KindChannel, ch.Kind)

	ok, err := fx.gate.CheckMembership(ctx, ch.ID, "alice")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestChannels_CreateRequiresTitle(t *testing.T) {
	ctx := context.Background()
	fx := newChannelsFixture()

	_, err := fx.svc.Create(ctx, "alice", "   ", "")
	require.Error(t, err)
}

func TestChannels_UpdateOwnerOnly(t *testing.T) {
	ctx := context.Background()
	fx := newChannelsFixture()

	ch, err := fx.svc.Create(ctx, "alice", "general", "")
	require.NoError(t, err)

	assert.ErrorIs(t, fx.svc.Update(ctx, ch.ID, "bob", "hijacked", ""), ErrNotOwner)

	require.NoError(t, fx.svc.Update(ctx, ch.ID, "alice", "renamed", "new purpose"))
	got, err := fx.svc.Get(ctx, ch.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)
	assert.Equal(t, "new purpose", got.Description)
}

func TestChannels_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	fx := newChannelsFixture()

	ch, err := fx.svc.Create(ctx, "alice", "general", "")
	require.NoError(t, err)
	require.NoError(t, fx.gate.Join(ctx, ch.ID, "bob"))
	require.NoError(t, fx.msgs.Insert(ctx, &model.Message{ConversationID: ch.ID, SenderID: "bob", Content: "hi"}))

	assert.ErrorIs(t, fx.svc.Delete(ctx, ch.ID, "bob"), ErrNotOwner)
	require.NoError(t, fx.svc.Delete(ctx, ch.ID, "alice"))

	// Gone from both the owner's and the member's joined listings.
	for _, user := range []string{"alice", "bob"} {
		joined, err := fx.svc.ListJoined(ctx, user)
		require.NoError(t, err)
		assert.Empty(t, joined, "user %s still sees the deleted channel", user)
	}
	left, err := fx.msgs.List(ctx, ch.ID)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestChannels_GetRejectsDirect(t *testing.T) {
	ctx := context.Background()
	fx := newChannelsFixture()

	direct := &model.Conversation{Kind: model.KindDirect}
	require.NoError(t, fx.convs.Insert(ctx, direct))

	_, err := fx.svc.Get(ctx, direct.ID)
	assert.ErrorIs(t, err, ErrNotChannel)
}
