package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tsudoi-app/tsudoi/internal/events"
	"github.com/tsudoi-app/tsudoi/internal/model"
	"github.com/tsudoi-app/tsudoi/internal/realtime"
	"github.com/tsudoi-app/tsudoi/internal/store/memstore"
)

type feedFixture struct {
	feed     *Feed
	messages *memstore.Messages
	convs    *memstore.Conversations
	profs    *memstore.Profiles
	broker   *realtime.Broker
	convID   string
}

func newFeedFixture(t *testing.T) *feedFixture {
	t.Helper()
	ctx := context.Background()
	convs := memstore.NewConversations()
	msgs := memstore.NewMessages()
	profs := memstore.NewProfiles()
	broker := realtime.NewBroker()

	conv := &model.Conversation{Kind: model.KindDirect}
	require.NoError(t, convs.Insert(ctx, conv))
	require.NoError(t, profs.Upsert(ctx, &model.Profile{ID: "alice", Username: "Alice"}))
	require.NoError(t, profs.Upsert(ctx, &model.Profile{ID: "bob", Username: "Bob"}))

	f := NewFeed(conv.ID, msgs, convs, profs, broker, nil, zap.NewNop().Sugar())
	t.Cleanup(f.Close)
	return &feedFixture{feed: f, messages: msgs, convs: convs, profs: profs, broker: broker, convID: conv.ID}
}

func waitForLen(t *testing.T, f *Feed, n int) []FeedMessage {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(f.Messages()) == n
	}, time.Second, 5*time.Millisecond)
	return f.Messages()
}

func TestFeed_HistoryAndLiveEventsStaySorted(t *testing.T) {
	ctx := context.Background()
	fx := newFeedFixture(t)
	base := time.Now().UTC().Add(-time.Minute)

	for i, content := range []string{"first", "second", "third"} {
		require.NoError(t, fx.messages.Insert(ctx, &model.Message{
			ConversationID: fx.convID,
			SenderID:       "bob",
			Content:        content,
			CreatedAt:      base.Add(time.Duration(i) * time.Second),
		}))
	}
	require.NoError(t, fx.feed.Open(ctx))
	require.Len(t, fx.feed.Messages(), 3)

	// A live event carrying an older timestamp than the newest history entry
	// still lands in timestamp position.
	fx.broker.Publish(model.Message{
		ID:             "live-1",
		ConversationID: fx.convID,
		SenderID:       "bob",
		Content:        "in between",
		CreatedAt:      base.Add(1500 * time.Millisecond),
	})

	seq := waitForLen(t, fx.feed, 4)
	var contents []string
	for _, m := range seq {
		contents = append(contents, m.Content)
	}
	assert.Equal(t, []string{"first", "second", "in between", "third"}, contents)
	for i := 1; i < len(seq); i++ {
		assert.False(t, seq[i].Less(seq[i-1].Message), "sequence out of order at %d", i)
	}
}

func TestFeed_SendEchoIsDeduplicatedByID(t *testing.T) {
	ctx := context.Background()
	fx := newFeedFixture(t)
	require.NoError(t, fx.feed.Open(ctx))

	sent, err := fx.feed.Send(ctx, "alice", "  hello  ")
	require.NoError(t, err)
	assert.Equal(t, "hello", sent.Content)
	require.Len(t, fx.feed.Messages(), 1)

	// The live-event echo of the same row must not produce a second bubble.
	fx.broker.Publish(*sent)
	time.Sleep(50 * time.Millisecond)
	seq := fx.feed.Messages()
	require.Len(t, seq, 1)
	assert.Equal(t, "Alice", seq[0].SenderName)
}

func TestFeed_ToleranceWindowDedup(t *testing.T) {
	ctx := context.Background()
	fx := newFeedFixture(t)
	require.NoError(t, fx.feed.Open(ctx))

	sent, err := fx.feed.Send(ctx, "alice", "hello")
	require.NoError(t, err)

	// Echo under a different id but within the tolerance window: duplicate.
	fx.broker.Publish(model.Message{
		ID:             "server-echo",
		ConversationID: fx.convID,
		SenderID:       "alice",
		Content:        "hello",
		CreatedAt:      sent.CreatedAt.Add(2 * time.Second),
	})
	time.Sleep(50 * time.Millisecond)
	require.Len(t, fx.feed.Messages(), 1)

	// The echo may also carry a timestamp earlier than the local append.
	fx.broker.Publish(model.Message{
		ID:             "early-echo",
		ConversationID: fx.convID,
		SenderID:       "alice",
		Content:        "hello",
		CreatedAt:      sent.CreatedAt.Add(-2 * time.Second),
	})
	time.Sleep(50 * time.Millisecond)
	require.Len(t, fx.feed.Messages(), 1)

	// Same text far outside the window is a new logical message.
	fx.broker.Publish(model.Message{
		ID:             "later-repeat",
		ConversationID: fx.convID,
		SenderID:       "alice",
		Content:        "hello",
		CreatedAt:      sent.CreatedAt.Add(time.Minute),
	})
	waitForLen(t, fx.feed, 2)
}

func TestFeed_SendReachesOtherFeedsWithoutKafka(t *testing.T) {
	ctx := context.Background()
	fx := newFeedFixture(t)
	pub := events.NewLocalPublisher(fx.broker)

	sender := NewFeed(fx.convID, fx.messages, fx.convs, fx.profs, fx.broker, pub, zap.NewNop().Sugar())
	receiver := NewFeed(fx.convID, fx.messages, fx.convs, fx.profs, fx.broker, pub, zap.NewNop().Sugar())
	require.NoError(t, sender.Open(ctx))
	require.NoError(t, receiver.Open(ctx))
	defer sender.Close()
	defer receiver.Close()

	sent, err := sender.Send(ctx, "alice", "hello")
	require.NoError(t, err)

	seq := waitForLen(t, receiver, 1)
	assert.Equal(t, sent.ID, seq[0].ID)
	assert.Equal(t, "hello", seq[0].Content)

	// The sender's own feed dedups the echo by id.
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, sender.Messages(), 1)
}

func TestFeed_SendRejectsEmptyContent(t *testing.T) {
	ctx := context.Background()
	fx := newFeedFixture(t)
	require.NoError(t, fx.feed.Open(ctx))

	_, err := fx.feed.Send(ctx, "alice", "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Empty(t, fx.feed.Messages())
}

func TestFeed_SendUpdatesLastMessageSummary(t *testing.T) {
	ctx := context.Background()
	fx := newFeedFixture(t)
	require.NoError(t, fx.feed.Open(ctx))

	sent, err := fx.feed.Send(ctx, "alice", "latest news")
	require.NoError(t, err)

	conv, err := fx.convs.Get(ctx, fx.convID)
	require.NoError(t, err)
	require.NotNil(t, conv.LastMessage)
	assert.Equal(t, "latest news", conv.LastMessage.Content)
	assert.Equal(t, sent.CreatedAt, conv.LastMessage.SentAt)
}

type failingMessages struct{ *memstore.Messages }

func (f *failingMessages) Insert(context.Context, *model.Message) error {
	return errors.New("backend down")
}

func TestFeed_SendFailure(t *testing.T) {
	ctx := context.Background()
	fx := newFeedFixture(t)
	feed := NewFeed(fx.convID, &failingMessages{fx.messages}, fx.convs, fx.profs, fx.broker, nil, zap.NewNop().Sugar())
	require.NoError(t, feed.Open(ctx))
	defer feed.Close()

	_, err := feed.Send(ctx, "alice", "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSendFailed)
	assert.Empty(t, feed.Messages())
}

func TestFeed_UpdatesSignalAndClose(t *testing.T) {
	ctx := context.Background()
	fx := newFeedFixture(t)
	require.NoError(t, fx.feed.Open(ctx))

	fx.broker.Publish(model.Message{
		ID:             "m1",
		ConversationID: fx.convID,
		SenderID:       "bob",
		Content:        "ping",
		CreatedAt:      time.Now().UTC(),
	})
	select {
	case <-fx.feed.Updates():
	case <-time.After(time.Second):
		t.Fatal("no update signal")
	}

	fx.feed.Close()
	fx.feed.Close() // idempotent

	// After close the broker no longer reaches this feed.
	fx.broker.Publish(model.Message{
		ID:             "m2",
		ConversationID: fx.convID,
		SenderID:       "bob",
		Content:        "pong",
		CreatedAt:      time.Now().UTC(),
	})
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, fx.feed.Messages(), 1)
}

func TestFeed_UnknownSenderFallsBackToID(t *testing.T) {
	ctx := context.Background()
	fx := newFeedFixture(t)
	require.NoError(t, fx.feed.Open(ctx))

	fx.broker.Publish(model.Message{
		ID:             "m1",
		ConversationID: fx.convID,
		SenderID:       "ghost",
		Content:        "boo",
		CreatedAt:      time.Now().UTC(),
	})
	seq := waitForLen(t, fx.feed, 1)
	assert.Equal(t, "ghost", seq[0].SenderName)
}
