package chat

import (
	"go.uber.org/zap"

	"github.com/tsudoi-app/tsudoi/internal/realtime"
	"github.com/tsudoi-app/tsudoi/internal/store"
)

// Feeds builds Feed instances with the shared collaborators wired in; each
// open conversation view gets its own Feed.
type Feeds struct {
	messages      store.MessageStore
	conversations store.ConversationStore
	profiles      store.ProfileStore
	broker        *realtime.Broker
	publisher     EventPublisher
	log           *zap.SugaredLogger
}

func NewFeeds(m store.MessageStore, c store.ConversationStore, p store.ProfileStore,
	broker *realtime.Broker, publisher EventPublisher, log *zap.SugaredLogger) *Feeds {
	return &Feeds{messages: m, conversations: c, profiles: p, broker: broker, publisher: publisher, log: log}
}

func (f *Feeds) Open(conversationID string) *Feed {
	return NewFeed(conversationID, f.messages, f.conversations, f.profiles, f.broker, f.publisher, f.log)
}
