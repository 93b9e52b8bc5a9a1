// Package store defines the data-access surface the chat core depends on.
// Adapters live in mongostore (production) and memstore (tests, local dev);
// services receive these interfaces from the composition root.
package store

import (
	"context"
	"errors"

	"github.com/tsudoi-app/tsudoi/internal/model"
)

var ErrNotFound = errors.New("not found")

type ConversationStore interface {
	Insert(ctx context.Context, c *model.Conversation) error
	Get(ctx context.Context, id string) (*model.Conversation, error)
	// ListByKind returns conversations of one kind, newest first.
	ListByKind(ctx context.Context, kind model.Kind) ([]*model.Conversation, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*model.Conversation, error)
	Update(ctx context.Context, id string, title, description string) error
	// SetLastMessage refreshes the denormalized last-message summary.
	SetLastMessage(ctx context.Context, id string, lm model.LastMessage) error
	Delete(ctx context.Context, id string) error
}

type ParticipantStore interface {
	// Add is idempotent: adding an existing (conversation, user) pair is a no-op.
	Add(ctx context.Context, conversationID, userID string) error
	Remove(ctx context.Context, conversationID, userID string) error
	// IsMember reports whether a participant row exists for the pair.
	IsMember(ctx context.Context, conversationID, userID string) (bool, error)
	// ConversationsOf returns the ids of all conversations the user belongs to.
	ConversationsOf(ctx context.Context, userID string) ([]string, error)
	// MembersOf returns the user ids holding a row in the conversation.
	MembersOf(ctx context.Context, conversationID string) ([]string, error)
	// RemoveAll deletes every participant row of a conversation.
	RemoveAll(ctx context.Context, conversationID string) error
}

type MessageStore interface {
	Insert(ctx context.Context, m *model.Message) error
	// List returns all messages of a conversation ascending by (created_at, _id).
	List(ctx context.Context, conversationID string) ([]*model.Message, error)
	// DeleteByConversation removes a conversation's messages (channel cascade).
	DeleteByConversation(ctx context.Context, conversationID string) error
}

type ProfileStore interface {
	Get(ctx context.Context, id string) (*model.Profile, error)
	Upsert(ctx context.Context, p *model.Profile) error
	List(ctx context.Context) ([]*model.Profile, error)
	SetAvatarURL(ctx context.Context, id, url string) error
}
