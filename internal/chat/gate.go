package chat

import (
	"context"
	"fmt"

	"github.com/tsudoi-app/tsudoi/internal/model"
	"github.com/tsudoi-app/tsudoi/internal/store"
)

// Gate answers whether a user may view or post into a conversation and owns
// the join/leave transitions of channel membership. Direct conversations have
// implicit permanent membership via their participant rows, so the same check
// covers both kinds.
type Gate struct {
	conversations store.ConversationStore
	participants  store.ParticipantStore
}

func NewGate(c store.ConversationStore, p store.ParticipantStore) *Gate {
	return &Gate{conversations: c, participants: p}
}

func (g *Gate) CheckMembership(ctx context.Context, conversationID, userID string) (bool, error) {
	ok, err := g.participants.IsMember(ctx, conversationID, userID)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrMembershipChange, err)
	}
	return ok, nil
}

// Join adds the user to a channel. Joining a channel the user already belongs
// to is a no-op; the participant store guards against duplicate rows.
func (g *Gate) Join(ctx context.Context, conversationID, userID string) error {
	conv, err := g.conversations.Get(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMembershipChange, err)
	}
	if conv.Kind != model.KindChannel {
		return ErrNotChannel
	}
	if err := g.participants.Add(ctx, conversationID, userID); err != nil {
		return fmt.Errorf("%w: %v", ErrMembershipChange, err)
	}
	return nil
}

// Leave removes the user's participant row. Leaving a channel the user is not
// a member of is a no-op.
func (g *Gate) Leave(ctx context.Context, conversationID, userID string) error {
	conv, err := g.conversations.Get(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMembershipChange, err)
	}
	if conv.Kind != model.KindChannel {
		return ErrNotChannel
	}
	if err := g.participants.Remove(ctx, conversationID, userID); err != nil {
		return fmt.Errorf("%w: %v", ErrMembershipChange, err)
	}
	return nil
}
