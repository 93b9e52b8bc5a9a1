package chat

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tsudoi-app/tsudoi/internal/model"
	"github.com/tsudoi-app/tsudoi/internal/store"
)

// Channels owns the lifecycle of channel conversations: creation, owner-only
// edits, and owner-only deletion with cascade of participant and message rows.
type Channels struct {
	conversations store.ConversationStore
	participants  store.ParticipantStore
	messages      store.MessageStore
	profiles      store.ProfileStore
	log           *zap.SugaredLogger
}

func NewChannels(c store.ConversationStore, p store.ParticipantStore, m store.MessageStore,
	pr store.ProfileStore, log *zap.SugaredLogger) *Channels {
	return &Channels{conversations: c, participants: p, messages: m, profiles: pr, log: log}
}

// Create inserts the channel and joins the owner to it.
func (s *Channels) Create(ctx context.Context, ownerID, title, description string) (*model.Conversation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title required", ErrMembershipChange)
	}
	conv := &model.Conversation{
		Kind:        model.KindChannel,
		Title:       title,
		Description: strings.TrimSpace(description),
		OwnerID:     ownerID,
	}
	if err := s.conversations.Insert(ctx, conv); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMembershipChange, err)
	}
	if err := s.participants.Add(ctx, conv.ID, ownerID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMembershipChange, err)
	}
	return conv, nil
}

func (s *Channels) Get(ctx context.Context, id string) (*model.Conversation, error) {
	conv, err := s.conversations.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if conv.Kind != model.KindChannel {
		return nil, ErrNotChannel
	}
	return conv, nil
}

func (s *Channels) List(ctx context.Context) ([]*model.Conversation, error) {
	return s.conversations.ListByKind(ctx, model.KindChannel)
}

// ListJoined returns the channels the user holds a participant row in.
func (s *Channels) ListJoined(ctx context.Context, userID string) ([]*model.Conversation, error) {
	ids, err := s.participants.ConversationsOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	var out []*model.Conversation
	for _, id := range ids {
		conv, err := s.conversations.Get(ctx, id)
		if err != nil {
			if err == store.ErrNotFound {
				continue
			}
			return nil, err
		}
		if conv.Kind == model.KindChannel {
			out = append(out, conv)
		}
	}
	return out, nil
}

func (s *Channels) ListOwned(ctx context.Context, ownerID string) ([]*model.Conversation, error) {
	return s.conversations.ListByOwner(ctx, ownerID)
}

// Members returns the profiles of the channel's participants.
func (s *Channels) Members(ctx context.Context, id string) ([]*model.Profile, error) {
	userIDs, err := s.participants.MembersOf(ctx, id)
	if err != nil {
		return nil, err
	}
	var out []*model.Profile
	for _, uid := range userIDs {
		p, err := s.profiles.Get(ctx, uid)
		if err != nil {
			if err == store.ErrNotFound {
				continue
			}
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *Channels) Update(ctx context.Context, id, userID, title, description string) error {
	conv, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if conv.OwnerID != userID {
		return ErrNotOwner
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("%w: title required", ErrMembershipChange)
	}
	return s.conversations.Update(ctx, id, title, strings.TrimSpace(description))
}

// Delete removes the channel and cascades its participant and message rows,
// so it disappears from every member's joined listing. The cascade runs after
// the conversation row is gone; a failure there leaves unreferenced rows and
// is logged rather than surfaced.
func (s *Channels) Delete(ctx context.Context, id, userID string) error {
	conv, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if conv.OwnerID != userID {
		return ErrNotOwner
	}
	if err := s.conversations.Delete(ctx, id); err != nil {
		return fmt.Errorf("%w: %v", ErrMembershipChange, err)
	}
	if err := s.participants.RemoveAll(ctx, id); err != nil {
		s.log.Errorw("participant cascade failed", "channel", id, "err", err)
	}
	if err := s.messages.DeleteByConversation(ctx, id); err != nil {
		s.log.Errorw("message cascade failed", "channel", id, "err", err)
	}
	return nil
}
