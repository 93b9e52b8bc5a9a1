package chat

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/tsudoi-app/tsudoi/internal/model"
	"github.com/tsudoi-app/tsudoi/internal/store"
)

// Resolver finds or creates the direct conversation two users share.
type Resolver struct {
	conversations store.ConversationStore
	participants  store.ParticipantStore
	profiles      store.ProfileStore
	log           *zap.SugaredLogger
}

func NewResolver(c store.ConversationStore, p store.ParticipantStore, pr store.ProfileStore, log *zap.SugaredLogger) *Resolver {
	return &Resolver{conversations: c, participants: p, profiles: pr, log: log}
}

// ResolveDirect returns the id of the direct conversation between the two
// users, creating one if they share none. The lookup runs in two steps: all
// conversations the current user belongs to, then which of those the other
// user belongs to as well. If the second participant insert fails after the
// conversation row exists, the orphan row is left behind; it is unreachable
// from any user and harmless beyond storage waste.
func (r *Resolver) ResolveDirect(ctx context.Context, currentUserID, otherUserID string) (string, error) {
	mine, err := r.participants.ConversationsOf(ctx, currentUserID)
	if err != nil {
		return "", fmt.Errorf("%w: listing own conversations: %v", ErrResolutionFailed, err)
	}

	if len(mine) > 0 {
		member := make(map[string]bool, len(mine))
		for _, id := range mine {
			member[id] = true
		}
		theirs, err := r.participants.ConversationsOf(ctx, otherUserID)
		if err != nil {
			return "", fmt.Errorf("%w: listing peer conversations: %v", ErrResolutionFailed, err)
		}
		var shared []string
		for _, id := range theirs {
			if member[id] {
				shared = append(shared, id)
			}
		}
		// Channels both users joined also appear here; only a direct
		// conversation counts as prior contact.
		sort.Strings(shared)
		for _, id := range shared {
			conv, err := r.conversations.Get(ctx, id)
			if err != nil {
				return "", fmt.Errorf("%w: loading conversation %s: %v", ErrResolutionFailed, id, err)
			}
			if conv.Kind == model.KindDirect {
				return id, nil
			}
		}
	}

	conv := &model.Conversation{Kind: model.KindDirect}
	if err := r.conversations.Insert(ctx, conv); err != nil {
		return "", fmt.Errorf("%w: creating conversation: %v", ErrResolutionFailed, err)
	}
	for _, uid := range []string{currentUserID, otherUserID} {
		if err := r.participants.Add(ctx, conv.ID, uid); err != nil {
			r.log.Errorw("participant insert failed, conversation orphaned",
				"conversation", conv.ID, "user", uid, "err", err)
			return "", fmt.Errorf("%w: adding participant: %v", ErrResolutionFailed, err)
		}
	}
	return conv.ID, nil
}

// DirectSummary is one row of the current user's conversation listing.
type DirectSummary struct {
	ConversationID string             `json:"conversation_id"`
	Partner        *model.Profile     `json:"partner,omitempty"`
	LastMessage    *model.LastMessage `json:"last_message,omitempty"`
}

// ListDirect returns the user's direct conversations with the partner's
// profile attached, ordered by most recent message first.
func (r *Resolver) ListDirect(ctx context.Context, userID string) ([]DirectSummary, error) {
	ids, err := r.participants.ConversationsOf(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResolutionFailed, err)
	}
	var out []DirectSummary
	for _, id := range ids {
		conv, err := r.conversations.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrResolutionFailed, err)
		}
		if conv.Kind != model.KindDirect {
			continue
		}
		members, err := r.participants.MembersOf(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrResolutionFailed, err)
		}
		s := DirectSummary{ConversationID: id, LastMessage: conv.LastMessage}
		for _, m := range members {
			if m == userID {
				continue
			}
			partner, err := r.profiles.Get(ctx, m)
			if err != nil && err != store.ErrNotFound {
				return nil, fmt.Errorf("%w: %v", ErrResolutionFailed, err)
			}
			s.Partner = partner
			break
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		return summaryTime(out[i]).After(summaryTime(out[j]))
	})
	return out, nil
}

func summaryTime(s DirectSummary) time.Time {
	if s.LastMessage != nil {
		return s.LastMessage.SentAt
	}
	return time.Time{}
}
