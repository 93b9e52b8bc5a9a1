// Package memstore holds in-memory store implementations backing tests and
// local development without a running Mongo.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tsudoi-app/tsudoi/internal/model"
	"github.com/tsudoi-app/tsudoi/internal/store"
)

type Conversations struct {
	mu   sync.RWMutex
	rows map[string]model.Conversation
}

func NewConversations() *Conversations {
	return &Conversations{rows: make(map[string]model.Conversation)}
}

func (s *Conversations) Insert(_ context.Context, c *model.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	s.rows[c.ID] = *c
	return nil
}

func (s *Conversations) Get(_ context.Context, id string) (*model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.rows[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (s *Conversations) ListByKind(_ context.Context, kind model.Kind) ([]*model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Conversation
	for id := range s.rows {
		c := s.rows[id]
		if c.Kind == kind {
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (s *Conversations) ListByOwner(_ context.Context, ownerID string) ([]*model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Conversation
	for id := range s.rows {
		c := s.rows[id]
		if c.OwnerID == ownerID {
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (s *Conversations) Update(_ context.Context, id string, title, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.rows[id]
	if !ok {
		return store.ErrNotFound
	}
	c.Title = title
	c.Description = description
	c.UpdatedAt = time.Now().UTC()
	s.rows[id] = c
	return nil
}

func (s *Conversations) SetLastMessage(_ context.Context, id string, lm model.LastMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.rows[id]
	if !ok {
		return store.ErrNotFound
	}
	c.LastMessage = &lm
	c.UpdatedAt = time.Now().UTC()
	s.rows[id] = c
	return nil
}

func (s *Conversations) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, id)
	return nil
}

type participantKey struct{ conv, user string }

type Participants struct {
	mu   sync.RWMutex
	rows map[participantKey]model.Participant
}

func NewParticipants() *Participants {
	return &Participants{rows: make(map[participantKey]model.Participant)}
}

func (s *Participants) Add(_ context.Context, conversationID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := participantKey{conversationID, userID}
	if _, ok := s.rows[k]; ok {
		return nil
	}
	s.rows[k] = model.Participant{
		ConversationID: conversationID,
		UserID:         userID,
		JoinedAt:       time.Now().UTC(),
	}
	return nil
}

func (s *Participants) Remove(_ context.Context, conversationID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, participantKey{conversationID, userID})
	return nil
}

func (s *Participants) IsMember(_ context.Context, conversationID, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rows[participantKey{conversationID, userID}]
	return ok, nil
}

func (s *Participants) ConversationsOf(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for k := range s.rows {
		if k.user == userID {
			out = append(out, k.conv)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Participants) MembersOf(_ context.Context, conversationID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for k := range s.rows {
		if k.conv == conversationID {
			out = append(out, k.user)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Participants) RemoveAll(_ context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.rows {
		if k.conv == conversationID {
			delete(s.rows, k)
		}
	}
	return nil
}

type Messages struct {
	mu   sync.RWMutex
	rows map[string]model.Message
}

func NewMessages() *Messages {
	return &Messages{rows: make(map[string]model.Message)}
}

func (s *Messages) Insert(_ context.Context, m *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	s.rows[m.ID] = *m
	return nil
}

func (s *Messages) List(_ context.Context, conversationID string) ([]*model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Message
	for id := range s.rows {
		m := s.rows[id]
		if m.ConversationID == conversationID {
			out = append(out, &m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(*out[j]) })
	return out, nil
}

func (s *Messages) DeleteByConversation(_ context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, m := range s.rows {
		if m.ConversationID == conversationID {
			delete(s.rows, id)
		}
	}
	return nil
}

type Profiles struct {
	mu   sync.RWMutex
	rows map[string]model.Profile
}

func NewProfiles() *Profiles {
	return &Profiles{rows: make(map[string]model.Profile)}
}

func (s *Profiles) Get(_ context.Context, id string) (*model.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.rows[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (s *Profiles) Upsert(_ context.Context, p *model.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	if existing, ok := s.rows[p.ID]; ok {
		p.CreatedAt = existing.CreatedAt
	} else {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	s.rows[p.ID] = *p
	return nil
}

func (s *Profiles) List(_ context.Context) ([]*model.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Profile
	for id := range s.rows {
		p := s.rows[id]
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (s *Profiles) SetAvatarURL(_ context.Context, id, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.rows[id]
	if !ok {
		return store.ErrNotFound
	}
	p.AvatarURL = url
	p.UpdatedAt = time.Now().UTC()
	s.rows[id] = p
	return nil
}
