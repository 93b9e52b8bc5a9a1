package chat

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tsudoi-app/tsudoi/internal/model"
	"github.com/tsudoi-app/tsudoi/internal/realtime"
	"github.com/tsudoi-app/tsudoi/internal/store"
)

// DefaultDedupTolerance is the window within which two messages with the same
// sender and content are treated as one logical message. It covers the gap
// between an optimistic local append and its live-event echo when the echo
// arrives under an id the client never saw.
const DefaultDedupTolerance = 5 * time.Second

// FeedMessage is a stored message annotated with the sender's display name,
// resolved by lookup rather than embedded at write time.
type FeedMessage struct {
	model.Message
	SenderName string `json:"sender_name"`
}

// EventPublisher propagates a freshly written message to other nodes.
type EventPublisher interface {
	Publish(ctx context.Context, m model.Message) error
}

// Feed maintains the ordered, deduplicated message sequence of one open
// conversation. History arrives from the message store, live inserts from the
// broker subscription, and the user's own sends are appended optimistically;
// the three paths converge on one sequence sorted by (created_at, id).
//
// A Feed must be Closed on every teardown path so its subscription is
// released.
type Feed struct {
	conversationID string
	messages       store.MessageStore
	conversations  store.ConversationStore
	profiles       store.ProfileStore
	broker         *realtime.Broker
	publisher      EventPublisher
	log            *zap.SugaredLogger
	tolerance      time.Duration

	mu      sync.Mutex
	seq     []FeedMessage
	applied map[string]bool
	names   map[string]string

	ctx     context.Context
	sub     *realtime.Subscription
	updates chan struct{}
	closed  sync.Once
}

func NewFeed(conversationID string, messages store.MessageStore, conversations store.ConversationStore,
	profiles store.ProfileStore, broker *realtime.Broker, publisher EventPublisher, log *zap.SugaredLogger) *Feed {
	return &Feed{
		conversationID: conversationID,
		messages:       messages,
		conversations:  conversations,
		profiles:       profiles,
		broker:         broker,
		publisher:      publisher,
		log:            log,
		tolerance:      DefaultDedupTolerance,
		applied:        make(map[string]bool),
		names:          make(map[string]string),
		updates:        make(chan struct{}, 1),
	}
}

// Open loads the conversation history and attaches the live subscription.
// ctx also scopes sender lookups for events arriving later.
func (f *Feed) Open(ctx context.Context) error {
	history, err := f.messages.List(ctx, f.conversationID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFeedUnavailable, err)
	}

	f.mu.Lock()
	for _, m := range history {
		name := f.lookupNameLocked(ctx, m.SenderID)
		f.seq = append(f.seq, FeedMessage{Message: *m, SenderName: name})
		f.applied[m.ID] = true
	}
	f.sortLocked()
	f.mu.Unlock()

	f.ctx = ctx
	f.sub = f.broker.Subscribe(f.conversationID)
	go f.run()
	return nil
}

func (f *Feed) run() {
	for m := range f.sub.C {
		f.apply(f.ctx, m)
	}
}

// Send writes the trimmed content as a new message and appends it to the
// sequence immediately, without waiting for the live-event echo. The message
// id is generated client-side so the echo is recognized by id. The
// last-message summary update afterwards is best effort: its failure does not
// unsend the message.
func (f *Feed) Send(ctx context.Context, senderID, content string) (*model.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}

	m := &model.Message{
		ID:             uuid.NewString(),
		ConversationID: f.conversationID,
		SenderID:       senderID,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}
	if err := f.messages.Insert(ctx, m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	f.apply(ctx, *m)

	if f.publisher != nil {
		if err := f.publisher.Publish(ctx, *m); err != nil {
			f.log.Errorw("message event publish failed", "message", m.ID, "err", err)
		}
	}
	lm := model.LastMessage{Content: m.Content, SentAt: m.CreatedAt}
	if err := f.conversations.SetLastMessage(ctx, f.conversationID, lm); err != nil {
		f.log.Warnw("last message summary update failed", "conversation", f.conversationID, "err", err)
	}
	return m, nil
}

// apply merges one message into the sequence, dropping it when it is a
// duplicate of an already-applied message: same row id, or same sender and
// content within the dedup tolerance.
func (f *Feed) apply(ctx context.Context, m model.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.applied[m.ID] {
		return
	}
	for _, existing := range f.seq {
		if existing.SenderID == m.SenderID && existing.Content == m.Content && withinTolerance(existing.CreatedAt, m.CreatedAt, f.tolerance) {
			f.applied[m.ID] = true
			return
		}
	}

	name := f.lookupNameLocked(ctx, m.SenderID)
	f.seq = append(f.seq, FeedMessage{Message: m, SenderName: name})
	f.applied[m.ID] = true
	f.sortLocked()

	select {
	case f.updates <- struct{}{}:
	default:
	}
}

// Messages returns a snapshot of the current ordered sequence.
func (f *Feed) Messages() []FeedMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]FeedMessage, len(f.seq))
	copy(out, f.seq)
	return out
}

// Updates signals after each change to the sequence. Signals coalesce; a
// reader takes a fresh snapshot via Messages on each one.
func (f *Feed) Updates() <-chan struct{} { return f.updates }

// Close releases the live subscription. Safe to call more than once.
func (f *Feed) Close() {
	f.closed.Do(func() {
		if f.sub != nil {
			f.sub.Cancel()
		}
	})
}

// sortLocked re-sorts the whole sequence rather than assuming append order:
// history, live events and optimistic appends interleave arbitrarily.
func (f *Feed) sortLocked() {
	sort.Slice(f.seq, func(i, j int) bool { return f.seq[i].Less(f.seq[j].Message) })
}

// withinTolerance reports whether the two timestamps differ by at most
// tolerance, in either direction.
func withinTolerance(a, b time.Time, tolerance time.Duration) bool {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return d <= tolerance
}

func (f *Feed) lookupNameLocked(ctx context.Context, senderID string) string {
	if name, ok := f.names[senderID]; ok {
		return name
	}
	name := senderID
	if p, err := f.profiles.Get(ctx, senderID); err == nil {
		name = p.Username
	} else if err != store.ErrNotFound {
		f.log.Warnw("sender lookup failed", "sender", senderID, "err", err)
	}
	f.names[senderID] = name
	return name
}
