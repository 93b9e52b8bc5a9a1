// Package realtime fans out message-insert events to per-conversation
// subscribers as cancellable streams.
package realtime

import (
	"sync"

	"github.com/tsudoi-app/tsudoi/internal/model"
)

const subscriptionBuffer = 64

// Subscription delivers inserted messages for one conversation on C until
// Cancel is called. Cancel is idempotent and must run on every teardown path
// of the consuming view, otherwise the broker keeps delivering to a handler
// nobody reads.
type Subscription struct {
	C      <-chan model.Message
	cancel func()
}

func (s *Subscription) Cancel() { s.cancel() }

type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[int]chan model.Message
	next int
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[int]chan model.Message)}
}

func (b *Broker) Subscribe(conversationID string) *Subscription {
	ch := make(chan model.Message, subscriptionBuffer)

	b.mu.Lock()
	id := b.next
	b.next++
	if _, ok := b.subs[conversationID]; !ok {
		b.subs[conversationID] = make(map[int]chan model.Message)
	}
	b.subs[conversationID][id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			if m, ok := b.subs[conversationID]; ok {
				delete(m, id)
				if len(m) == 0 {
					delete(b.subs, conversationID)
				}
			}
			b.mu.Unlock()
			close(ch)
		})
	}
	return &Subscription{C: ch, cancel: cancel}
}

// Publish delivers m to every subscriber of its conversation. A subscriber
// that has fallen subscriptionBuffer events behind is skipped rather than
// blocking the publisher.
func (b *Broker) Publish(m model.Message) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[m.ConversationID] {
		select {
		case ch <- m:
		default:
		}
	}
}
