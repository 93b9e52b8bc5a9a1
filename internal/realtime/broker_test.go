package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsudoi-app/tsudoi/internal/model"
)

func recvOne(t *testing.T, sub *Subscription) model.Message {
	t.Helper()
	select {
	case m := <-sub.C:
		return m
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
		return model.Message{}
	}
}

func TestBroker_DeliversOnlyToMatchingConversation(t *testing.T) {
	b := NewBroker()
	subA := b.Subscribe("conv-a")
	defer subA.Cancel()
	subB := b.Subscribe("conv-b")
	defer subB.Cancel()

	b.Publish(model.Message{ID: "m1", ConversationID: "conv-a", Content: "hi"})

	got := recvOne(t, subA)
	assert.Equal(t, "m1", got.ID)

	select {
	case m := <-subB.C:
		t.Fatalf("unexpected delivery to conv-b: %+v", m)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBroker_MultipleSubscribersSameConversation(t *testing.T) {
	b := NewBroker()
	s1 := b.Subscribe("conv")
	defer s1.Cancel()
	s2 := b.Subscribe("conv")
	defer s2.Cancel()

	b.Publish(model.Message{ID: "m1", ConversationID: "conv"})
	assert.Equal(t, "m1", recvOne(t, s1).ID)
	assert.Equal(t, "m1", recvOne(t, s2).ID)
}

func TestBroker_CancelStopsDeliveryAndClosesChannel(t *testing.T) {
	b := NewBroker()
	sub := b.Subscribe("conv")

	sub.Cancel()
	sub.Cancel() // idempotent

	b.Publish(model.Message{ID: "m1", ConversationID: "conv"})

	_, open := <-sub.C
	require.False(t, open, "channel should be closed after cancel")
}

func TestBroker_SlowSubscriberDoesNotBlockPublish(t *testing.T) {
	b := NewBroker()
	sub := b.Subscribe("conv")
	defer sub.Cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriptionBuffer*2; i++ {
			b.Publish(model.Message{ID: "m", ConversationID: "conv"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}
