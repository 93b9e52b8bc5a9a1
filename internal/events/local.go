package events

import (
	"context"

	"github.com/tsudoi-app/tsudoi/internal/model"
)

// LocalPublisher delivers message events straight into the in-process sink.
// It is the fallback when no Kafka brokers are configured, so feeds open on
// the same node still see each other's sends.
type LocalPublisher struct {
	sink Sink
}

func NewLocalPublisher(sink Sink) *LocalPublisher { return &LocalPublisher{sink: sink} }

func (p *LocalPublisher) Publish(_ context.Context, m model.Message) error {
	p.sink.Publish(m)
	return nil
}
