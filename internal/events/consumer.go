package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/tsudoi-app/tsudoi/internal/model"
)

type Sink interface {
	Publish(m model.Message)
}

type Consumer struct {
	reader *kafka.Reader
	log    *zap.SugaredLogger
}

// NewConsumer joins the topic under a group id unique to this process, so
// the topic behaves as a broadcast: an insert event produced on any node is
// read by every node and republished into its broker.
func NewConsumer(brokers []string, topic, groupPrefix string, log *zap.SugaredLogger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: broadcastGroup(groupPrefix),
	})
	return &Consumer{reader: r, log: log}
}

// broadcastGroup derives a process-unique consumer group from the configured
// prefix. Sharing one group would split the topic's partitions across nodes
// and deliver each event to only one of them.
func broadcastGroup(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// Run reads until ctx is cancelled, republishing each event into the sink.
func (c *Consumer) Run(ctx context.Context, sink Sink) {
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Errorw("kafka read", "err", err)
			time.Sleep(time.Second)
			continue
		}
		var msg model.Message
		if err := json.Unmarshal(m.Value, &msg); err != nil {
			c.log.Warnw("bad event payload", "err", err)
			continue
		}
		sink.Publish(msg)
	}
}

func (c *Consumer) Close() error { return c.reader.Close() }
