// Package publish ships normalized events to the raw events topic on Google
// Cloud Pub/Sub.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/pubsub"

	"github.com/chainsignal-io/chainsignal/internal/event"
)

// DefaultBatchSize is the number of events published between pauses.
const DefaultBatchSize = 10

// batchPause spaces batches out so a large collection does not slam the
// topic.
const batchPause = 100 * time.Millisecond

// Result summarizes one publish call.
type Result struct {
	Published int    `json:"events_published"`
	Failed    int    `json:"events_failed"`
	Total     int    `json:"total_events"`
	Topic     string `json:"topic"`
}

// Publisher ships event batches downstream. The Pub/Sub implementation is the
// production one; tests substitute fakes.
type Publisher interface {
	Publish(ctx context.Context, events []event.Event, batchSize int) (Result, error)
}

// PubSub publishes events to a Google Cloud Pub/Sub topic.
type PubSub struct {
	client *pubsub.Client
	topic  *pubsub.Topic
	log    *slog.Logger
	pause  time.Duration
}

var _ Publisher = (*PubSub)(nil)

// NewPubSub connects to the project and binds the topic. The topic must
// already exist.
func NewPubSub(ctx context.Context, projectID, topicID string, log *slog.Logger) (*PubSub, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("publish: create client: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &PubSub{
		client: client,
		topic:  client.Topic(topicID),
		log:    log,
		pause:  batchPause,
	}, nil
}

// Publish ships events in batches, pausing between batches. Individual event
// failures are counted, not fatal; the call errors only when the context
// dies. A non-positive batchSize means DefaultBatchSize.
func (p *PubSub) Publish(ctx context.Context, events []event.Event, batchSize int) (Result, error) {
	res := Result{Total: len(events), Topic: p.topic.ID()}

	if len(events) == 0 {
		p.log.Warn("no events provided for publishing", "topic", res.Topic)
		return res, nil
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	p.log.Info("publishing events", "count", len(events), "topic", res.Topic)

	for i, batch := range chunk(events, batchSize) {
		if i > 0 {
			select {
			case <-ctx.Done():
				return res, ctx.Err()
			case <-time.After(p.pause):
			}
		}

		pending := make([]*pubsub.PublishResult, 0, len(batch))
		for _, ev := range batch {
			msg, err := encodeMessage(ev)
			if err != nil {
				p.log.Error("failed to encode event", "source", ev.Source, "error", err)
				res.Failed++
				continue
			}
			pending = append(pending, p.topic.Publish(ctx, msg))
		}
		for _, pr := range pending {
			if _, err := pr.Get(ctx); err != nil {
				p.log.Error("failed to publish event", "error", err)
				res.Failed++
				continue
			}
			res.Published++
		}
	}

	p.log.Info("publish complete", "published", res.Published, "failed", res.Failed)
	return res, nil
}

// Close flushes outstanding messages and releases the client.
func (p *PubSub) Close() error {
	p.topic.Stop()
	return p.client.Close()
}

// Log is the development-mode publisher used when no Google Cloud project is
// configured: it records what would have been published and drops the events.
type Log struct {
	Logger  *slog.Logger
	TopicID string
}

var _ Publisher = (*Log)(nil)

func (l *Log) Publish(_ context.Context, events []event.Event, _ int) (Result, error) {
	log := l.Logger
	if log == nil {
		log = slog.Default()
	}
	log.Info("development mode, events not published", "count", len(events), "topic", l.TopicID)
	return Result{Total: len(events), Topic: l.TopicID}, nil
}

// encodeMessage serializes an event and tags it with routing attributes so
// subscribers can filter without decoding the payload.
func encodeMessage(ev event.Event) (*pubsub.Message, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"source":     ev.Source,
			"event_type": ev.Type,
			"severity":   string(ev.Severity),
		},
	}, nil
}

func chunk(events []event.Event, size int) [][]event.Event {
	var out [][]event.Event
	for len(events) > size {
		out = append(out, events[:size])
		events = events[size:]
	}
	if len(events) > 0 {
		out = append(out, events)
	}
	return out
}
