package publisher

import (
	"context"
	"log/slog"
	"time"

	r "github.com/fjod/go_cart/storefront/internal/repository"
	"github.com/segmentio/kafka-go"
)

const InvalidationTopic = "storefront-invalidations"

type Repo interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*r.OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
	DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
}

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type OutboxPoller struct {
	timeout     time.Duration
	eventTick   time.Duration
	cleanupTick time.Duration
	retention   time.Duration
	batch       int
	repo        Repo
	writer      MessageWriter
}

func NewKafkaWriter(topic string, brokers ...string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
}

func NewOutboxPoller(repo Repo, writer MessageWriter) *OutboxPoller {
	return &OutboxPoller{
		timeout:     time.Second * 5,
		eventTick:   time.Second,
		cleanupTick: time.Minute * 10,
		retention:   time.Hour * 24,
		batch:       100,
		repo:        repo,
		writer:      writer,
	}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	eventTicker := time.NewTicker(p.eventTick)
	cleanupTicker := time.NewTicker(p.cleanupTick)
	defer eventTicker.Stop()
	defer cleanupTicker.Stop()
	for {
		select {
		case <-eventTicker.C:
			p.processUnpublishedEvents(ctx)
		case <-cleanupTicker.C:
			p.purgeProcessed(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// processUnpublishedEvents publishes in id order and stops at the first
// failure so a later event never overtakes an earlier one.
func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) int {
	events, err := p.repo.GetUnprocessedEvents(ctx, p.batch)
	if err != nil {
		slog.ErrorContext(ctx, "failed to fetch outbox events", "error", err)
		return 0
	}

	published := 0
	for _, event := range events {
		if err := p.publishToKafka(ctx, event); err != nil {
			slog.WarnContext(ctx, "failed to publish outbox event", "id", event.ID, "error", err)
			return published
		}

		if err := p.repo.MarkEventAsProcessed(ctx, event.ID); err != nil {
			slog.ErrorContext(ctx, "failed to mark outbox event as processed", "id", event.ID, "error", err)
			return published
		}
		published++
	}
	return published
}

func (p *OutboxPoller) purgeProcessed(ctx context.Context) {
	n, err := p.repo.DeleteProcessedBefore(ctx, time.Now().Add(-p.retention))
	if err != nil {
		slog.ErrorContext(ctx, "failed to purge outbox", "error", err)
		return
	}
	if n > 0 {
		slog.InfoContext(ctx, "outbox purged", "deleted", n)
	}
}

func (p *OutboxPoller) publishToKafka(ctx context.Context, event *r.OutboxEvent) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(event.AggregateID), // purchase id keeps one purchase on one partition
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}

	return p.writer.WriteMessages(ctx, msg)
}
