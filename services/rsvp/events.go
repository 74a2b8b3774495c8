package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pavitra93/go-multi-tenant-rsvp/shared/models"
	"github.com/pavitra93/go-multi-tenant-rsvp/shared/utils"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// Event types published after successful writes
const (
	EventSubmitted = "rsvp.submitted"
	EventUpdated   = "rsvp.updated"
)

// RSVPEvent is the message body published for every guest record write
type RSVPEvent struct {
	EventID    string             `json:"event_id"`
	Type       string             `json:"type"`
	TenantSlug string             `json:"tenant_slug"`
	TenantID   string             `json:"tenant_id"`
	Record     models.GuestRecord `json:"record"`
	OccurredAt time.Time          `json:"occurred_at"`
}

func newRSVPEvent(eventType, slug, tenantID string, rec models.GuestRecord) RSVPEvent {
	return RSVPEvent{
		EventID:    uuid.New().String(),
		Type:       eventType,
		TenantSlug: slug,
		TenantID:   tenantID,
		Record:     rec,
		OccurredAt: time.Now().UTC(),
	}
}

// EventPublisher queues events for delivery. Publish never blocks the
// request path.
type EventPublisher interface {
	Publish(event RSVPEvent) error
	Close() error
}

// NoopPublisher discards events when no broker is configured
type NoopPublisher struct{}

func (NoopPublisher) Publish(RSVPEvent) error { return nil }
func (NoopPublisher) Close() error            { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher handles Kafka message production with a worker pool
type KafkaPublisher struct {
	writer       messageWriter
	topic        string
	events       chan RSVPEvent
	workerCount  int
	writeTimeout time.Duration
	breaker      *utils.CircuitBreaker
	log          *logrus.Entry

	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewKafkaPublisher creates a publisher writing to topic on broker
func NewKafkaPublisher(broker, topic string) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(broker),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    100,
	}
	return newKafkaPublisher(writer, topic, 4, 1000)
}

func newKafkaPublisher(writer messageWriter, topic string, workers, queue int) *KafkaPublisher {
	kp := &KafkaPublisher{
		writer:       writer,
		topic:        topic,
		events:       make(chan RSVPEvent, queue),
		workerCount:  workers,
		writeTimeout: 5 * time.Second,
		breaker:      utils.NewCircuitBreaker("kafka", 5, 30*time.Second),
		log:          logrus.WithField("component", "rsvp-events"),
	}

	for i := 0; i < kp.workerCount; i++ {
		kp.wg.Add(1)
		go kp.worker(i)
	}
	kp.log.Infof("Started %d event workers for topic %s", kp.workerCount, topic)

	return kp
}

func (kp *KafkaPublisher) worker(id int) {
	defer kp.wg.Done()

	for event := range kp.events {
		err := kp.breaker.Call(func() error { return kp.send(event) })
		if err != nil {
			kp.log.WithFields(logrus.Fields{
				"worker":   id,
				"event_id": event.EventID,
				"type":     event.Type,
				"tenant":   event.TenantSlug,
			}).Warnf("Dropping RSVP event: %v", err)
		}
	}
}

// Publish queues an event asynchronously; a full queue drops the event
func (kp *KafkaPublisher) Publish(event RSVPEvent) error {
	select {
	case kp.events <- event:
		return nil
	default:
		return fmt.Errorf("rsvp event queue full, event %s dropped", event.EventID)
	}
}

func (kp *KafkaPublisher) send(event RSVPEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal rsvp event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.TenantSlug),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "tenant_slug", Value: []byte(event.TenantSlug)},
			{Key: "record_id", Value: []byte(event.Record.ID)},
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), kp.writeTimeout)
	defer cancel()

	if err := kp.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write rsvp event to Kafka: %w", err)
	}
	return nil
}

// Close drains queued events and closes the writer. Publish must not be
// called after Close.
func (kp *KafkaPublisher) Close() error {
	var err error
	kp.closeOnce.Do(func() {
		close(kp.events)
		kp.wg.Wait()
		if cerr := kp.writer.Close(); cerr != nil {
			err = fmt.Errorf("failed to close Kafka writer: %w", cerr)
		}
		kp.log.Info("Event publisher shut down")
	})
	return err
}
