package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"phrasedesk/internal/realtime"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is the part of *kafka.Writer the sink uses
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
}

// AuditSink streams audit-trail inserts to Kafka. It is fed from the realtime
// bus and never blocks the publisher: when its queue is full events are dropped.
type AuditSink struct {
	w     MessageWriter
	queue chan realtime.Event
	done  chan struct{}
}

func NewAuditSink(w MessageWriter, size int) *AuditSink {
	if size <= 0 {
		size = 256
	}
	return &AuditSink{w: w, queue: make(chan realtime.Event, size), done: make(chan struct{})}
}

// Handle is a realtime.Listener
func (s *AuditSink) Handle(ev realtime.Event) {
	if ev.Type != realtime.Insert {
		return
	}
	select {
	case s.queue <- ev:
	default:
		log.Warn().Str("table", ev.Table).Msg("kafka audit queue full, event dropped")
	}
}

// Run drains the queue until ctx is cancelled
func (s *AuditSink) Run(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-s.queue:
			if err := s.write(ctx, ev); err != nil {
				log.Warn().Err(err).Msg("kafka audit write failed")
			}
		}
	}
}

func (s *AuditSink) write(ctx context.Context, ev realtime.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("kafka: json.Marshal failed: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.w.WriteMessages(ctx, kafka.Message{Key: []byte(ev.Table), Value: data, Time: ev.At})
}

// Close waits for Run to stop and closes the writer
func (s *AuditSink) Close(ctx context.Context) error {
	select {
	case <-s.done:
	case <-ctx.Done():
	}
	return s.w.Close()
}
