// Package eventexport publishes session lifecycle events (offer
// answered, terminate completed) to Kafka, so an external system can
// track session churn without polling the control plane.
//
// Grounded directly on plugins/reporter/kafka/kafka.go's KafkaReporter:
// same writer-config/compression-codec setup and batching knobs, same
// atomic counters for reported/error totals, adapted from publishing
// captured network packets to publishing session lifecycle events.
package eventexport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/compress"
	"github.com/sirupsen/logrus"

	"firestige.xyz/otus/internal/mrcptypes"
)

const (
	defaultBatchSize    = 100
	defaultBatchTimeout = 100 * time.Millisecond
	defaultCompression  = "snappy"
	defaultMaxAttempts  = 3
)

// EventKind discriminates the session lifecycle events this package
// publishes.
type EventKind string

const (
	EventAnswered  EventKind = "answered"
	EventTerminated EventKind = "terminated"
)

// Event is one session lifecycle occurrence, serialized as the Kafka
// message value.
type Event struct {
	Kind      EventKind     `json:"kind"`
	SessionID string        `json:"session_id"`
	Profile   string        `json:"profile"`
	Status    mrcptypes.Status `json:"status,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// Config mirrors plugins/reporter/kafka/kafka.go's Config shape.
type Config struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
	Compression  string
	MaxAttempts  int
}

// Publisher sends session lifecycle events to Kafka.
type Publisher struct {
	writer *kafka.Writer
	config Config
	log    *logrus.Entry

	publishedCount atomic.Uint64
	errorCount     atomic.Uint64
}

// New builds a Publisher from cfg, applying the same defaults as the
// packet-capture Kafka reporter.
func New(cfg Config, log *logrus.Entry) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("eventexport: brokers required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("eventexport: topic required")
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = defaultBatchTimeout
	}
	if cfg.Compression == "" {
		cfg.Compression = defaultCompression
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	writerConfig := kafka.WriterConfig{
		Brokers:      cfg.Brokers,
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		MaxAttempts:  cfg.MaxAttempts,
		Async:        false,
	}
	switch cfg.Compression {
	case "none":
		writerConfig.CompressionCodec = nil
	case "gzip":
		writerConfig.CompressionCodec = compress.Gzip.Codec()
	case "snappy":
		writerConfig.CompressionCodec = compress.Snappy.Codec()
	case "lz4":
		writerConfig.CompressionCodec = compress.Lz4.Codec()
	default:
		return nil, fmt.Errorf("eventexport: invalid compression %q", cfg.Compression)
	}

	return &Publisher{
		writer: kafka.NewWriter(writerConfig),
		config: cfg,
		log:    log.WithField("component", "eventexport"),
	}, nil
}

// Publish sends ev to Kafka, keyed by session ID so every event for a
// given session lands on the same partition.
func (p *Publisher) Publish(ctx context.Context, ev Event) error {
	value, err := json.Marshal(ev)
	if err != nil {
		p.errorCount.Add(1)
		return fmt.Errorf("eventexport: serialize event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(ev.SessionID),
		Value: value,
		Time:  ev.Timestamp,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.errorCount.Add(1)
		p.log.WithError(err).Warn("event publish failed")
		return fmt.Errorf("eventexport: write: %w", err)
	}
	p.publishedCount.Add(1)
	return nil
}

// Close flushes and closes the underlying Kafka writer.
func (p *Publisher) Close() error {
	p.log.WithFields(logrus.Fields{
		"published": p.publishedCount.Load(),
		"errors":    p.errorCount.Load(),
	}).Info("event publisher stopped")
	return p.writer.Close()
}
