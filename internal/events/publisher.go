// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

// Package events hands contact-form submissions to downstream processors
// (mail relay, ticketing) over a Watermill message bus.
//
// The memory backend is a Watermill gochannel for development and tests.
// The nats backend publishes over core NATS through watermill-nats. Both
// sit behind a circuit breaker so a broker outage fails fast instead of
// holding request goroutines.
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/govportal/internal/config"
	"github.com/tomtom215/govportal/internal/logging"
)

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("publisher is closed")

// Metadata keys set on every message.
const (
	MetadataEventType = "event_type"
	MetadataRequestID = "request_id"
)

// EventTypeContactSubmitted marks contact-form messages.
const EventTypeContactSubmitted = "contact.submitted"

// ContactSubmission is the message body for one contact form.
type ContactSubmission struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone,omitempty"`
	Subject     string    `json:"subject"`
	Message     string    `json:"message"`
	SourceIP    string    `json:"source_ip"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Publisher publishes domain events to one topic.
type Publisher struct {
	publisher message.Publisher
	topic     string
	breaker   *gobreaker.CircuitBreaker[struct{}]

	mu     sync.RWMutex
	closed bool
}

// NewPublisher wraps pub with a circuit breaker.
func NewPublisher(pub message.Publisher, topic string) *Publisher {
	breaker := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "events-" + topic,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("Circuit breaker state change")
		},
	})
	return &Publisher{publisher: pub, topic: topic, breaker: breaker}
}

// Topic is the topic messages are published to.
func (p *Publisher) Topic() string { return p.topic }

// PublishContact serializes s and publishes it. ID and SubmittedAt are
// filled when empty.
func (p *Publisher) PublishContact(ctx context.Context, s *ContactSubmission) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.SubmittedAt.IsZero() {
		s.SubmittedAt = time.Now().UTC()
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("serialize contact submission: %w", err)
	}

	msg := message.NewMessage(s.ID, data)
	msg.Metadata.Set(MetadataEventType, EventTypeContactSubmitted)
	if id := logging.RequestIDFromContext(ctx); id != "" {
		msg.Metadata.Set(MetadataRequestID, id)
	}
	msg.SetContext(ctx)

	return p.Publish(msg)
}

// Publish sends msg through the breaker.
func (p *Publisher) Publish(msg *message.Message) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	_, err := p.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, p.publisher.Publish(p.topic, msg)
	})
	if err != nil {
		PublishFailuresTotal.WithLabelValues(p.topic).Inc()
		return fmt.Errorf("publish to %s: %w", p.topic, err)
	}
	PublishedTotal.WithLabelValues(p.topic).Inc()
	return nil
}

// BreakerState reports the circuit breaker state for health checks.
func (p *Publisher) BreakerState() string {
	return p.breaker.State().String()
}

// Close closes the underlying publisher.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.publisher.Close()
}

// NewMemoryBus returns a publisher over an in-process gochannel, plus the
// channel itself so callers can subscribe.
func NewMemoryBus(topic string) (*Publisher, *gochannel.GoChannel) {
	ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, NewWatermillLogger())
	return NewPublisher(ch, topic), ch
}

// Open builds the publisher selected by cfg.Backend.
func Open(cfg *config.EventsConfig) (*Publisher, error) {
	switch cfg.Backend {
	case "", "memory":
		pub, _ := NewMemoryBus(cfg.ContactTopic)
		return pub, nil
	case "nats":
		return NewNATSPublisher(cfg.NATSURL, cfg.ContactTopic, NewWatermillLogger())
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.Backend)
	}
}
