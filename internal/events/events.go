// Package events publishes borrow-request audit events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/equiplend/frontend/internal/models"
)

const (
	TypeRequestCreated  = "borrow_request.created"
	TypeRequestApproved = "borrow_request.approved"
	TypeRequestRejected = "borrow_request.rejected"
	TypeRequestIssued   = "borrow_request.issued"
	TypeRequestReturned = "borrow_request.returned"
)

// TypeForAction maps a lifecycle command to its event type.
func TypeForAction(a models.Action) string {
	switch a {
	case models.ActionApprove:
		return TypeRequestApproved
	case models.ActionReject:
		return TypeRequestRejected
	case models.ActionIssue:
		return TypeRequestIssued
	case models.ActionReturn:
		return TypeRequestReturned
	}
	return "borrow_request." + string(a)
}

type Event struct {
	Type        string        `json:"type"`
	RequestID   int64         `json:"request_id"`
	EquipmentID int64         `json:"equipment_id,omitempty"`
	Status      models.Status `json:"status,omitempty"`
	ActorID     int64         `json:"actor_id"`
	ActorRole   models.Role   `json:"actor_role"`
	Reason      string        `json:"reason,omitempty"`
	At          time.Time     `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// New returns a Kafka publisher, or Nop when no brokers are configured.
func New(brokers []string, topic string) Publisher {
	if len(brokers) == 0 {
		return Nop{}
	}
	return NewKafkaPublisher(brokers, topic)
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	w messageWriter
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{w: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		WriteTimeout:           5 * time.Second,
		AllowAutoTopicCreation: true,
	}}
}

// Publish writes e keyed by request id so one request's events stay ordered.
func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("kafka: json.Marshal failed: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(e.RequestID, 10)),
		Value: data,
		Time:  e.At,
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: write failed: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error { return p.w.Close() }

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }
