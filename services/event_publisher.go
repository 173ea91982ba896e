package services

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// Routing keys for workflow events
const (
	EventOrderCreated    = "order.created"
	EventOrderUpdated    = "order.updated"
	EventOrderDeleted    = "order.deleted"
	EventStageStarted    = "order.stage_started"
	EventStageCompleted  = "order.stage_completed"
	EventReworkRequested = "order.rework_requested"
	EventOrderCollected  = "order.collected"
	EventOrdersImported  = "order.batch_imported"
	EventStaffDeleted    = "staff.deleted"
)

// EventPublisher sends workflow events to interested consumers.
// Events are published after the transaction commits and failures are only logged.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// OrderEvent is the payload published for every order mutation
type OrderEvent struct {
	OrderID     uint      `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	Stage       string    `json:"stage"`
	StaffID     *uint     `json:"staff_id,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// RabbitPublisher publishes JSON events to a RabbitMQ topic exchange
type RabbitPublisher struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
}

// NewRabbitPublisher connects to RabbitMQ and declares the exchange
func NewRabbitPublisher(url, exchange string) (*RabbitPublisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, err
	}
	return &RabbitPublisher{conn: conn, channel: ch, exchange: exchange}, nil
}

// Publish serializes the payload to JSON and sends it to the exchange
func (p *RabbitPublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	if p == nil {
		return nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}

// Close terminates the connection
func (p *RabbitPublisher) Close() error {
	if p == nil {
		return nil
	}
	if err := p.channel.Close(); err != nil {
		log.Printf("close channel: %v", err)
	}
	return p.conn.Close()
}

// NoopPublisher drops every event. Used when RABBITMQ_URL is not configured.
type NoopPublisher struct{}

// Publish does nothing
func (NoopPublisher) Publish(context.Context, string, any) error {
	return nil
}

// PublishedEvent is one event captured by RecordingPublisher
type PublishedEvent struct {
	RoutingKey string
	Payload    any
}

// RecordingPublisher keeps published events in memory for testing
type RecordingPublisher struct {
	mu     sync.Mutex
	events []PublishedEvent
	// Err is returned from every Publish call when set
	Err error
}

// NewRecordingPublisher creates an empty recording publisher
func NewRecordingPublisher() *RecordingPublisher {
	return &RecordingPublisher{}
}

// Publish records the event
func (r *RecordingPublisher) Publish(_ context.Context, routingKey string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, PublishedEvent{RoutingKey: routingKey, Payload: payload})
	return nil
}

// Events returns a copy of the recorded events
func (r *RecordingPublisher) Events() []PublishedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	events := make([]PublishedEvent, len(r.events))
	copy(events, r.events)
	return events
}

// RoutingKeys returns the routing keys of the recorded events in publish order
func (r *RecordingPublisher) RoutingKeys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.events))
	for _, e := range r.events {
		keys = append(keys, e.RoutingKey)
	}
	return keys
}
