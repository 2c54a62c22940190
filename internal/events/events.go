// Package events publishes membership changes to RabbitMQ so the
// notification bot can react to them. Publishing is best-effort: callers log
// failures and carry on.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const DefaultQueue = "class.membership.changed"

// MembershipChanged is the message body. Empty From means the membership was
// created; empty To means it was deleted.
type MembershipChanged struct {
	ClassID    string    `json:"class_id"`
	UserID     string    `json:"user_id"`
	ActorID    string    `json:"actor_id"`
	Event      string    `json:"event"`
	From       string    `json:"from,omitempty"`
	To         string    `json:"to,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func publishing(e MembershipChanged) (amqp.Publishing, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("events: marshal: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    e.OccurredAt.UTC(),
		Body:         body,
	}, nil
}

// AMQPPublisher holds one connection and one channel. amqp channels are not
// safe for concurrent publishing, so Publish is serialized.
type AMQPPublisher struct {
	mu    sync.Mutex
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

// Dial connects and declares the durable queue.
func Dial(url, queue string) (*AMQPPublisher, error) {
	if url == "" {
		return nil, errors.New("events: amqp url is required")
	}
	if queue == "" {
		queue = DefaultQueue
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("events: dial: %w", err)
	}
	p := &AMQPPublisher{conn: conn, queue: queue}
	if err := p.openChannel(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return p, nil
}

func (p *AMQPPublisher) openChannel() error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("events: channel open: %w", err)
	}
	if _, err := ch.QueueDeclare(
		p.queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		_ = ch.Close()
		return fmt.Errorf("events: queue declare: %w", err)
	}
	p.ch = ch
	return nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, e MembershipChanged) error {
	msg, err := publishing(e)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil || p.ch.IsClosed() {
		if err := p.openChannel(); err != nil {
			return err
		}
	}
	// default exchange; routing key is the queue name
	if err := p.ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		return fmt.Errorf("events: publish: %w", err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
	}
	return p.conn.Close()
}

// Recorder keeps published messages in memory for tests.
type Recorder struct {
	mu   sync.Mutex
	msgs []MembershipChanged
}

func (r *Recorder) Publish(_ context.Context, e MembershipChanged) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, e)
	return nil
}

func (r *Recorder) Messages() []MembershipChanged {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]MembershipChanged, len(r.msgs))
	copy(out, r.msgs)
	return out
}
