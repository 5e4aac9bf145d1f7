package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 5 * time.Second

// Topology names the three queues backing the completion job pipeline.
// The main queue dead-letters rejected deliveries to the DLQ; the retry
// queue dead-letters expired deliveries back onto the main queue.
type Topology struct {
	Main  string
	Retry string
	DLQ   string
}

func NewTopology(queue string) Topology {
	return Topology{
		Main:  queue,
		Retry: queue + ".retry",
		DLQ:   queue + ".dlq",
	}
}

// Declare creates the three queues. Every process touching the
// topology declares it; redeclaration with identical arguments is a
// no-op on the broker.
func (t Topology) Declare(ch *amqp.Channel) error {
	if _, err := ch.QueueDeclare(t.DLQ, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare %s: %w", t.DLQ, err)
	}
	if _, err := ch.QueueDeclare(t.Retry, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": t.Main,
	}); err != nil {
		return fmt.Errorf("declare %s: %w", t.Retry, err)
	}
	if _, err := ch.QueueDeclare(t.Main, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": t.DLQ,
	}); err != nil {
		return fmt.Errorf("declare %s: %w", t.Main, err)
	}
	return nil
}

// JobMessage is the wire payload for a queued completion job. The
// worker loads the job record by ID; SessionID rides along for log
// correlation only and the job record stays authoritative.
type JobMessage struct {
	JobID      string    `json:"job_id"`
	SessionID  string    `json:"session_id,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Publisher enqueues completion jobs for the worker process.
type Publisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	top  Topology
}

func NewPublisher(url, queue string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	top := NewTopology(queue)
	if err := top.Declare(ch); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	return &Publisher{conn: conn, ch: ch, top: top}, nil
}

func (p *Publisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// PublishJob enqueues a durable message for jobID on the main queue.
func (p *Publisher) PublishJob(ctx context.Context, jobID, sessionID string) error {
	body, err := json.Marshal(JobMessage{
		JobID:      jobID,
		SessionID:  sessionID,
		EnqueuedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	cctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return p.ch.PublishWithContext(cctx,
		"",         // default exchange
		p.top.Main, // routing key = queue name
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    jobID,
			Body:         body,
		},
	)
}
