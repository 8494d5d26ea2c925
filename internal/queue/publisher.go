package queue

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/pamfree/internal/logging"
)

// ActivityQueue is the durable queue events are routed to.
const ActivityQueue = "pamfree.activity"

// Publisher emits activity events.  Publish failures must never fail the
// request that caused them; callers log and move on.
type Publisher interface {
	Publish(ctx context.Context, ev ActivityEvent) error
}

// AMQPPublisher publishes to RabbitMQ, dialing per message.  Mutations
// are infrequent enough that a pooled channel is not worth its
// reconnect handling.
type AMQPPublisher struct {
	URL   string
	Queue string
}

func NewAMQPPublisher(url string) *AMQPPublisher {
	return &AMQPPublisher{URL: url, Queue: ActivityQueue}
}

// Publish marshals ev and sends it as a persistent message via the
// default exchange.
func (p *AMQPPublisher) Publish(ctx context.Context, ev ActivityEvent) error {
	log := logging.Ctx(ctx)
	conn, err := amqp.Dial(p.URL)
	if err != nil {
		log.Warn().Err(err).Msg("rabbitmq: dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Warn().Err(err).Msg("rabbitmq: channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(p.Queue, true, false, false, false, nil); err != nil {
		log.Warn().Err(err).Msg("rabbitmq: queue declare failed")
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         string(ev.Type),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.Queue, false, false, pub); err != nil {
		log.Warn().Err(err).Str("event", string(ev.Type)).Msg("rabbitmq: publish failed")
		return err
	}
	return nil
}

// InlinePublisher dispatches events to a handler in-process.  Used when
// no broker is configured.
type InlinePublisher struct {
	Handler Handler
}

func (p InlinePublisher) Publish(ctx context.Context, ev ActivityEvent) error {
	if p.Handler == nil {
		return nil
	}
	return p.Handler.Handle(ctx, ev)
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, ActivityEvent) error { return nil }
