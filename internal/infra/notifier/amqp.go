package notifier

import (
	"context"
	"encoding/json"
	"time"

	"reservatec-core/internal/pkg/config"
	"reservatec-core/internal/pkg/errs"
	"reservatec-core/internal/usecase/commands"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPNotifier publishes reservation events to a topic exchange. Routing
// keys are per-user ("user.<id>") so the real-time delivery tier can bind a
// queue per connected client.
type AMQPNotifier struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func NewAMQPNotifier(cfg config.BrokerConfig) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, errs.Wrap(err, "failed to connect to broker")
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errs.Wrap(err, "failed to open broker channel")
	}

	// Durable so bindings survive broker restarts.
	err = ch.ExchangeDeclare(
		cfg.Exchange, // name
		"topic",      // kind
		true,         // durable
		false,        // autoDelete
		false,        // internal
		false,        // noWait
		nil,          // args
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, errs.Wrap(err, "failed to declare exchange")
	}

	return &AMQPNotifier{conn: conn, ch: ch, exchange: cfg.Exchange}, nil
}

func (n *AMQPNotifier) Publish(ctx context.Context, userID uuid.UUID, event commands.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return errs.Wrap(err, "failed to marshal event")
	}

	err = n.ch.PublishWithContext(ctx,
		n.exchange,
		"user."+userID.String(),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
	if err != nil {
		return errs.Wrap(err, "failed to publish event")
	}
	return nil
}

func (n *AMQPNotifier) Close() error {
	if err := n.ch.Close(); err != nil {
		_ = n.conn.Close()
		return errs.Wrap(err, "failed to close broker channel")
	}
	if err := n.conn.Close(); err != nil {
		return errs.Wrap(err, "failed to close broker connection")
	}
	return nil
}
