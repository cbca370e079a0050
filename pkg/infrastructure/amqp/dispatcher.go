package amqp

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"

	"storefront/pkg/common/domain"
)

const publishTimeout = 5 * time.Second

type Config struct {
	URL            string
	Exchange       string
	ConnectTimeout time.Duration
}

// Dispatcher publishes domain events to a topic exchange, using the event type as routing key.
type Dispatcher struct {
	exchange string
	conn     *amqp.Connection
	channel  *amqp.Channel
	mu       sync.Mutex
}

func NewDispatcher(cfg Config) (*Dispatcher, error) {
	var conn *amqp.Connection
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = cfg.ConnectTimeout
	err := backoff.RetryNotify(func() error {
		var err error
		conn, err = amqp.Dial(cfg.URL)
		return err
	}, b, func(err error, next time.Duration) {
		log.WithError(err).WithField("retryIn", next).Warn("message broker is not reachable yet")
	})
	if err != nil {
		return nil, errors.Wrap(err, "dial message broker")
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "open channel")
	}
	err = channel.ExchangeDeclare(cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil)
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "declare exchange")
	}

	return &Dispatcher{exchange: cfg.Exchange, conn: conn, channel: channel}, nil
}

func newPublishing(event domain.Event, now time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, errors.Wrap(err, "encode event")
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    now.UTC(),
		Type:         event.Type(),
		Body:         body,
	}, nil
}

func (d *Dispatcher) Dispatch(event domain.Event) error {
	msg, err := newPublishing(event, time.Now())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	d.mu.Lock()
	defer d.mu.Unlock()
	err = d.channel.PublishWithContext(ctx, d.exchange, event.Type(), false, false, msg)
	if err != nil {
		log.WithError(err).WithField("event", event.Type()).Error("failed to publish event")
		return errors.Wrap(err, "publish event")
	}
	return nil
}

func (d *Dispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.channel.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		return errors.Wrap(err, "close channel")
	}
	return errors.Wrap(d.conn.Close(), "close connection")
}
