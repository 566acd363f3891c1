package rabbitmq

import (
	"log"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// ChargeConsumer subscribes the wallet service to settled-charge events from the
// provider webhook gateway. It owns one durable queue; every charge routing key is
// delivered to a single handler, since the provider's status travels in the payload
// rather than the routing key.
type ChargeConsumer struct {
	conn  *amqp091.Connection
	ch    *amqp091.Channel
	queue string
}

// NewChargeConsumer connects to RabbitMQ and opens the consuming channel.
func NewChargeConsumer(amqpURL, queueName string) (*ChargeConsumer, error) {
	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}

	conn, err := amqp091.DialConfig(cleanURL, amqp091.Config{Dial: amqp091.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	// Bound in-flight deliveries so a burst of settled charges cannot flood the
	// topup reconciliation path.
	if err := ch.Qos(16, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &ChargeConsumer{conn: conn, ch: ch, queue: queueName}, nil
}

// Subscribe declares the exchange and queue, binds the charge routing keys and
// starts delivering message bodies to handle. A handler returning false requeues
// the delivery for retry.
func (c *ChargeConsumer) Subscribe(exchange string, routingKeys []string, handle func([]byte) bool) error {
	if err := c.ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return err
	}

	q, err := c.ch.QueueDeclare(c.queue, true, false, false, false, nil)
	if err != nil {
		return err
	}

	for _, routingKey := range routingKeys {
		if err := c.ch.QueueBind(q.Name, routingKey, exchange, false, nil); err != nil {
			return err
		}
	}

	deliveries, err := c.ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	log.Printf("level=info component=rabbitmq_consumer msg=\"charge subscription started\" queue=%s exchange=%s bindings=%d", q.Name, exchange, len(routingKeys))

	go func() {
		for d := range deliveries {
			if handle(d.Body) {
				d.Ack(false)
				continue
			}
			log.Printf("level=warn component=rabbitmq_consumer msg=\"charge handler failed; requeuing\" queue=%s routing_key=%s", c.queue, d.RoutingKey)
			d.Nack(false, true)
		}
		log.Printf("level=warn component=rabbitmq_consumer msg=\"delivery channel closed\" queue=%s", c.queue)
	}()

	return nil
}

// Close shuts down the channel and connection.
func (c *ChargeConsumer) Close() {
	if c.ch != nil {
		c.ch.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}
