package queue

import (
	"encoding/json"

	"github.com/streadway/amqp"
)

// AmqpQueue publishes jobs to RabbitMQ. Consuming happens in cmd/worker.
type AmqpQueue struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func DialAmqp(url string) (*AmqpQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &AmqpQueue{conn: conn, ch: ch}, nil
}

func (q *AmqpQueue) Publish(topic string, payload any) error {
	if _, err := q.ch.QueueDeclare(
		topic, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	); err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return q.ch.Publish(
		"",
		topic,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

func (q *AmqpQueue) Close() {
	if q.ch != nil {
		q.ch.Close()
	}
	if q.conn != nil {
		q.conn.Close()
	}
}

var _ Queue = (*AmqpQueue)(nil)
