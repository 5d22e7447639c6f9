package main

import (
	"encoding/json"
	"fmt"
	"math/rand"

	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"github.com/molevo/broadcast-backend/internal/config"
	"github.com/molevo/broadcast-backend/internal/db"
	"github.com/molevo/broadcast-backend/internal/queue"
	"github.com/molevo/broadcast-backend/internal/repository"
	"github.com/molevo/broadcast-backend/internal/service"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()

	conn, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer conn.Close()

	deliveryRepo := &repository.DeliveryReportRepository{DB: conn}
	customerRepo := &repository.CustomerRepository{DB: conn}

	delivery := &service.DeliveryService{
		DeliveryRepo: deliveryRepo,
		CustomerRepo: customerRepo,
		Log:          log,
	}
	worker := service.NewSendWorker(delivery, mockSend, log)

	// Connect to RabbitMQ
	amqpConn, err := amqp.Dial(cfg.AmqpURL)
	if err != nil {
		log.Fatal("failed to connect to rabbitmq", zap.Error(err))
	}
	defer amqpConn.Close()

	ch, err := amqpConn.Channel()
	if err != nil {
		log.Fatal("failed to open a channel", zap.Error(err))
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(
		cfg.SendQueueName, // name
		true,              // durable
		false,             // delete when unused
		false,             // exclusive
		false,             // no-wait
		nil,               // arguments
	)
	if err != nil {
		log.Fatal("failed to declare queue", zap.Error(err))
	}

	msgs, err := ch.Consume(
		q.Name,
		"",
		false, // autoAck = false for reliability
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		log.Fatal("failed to register consumer", zap.Error(err))
	}

	log.Info("worker running, waiting for messages", zap.String("queue", q.Name))

	for d := range msgs {
		var job queue.SendJob
		if err := json.Unmarshal(d.Body, &job); err != nil {
			log.Warn("invalid job payload", zap.Error(err))
			d.Ack(false)
			continue
		}

		if err := worker.Process(job); err != nil {
			retries := retryCount(d.Headers)
			log.Error("failed to process batch",
				zap.Int64("campaign_id", job.CampaignID),
				zap.Int32("retries", retries), zap.Error(err))

			// A plain Nack requeue would redeliver the original headers and
			// the counter would never advance; republishing with the counter
			// stamped is what makes the retry limit effective.
			if int(retries) < cfg.WorkerMaxRetries {
				if perr := republish(ch, q.Name, d.Body, retries+1); perr != nil {
					log.Error("failed to requeue batch", zap.Error(perr))
					d.Nack(false, true)
					continue
				}
			} else {
				log.Error("dropping batch after max retries",
					zap.Int64("campaign_id", job.CampaignID),
					zap.Int("max_retries", cfg.WorkerMaxRetries))
			}
		}

		d.Ack(false)
	}
}

// retryCount reads the redelivery counter stamped on a republished batch.
// A batch fresh from the dispatcher has no header and counts as zero.
func retryCount(headers amqp.Table) int32 {
	if v, ok := headers["x-retry-count"].(int32); ok {
		return v
	}
	return 0
}

func republish(ch *amqp.Channel, queueName string, body []byte, retries int32) error {
	return ch.Publish(
		"",
		queueName,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
			Headers:     amqp.Table{"x-retry-count": retries},
		},
	)
}

// mockSend simulates a provider call with a 90% success rate.
func mockSend(method, address, content string) error {
	if address == "" {
		return fmt.Errorf("no %s address", method)
	}
	if rand.Intn(100) < 90 {
		return nil
	}
	return fmt.Errorf("mock %s send failed", method)
}
