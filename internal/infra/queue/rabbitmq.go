package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"tg-channel-nav/internal/domain"
	"tg-channel-nav/internal/infra/metrics"
)

// RabbitIngestQueue — очередь снимков каналов между краулером и
// каталогом. Очередь durable, подтверждение ручное: недоставленный
// снимок вернётся в очередь.
type RabbitIngestQueue struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
}

// NewRabbitIngestQueue подключается к брокеру и объявляет очередь.
func NewRabbitIngestQueue(amqpURL, queue string) (*RabbitIngestQueue, error) {
	if amqpURL == "" {
		return nil, errors.New("amqp url is empty")
	}
	if queue == "" {
		return nil, errors.New("queue name is empty")
	}
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}
	return &RabbitIngestQueue{conn: conn, channel: ch, queue: queue}, nil
}

// Publish отправляет снимок в очередь.
func (q *RabbitIngestQueue) Publish(ctx context.Context, snap domain.ChannelSnapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	start := time.Now()
	err = q.channel.PublishWithContext(ctx, "", q.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    snap.JobID,
		Body:         payload,
	})
	metrics.ObserveNetworkRequest("rabbitmq", "publish", q.queue, start, err)
	if err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}
	return nil
}

// Consume читает снимки до отмены контекста. Сбой обработчика
// возвращает сообщение в очередь; невалидный снимок — нет.
func (q *RabbitIngestQueue) Consume(ctx context.Context, handler func(context.Context, domain.ChannelSnapshot) error) error {
	deliveries, err := q.channel.Consume(q.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume queue: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return errors.New("amqp delivery channel closed")
			}
			q.process(ctx, delivery, handler)
		}
	}
}

// process подтверждает одну доставку по исходу обработки. Перекладывать
// обратно имеет смысл только временные сбои: битый payload и снимок,
// отклонённый валидацией, при повторе упадут так же, поэтому
// отбрасываются сразу.
func (q *RabbitIngestQueue) process(ctx context.Context, delivery amqp.Delivery, handler func(context.Context, domain.ChannelSnapshot) error) {
	var snap domain.ChannelSnapshot
	if err := json.Unmarshal(delivery.Body, &snap); err != nil {
		_ = delivery.Reject(false)
		metrics.IngestJobs.WithLabelValues("malformed").Inc()
		return
	}
	if err := handler(ctx, snap); err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) {
			_ = delivery.Reject(false)
			metrics.IngestJobs.WithLabelValues("discarded").Inc()
			return
		}
		_ = delivery.Nack(false, true)
		metrics.IngestJobs.WithLabelValues("requeued").Inc()
		return
	}
	_ = delivery.Ack(false)
}

// Close освобождает канал и соединение.
func (q *RabbitIngestQueue) Close() error {
	if err := q.channel.Close(); err != nil {
		_ = q.conn.Close()
		return err
	}
	return q.conn.Close()
}
