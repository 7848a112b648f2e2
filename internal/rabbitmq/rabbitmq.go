package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"blog_auth/internal/lib/logger/sl"
	"blog_auth/internal/models"

	amqp "github.com/rabbitmq/amqp091-go"
)

var ErrChannelClosed = errors.New("delivery channel closed")

type RabbitMQClient struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   amqp.Queue
}

func New(urlForConn string, queueName string) (*RabbitMQClient, error) {
	const op = "rabbitmq.New"

	conn, err := amqp.Dial(urlForConn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	q, err := ch.QueueDeclare(
		queueName, true, false, false, false, nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &RabbitMQClient{
		conn:    conn,
		channel: ch,
		queue:   q,
	}, nil
}

// * Publish отправляет событие аккаунта в очередь
func (r *RabbitMQClient) Publish(ctx context.Context, event models.AccountEvent) error {
	const op = "rabbitmq.Publish"

	msg, err := publishing(event)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := r.channel.PublishWithContext(ctx, "", r.queue.Name, false, false, msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// * Consume читает события до отмены контекста; обработчик вызывается по одному сообщению
func (r *RabbitMQClient) Consume(
	ctx context.Context,
	log *slog.Logger,
	handler func(context.Context, models.AccountEvent) error,
) error {
	const op = "rabbitmq.Consume"

	if err := r.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	deliveries, err := r.channel.ConsumeWithContext(ctx, r.queue.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("%s: %w", op, ErrChannelClosed)
			}

			handleDelivery(ctx, log, d, handler)
		}
	}
}

func (r *RabbitMQClient) Close() {
	_ = r.channel.Close()
	_ = r.conn.Close()
}

func publishing(event models.AccountEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, err
	}

	ts := event.OccurredAt
	if ts.IsZero() {
		ts = time.Now()
	}

	return amqp.Publishing{
		ContentType:  "application/json",
		Type:         event.Type,
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    ts,
	}, nil
}

// * handleDelivery: битые сообщения отбрасываются, ошибка обработчика возвращает сообщение в очередь один раз
func handleDelivery(
	ctx context.Context,
	log *slog.Logger,
	d amqp.Delivery,
	handler func(context.Context, models.AccountEvent) error,
) {
	var event models.AccountEvent

	if err := json.Unmarshal(d.Body, &event); err != nil {
		log.Error("failed to unmarshal account event", sl.Err(err))
		_ = d.Nack(false, false)

		return
	}

	if err := handler(ctx, event); err != nil {
		log.Error("failed to handle account event",
			slog.String("type", event.Type),
			slog.Int64("uid", event.UserID),
			sl.Err(err),
		)
		_ = d.Nack(false, !d.Redelivered)

		return
	}

	_ = d.Ack(false)
}
