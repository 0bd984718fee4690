package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/example/marketplace-orders/internal/broadcast"
)

const DefaultNotificationsExchange = "notifications_fanout"

// NotificationPublisher forwards customer notifications to a fanout
// exchange consumed by push delivery services.
type NotificationPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

// Connect dials the broker.
func Connect(url string) (*amqp.Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	return conn, nil
}

// NewNotificationPublisher opens a channel and declares the fanout exchange.
func NewNotificationPublisher(conn *amqp.Connection, exchange string) (*NotificationPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}

	err = ch.ExchangeDeclare(
		exchange,
		"fanout",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return nil, err
	}

	return &NotificationPublisher{
		conn:     conn,
		channel:  ch,
		exchange: exchange,
	}, nil
}

func (p *NotificationPublisher) PublishNotification(ctx context.Context, n broadcast.UserNotification) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	msg, err := notificationMessage(n)
	if err != nil {
		return err
	}
	return p.channel.PublishWithContext(ctx, p.exchange, "", false, false, msg)
}

func notificationMessage(n broadcast.UserNotification) (amqp.Publishing, error) {
	body, err := json.Marshal(n)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encode notification: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    n.ID,
		Timestamp:    n.Timestamp,
		Type:         broadcast.EventUserOrderNotification,
		Body:         body,
	}, nil
}

// Close closes the channel and then the connection.
func (p *NotificationPublisher) Close() error {
	if err := p.channel.Close(); err != nil {
		return err
	}
	return p.conn.Close()
}
