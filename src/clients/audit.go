package clients

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"

	"igyan-auth-svc/src/internal/config"
	"igyan-auth-svc/src/internal/models"
)

// AuditPublisher pushes session lifecycle events onto the audit exchange.
// Everything it does is best-effort bookkeeping; callers never block a login
// or logout on a publish failure.
type AuditPublisher struct {
	channel *amqp.Channel
	cfg     *config.RabbitMQConfig
}

func NewAuditPublisher(cfg *config.Configuration, channel *amqp.Channel) *AuditPublisher {
	return &AuditPublisher{
		channel: channel,
		cfg:     &cfg.Queue.RabbitMQ,
	}
}

// PublishActivity publishes a session activity message to RabbitMQ.
func (p *AuditPublisher) PublishActivity(message models.ActivityMessage) error {
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now()
	}

	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal activity message: %w", err)
	}

	err = p.channel.Publish(
		p.cfg.Exchange,
		p.cfg.RoutingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
			Timestamp:   time.Now(),
		},
	)

	if err != nil {
		logrus.WithError(err).Error("Failed to publish activity message")
		return fmt.Errorf("failed to publish activity message: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"user_id":     message.UserID,
		"session_id":  message.SessionID,
		"service":     message.ServiceName,
		"action":      message.Action,
		"exchange":    p.cfg.Exchange,
		"routing_key": p.cfg.RoutingKey,
	}).Debug("Activity message published")

	return nil
}
