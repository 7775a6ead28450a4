package clients

import (
	"encoding/json"
	"fmt"
	"time"

	"campus-attendance-svc/src/internal/config"
	"campus-attendance-svc/src/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

// Publisher emits attendance activity events to the message broker.
type Publisher interface {
	PublishAttendanceEvent(event models.AttendanceEvent) error
}

type EventPublisher struct {
	channel *amqp.Channel
	cfg     *config.RabbitMQConfig
}

func NewEventPublisher(cfg *config.Configuration, channel *amqp.Channel) *EventPublisher {
	return &EventPublisher{
		channel: channel,
		cfg:     &cfg.Queue.RabbitMQ,
	}
}

func (p *EventPublisher) PublishAttendanceEvent(event models.AttendanceEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal attendance event: %w", err)
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
		logrus.WithError(err).Error("Failed to publish attendance event")
		return fmt.Errorf("failed to publish attendance event: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"action":      event.Action,
		"session_id":  event.SessionID,
		"exchange":    p.cfg.Exchange,
		"routing_key": p.cfg.RoutingKey,
	}).Debug("Attendance event published")

	return nil
}
