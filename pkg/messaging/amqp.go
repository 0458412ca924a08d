package messaging

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

// JobEventMessage represents a job lifecycle event published via AMQP
type JobEventMessage struct {
	JobUUID   string                 `json:"job_uuid"`
	Event     string                 `json:"event"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// AMQPConfig holds AMQP client configuration
type AMQPConfig struct {
	URL        string
	QueueName  string
	RoutingKey string
	Durable    bool
}

// AMQPPublisher handles AMQP connections and job event publishing
type AMQPPublisher struct {
	logger    *logrus.Logger
	config    AMQPConfig
	conn      *amqp.Connection
	channel   *amqp.Channel
	connected bool
	connMutex sync.RWMutex
}

// NewAMQPPublisher creates a new AMQP publisher
func NewAMQPPublisher(logger *logrus.Logger, config AMQPConfig) *AMQPPublisher {
	if config.RoutingKey == "" {
		config.RoutingKey = config.QueueName
	}
	config.Durable = true

	return &AMQPPublisher{
		logger: logger,
		config: config,
	}
}

// Connect establishes a connection to the AMQP server
func (p *AMQPPublisher) Connect() error {
	p.connMutex.Lock()
	defer p.connMutex.Unlock()

	if p.connected {
		return nil
	}

	if p.config.URL == "" || p.config.QueueName == "" {
		p.logger.Warn("AMQP_URL or AMQP_QUEUE_NAME not set, event publishing disabled")
		return fmt.Errorf("AMQP URL or queue name not configured")
	}

	conn, err := amqp.Dial(p.config.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to AMQP server: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open AMQP channel: %w", err)
	}

	queue, err := channel.QueueDeclare(
		p.config.QueueName,
		p.config.Durable,
		false, // Delete when unused
		false, // Exclusive
		false, // No-wait
		nil,   // Arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("failed to declare AMQP queue %s: %w", p.config.QueueName, err)
	}

	p.conn = conn
	p.channel = channel
	p.connected = true

	p.logger.WithFields(logrus.Fields{
		"queue":     queue.Name,
		"messages":  queue.Messages,
		"consumers": queue.Consumers,
	}).Info("Connected to AMQP server")

	return nil
}

// IsConnected reports whether the publisher has a live connection
func (p *AMQPPublisher) IsConnected() bool {
	p.connMutex.RLock()
	defer p.connMutex.RUnlock()
	return p.connected
}

// PublishJobEvent publishes a job lifecycle event as JSON
func (p *AMQPPublisher) PublishJobEvent(jobUUID, event string, metadata map[string]interface{}) error {
	p.connMutex.RLock()
	defer p.connMutex.RUnlock()

	if !p.connected {
		return fmt.Errorf("AMQP publisher is not connected")
	}

	body, err := json.Marshal(JobEventMessage{
		JobUUID:   jobUUID,
		Event:     event,
		Timestamp: time.Now().UTC(),
		Metadata:  metadata,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal job event: %w", err)
	}

	err = p.channel.Publish(
		"",                  // Exchange
		p.config.RoutingKey, // Routing key (queue name)
		false,               // Mandatory
		false,               // Immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish job event: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"job_uuid": jobUUID,
		"event":    event,
	}).Debug("Published job event to AMQP")

	return nil
}

// Disconnect closes the channel and connection
func (p *AMQPPublisher) Disconnect() {
	p.connMutex.Lock()
	defer p.connMutex.Unlock()

	if !p.connected {
		return
	}

	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
	p.connected = false
	p.logger.Info("Disconnected from AMQP server")
}
