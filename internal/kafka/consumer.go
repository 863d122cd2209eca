package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/Fedecaff/mapa-emergencias-sub000/internal/config"
	"github.com/Fedecaff/mapa-emergencias-sub000/internal/logging"
	"github.com/Fedecaff/mapa-emergencias-sub000/internal/models"
)

// AlertSink persists feed alerts. *db.DB satisfies it.
type AlertSink interface {
	CreateAlert(ctx context.Context, alert *models.Alert) error
}

// Broadcaster pushes feed alerts to connected sessions.
type Broadcaster interface {
	BroadcastAlertCreated(alert models.Alert, excludeUserID int)
}

// Consumer ingests externally-originated alerts (civil-protection feeds)
// from Kafka, persists them, and broadcasts them to every session.
type Consumer struct {
	reader     *kafka.Reader
	sink       AlertSink
	dispatcher Broadcaster
	logger     *logging.Logger
}

func NewConsumer(cfg config.Config, sink AlertSink, dispatcher Broadcaster, logger *logging.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  []string{cfg.Kafka.Broker},
		Topic:    cfg.Kafka.Topic,
		GroupID:  cfg.Kafka.GroupID,
		MinBytes: 1e3,
		MaxBytes: 10e6,
	})
	return &Consumer{reader: reader, sink: sink, dispatcher: dispatcher, logger: logger}
}

type feedAlert struct {
	Type        string   `json:"tipo"`
	Priority    string   `json:"prioridad"`
	Title       string   `json:"titulo"`
	Description string   `json:"descripcion"`
	Address     string   `json:"direccion"`
	Latitude    *float64 `json:"latitud"`
	Longitude   *float64 `json:"longitud"`
}

// Start consumes until ctx is cancelled. Invalid messages are logged and
// skipped, never fatal.
func (c *Consumer) Start(ctx context.Context) {
	c.logger.Infof("Kafka feed consumer started on topic %s", c.reader.Config().Topic)
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Errorf("Kafka read failed: %v", err)
			continue
		}

		if err := c.ingest(ctx, msg.Value); err != nil {
			c.logger.Errorf("Feed message dropped: %v", err)
		}
	}
}

// ingest parses, validates, persists and broadcasts one feed message.
func (c *Consumer) ingest(ctx context.Context, value []byte) error {
	var feed feedAlert
	if err := json.Unmarshal(value, &feed); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if feed.Title == "" || feed.Latitude == nil || feed.Longitude == nil {
		return fmt.Errorf("missing titulo or coordinates")
	}

	alert := models.Alert{
		Type:        feed.Type,
		Priority:    feed.Priority,
		Title:       feed.Title,
		Description: feed.Description,
		Address:     feed.Address,
		Latitude:    *feed.Latitude,
		Longitude:   *feed.Longitude,
		Status:      models.StatusActive,
	}
	if alert.Priority == "" {
		alert.Priority = models.PriorityMedium
	}
	if err := alert.Validate(); err != nil {
		return fmt.Errorf("invalid feed alert: %w", err)
	}

	if err := c.sink.CreateAlert(ctx, &alert); err != nil {
		return fmt.Errorf("persist feed alert: %w", err)
	}

	// Feed alerts have no originating session, nobody is excluded
	c.dispatcher.BroadcastAlertCreated(alert, 0)
	c.logger.Infof("Ingested feed alert %s", alert.ID)
	return nil
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.logger.Errorf("Kafka reader close failed: %v", err)
	}
}
