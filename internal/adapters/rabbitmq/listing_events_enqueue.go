package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/mityay36/avito-bot/internal/contextkeys"
	"github.com/mityay36/avito-bot/internal/core/domain"
	"github.com/mityay36/avito-bot/internal/core/port"
)

const publishTimeout = 10 * time.Second

// Config параметры подключения к брокеру.
type Config struct {
	URL               string
	ExchangeName      string
	ListingRoutingKey string
	StatusRoutingKey  string
}

// RabbitMQListingEventsAdapter публикует события о найденных объявлениях и
// статусе монитора в обменник брокера. Это дополнительный канал доставки
// рядом с Telegram, для внешних потребителей.
type RabbitMQListingEventsAdapter struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	cfg     Config
}

// NewRabbitMQListingEventsAdapter подключается к брокеру и объявляет обменник.
func NewRabbitMQListingEventsAdapter(cfg Config) (*RabbitMQListingEventsAdapter, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("rabbitmq adapter: URL cannot be empty")
	}
	if cfg.ExchangeName == "" {
		return nil, fmt.Errorf("rabbitmq adapter: exchange name cannot be empty")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq adapter: failed to dial broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq adapter: failed to open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		cfg.ExchangeName,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq adapter: failed to declare exchange '%s': %w", cfg.ExchangeName, err)
	}

	return &RabbitMQListingEventsAdapter{conn: conn, channel: ch, cfg: cfg}, nil
}

// NotifyListing публикует событие о новом объявлении.
func (a *RabbitMQListingEventsAdapter) NotifyListing(ctx context.Context, listing domain.Listing) error {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component":   "RabbitMQListingEventsAdapter",
		"routing_key": a.cfg.ListingRoutingKey,
	})

	dto := ListingEventDTO{
		SourceID:      listing.SourceID,
		Title:         listing.Title,
		Description:   listing.DescriptionText,
		PriceMinor:    listing.PriceMinor,
		Location:      listing.Location,
		Rooms:         listing.Rooms,
		AreaSqm:       listing.AreaSqm,
		MetroStations: listing.Metro.Stations,
		MetroWalkMin:  listing.Metro.WalkMinutes,
		ListingURL:    listing.ListingURL,
		ImageURL:      listing.ImageURL,
		PublishedAt:   listing.PublishedAt,
		RecencyLabel:  listing.RecencyLabel,
		NotifiedAt:    time.Now().UTC(),
	}

	if err := a.publish(ctx, a.cfg.ListingRoutingKey, "ListingFoundEvent", dto); err != nil {
		logger.Error("Failed to publish listing event", err, nil)
		return err
	}

	logger.Debug("Listing event published", port.Fields{"source_id": listing.SourceID})
	return nil
}

// NotifyStatus публикует служебное событие монитора.
func (a *RabbitMQListingEventsAdapter) NotifyStatus(ctx context.Context, text string) error {
	dto := StatusEventDTO{Text: text, OccurredAt: time.Now().UTC()}
	return a.publish(ctx, a.cfg.StatusRoutingKey, "MonitorStatusEvent", dto)
}

func (a *RabbitMQListingEventsAdapter) publish(ctx context.Context, routingKey, eventType string, payload interface{}) error {
	if a.channel == nil || a.conn == nil || a.conn.IsClosed() {
		return fmt.Errorf("rabbitmq adapter: not connected or connection is closed")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("rabbitmq adapter: failed to marshal event: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Headers: amqp.Table{
			"event-type":    eventType,
			"event-version": "1.0.0",
		},
	}

	if traceID := contextkeys.TraceIDFromContext(ctx); traceID != "" {
		msg.Headers["x-trace-id"] = traceID
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = a.channel.PublishWithContext(
		publishCtx,
		a.cfg.ExchangeName,
		routingKey,
		false, // mandatory
		false, // immediate
		msg,
	)
	if err != nil {
		return fmt.Errorf("rabbitmq adapter: failed to publish message: %w", err)
	}
	return nil
}

// Close закрывает канал и соединение с брокером.
func (a *RabbitMQListingEventsAdapter) Close() error {
	var firstErr error
	if a.channel != nil {
		if err := a.channel.Close(); err != nil {
			firstErr = err
		}
		a.channel = nil
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		a.conn = nil
	}
	return firstErr
}
