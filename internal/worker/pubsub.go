// Package worker provides Pub/Sub ingestion of upstream delivery events.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/pushrelay/pushrelay/internal/dispatch"
)

// Dispatcher is the delivery surface the worker drives.
type Dispatcher interface {
	DeliverOnly(ctx context.Context, req dispatch.Request) (*dispatch.Result, error)
}

// DeliveryEvent is the wire shape of an upstream delivery event. Some
// producers put the user reference at the top level, others nest it under a
// record envelope.
type DeliveryEvent struct {
	UserID string `json:"user_id,omitempty"`
	Record *struct {
		UserID string `json:"user_id"`
	} `json:"record,omitempty"`
	Title          string            `json:"title"`
	Body           string            `json:"body"`
	Data           map[string]string `json:"data,omitempty"`
	NotificationID string            `json:"notification_id,omitempty"`
}

func (e DeliveryEvent) resolveUserID() string {
	if e.UserID != "" {
		return e.UserID
	}
	if e.Record != nil {
		return e.Record.UserID
	}
	return ""
}

// PubSubHandler consumes delivery events and hands them to the dispatcher.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	dispatcher       Dispatcher
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	Dispatcher       Dispatcher
	Logger           zerolog.Logger
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)

	// Configure receive settings.
	subscriber.ReceiveSettings.MaxOutstandingMessages = 10
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		dispatcher:       cfg.Dispatcher,
		logger:           cfg.Logger,
	}, nil
}

// Start begins processing Pub/Sub messages.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		h.handleMessage(ctx, msg)
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

func (h *PubSubHandler) handleMessage(ctx context.Context, msg *pubsub.Message) {
	startTime := time.Now()

	logger := h.logger.With().
		Str("message_id", msg.ID).
		Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
		Logger()

	logger.Debug().Msg("received delivery event")

	if h.handleEvent(ctx, msg.Data, logger) {
		logger.Debug().Dur("duration", time.Since(startTime)).Msg("delivery event handled")
		msg.Ack()
		return
	}
	msg.Nack()
}

// handleEvent processes one raw event and reports whether it should be acked.
// Malformed and invalid events are acked (redelivery cannot fix them);
// persistence failures are nacked so Pub/Sub redelivers.
func (h *PubSubHandler) handleEvent(ctx context.Context, data []byte, logger zerolog.Logger) bool {
	var event DeliveryEvent
	if err := json.Unmarshal(data, &event); err != nil {
		logger.Error().Err(err).Msg("failed to parse delivery event, dropping")
		return true
	}

	payload := event.Data
	if event.NotificationID != "" {
		if payload == nil {
			payload = make(map[string]string, 1)
		}
		payload["notification_id"] = event.NotificationID
	}

	result, err := h.dispatcher.DeliverOnly(ctx, dispatch.Request{
		UserID: event.resolveUserID(),
		Title:  event.Title,
		Body:   event.Body,
		Data:   payload,
	})
	if err != nil {
		var validationErr *dispatch.ValidationError
		if errors.As(err, &validationErr) {
			logger.Warn().Msg("invalid delivery event, dropping")
			return true
		}
		logger.Error().Err(err).Msg("delivery failed, requeueing event")
		return false
	}

	if result.Skipped {
		logger.Debug().Str("reason", result.SkipReason).Msg("delivery event skipped by routing filter")
		return true
	}

	logger.Info().
		Int("sent", result.Sent).
		Int("failed", result.Failed).
		Msg("delivery event dispatched")
	return true
}
