// Package dispatch orchestrates push delivery: load a user's live tokens,
// partition them across channels, fan out concurrently, aggregate outcomes,
// and hand dead tokens to the reconciler.
package dispatch

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/pushrelay/pushrelay/internal/api/models"
	"github.com/pushrelay/pushrelay/internal/history"
	"github.com/pushrelay/pushrelay/internal/push"
	"github.com/pushrelay/pushrelay/internal/token"
)

// defaultBadge is used when the unread count cannot be determined.
const defaultBadge = 1

// ValidationError represents validation errors.
type ValidationError struct {
	Errors []models.FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

// TokenRegistry is the registry surface the dispatcher needs.
type TokenRegistry interface {
	ListValid(ctx context.Context, userID string) ([]token.DeviceToken, error)
}

// HistoryStore is the history surface the dispatcher needs.
type HistoryStore interface {
	Create(ctx context.Context, userID, title, body string, data map[string]string) (*history.Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
}

// Config holds configuration for the dispatcher.
type Config struct {
	Tokens  TokenRegistry
	History HistoryStore

	// Ticket is the ticket-submission channel (Expo).
	Ticket push.Channel

	// Registration is the multicast channel (FCM).
	Registration push.Channel

	Reconciler *Reconciler

	// RoutingKey gates delivery-only dispatch: the call is skipped unless
	// the payload's "target" field matches it.
	RoutingKey string

	Logger zerolog.Logger
}

// Service is the delivery dispatcher.
type Service struct {
	tokens       TokenRegistry
	history      HistoryStore
	ticket       push.Channel
	registration push.Channel
	reconciler   *Reconciler
	routingKey   string
	logger       zerolog.Logger
}

// New creates a new dispatcher.
func New(cfg Config) *Service {
	return &Service{
		tokens:       cfg.Tokens,
		history:      cfg.History,
		ticket:       cfg.Ticket,
		registration: cfg.Registration,
		reconciler:   cfg.Reconciler,
		routingKey:   cfg.RoutingKey,
		logger:       cfg.Logger.With().Str("component", "dispatcher").Logger(),
	}
}

// Request is one delivery request.
type Request struct {
	UserID string
	Title  string
	Body   string
	Data   map[string]string
}

// Result is the aggregate outcome of one dispatch.
type Result struct {
	NotificationID string
	Sent           int
	Failed         int
	Skipped        bool
	SkipReason     string
}

// Notify dispatches in history mode: a history record is created first and
// its ID is embedded in the push payload. A failed history write aborts the
// call; a push must never go out the user cannot find in-app afterwards.
func (s *Service) Notify(ctx context.Context, req Request) (*Result, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	record, err := s.history.Create(ctx, req.UserID, req.Title, req.Body, req.Data)
	if err != nil {
		return nil, fmt.Errorf("create notification record: %w", err)
	}

	data := cloneData(req.Data)
	data["notification_id"] = record.ID

	sent, failed, err := s.fanOut(ctx, req.UserID, push.Message{
		Title: req.Title,
		Body:  req.Body,
		Data:  data,
		Badge: s.unreadBadge(ctx, req.UserID),
	})
	if err != nil {
		return nil, err
	}

	return &Result{NotificationID: record.ID, Sent: sent, Failed: failed}, nil
}

// DeliverOnly dispatches without a history record. The routing filter makes
// one generic ingress reusable by multiple upstream producers: anything whose
// payload target does not match the configured key is acknowledged but not
// delivered.
func (s *Service) DeliverOnly(ctx context.Context, req Request) (*Result, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	if target := req.Data["target"]; target != s.routingKey {
		return &Result{
			Skipped:    true,
			SkipReason: fmt.Sprintf("target %q does not match routing key", target),
		}, nil
	}

	sent, failed, err := s.fanOut(ctx, req.UserID, push.Message{
		Title: req.Title,
		Body:  req.Body,
		Data:  cloneData(req.Data),
		Badge: s.unreadBadge(ctx, req.UserID),
	})
	if err != nil {
		return nil, err
	}

	return &Result{Sent: sent, Failed: failed}, nil
}

// fanOut runs the shared delivery core. Sent+failed always equals the number
// of valid tokens loaded; channel failures surface as failed counts, never as
// errors.
func (s *Service) fanOut(ctx context.Context, userID string, msg push.Message) (sent, failed int, err error) {
	records, err := s.tokens.ListValid(ctx, userID)
	if err != nil {
		return 0, 0, fmt.Errorf("list valid tokens: %w", err)
	}
	if len(records) == 0 {
		return 0, 0, nil
	}

	tokens := make([]string, 0, len(records))
	for _, r := range records {
		tokens = append(tokens, r.Token)
	}
	buckets := push.Partition(tokens)

	var (
		wg                 sync.WaitGroup
		ticketResult       *push.BatchResult
		registrationResult *push.BatchResult
	)
	if len(buckets.Ticket) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticketResult = s.ticket.SendBatch(ctx, buckets.Ticket, msg)
		}()
	}
	if len(buckets.Registration) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			registrationResult = s.registration.SendBatch(ctx, buckets.Registration, msg)
		}()
	}
	wg.Wait()

	merged := &push.BatchResult{}
	merged.Merge(ticketResult)
	merged.Merge(registrationResult)

	dead := merged.PermanentFailures()
	if len(dead) > 0 {
		s.logger.Info().
			Str("user_id", userID).
			Int("tokens", len(dead)).
			Msg("queueing dead tokens for invalidation")
		s.reconciler.Enqueue(dead)
	}

	s.logger.Info().
		Str("user_id", userID).
		Int("sent", merged.SuccessCount).
		Int("failed", merged.FailureCount).
		Msg("dispatch completed")

	return merged.SuccessCount, merged.FailureCount, nil
}

// unreadBadge computes the badge hint for ticket-channel payloads from the
// user's unread history count.
func (s *Service) unreadBadge(ctx context.Context, userID string) int {
	count, err := s.history.CountUnread(ctx, userID)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("unread count unavailable, using default badge")
		return defaultBadge
	}
	return count
}

func validate(req Request) error {
	var fieldErrors []models.FieldError
	if req.UserID == "" {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "user_id", Message: "is required"})
	}
	if req.Title == "" {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "title", Message: "is required"})
	}
	if req.Body == "" {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "body", Message: "is required"})
	}
	if len(fieldErrors) > 0 {
		return &ValidationError{Errors: fieldErrors}
	}
	return nil
}

func cloneData(data map[string]string) map[string]string {
	cpy := make(map[string]string, len(data)+1)
	for k, v := range data {
		cpy[k] = v
	}
	return cpy
}
