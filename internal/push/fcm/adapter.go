// Package fcm provides the registration-channel adapter delivering multicast
// pushes through Firebase Cloud Messaging.
package fcm

import (
	"context"
	"sync"

	"firebase.google.com/go/v4/messaging"
	"github.com/rs/zerolog"

	"github.com/pushrelay/pushrelay/internal/push"
)

const (
	// ChannelName identifies this adapter.
	ChannelName = "fcm"

	// maxMulticastTokens is the FCM per-request token ceiling.
	maxMulticastTokens = 500
)

// MessagingClient is the subset of the Firebase messaging API the adapter
// uses. *messaging.Client satisfies it; tests substitute a mock.
type MessagingClient interface {
	SendEachForMulticast(ctx context.Context, msg *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// Config holds configuration for the FCM adapter.
type Config struct {
	// Client is the Firebase messaging client. May be nil when FCM is not
	// configured; every send then degrades to transient failures.
	Client MessagingClient

	Logger zerolog.Logger

	// Classifier maps a per-token send error to a normalized outcome.
	// If nil, DefaultClassifier is used.
	Classifier func(err error) (push.Status, string)
}

// Adapter is the FCM registration-channel implementation of push.Channel.
type Adapter struct {
	client   MessagingClient
	logger   zerolog.Logger
	classify func(err error) (push.Status, string)
}

// New creates a new FCM adapter.
func New(cfg Config) *Adapter {
	classify := cfg.Classifier
	if classify == nil {
		classify = DefaultClassifier
	}
	return &Adapter{
		client:   cfg.Client,
		logger:   cfg.Logger.With().Str("channel", ChannelName).Logger(),
		classify: classify,
	}
}

// Name returns the channel name.
func (a *Adapter) Name() string {
	return ChannelName
}

// SendBatch delivers one multicast request per chunk of up to 500 tokens.
// Chunks are issued concurrently; outcomes are stitched back in input order.
func (a *Adapter) SendBatch(ctx context.Context, tokens []string, msg push.Message) *push.BatchResult {
	if len(tokens) == 0 {
		return &push.BatchResult{}
	}
	if a.client == nil {
		a.logger.Warn().Int("tokens", len(tokens)).Msg("fcm client not configured, dropping batch as transient")
		return push.TransientAll(tokens, "fcm client not configured")
	}

	chunks := chunkTokens(tokens, maxMulticastTokens)
	results := make([]*push.BatchResult, len(chunks))

	var wg sync.WaitGroup
	for i, chunk := range chunks {
		wg.Add(1)
		go func(i int, chunk []string) {
			defer wg.Done()
			results[i] = a.sendChunk(ctx, chunk, msg)
		}(i, chunk)
	}
	wg.Wait()

	merged := &push.BatchResult{}
	for _, r := range results {
		merged.Merge(r)
	}
	return merged
}

// sendChunk issues a single multicast request.
func (a *Adapter) sendChunk(ctx context.Context, tokens []string, msg push.Message) *push.BatchResult {
	multicast := &messaging.MulticastMessage{
		Tokens: tokens,
		Data:   msg.Data,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
	}

	br, err := a.client.SendEachForMulticast(ctx, multicast)
	if err != nil {
		// The whole request failed; no token-level verdicts are available.
		a.logger.Warn().Err(err).Int("tokens", len(tokens)).Msg("fcm multicast request failed")
		return push.TransientAll(tokens, "fcm request failed: "+err.Error())
	}

	result := &push.BatchResult{
		SuccessCount: br.SuccessCount,
		FailureCount: br.FailureCount,
		Outcomes:     make([]push.Outcome, 0, len(tokens)),
	}
	for idx, resp := range br.Responses {
		outcome := push.Outcome{Token: tokens[idx]}
		if resp.Success {
			outcome.Status = push.StatusDelivered
		} else {
			outcome.Status, outcome.Reason = a.classify(resp.Error)
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	if result.FailureCount > 0 {
		a.logger.Debug().
			Int("sent", result.SuccessCount).
			Int("failed", result.FailureCount).
			Msg("fcm multicast completed with failures")
	}
	return result
}

// DefaultClassifier maps Firebase send errors to normalized outcomes.
// Not-registered and invalid-token verdicts are permanent; everything else
// (quota, unavailable, internal) may succeed on a later attempt.
func DefaultClassifier(err error) (push.Status, string) {
	switch {
	case messaging.IsRegistrationTokenNotRegistered(err):
		return push.StatusPermanentFailure, "registration-token-not-registered"
	case messaging.IsInvalidArgument(err):
		return push.StatusPermanentFailure, "invalid-registration-token"
	case err != nil:
		return push.StatusTransientFailure, err.Error()
	default:
		return push.StatusTransientFailure, "unknown send failure"
	}
}

// chunkTokens splits tokens into slices of at most size elements.
func chunkTokens(tokens []string, size int) [][]string {
	var chunks [][]string
	for len(tokens) > size {
		chunks = append(chunks, tokens[:size])
		tokens = tokens[size:]
	}
	return append(chunks, tokens)
}

var _ push.Channel = (*Adapter)(nil)
