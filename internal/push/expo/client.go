// Package expo provides the ticket-channel adapter delivering pushes through
// the Expo push HTTP API.
package expo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pushrelay/pushrelay/internal/provider/resilience"
	"github.com/pushrelay/pushrelay/internal/push"
)

const (
	// DefaultBaseURL is the Expo push ticket-submission endpoint.
	DefaultBaseURL = "https://exp.host/--/api/v2/push/send"

	// ChannelName identifies this adapter.
	ChannelName = "expo"

	// maxTicketsPerRequest is the Expo per-request ticket ceiling.
	maxTicketsPerRequest = 100

	// maxBadge caps the unread-count badge carried on each ticket.
	maxBadge = 99
)

// deviceGoneError is the Expo error detail asserting the installation no
// longer exists.
const deviceGoneError = "DeviceNotRegistered"

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the Expo client.
type ClientConfig struct {
	// BaseURL is the ticket-submission URL (defaults to DefaultBaseURL).
	BaseURL string

	// HTTPClient is the HTTP client to use. If nil, a default resilient
	// client is created.
	HTTPClient HTTPDoer

	// Timeout for individual API requests (default: 10s).
	Timeout time.Duration

	Logger zerolog.Logger
}

// Client is the Expo ticket-channel implementation of push.Channel.
type Client struct {
	baseURL    string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new Expo client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		httpClient = resilience.NewClient(resilience.ClientConfig{
			Name:            ChannelName,
			Timeout:         timeout,
			MaxRetries:      2,
			InitialInterval: 200 * time.Millisecond,
			MaxInterval:     2 * time.Second,
		})
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger.With().Str("channel", ChannelName).Logger(),
	}
}

// Name returns the channel name.
func (c *Client) Name() string {
	return ChannelName
}

// pushMessage is the Expo wire format for one ticket.
type pushMessage struct {
	To    string            `json:"to"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
	Sound string            `json:"sound"`
	Badge int               `json:"badge"`
}

// pushTicket is the per-message status returned by Expo, aligned by position
// with the submitted batch.
type pushTicket struct {
	Status  string         `json:"status"`
	Message string         `json:"message,omitempty"`
	Details *ticketDetails `json:"details,omitempty"`
}

type ticketDetails struct {
	Error string `json:"error,omitempty"`
}

type sendResponse struct {
	Data []pushTicket `json:"data"`
}

// SendBatch submits one HTTP request per chunk of up to 100 tickets.
// Chunks are issued concurrently; outcomes are stitched back in input order.
func (c *Client) SendBatch(ctx context.Context, tokens []string, msg push.Message) *push.BatchResult {
	if len(tokens) == 0 {
		return &push.BatchResult{}
	}

	var chunks [][]string
	rest := tokens
	for len(rest) > maxTicketsPerRequest {
		chunks = append(chunks, rest[:maxTicketsPerRequest])
		rest = rest[maxTicketsPerRequest:]
	}
	chunks = append(chunks, rest)

	results := make([]*push.BatchResult, len(chunks))

	var wg sync.WaitGroup
	for i, chunk := range chunks {
		wg.Add(1)
		go func(i int, chunk []string) {
			defer wg.Done()
			results[i] = c.sendChunk(ctx, chunk, msg)
		}(i, chunk)
	}
	wg.Wait()

	merged := &push.BatchResult{}
	for _, r := range results {
		merged.Merge(r)
	}
	return merged
}

// sendChunk submits a single ticket batch. Transport and parse errors degrade
// to transient failures for every token in the chunk.
func (c *Client) sendChunk(ctx context.Context, tokens []string, msg push.Message) *push.BatchResult {
	messages := make([]pushMessage, 0, len(tokens))
	for _, token := range tokens {
		messages = append(messages, pushMessage{
			To:    token,
			Title: msg.Title,
			Body:  msg.Body,
			Data:  msg.Data,
			Sound: "default",
			Badge: clampBadge(msg.Badge),
		})
	}

	payload, err := json.Marshal(messages)
	if err != nil {
		return push.TransientAll(tokens, "encode expo batch: "+err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return push.TransientAll(tokens, "create expo request: "+err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Int("tokens", len(tokens)).Msg("expo batch request failed")
		return push.TransientAll(tokens, "expo request failed: "+err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn().Int("status", resp.StatusCode).Int("tokens", len(tokens)).Msg("expo batch rejected")
		return push.TransientAll(tokens, fmt.Sprintf("expo returned status %d", resp.StatusCode))
	}

	var body sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return push.TransientAll(tokens, "decode expo response: "+err.Error())
	}
	if len(body.Data) != len(tokens) {
		return push.TransientAll(tokens, fmt.Sprintf("expo returned %d tickets for %d messages", len(body.Data), len(tokens)))
	}

	result := &push.BatchResult{Outcomes: make([]push.Outcome, 0, len(tokens))}
	for idx, ticket := range body.Data {
		outcome := push.Outcome{Token: tokens[idx]}
		if ticket.Status == "ok" {
			outcome.Status = push.StatusDelivered
			result.SuccessCount++
		} else {
			outcome.Status, outcome.Reason = classifyTicket(ticket)
			result.FailureCount++
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}
	return result
}

// classifyTicket maps a failed Expo ticket to a normalized outcome. Only a
// device-gone verdict is permanent; anything else may succeed later.
func classifyTicket(t pushTicket) (push.Status, string) {
	if t.Details != nil && t.Details.Error == deviceGoneError {
		return push.StatusPermanentFailure, deviceGoneError
	}
	if strings.Contains(t.Message, "is not a registered push notification recipient") {
		return push.StatusPermanentFailure, deviceGoneError
	}
	reason := t.Message
	if reason == "" && t.Details != nil {
		reason = t.Details.Error
	}
	if reason == "" {
		reason = "ticket status " + t.Status
	}
	return push.StatusTransientFailure, reason
}

// clampBadge bounds the badge count to what launcher icons can display.
func clampBadge(n int) int {
	if n < 0 {
		return 0
	}
	if n > maxBadge {
		return maxBadge
	}
	return n
}

var _ push.Channel = (*Client)(nil)
