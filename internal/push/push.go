// Package push defines the provider-neutral delivery contract shared by all
// push channels, plus the classifier that routes device tokens to a channel.
package push

import "context"

// Status is the normalized delivery outcome for a single token.
type Status string

const (
	// StatusDelivered means the provider accepted the message for this token.
	StatusDelivered Status = "DELIVERED"

	// StatusTransientFailure means delivery failed but the token may still be
	// alive (network error, provider throttling, temporary outage).
	StatusTransientFailure Status = "TRANSIENT_FAILURE"

	// StatusPermanentFailure means the provider asserted the destination no
	// longer exists. Tokens with this status must be invalidated.
	StatusPermanentFailure Status = "PERMANENT_FAILURE"
)

// Outcome is the per-token delivery result.
type Outcome struct {
	Token  string
	Status Status
	Reason string
}

// BatchResult aggregates the outcomes of one SendBatch call.
// Outcomes is aligned by position with the input token slice.
type BatchResult struct {
	SuccessCount int
	FailureCount int
	Outcomes     []Outcome
}

// PermanentFailures returns the tokens the provider reported as gone.
func (r *BatchResult) PermanentFailures() []string {
	var tokens []string
	for _, o := range r.Outcomes {
		if o.Status == StatusPermanentFailure {
			tokens = append(tokens, o.Token)
		}
	}
	return tokens
}

// Merge folds another batch result into this one.
func (r *BatchResult) Merge(other *BatchResult) {
	if other == nil {
		return
	}
	r.SuccessCount += other.SuccessCount
	r.FailureCount += other.FailureCount
	r.Outcomes = append(r.Outcomes, other.Outcomes...)
}

// TransientAll builds a BatchResult marking every token as a transient
// failure. Adapters use it to degrade batch-level errors into per-token
// outcomes instead of propagating them.
func TransientAll(tokens []string, reason string) *BatchResult {
	result := &BatchResult{
		FailureCount: len(tokens),
		Outcomes:     make([]Outcome, 0, len(tokens)),
	}
	for _, t := range tokens {
		result.Outcomes = append(result.Outcomes, Outcome{
			Token:  t,
			Status: StatusTransientFailure,
			Reason: reason,
		})
	}
	return result
}

// Message is the provider-neutral notification payload.
type Message struct {
	Title string
	Body  string
	Data  map[string]string

	// Badge is the unread-count hint carried on ticket-channel payloads.
	// Registration-channel adapters ignore it.
	Badge int
}

// Channel delivers one batch of tokens through a single push provider.
// Implementations never return an error: batch-level failures must be
// reported as transient outcomes so one channel cannot abort its sibling.
type Channel interface {
	Name() string
	SendBatch(ctx context.Context, tokens []string, msg Message) *BatchResult
}
