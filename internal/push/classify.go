package push

import "strings"

// Expo issues pseudo-tokens with a stable printable prefix; everything else is
// treated as an opaque registration token for the multicast channel.
var ticketTokenPrefixes = []string{
	"ExponentPushToken[",
	"ExpoPushToken[",
}

// Buckets holds the per-channel partition of a user's tokens.
type Buckets struct {
	// Ticket holds tokens for the ticket-submission channel (Expo).
	Ticket []string

	// Registration holds tokens for the multicast channel (FCM).
	Registration []string
}

// IsTicketToken reports whether a token addresses the ticket channel.
func IsTicketToken(token string) bool {
	for _, prefix := range ticketTokenPrefixes {
		if strings.HasPrefix(token, prefix) {
			return true
		}
	}
	return false
}

// Partition splits tokens into channel buckets. It is total: every input
// token lands in exactly one bucket, in input order.
func Partition(tokens []string) Buckets {
	var b Buckets
	for _, t := range tokens {
		if IsTicketToken(t) {
			b.Ticket = append(b.Ticket, t)
		} else {
			b.Registration = append(b.Registration, t)
		}
	}
	return b
}
