package models

// NotifyRequest is the body of POST /notify.
type NotifyRequest struct {
	UserID string            `json:"user_id"`
	Title  string            `json:"title"`
	Body   string            `json:"body"`
	Data   map[string]string `json:"data,omitempty"`
}

// NotifyResponse is the body of a successful POST /notify.
type NotifyResponse struct {
	Success        bool   `json:"success"`
	NotificationID string `json:"notification_id"`
	Sent           int    `json:"sent"`
	Failed         int    `json:"failed"`
}

// DeliverOnlyRecord carries the user reference some upstream producers nest
// under a "record" envelope instead of putting user_id at the top level.
type DeliverOnlyRecord struct {
	UserID string `json:"user_id"`
}

// DeliverOnlyRequest is the body of POST /notify/deliver-only.
type DeliverOnlyRequest struct {
	UserID         string             `json:"user_id,omitempty"`
	Record         *DeliverOnlyRecord `json:"record,omitempty"`
	Title          string             `json:"title"`
	Body           string             `json:"body"`
	Data           map[string]string  `json:"data,omitempty"`
	NotificationID string             `json:"notification_id,omitempty"`
}

// ResolveUserID returns the top-level user_id, falling back to record.user_id.
func (r DeliverOnlyRequest) ResolveUserID() string {
	if r.UserID != "" {
		return r.UserID
	}
	if r.Record != nil {
		return r.Record.UserID
	}
	return ""
}

// DeliverOnlyResponse is the body of a successful POST /notify/deliver-only.
// A routing-filter skip is a success with Skipped set, never an error.
type DeliverOnlyResponse struct {
	Success bool   `json:"success"`
	Sent    int    `json:"sent,omitempty"`
	Failed  int    `json:"failed,omitempty"`
	Skipped bool   `json:"skipped,omitempty"`
	Reason  string `json:"reason,omitempty"`
}
