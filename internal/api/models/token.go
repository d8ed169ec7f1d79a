package models

// RegisterTokenRequest is the body of POST /tokens/register.
type RegisterTokenRequest struct {
	UserID   string `json:"user_id"`
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

// TokenRecord is the API projection of a registered device token.
type TokenRecord struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	Platform  string    `json:"platform"`
	IsValid   bool      `json:"is_valid"`
	CreatedAt Timestamp `json:"created_at"`
	UpdatedAt Timestamp `json:"updated_at"`
}

// RegisterTokenResponse is the body of a successful POST /tokens/register.
type RegisterTokenResponse struct {
	Success     bool        `json:"success"`
	TokenRecord TokenRecord `json:"token_record"`
}

// InvalidateByPlatformRequest is the body of POST /tokens/invalidate-by-platform.
type InvalidateByPlatformRequest struct {
	Platform string `json:"platform"`
}

// InvalidateByPlatformResponse is the body of a successful
// POST /tokens/invalidate-by-platform.
type InvalidateByPlatformResponse struct {
	Success          bool  `json:"success"`
	InvalidatedCount int64 `json:"invalidated_count"`
}
