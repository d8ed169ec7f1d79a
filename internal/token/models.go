// Package token provides the durable device token registry backing push
// delivery: which tokens exist, who owns them, and whether they are alive.
package token

import (
	"errors"
	"time"
)

// Repository errors.
var (
	ErrTokenNotFound = errors.New("device token not found")
)

// Platform represents the client platform a token was issued for.
type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
	PlatformWeb     Platform = "web"
)

// Known reports whether the platform is one the registry accepts.
func (p Platform) Known() bool {
	switch p {
	case PlatformIOS, PlatformAndroid, PlatformWeb:
		return true
	}
	return false
}

// DeviceToken is one registered push destination. The token string is the
// global primary key: re-registering the same token from another user
// reassigns ownership (last writer wins).
type DeviceToken struct {
	Token     string
	UserID    string
	Platform  Platform
	IsValid   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
