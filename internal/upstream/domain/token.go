// Package domain defines the models exchanged with the upstream contract
// notification provider.
package domain

import (
	"time"
)

// ExpiryMargin is subtracted from a token's expiry when checking validity,
// so a token is refreshed before it can expire mid-request.
const ExpiryMargin = 5 * time.Minute

// AuthToken is a bearer token issued by the provider's Sanctum endpoint.
type AuthToken struct {
	// Value is the raw bearer token.
	Value string
	// ExpiresAt is when the token stops being usable.
	ExpiresAt time.Time
}

// Valid reports whether the token can still be used at the given instant,
// keeping the safety margin.
func (t *AuthToken) Valid(now time.Time) bool {
	if t == nil || t.Value == "" {
		return false
	}
	return now.Before(t.ExpiresAt.Add(-ExpiryMargin))
}

// TokenStatus is a point-in-time snapshot of the token manager state, used
// by the operational API.
type TokenStatus struct {
	// HasToken reports whether a token is currently cached.
	HasToken bool `json:"has_token"`
	// Valid reports whether the cached token is within its validity window.
	Valid bool `json:"valid"`
	// ExpiresAt is the cached token's expiry, zero when no token is cached.
	ExpiresAt time.Time `json:"expires_at"`
	// ConsecutiveFailures counts authentication failures since the last success.
	ConsecutiveFailures int `json:"consecutive_failures"`
	// InCooldown reports whether authentication attempts are being rejected.
	InCooldown bool `json:"in_cooldown"`
}
