package domain

import (
	"strconv"
	"time"
)

// OAuthStateTTL bounds how long an issued install state stays redeemable
const OAuthStateTTL = 10 * time.Minute

// OAuthState is the anti-forgery value issued with an install URL
type OAuthState struct {
	State     string    `json:"state"`
	Shop      string    `json:"shop"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the state can no longer be redeemed
func (s *OAuthState) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// TokenGrant is the result of exchanging an authorization code
type TokenGrant struct {
	AccessToken string   `json:"access_token"`
	Scopes      []string `json:"scopes"`
}

// ShopInfo is the subset of shop details copied onto the Store after install
type ShopInfo struct {
	ID              uint64
	Name            string
	Email           string
	Domain          string
	MyshopifyDomain string
	Currency        string
	PlanDisplayName string
}

// GID returns the platform global id for the shop
func (s *ShopInfo) GID() string {
	if s.ID == 0 {
		return ""
	}
	return "gid://shopify/Shop/" + strconv.FormatUint(s.ID, 10)
}
