package domain

import (
	"strings"
	"time"
)

// Store represents an installed shop (one per tenant installation)
type Store struct {
	ID              string         `json:"id"`
	ShopID          string         `json:"shopId"`
	Name            string         `json:"name"`
	MyshopifyDomain string         `json:"myshopifyDomain"`
	PrimaryDomain   PrimaryDomain  `json:"primaryDomain"`
	Email           string         `json:"email,omitempty"`
	AccessToken     string         `json:"-"`
	Scopes          []string       `json:"scopes,omitempty"`
	Plan            Plan           `json:"plan"`
	CurrencyCode    string         `json:"currencyCode,omitempty"`
	Session         map[string]any `json:"session,omitempty"`
	MetaData        map[string]any `json:"metaData,omitempty"`
	Disabled        bool           `json:"disabled"`
	UninstalledAt   *time.Time     `json:"uninstalledAt,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

// PrimaryDomain is the storefront domain configured by the merchant
type PrimaryDomain struct {
	URL string `json:"url"`
}

// Plan is the platform subscription plan of a shop
type Plan struct {
	DisplayName string `json:"displayName"`
}

// StoreUpsert carries the fields accepted when creating or updating a Store.
// Empty values leave the existing field untouched.
type StoreUpsert struct {
	ShopID           string         `json:"shopId"`
	AccessToken      string         `json:"accessToken"`
	Name             string         `json:"name"`
	MyshopifyDomain  string         `json:"myshopifyDomain"`
	PrimaryDomainURL string         `json:"primaryDomainUrl"`
	Email            string         `json:"email"`
	PlanDisplayName  string         `json:"planDisplayName"`
	CurrencyCode     string         `json:"currencyCode"`
	Scopes           []string       `json:"scopes"`
	Session          map[string]any `json:"session"`
	MetaData         map[string]any `json:"metaData"`
}

// Domain returns the host used for Admin API calls, without protocol prefix
func (s *Store) Domain() string {
	d := s.MyshopifyDomain
	if d == "" {
		d = s.PrimaryDomain.URL
	}
	return StripScheme(d)
}

// Apply merges an upsert into the store. The access token is replaced only
// when a new non-empty token is supplied; a new token also re-enables a
// previously uninstalled store.
func (s *Store) Apply(u StoreUpsert, now time.Time) {
	if s.ShopID == "" {
		s.ShopID = u.ShopID
	}
	if u.AccessToken != "" {
		s.AccessToken = u.AccessToken
		s.Disabled = false
		s.UninstalledAt = nil
	}
	setIfNotEmpty(&s.Name, u.Name)
	setIfNotEmpty(&s.MyshopifyDomain, StripScheme(u.MyshopifyDomain))
	setIfNotEmpty(&s.PrimaryDomain.URL, u.PrimaryDomainURL)
	setIfNotEmpty(&s.Email, u.Email)
	setIfNotEmpty(&s.Plan.DisplayName, u.PlanDisplayName)
	setIfNotEmpty(&s.CurrencyCode, u.CurrencyCode)
	if len(u.Scopes) > 0 {
		s.Scopes = append([]string(nil), u.Scopes...)
	}
	s.Session = mergeMap(s.Session, u.Session)
	s.MetaData = mergeMap(s.MetaData, u.MetaData)

	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
}

// MarkUninstalled disables the store and drops its revoked token
func (s *Store) MarkUninstalled(at time.Time) {
	s.Disabled = true
	s.AccessToken = ""
	s.UninstalledAt = &at
	s.UpdatedAt = at
}

// Redact removes merchant-provided free-form data kept for the shop
func (s *Store) Redact(at time.Time) {
	s.Session = nil
	s.MetaData = nil
	s.Email = ""
	s.UpdatedAt = at
}

// StripScheme removes an http:// or https:// prefix and any trailing slash
func StripScheme(domain string) string {
	d := strings.TrimSpace(domain)
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	return strings.TrimSuffix(d, "/")
}

func setIfNotEmpty(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func mergeMap(dst, src map[string]any) map[string]any {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
