package credential

import (
	"time"

	"github.com/google/uuid"
)

// Scope distinguishes the single shared organization token from
// per-user tokens.
type Scope string

const (
	ScopeOrganizationWide Scope = "organization_wide"
	ScopeUserSpecific     Scope = "user_specific"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Credential is the persisted ShareFile token record. The tenant
// routing fields (Subdomain, APIControlPlane, AppControlPlane) are
// discovered from the token exchange response; every outbound request
// is built from them because each ShareFile organization lives on its
// own subdomain/control-plane pair.
type Credential struct {
	ID              string
	AccessToken     string
	RefreshToken    string // may be empty; refresh is then impossible
	Subdomain       string
	APIControlPlane string
	AppControlPlane string
	Scope           Scope
	OwnerUserID     string // empty for organization-wide credentials
	CreatedByUserID string
	Active          bool
	AutoRefresh     bool
	ExpiresAt       time.Time // best-effort estimate, not provider-reported
	LastRefreshedAt time.Time // zero until the first refresh
	RefreshCount    int
	FailureCount    int // consecutive refresh failures, reset on success
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewOrganizationCredential builds the organization-wide record created
// by a successful authorization code exchange.
func NewOrganizationCredential(accessToken, refreshToken, subdomain, apicp, appcp, createdBy string, validity time.Duration) *Credential {
	now := NowTimeFunc().UTC()
	return &Credential{
		ID:              uuid.NewString(),
		AccessToken:     accessToken,
		RefreshToken:    refreshToken,
		Subdomain:       subdomain,
		APIControlPlane: apicp,
		AppControlPlane: appcp,
		Scope:           ScopeOrganizationWide,
		CreatedByUserID: createdBy,
		Active:          true,
		AutoRefresh:     true,
		ExpiresAt:       now.Add(validity),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Refreshable reports whether this credential can take part in a
// refresh-token grant at all.
func (c *Credential) Refreshable() bool {
	return c.Active && c.RefreshToken != ""
}

// NeedsRefresh reports whether the background sweep should refresh the
// credential: auto-refresh is on, a refresh token exists, and the last
// refresh is older than the given interval (or never happened).
func (c *Credential) NeedsRefresh(interval time.Duration) bool {
	if !c.Active || !c.AutoRefresh || c.RefreshToken == "" {
		return false
	}
	if c.LastRefreshedAt.IsZero() {
		return true
	}
	return c.LastRefreshedAt.Before(NowTimeFunc().Add(-interval))
}
