package credential

import (
	"context"
	"time"
)

// Repo manages storage of ShareFile credentials. At most one
// organization-wide credential is active at any time; ReplaceOrganization
// enforces that invariant atomically. Implementations return
// errors.ErrCredentialNotFound for missing records and errors.ErrConflict
// when a concurrent replacement raced.
type Repo interface {
	// ActiveOrganization returns the single active organization-wide
	// credential, if one exists.
	ActiveOrganization(ctx context.Context) (*Credential, error)

	// LatestOrganization returns the most recently created
	// organization-wide credential regardless of its active flag, so
	// callers can tell a deactivated credential apart from a system
	// that was never connected.
	LatestOrganization(ctx context.Context) (*Credential, error)

	// Get returns the credential with the given id.
	Get(ctx context.Context, id string) (*Credential, error)

	// ReplaceOrganization deactivates any existing organization-wide
	// credential and inserts cred in its place. The two steps are atomic:
	// no observer may see two active organization-wide records.
	ReplaceOrganization(ctx context.Context, cred *Credential) (*Credential, error)

	// ApplyRefreshResult records a successful refresh: new token fields,
	// RefreshCount incremented, FailureCount reset, LastRefreshedAt set.
	// An empty newRefreshToken keeps the stored one.
	ApplyRefreshResult(ctx context.Context, id, newAccessToken, newRefreshToken string, expiresAt time.Time) (*Credential, error)

	// MarkFailure increments the consecutive failure counter. Once the
	// counter exceeds maxFailures the credential is deactivated and
	// auto-refresh disabled; it never reactivates automatically.
	MarkFailure(ctx context.Context, id string, maxFailures int) (*Credential, error)
}
