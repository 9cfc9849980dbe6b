package repofake

import (
	"context"
	"sync"
	"time"

	"github.com/onboardhq/sharefile-connect/credential"
	"github.com/onboardhq/sharefile-connect/internal/errors"
)

var _ credential.Repo = (*FakeCredentialRepo)(nil)

// FakeCredentialRepo is a thread-safe in-memory credential.Repo used by
// tests and local development.
type FakeCredentialRepo struct {
	lock  sync.Mutex
	creds map[string]*credential.Credential
}

func NewFakeCredentialRepo() *FakeCredentialRepo {
	return &FakeCredentialRepo{
		creds: make(map[string]*credential.Credential),
	}
}

func (r *FakeCredentialRepo) ActiveOrganization(ctx context.Context) (*credential.Credential, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	for _, c := range r.creds {
		if c.Scope == credential.ScopeOrganizationWide && c.Active {
			return copyCredential(c), nil
		}
	}
	return nil, errors.ErrCredentialNotFound
}

func (r *FakeCredentialRepo) LatestOrganization(ctx context.Context) (*credential.Credential, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	var latest *credential.Credential
	for _, c := range r.creds {
		if c.Scope != credential.ScopeOrganizationWide {
			continue
		}
		if latest == nil || c.CreatedAt.After(latest.CreatedAt) {
			latest = c
		}
	}
	if latest == nil {
		return nil, errors.ErrCredentialNotFound
	}
	return copyCredential(latest), nil
}

func (r *FakeCredentialRepo) Get(ctx context.Context, id string) (*credential.Credential, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	c, ok := r.creds[id]
	if !ok {
		return nil, errors.ErrCredentialNotFound
	}
	return copyCredential(c), nil
}

func (r *FakeCredentialRepo) ReplaceOrganization(ctx context.Context, cred *credential.Credential) (*credential.Credential, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	for _, c := range r.creds {
		if c.Scope == credential.ScopeOrganizationWide && c.Active {
			c.Active = false
			c.AutoRefresh = false
			c.UpdatedAt = credential.NowTimeFunc().UTC()
		}
	}

	stored := copyCredential(cred)
	r.creds[stored.ID] = stored
	return copyCredential(stored), nil
}

func (r *FakeCredentialRepo) ApplyRefreshResult(ctx context.Context, id, newAccessToken, newRefreshToken string, expiresAt time.Time) (*credential.Credential, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	c, ok := r.creds[id]
	if !ok {
		return nil, errors.ErrCredentialNotFound
	}

	c.AccessToken = newAccessToken
	if newRefreshToken != "" {
		c.RefreshToken = newRefreshToken
	}
	c.ExpiresAt = expiresAt
	c.LastRefreshedAt = credential.NowTimeFunc().UTC()
	c.RefreshCount++
	c.FailureCount = 0
	c.UpdatedAt = c.LastRefreshedAt
	return copyCredential(c), nil
}

func (r *FakeCredentialRepo) MarkFailure(ctx context.Context, id string, maxFailures int) (*credential.Credential, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	c, ok := r.creds[id]
	if !ok {
		return nil, errors.ErrCredentialNotFound
	}

	c.FailureCount++
	if c.FailureCount > maxFailures {
		c.Active = false
		c.AutoRefresh = false
	}
	c.UpdatedAt = credential.NowTimeFunc().UTC()
	return copyCredential(c), nil
}

// ActiveOrganizationCount reports how many active organization-wide
// records exist; tests assert this never exceeds one.
func (r *FakeCredentialRepo) ActiveOrganizationCount() int {
	r.lock.Lock()
	defer r.lock.Unlock()

	count := 0
	for _, c := range r.creds {
		if c.Scope == credential.ScopeOrganizationWide && c.Active {
			count++
		}
	}
	return count
}

func copyCredential(c *credential.Credential) *credential.Credential {
	cp := *c
	return &cp
}
