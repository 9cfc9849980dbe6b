package refresher

import (
	"context"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/onboardhq/sharefile-connect/credential"
	"github.com/onboardhq/sharefile-connect/internal/config"
	"github.com/onboardhq/sharefile-connect/internal/errors"
	"github.com/onboardhq/sharefile-connect/sharefile"
)

// Refresher performs the refresh-token grant for a stored credential
// and persists the outcome. Refreshes for the same credential are
// coalesced: if one is already in flight when a second caller asks
// (scheduler sweep and a 401-triggered retry can race), the second
// caller waits for the first result instead of issuing a duplicate
// grant that would orphan a rotated refresh token.
type Refresher struct {
	repo   credential.Repo
	client *sharefile.Client
	cfg    config.ShareFileConfig
	group  singleflight.Group
}

var _ sharefile.TokenRefresher = (*Refresher)(nil)

func New(repo credential.Repo, client *sharefile.Client, cfg config.ShareFileConfig) *Refresher {
	return &Refresher{
		repo:   repo,
		client: client,
		cfg:    cfg,
	}
}

// Refresh refreshes the credential with the given id and returns the
// updated record. On grant failure the credential's failure counter is
// advanced (deactivating it past the threshold) and the grant error is
// returned.
func (r *Refresher) Refresh(ctx context.Context, id string) (*credential.Credential, error) {
	v, err, _ := r.group.Do(id, func() (interface{}, error) {
		return r.refresh(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return v.(*credential.Credential), nil
}

func (r *Refresher) refresh(ctx context.Context, id string) (*credential.Credential, error) {
	// Re-read inside the critical section so we always refresh against
	// the latest stored refresh token.
	cred, err := r.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !cred.Refreshable() {
		return nil, errors.Wrapf(errors.ErrRefreshFailed, "credential %s is not refreshable", id)
	}

	pair, err := r.client.Refresh(ctx, sharefile.TokenPair{
		AccessToken:     cred.AccessToken,
		RefreshToken:    cred.RefreshToken,
		Subdomain:       cred.Subdomain,
		APIControlPlane: cred.APIControlPlane,
		AppControlPlane: cred.AppControlPlane,
	})
	if err != nil {
		if failed, markErr := r.repo.MarkFailure(ctx, id, r.cfg.GetMaxRefreshFailures()); markErr != nil {
			log.Err(markErr).Str("credential_id", id).Msg("Failed to record refresh failure")
		} else if !failed.Active {
			log.Warn().Str("credential_id", id).Int("failures", failed.FailureCount).
				Msg("Disabled auto-refresh after repeated ShareFile refresh failures")
		}
		return nil, err
	}

	newRefresh := ""
	if pair.RefreshToken != cred.RefreshToken {
		newRefresh = pair.RefreshToken
	}
	expiresAt := credential.NowTimeFunc().UTC().Add(r.cfg.GetTokenValidity())
	updated, err := r.repo.ApplyRefreshResult(ctx, id, pair.AccessToken, newRefresh, expiresAt)
	if err != nil {
		return nil, errors.Wrapf(err, "persist refresh result")
	}
	return updated, nil
}
