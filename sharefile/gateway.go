package sharefile

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/onboardhq/sharefile-connect/credential"
	"github.com/onboardhq/sharefile-connect/internal/config"
	"github.com/onboardhq/sharefile-connect/internal/errors"
)

// TokenRefresher refreshes a stored credential and persists the
// outcome. The refresher package provides the single-flight
// implementation shared with the background scheduler.
type TokenRefresher interface {
	Refresh(ctx context.Context, id string) (*credential.Credential, error)
}

// Gateway is the single code path for authenticated calls to the
// ShareFile API. It injects the bearer token and, on a 401, performs
// exactly one refresh-and-retry before giving up. Callers must not
// bypass it.
type Gateway struct {
	repo       credential.Repo
	refresher  TokenRefresher
	httpClient *http.Client
	resolve    EndpointResolver
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithGatewayHTTPClient overrides the HTTP client used for API calls.
func WithGatewayHTTPClient(hc *http.Client) GatewayOption {
	return func(g *Gateway) { g.httpClient = hc }
}

// WithGatewayEndpointResolver overrides tenant endpoint resolution.
func WithGatewayEndpointResolver(r EndpointResolver) GatewayOption {
	return func(g *Gateway) { g.resolve = r }
}

func NewGateway(repo credential.Repo, refresher TokenRefresher, cfg config.ShareFileConfig, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		repo:       repo,
		refresher:  refresher,
		httpClient: &http.Client{Timeout: cfg.GetHTTPTimeout()},
		resolve:    defaultResolver,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Do issues an authenticated request against the tenant's API base
// (https://{subdomain}.{apicp}/sf/v3). The active organization
// credential is read fresh on every call so a concurrent refresh is
// always picked up. body may be nil.
func (g *Gateway) Do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	cred, err := g.repo.ActiveOrganization(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := g.issue(ctx, cred, method, path, body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	if cred.RefreshToken == "" {
		drain(resp)
		return nil, errors.ErrUnauthorized
	}
	drain(resp)

	log.Info().Str("path", path).Msg("ShareFile returned 401, refreshing token")
	refreshed, err := g.refresher.Refresh(ctx, cred.ID)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrUnauthorized, "refresh after 401")
	}

	// One retry with the refreshed token; a second 401 is terminal.
	retry, err := g.issue(ctx, refreshed, method, path, body)
	if err != nil {
		return nil, err
	}
	if retry.StatusCode == http.StatusUnauthorized {
		drain(retry)
		return nil, errors.ErrUnauthorized
	}
	return retry, nil
}

func (g *Gateway) issue(ctx context.Context, cred *credential.Credential, method, path string, body []byte) (*http.Response, error) {
	apiURL := g.resolve(cred.Subdomain, cred.APIControlPlane) + "/sf/v3" + path

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, apiURL, reader)
	if err != nil {
		return nil, errors.Wrapf(err, "build request %s %s", method, path)
	}
	req.Header.Set("Authorization", "Bearer "+cred.AccessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "request %s %s", method, path)
	}
	return resp, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	_ = resp.Body.Close()
}
