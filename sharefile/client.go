package sharefile

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"

	"github.com/onboardhq/sharefile-connect/internal/config"
	"github.com/onboardhq/sharefile-connect/internal/errors"
)

// EndpointResolver maps a tenant's subdomain and API control plane to
// the base URL requests are sent to. The default builds
// https://{subdomain}.{apicp}; tests point it at a local server.
type EndpointResolver func(subdomain, apicp string) string

func defaultResolver(subdomain, apicp string) string {
	return fmt.Sprintf("https://%s.%s", subdomain, apicp)
}

// TokenPair is the result of a grant request: the token strings plus
// the tenant routing fields the token endpoint reported. ShareFile is
// the source of truth for routing, so fields present in a response
// override whatever the caller supplied.
type TokenPair struct {
	AccessToken     string
	RefreshToken    string
	Subdomain       string
	APIControlPlane string
	AppControlPlane string
}

// AuthError describes a failed grant request. It unwraps to the
// matching sentinel so callers can branch with errors.Is.
type AuthError struct {
	Stage      string // "exchange" or "refresh"
	StatusCode int    // zero when the request never completed
	Message    string
}

func (e *AuthError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("sharefile %s failed: status %d: %s", e.Stage, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("sharefile %s failed: %s", e.Stage, e.Message)
}

func (e *AuthError) Unwrap() error {
	if e.Stage == "refresh" {
		return errors.ErrRefreshFailed
	}
	return errors.ErrExchangeFailed
}

// Client performs the ShareFile OAuth2 grant requests. It never
// retries; retry policy lives with the gateway and the refresher.
type Client struct {
	cfg        config.ShareFileConfig
	httpClient *http.Client
	resolve    EndpointResolver
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the HTTP client used for grant requests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithEndpointResolver overrides tenant endpoint resolution.
func WithEndpointResolver(r EndpointResolver) ClientOption {
	return func(c *Client) { c.resolve = r }
}

func NewClient(cfg config.ShareFileConfig, opts ...ClientOption) *Client {
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.GetHTTPTimeout()},
		resolve:    defaultResolver,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AuthorizationURL builds the browser URL that starts the
// authorization code flow. No network call is made.
func (c *Client) AuthorizationURL(state string) string {
	conf := &oauth2.Config{
		ClientID:    c.cfg.GetShareFileClientID(),
		RedirectURL: c.cfg.GetShareFileRedirectURI(),
		Endpoint: oauth2.Endpoint{
			AuthURL: c.cfg.GetShareFileAuthURL(),
		},
	}
	return conf.AuthCodeURL(state)
}

// ExchangeCode trades an authorization code for a token pair at the
// tenant's token endpoint. appcp may be empty; the response's routing
// fields win over the arguments when present.
func (c *Client) ExchangeCode(ctx context.Context, code, subdomain, apicp, appcp string) (TokenPair, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", c.cfg.GetShareFileClientID())
	form.Set("client_secret", c.cfg.GetShareFileClientSecret())
	form.Set("redirect_uri", c.cfg.GetShareFileRedirectURI())

	pair, err := c.grant(ctx, "exchange", subdomain, apicp, form)
	if err != nil {
		return TokenPair{}, err
	}
	return mergeRouting(pair, subdomain, apicp, appcp), nil
}

// Refresh trades a refresh token for a new access token. A response
// without a refresh_token leaves the prior one in force.
func (c *Client) Refresh(ctx context.Context, prior TokenPair) (TokenPair, error) {
	if prior.RefreshToken == "" {
		return TokenPair{}, &AuthError{Stage: "refresh", Message: "no refresh token"}
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", prior.RefreshToken)
	form.Set("client_id", c.cfg.GetShareFileClientID())
	form.Set("client_secret", c.cfg.GetShareFileClientSecret())

	pair, err := c.grant(ctx, "refresh", prior.Subdomain, prior.APIControlPlane, form)
	if err != nil {
		return TokenPair{}, err
	}
	if pair.RefreshToken == "" {
		pair.RefreshToken = prior.RefreshToken
	}
	return mergeRouting(pair, prior.Subdomain, prior.APIControlPlane, prior.AppControlPlane), nil
}

func (c *Client) grant(ctx context.Context, stage, subdomain, apicp string, form url.Values) (TokenPair, error) {
	if subdomain == "" || apicp == "" {
		return TokenPair{}, &AuthError{Stage: stage, Message: "tenant routing unknown"}
	}
	tokenURL := c.resolve(subdomain, apicp) + "/oauth/token"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return TokenPair{}, &AuthError{Stage: stage, Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return TokenPair{}, &AuthError{Stage: stage, Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return TokenPair{}, &AuthError{Stage: stage, StatusCode: resp.StatusCode, Message: err.Error()}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return TokenPair{}, &AuthError{Stage: stage, StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return TokenPair{}, &AuthError{Stage: stage, StatusCode: resp.StatusCode, Message: "malformed token response"}
	}
	if tr.AccessToken == "" {
		return TokenPair{}, &AuthError{Stage: stage, StatusCode: resp.StatusCode, Message: "token response missing access_token"}
	}

	return TokenPair{
		AccessToken:     tr.AccessToken,
		RefreshToken:    tr.RefreshToken,
		Subdomain:       tr.Subdomain,
		APIControlPlane: tr.APIControlPlane,
		AppControlPlane: tr.AppControlPlane,
	}, nil
}

type tokenResponse struct {
	AccessToken     string `json:"access_token"`
	RefreshToken    string `json:"refresh_token"`
	Subdomain       string `json:"subdomain"`
	APIControlPlane string `json:"apicp"`
	AppControlPlane string `json:"appcp"`
}

func mergeRouting(pair TokenPair, subdomain, apicp, appcp string) TokenPair {
	if pair.Subdomain == "" {
		pair.Subdomain = subdomain
	}
	if pair.APIControlPlane == "" {
		pair.APIControlPlane = apicp
	}
	if pair.AppControlPlane == "" {
		pair.AppControlPlane = appcp
	}
	return pair
}
