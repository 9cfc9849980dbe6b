package config

import "time"

// ShareFileConfig exposes the OAuth2 client settings and the timing
// constants that govern token refresh behaviour.
type ShareFileConfig interface {
	GetShareFileClientID() string
	GetShareFileClientSecret() string
	GetShareFileRedirectURI() string
	GetShareFileAuthURL() string

	GetRefreshInterval() time.Duration
	GetRefreshRetryDelay() time.Duration
	GetTokenValidity() time.Duration
	GetHTTPTimeout() time.Duration
	GetMaxRefreshFailures() int
	GetAuthStateTTL() time.Duration
}

// ShareFile reads the client identifiers from the environment once at
// construction; everything else is a fixed constant of the integration.
type ShareFile struct {
	clientID     string
	clientSecret string
	redirectURI  string
	authURL      string
}

var _ ShareFileConfig = ShareFile{}

func NewShareFile() ShareFile {
	return ShareFile{
		clientID:     GetEnv("SHAREFILE_CLIENT_ID", ""),
		clientSecret: GetEnv("SHAREFILE_CLIENT_SECRET", ""),
		redirectURI:  GetEnv("SHAREFILE_REDIRECT_URI", ""),
		authURL:      GetEnv("SHAREFILE_AUTH_URL", "https://secure.sharefile.com/oauth/authorize"),
	}
}

func (s ShareFile) GetShareFileClientID() string {
	return s.clientID
}

func (s ShareFile) GetShareFileClientSecret() string {
	return s.clientSecret
}

func (s ShareFile) GetShareFileRedirectURI() string {
	return s.redirectURI
}

func (s ShareFile) GetShareFileAuthURL() string {
	return s.authURL
}

// ShareFile access tokens last roughly eight hours; refreshing every
// four keeps the stored token well inside its validity window.
func (ShareFile) GetRefreshInterval() time.Duration {
	return 4 * time.Hour
}

func (ShareFile) GetRefreshRetryDelay() time.Duration {
	return 1 * time.Minute
}

func (ShareFile) GetTokenValidity() time.Duration {
	return 8 * time.Hour
}

func (ShareFile) GetHTTPTimeout() time.Duration {
	return 30 * time.Second
}

func (ShareFile) GetMaxRefreshFailures() int {
	return 10
}

func (ShareFile) GetAuthStateTTL() time.Duration {
	return 10 * time.Minute
}
