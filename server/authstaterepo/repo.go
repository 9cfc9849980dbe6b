package authstaterepo

import "time"

// AuthState tracks an in-flight ShareFile authorization: who started
// the flow and when. The state key itself is the CSRF nonce sent to
// ShareFile and echoed back on the redirect.
type AuthState struct {
	InitiatedByUserID string
	CreatedAt         time.Time
}

// Repo stores pending auth states keyed by the state nonce. Consume is
// one-shot: a second Consume of the same state must fail.
type Repo interface {
	Save(state string, authState *AuthState, ttl time.Duration) error
	Consume(state string) (*AuthState, error)
}
