package authstaterepo

import (
	"sync"
	"time"

	"github.com/onboardhq/sharefile-connect/internal/errors"
)

// InMemoryRepo is a thread-safe in-memory implementation of the Repo
// interface. Expiry is checked lazily on Consume.
type InMemoryRepo struct {
	mu     sync.Mutex
	states map[string]entry
}

type entry struct {
	state     *AuthState
	expiresAt time.Time
}

var _ Repo = (*InMemoryRepo)(nil)

// NewInMemoryRepo creates a new in-memory auth state repository
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		states: make(map[string]entry),
	}
}

// Save stores a pending auth state under the nonce
func (r *InMemoryRepo) Save(state string, authState *AuthState, ttl time.Duration) error {
	if state == "" {
		return errors.Wrapf(errors.ErrInternal, "state cannot be empty")
	}
	if authState == nil {
		return errors.Wrapf(errors.ErrInternal, "authState cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *authState
	r.states[state] = entry{state: &cp, expiresAt: time.Now().Add(ttl)}
	return nil
}

// Consume removes and returns the auth state; expired or unknown
// states yield ErrStateNotFound.
func (r *InMemoryRepo) Consume(state string) (*AuthState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.states[state]
	if !ok {
		return nil, errors.ErrStateNotFound
	}
	delete(r.states, state)

	if time.Now().After(e.expiresAt) {
		return nil, errors.ErrStateNotFound
	}
	cp := *e.state
	return &cp, nil
}
