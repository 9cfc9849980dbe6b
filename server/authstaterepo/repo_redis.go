package authstaterepo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/onboardhq/sharefile-connect/internal/errors"
)

// RedisRepo implements Repo backed by Redis, for deployments where the
// connect flow can land on a different instance than the callback.
type RedisRepo struct {
	client redis.UniversalClient
}

var _ Repo = (*RedisRepo)(nil)

// NewRedisRepo constructs a Redis-backed auth state store.
func NewRedisRepo(client redis.UniversalClient) *RedisRepo {
	return &RedisRepo{client: client}
}

func stateKey(state string) string {
	return "sharefile:auth_state:" + state
}

// Save stores the encoded auth state with TTL.
func (r *RedisRepo) Save(state string, authState *AuthState, ttl time.Duration) error {
	if state == "" {
		return errors.Wrapf(errors.ErrInternal, "state cannot be empty")
	}
	payload, err := json.Marshal(authState)
	if err != nil {
		return errors.Wrapf(err, "marshal auth state")
	}
	if err := r.client.Set(context.Background(), stateKey(state), payload, ttl).Err(); err != nil {
		return errors.Wrapf(err, "persist auth state")
	}
	return nil
}

// Consume atomically loads and deletes the auth state.
func (r *RedisRepo) Consume(state string) (*AuthState, error) {
	bytes, err := r.client.GetDel(context.Background(), stateKey(state)).Bytes()
	if err == redis.Nil {
		return nil, errors.ErrStateNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load auth state")
	}
	var out AuthState
	if err := json.Unmarshal(bytes, &out); err != nil {
		return nil, errors.Wrapf(err, "decode auth state")
	}
	return &out, nil
}
