package authstaterepo_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/onboardhq/sharefile-connect/internal/errors"
	"github.com/onboardhq/sharefile-connect/server/authstaterepo"
)

func TestInMemoryRepo(t *testing.T) {
	t.Run("consume is one-shot", func(t *testing.T) {
		repo := authstaterepo.NewInMemoryRepo()
		err := repo.Save("state-1", &authstaterepo.AuthState{InitiatedByUserID: "admin-1"}, time.Minute)
		require.NoError(t, err)

		got, err := repo.Consume("state-1")
		require.NoError(t, err)
		require.Equal(t, "admin-1", got.InitiatedByUserID)

		_, err = repo.Consume("state-1")
		require.True(t, errors.Is(err, errors.ErrStateNotFound))
	})

	t.Run("unknown state", func(t *testing.T) {
		repo := authstaterepo.NewInMemoryRepo()
		_, err := repo.Consume("missing")
		require.True(t, errors.Is(err, errors.ErrStateNotFound))
	})

	t.Run("expired state", func(t *testing.T) {
		repo := authstaterepo.NewInMemoryRepo()
		require.NoError(t, repo.Save("state-2", &authstaterepo.AuthState{}, -time.Second))

		_, err := repo.Consume("state-2")
		require.True(t, errors.Is(err, errors.ErrStateNotFound))
	})

	t.Run("empty state key rejected", func(t *testing.T) {
		repo := authstaterepo.NewInMemoryRepo()
		require.Error(t, repo.Save("", &authstaterepo.AuthState{}, time.Minute))
		require.Error(t, repo.Save("x", nil, time.Minute))
	})
}
