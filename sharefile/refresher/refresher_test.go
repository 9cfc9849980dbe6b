package refresher_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/onboardhq/sharefile-connect/credential"
	"github.com/onboardhq/sharefile-connect/credential/repofake"
	"github.com/onboardhq/sharefile-connect/internal/config"
	"github.com/onboardhq/sharefile-connect/internal/errors"
	"github.com/onboardhq/sharefile-connect/sharefile"
	"github.com/onboardhq/sharefile-connect/sharefile/refresher"
)

func testConfig(t *testing.T) config.ShareFile {
	t.Helper()
	t.Setenv("SHAREFILE_CLIENT_ID", "test-client-id")
	t.Setenv("SHAREFILE_CLIENT_SECRET", "test-secret")
	t.Setenv("SHAREFILE_REDIRECT_URI", "https://app.example.com/sharefile/callback")
	return config.NewShareFile()
}

func seed(t *testing.T, repo *repofake.FakeCredentialRepo) *credential.Credential {
	t.Helper()
	stored, err := repo.ReplaceOrganization(context.Background(), credential.NewOrganizationCredential(
		"initial-access", "refresh-1", "acme", "sf-api.com", "sharefile.com", "admin-1", 8*time.Hour))
	require.NoError(t, err)
	return stored
}

func resolveTo(url string) sharefile.EndpointResolver {
	return func(subdomain, apicp string) string { return url }
}

func TestRefresher_Refresh(t *testing.T) {
	t.Run("success persists tokens and recomputes expiry", func(t *testing.T) {
		cfg := testConfig(t)
		repo := repofake.NewFakeCredentialRepo()
		stored := seed(t, repo)

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "access-2"})
		}))
		defer ts.Close()

		ref := refresher.New(repo, sharefile.NewClient(cfg, sharefile.WithEndpointResolver(resolveTo(ts.URL))), cfg)
		updated, err := ref.Refresh(context.Background(), stored.ID)
		require.NoError(t, err)

		require.Equal(t, "access-2", updated.AccessToken)
		require.Equal(t, "refresh-1", updated.RefreshToken)
		require.Equal(t, 1, updated.RefreshCount)
		require.Equal(t, 0, updated.FailureCount)
		require.WithinDuration(t, time.Now().Add(cfg.GetTokenValidity()), updated.ExpiresAt, time.Minute)
	})

	t.Run("eleven consecutive failures deactivate the credential", func(t *testing.T) {
		cfg := testConfig(t)
		repo := repofake.NewFakeCredentialRepo()
		stored := seed(t, repo)

		var calls atomic.Int32
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			http.Error(w, "expired", http.StatusBadRequest)
		}))
		defer ts.Close()

		ref := refresher.New(repo, sharefile.NewClient(cfg, sharefile.WithEndpointResolver(resolveTo(ts.URL))), cfg)

		for i := 1; i <= 11; i++ {
			_, err := ref.Refresh(context.Background(), stored.ID)
			require.Error(t, err)
		}

		cred, err := repo.Get(context.Background(), stored.ID)
		require.NoError(t, err)
		require.Equal(t, 11, cred.FailureCount)
		require.False(t, cred.Active)
		require.False(t, cred.AutoRefresh)
		require.Equal(t, int32(11), calls.Load())

		// A deactivated credential is no longer refreshable at all.
		_, err = ref.Refresh(context.Background(), stored.ID)
		require.True(t, errors.Is(err, errors.ErrRefreshFailed))
		require.Equal(t, int32(11), calls.Load())
	})

	t.Run("concurrent refreshes coalesce into one grant", func(t *testing.T) {
		cfg := testConfig(t)
		repo := repofake.NewFakeCredentialRepo()
		stored := seed(t, repo)

		var calls atomic.Int32
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			time.Sleep(200 * time.Millisecond)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"access_token":  "access-2",
				"refresh_token": "refresh-2",
			})
		}))
		defer ts.Close()

		ref := refresher.New(repo, sharefile.NewClient(cfg, sharefile.WithEndpointResolver(resolveTo(ts.URL))), cfg)

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				updated, err := ref.Refresh(context.Background(), stored.ID)
				require.NoError(t, err)
				require.Equal(t, "access-2", updated.AccessToken)
			}()
		}
		wg.Wait()

		require.Equal(t, int32(1), calls.Load())
		cred, err := repo.Get(context.Background(), stored.ID)
		require.NoError(t, err)
		require.Equal(t, 1, cred.RefreshCount)
		require.Equal(t, "refresh-2", cred.RefreshToken)
	})

	t.Run("unknown credential", func(t *testing.T) {
		cfg := testConfig(t)
		repo := repofake.NewFakeCredentialRepo()
		ref := refresher.New(repo, sharefile.NewClient(cfg), cfg)

		_, err := ref.Refresh(context.Background(), "missing")
		require.True(t, errors.Is(err, errors.ErrCredentialNotFound))
	})
}
