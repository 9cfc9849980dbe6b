package refresher_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/onboardhq/sharefile-connect/credential/repofake"
	"github.com/onboardhq/sharefile-connect/sharefile"
	"github.com/onboardhq/sharefile-connect/sharefile/refresher"
)

func TestScheduler_StartStop(t *testing.T) {
	t.Run("initial sweep refreshes a stale credential", func(t *testing.T) {
		cfg := testConfig(t)
		repo := repofake.NewFakeCredentialRepo()
		stored := seed(t, repo) // never refreshed, so eligible immediately

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "swept-access"})
		}))
		defer ts.Close()

		ref := refresher.New(repo, sharefile.NewClient(cfg, sharefile.WithEndpointResolver(resolveTo(ts.URL))), cfg)
		sched := refresher.NewScheduler(ref, repo, cfg)

		sched.Start()
		defer sched.Stop()

		require.Eventually(t, func() bool {
			cred, err := repo.Get(context.Background(), stored.ID)
			return err == nil && cred.RefreshCount == 1
		}, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("recently refreshed credential is left alone", func(t *testing.T) {
		cfg := testConfig(t)
		repo := repofake.NewFakeCredentialRepo()
		stored := seed(t, repo)
		_, err := repo.ApplyRefreshResult(context.Background(), stored.ID, "fresh-access", "", time.Now().Add(8*time.Hour))
		require.NoError(t, err)

		ref := refresher.New(repo, sharefile.NewClient(cfg), cfg)
		sched := refresher.NewScheduler(ref, repo, cfg)

		sched.Start()
		time.Sleep(100 * time.Millisecond)
		sched.Stop()

		cred, err := repo.Get(context.Background(), stored.ID)
		require.NoError(t, err)
		require.Equal(t, 1, cred.RefreshCount) // only the manual apply above
	})

	t.Run("stop is prompt despite the long sweep interval", func(t *testing.T) {
		cfg := testConfig(t)
		repo := repofake.NewFakeCredentialRepo()
		ref := refresher.New(repo, sharefile.NewClient(cfg), cfg)
		sched := refresher.NewScheduler(ref, repo, cfg)

		sched.Start()
		time.Sleep(50 * time.Millisecond)

		done := make(chan struct{})
		go func() {
			sched.Stop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("Stop did not return promptly")
		}
	})

	t.Run("start is idempotent and stop without start is a no-op", func(t *testing.T) {
		cfg := testConfig(t)
		repo := repofake.NewFakeCredentialRepo()
		ref := refresher.New(repo, sharefile.NewClient(cfg), cfg)
		sched := refresher.NewScheduler(ref, repo, cfg)

		sched.Stop() // never started

		sched.Start()
		sched.Start()
		sched.Stop()
	})
}

func TestScheduler_ForceRefresh(t *testing.T) {
	t.Run("success reports refresh and expiry times", func(t *testing.T) {
		cfg := testConfig(t)
		repo := repofake.NewFakeCredentialRepo()
		seed(t, repo)

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "forced-access"})
		}))
		defer ts.Close()

		ref := refresher.New(repo, sharefile.NewClient(cfg, sharefile.WithEndpointResolver(resolveTo(ts.URL))), cfg)
		sched := refresher.NewScheduler(ref, repo, cfg)

		result := sched.ForceRefresh(context.Background())
		require.Equal(t, "success", result.Status)
		require.NotNil(t, result.RefreshedAt)
		require.NotNil(t, result.ExpiresAt)
	})

	t.Run("no credential", func(t *testing.T) {
		cfg := testConfig(t)
		repo := repofake.NewFakeCredentialRepo()
		ref := refresher.New(repo, sharefile.NewClient(cfg), cfg)
		sched := refresher.NewScheduler(ref, repo, cfg)

		result := sched.ForceRefresh(context.Background())
		require.Equal(t, "error", result.Status)
		require.Contains(t, result.Message, "no active organization-wide")
	})

	t.Run("grant failure", func(t *testing.T) {
		cfg := testConfig(t)
		repo := repofake.NewFakeCredentialRepo()
		seed(t, repo)

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusBadRequest)
		}))
		defer ts.Close()

		ref := refresher.New(repo, sharefile.NewClient(cfg, sharefile.WithEndpointResolver(resolveTo(ts.URL))), cfg)
		sched := refresher.NewScheduler(ref, repo, cfg)

		result := sched.ForceRefresh(context.Background())
		require.Equal(t, "error", result.Status)
	})
}

func TestScheduler_Status(t *testing.T) {
	t.Run("not connected", func(t *testing.T) {
		cfg := testConfig(t)
		repo := repofake.NewFakeCredentialRepo()
		ref := refresher.New(repo, sharefile.NewClient(cfg), cfg)
		sched := refresher.NewScheduler(ref, repo, cfg)

		st, err := sched.Status(context.Background())
		require.NoError(t, err)
		require.False(t, st.Connected)
	})

	t.Run("deactivated after repeated failures is still reported", func(t *testing.T) {
		cfg := testConfig(t)
		repo := repofake.NewFakeCredentialRepo()
		stored := seed(t, repo)

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
		}))
		defer ts.Close()

		ref := refresher.New(repo, sharefile.NewClient(cfg, sharefile.WithEndpointResolver(resolveTo(ts.URL))), cfg)
		sched := refresher.NewScheduler(ref, repo, cfg)

		for i := 0; i < 11; i++ {
			_, err := ref.Refresh(context.Background(), stored.ID)
			require.Error(t, err)
		}

		// The credential is deactivated but the status query must not
		// collapse it into the never-connected answer.
		st, err := sched.Status(context.Background())
		require.NoError(t, err)
		require.True(t, st.Connected)
		require.False(t, st.Active)
		require.False(t, st.AutoRefreshEnabled)
		require.Equal(t, 11, st.FailureCount)
	})

	t.Run("connected with a running scheduler", func(t *testing.T) {
		cfg := testConfig(t)
		repo := repofake.NewFakeCredentialRepo()
		stored := seed(t, repo)
		_, err := repo.ApplyRefreshResult(context.Background(), stored.ID, "fresh", "", time.Now().Add(8*time.Hour))
		require.NoError(t, err)

		ref := refresher.New(repo, sharefile.NewClient(cfg), cfg)
		sched := refresher.NewScheduler(ref, repo, cfg)
		sched.Start()
		defer sched.Stop()

		require.Eventually(t, func() bool {
			st, err := sched.Status(context.Background())
			return err == nil && st.NextScheduledRefresh != nil
		}, 2*time.Second, 10*time.Millisecond)

		st, err := sched.Status(context.Background())
		require.NoError(t, err)
		require.True(t, st.Connected)
		require.True(t, st.Active)
		require.True(t, st.AutoRefreshEnabled)
		require.Equal(t, 1, st.RefreshCount)
		require.NotNil(t, st.LastRefreshedAt)
		require.NotNil(t, st.ExpiresAt)
	})
}
