package refresher

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/onboardhq/sharefile-connect/credential"
	"github.com/onboardhq/sharefile-connect/internal/config"
	"github.com/onboardhq/sharefile-connect/internal/errors"
)

// Scheduler keeps the stored organization credential fresh. It sweeps
// on a fixed period; a failing sweep backs off to a short retry delay
// instead of killing the loop. Stop is cooperative: an in-flight
// refresh completes before the loop exits.
type Scheduler struct {
	refresher *Refresher
	repo      credential.Repo
	cfg       config.ShareFileConfig

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	nextRun time.Time
}

func NewScheduler(refresher *Refresher, repo credential.Repo, cfg config.ShareFileConfig) *Scheduler {
	return &Scheduler{
		refresher: refresher,
		repo:      repo,
		cfg:       cfg,
	}
}

// Start launches the background loop. Calling Start on a running
// scheduler is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		log.Info().Msg("Token refresh scheduler already running")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	log.Info().Dur("interval", s.cfg.GetRefreshInterval()).Msg("Starting ShareFile token refresh scheduler")
	go s.run(ctx)
}

// Stop signals the loop to exit and waits for it. The loop observes
// the signal at its next sleep, never mid-refresh.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	log.Info().Msg("Stopped ShareFile token refresh scheduler")
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	for {
		delay := s.cfg.GetRefreshInterval()
		if err := s.sweep(ctx); err != nil {
			log.Err(err).Msg("Token refresh sweep failed")
			delay = s.cfg.GetRefreshRetryDelay()
		}

		s.setNextRun(credential.NowTimeFunc().Add(delay))
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// sweep refreshes the organization credential when it is due. Grant
// failures are recorded by the refresher and not propagated: only
// store errors bubble up to trigger the retry delay.
func (s *Scheduler) sweep(ctx context.Context) error {
	cred, err := s.repo.ActiveOrganization(ctx)
	if errors.Is(err, errors.ErrCredentialNotFound) {
		return nil // nothing connected yet
	}
	if err != nil {
		return errors.Wrapf(err, "load organization credential")
	}

	if !cred.NeedsRefresh(s.cfg.GetRefreshInterval()) {
		return nil
	}

	if _, err := s.refresher.Refresh(ctx, cred.ID); err != nil {
		// One attempt per cycle; the next sweep (or a 401) tries again.
		log.Err(err).Str("credential_id", cred.ID).Msg("Scheduled token refresh failed")
		return nil
	}
	log.Info().Str("credential_id", cred.ID).Msg("Refreshed organization ShareFile token")
	return nil
}

func (s *Scheduler) setNextRun(t time.Time) {
	s.mu.Lock()
	s.nextRun = t
	s.mu.Unlock()
}

// NextScheduledRefresh reports when the loop wakes next; zero when the
// scheduler is not running.
func (s *Scheduler) NextScheduledRefresh() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return time.Time{}
	}
	return s.nextRun
}
