package refresher

import (
	"context"
	"time"

	"github.com/onboardhq/sharefile-connect/internal/errors"
)

// Result is the outcome of a force refresh, shaped for the admin UI.
type Result struct {
	Status      string     `json:"status"` // "success" or "error"
	Message     string     `json:"message,omitempty"`
	RefreshedAt *time.Time `json:"refreshedAt,omitempty"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
}

// Status answers the refresh-status query. Connected distinguishes
// "no credential yet" from a deactivated one.
type Status struct {
	Connected            bool       `json:"connected"`
	Active               bool       `json:"active"`
	AutoRefreshEnabled   bool       `json:"autoRefreshEnabled"`
	RefreshCount         int        `json:"refreshCount"`
	FailureCount         int        `json:"failureCount"`
	LastRefreshedAt      *time.Time `json:"lastRefreshedAt,omitempty"`
	ExpiresAt            *time.Time `json:"expiresAt,omitempty"`
	NextScheduledRefresh *time.Time `json:"nextScheduledRefresh,omitempty"`
}

// ForceRefresh refreshes the organization credential on demand,
// independent of the periodic schedule.
func (s *Scheduler) ForceRefresh(ctx context.Context) Result {
	cred, err := s.repo.ActiveOrganization(ctx)
	if errors.Is(err, errors.ErrCredentialNotFound) {
		return Result{Status: "error", Message: "no active organization-wide ShareFile credentials found"}
	}
	if err != nil {
		return Result{Status: "error", Message: err.Error()}
	}

	updated, err := s.refresher.Refresh(ctx, cred.ID)
	if err != nil {
		return Result{Status: "error", Message: err.Error()}
	}

	refreshedAt := updated.LastRefreshedAt
	expiresAt := updated.ExpiresAt
	return Result{
		Status:      "success",
		Message:     "organization-wide ShareFile token refreshed",
		RefreshedAt: &refreshedAt,
		ExpiresAt:   &expiresAt,
	}
}

// Status reports the current credential health and the next scheduled
// sweep time. It reads the latest organization credential rather than
// the active one: a credential deactivated after repeated refresh
// failures must still show up as connected-but-inactive, not as if the
// organization had never authorized.
func (s *Scheduler) Status(ctx context.Context) (Status, error) {
	cred, err := s.repo.LatestOrganization(ctx)
	if errors.Is(err, errors.ErrCredentialNotFound) {
		return Status{}, nil
	}
	if err != nil {
		return Status{}, err
	}

	st := Status{
		Connected:          true,
		Active:             cred.Active,
		AutoRefreshEnabled: cred.AutoRefresh,
		RefreshCount:       cred.RefreshCount,
		FailureCount:       cred.FailureCount,
	}
	if !cred.LastRefreshedAt.IsZero() {
		t := cred.LastRefreshedAt
		st.LastRefreshedAt = &t
	}
	if !cred.ExpiresAt.IsZero() {
		t := cred.ExpiresAt
		st.ExpiresAt = &t
	}
	if next := s.NextScheduledRefresh(); !next.IsZero() {
		st.NextScheduledRefresh = &next
	}
	return st, nil
}
