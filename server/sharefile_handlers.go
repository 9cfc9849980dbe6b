package server

import (
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/onboardhq/sharefile-connect/credential"
	"github.com/onboardhq/sharefile-connect/internal/errors"
	"github.com/onboardhq/sharefile-connect/server/authstaterepo"
	"github.com/onboardhq/sharefile-connect/sharefile"
)

// ConnectHandler starts the authorization flow: it mints a state nonce,
// remembers who initiated the flow, and redirects the browser to the
// ShareFile consent page.
func (s *Server) ConnectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := uuid.NewString()
		err := s.authStates.Save(state, &authstaterepo.AuthState{
			InitiatedByUserID: adminUserID(r),
			CreatedAt:         credential.NowTimeFunc().UTC(),
		}, s.config.GetAuthStateTTL())
		if err != nil {
			log.Err(err).Msg("Failed to save auth state")
			writeError(w, http.StatusInternalServerError, "could not start authorization flow")
			return
		}

		http.Redirect(w, r, s.client.AuthorizationURL(state), http.StatusFound)
	}
}

// CallbackHandler completes the authorization flow. The redirect's HMAC
// signature is verified before anything else; only then is the state
// consumed, the code exchanged, and the resulting credential persisted
// as the new organization-wide record.
func (s *Server) CallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !sharefile.ValidRedirect(r.URL.RequestURI(), s.config.GetShareFileClientSecret()) {
			log.Warn().Err(errors.ErrSignatureInvalid).Str("remote", r.RemoteAddr).Msg("Rejected ShareFile redirect")
			writeError(w, http.StatusUnauthorized, errors.ErrSignatureInvalid.Error())
			return
		}

		q := r.URL.Query()
		code := q.Get("code")
		subdomain := q.Get("subdomain")
		apicp := q.Get("apicp")
		appcp := q.Get("appcp")
		if code == "" || subdomain == "" || apicp == "" {
			writeError(w, http.StatusBadRequest, "missing code or tenant routing parameters")
			return
		}

		authState, err := s.authStates.Consume(q.Get("state"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "unknown or expired authorization state")
			return
		}

		pair, err := s.client.ExchangeCode(r.Context(), code, subdomain, apicp, appcp)
		if err != nil {
			log.Err(err).Msg("ShareFile code exchange failed")
			writeError(w, http.StatusBadGateway, "authorization code exchange failed")
			return
		}

		cred := credential.NewOrganizationCredential(
			pair.AccessToken, pair.RefreshToken,
			pair.Subdomain, pair.APIControlPlane, pair.AppControlPlane,
			authState.InitiatedByUserID, s.config.GetTokenValidity(),
		)
		stored, err := s.creds.ReplaceOrganization(r.Context(), cred)
		if errors.Is(err, errors.ErrConflict) {
			writeError(w, http.StatusConflict, "another authorization completed first")
			return
		}
		if err != nil {
			log.Err(err).Msg("Failed to persist ShareFile credential")
			writeError(w, http.StatusInternalServerError, "could not store credentials")
			return
		}

		log.Info().Str("subdomain", stored.Subdomain).Msg("ShareFile organization credential connected")
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "connected",
			"subdomain": stored.Subdomain,
			"apicp":     stored.APIControlPlane,
			"expiresAt": stored.ExpiresAt,
		})
	}
}

// StatusHandler serves the refresh-status query for the admin UI.
func (s *Server) StatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := s.scheduler.Status(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

// ForceRefreshHandler refreshes the organization token on demand.
func (s *Server) ForceRefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result := s.scheduler.ForceRefresh(r.Context())
		status := http.StatusOK
		if result.Status != "success" {
			status = http.StatusBadGateway
		}
		writeJSON(w, status, result)
	}
}

// TestConnectionHandler round-trips a listing call through the gateway
// so an administrator can verify the stored credential works.
func (s *Server) TestConnectionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := s.gateway.Do(r.Context(), http.MethodGet, "/Items", nil)
		if errors.Is(err, errors.ErrCredentialNotFound) {
			// No active credential. A deactivated one still exists after
			// repeated refresh failures and needs re-authorization, which
			// is a different answer than never having connected.
			if _, latestErr := s.creds.LatestOrganization(r.Context()); latestErr == nil {
				writeJSON(w, http.StatusOK, map[string]any{
					"status":  "unauthorized",
					"message": "token invalid - refresh or re-authorize",
				})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"status": "not_connected"})
			return
		}
		if errors.Is(err, errors.ErrUnauthorized) {
			writeJSON(w, http.StatusOK, map[string]any{
				"status":  "unauthorized",
				"message": "token invalid - refresh or re-authorize",
			})
			return
		}
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil || resp.StatusCode < 200 || resp.StatusCode > 299 {
			writeError(w, http.StatusBadGateway, "listing request failed")
			return
		}

		items, err := sharefile.NormalizeItems(body)
		if err != nil {
			writeError(w, http.StatusBadGateway, "could not parse listing response")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "connected",
			"items":  items,
		})
	}
}
