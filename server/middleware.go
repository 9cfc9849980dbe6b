package server

import (
	"context"
	"net/http"
)

type contextKey string

const adminUserIDKey contextKey = "adminUserID"

// RequireAdmin rejects requests the admin gate does not vouch for and
// stores the admin's user id on the request context for handlers.
func (s *Server) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := s.isAdmin(r)
		if !ok {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), adminUserIDKey, userID)))
	}
}

func adminUserID(r *http.Request) string {
	if v, ok := r.Context().Value(adminUserIDKey).(string); ok {
		return v
	}
	return ""
}
