package server

import "net/http"

const (
	RouteHealthz           = "/healthz"
	RouteShareFileConnect  = "/sharefile/connect"
	RouteShareFileCallback = "/sharefile/callback"
	RouteShareFileStatus   = "/sharefile/status"
	RouteShareFileRefresh  = "/sharefile/refresh"
	RouteShareFileTest     = "/sharefile/test"
)

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET "+RouteHealthz, s.HealthzHandler())

	// ShareFile credential lifecycle (admin only)
	s.RegisterRouteFunc("GET "+RouteShareFileConnect, s.RequireAdmin(s.ConnectHandler()))
	s.RegisterRouteFunc("GET "+RouteShareFileCallback, s.RequireAdmin(s.CallbackHandler()))
	s.RegisterRouteFunc("GET "+RouteShareFileStatus, s.RequireAdmin(s.StatusHandler()))
	s.RegisterRouteFunc("POST "+RouteShareFileRefresh, s.RequireAdmin(s.ForceRefreshHandler()))
	s.RegisterRouteFunc("GET "+RouteShareFileTest, s.RequireAdmin(s.TestConnectionHandler()))
}

func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	}
}
