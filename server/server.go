package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/onboardhq/sharefile-connect/credential"
	"github.com/onboardhq/sharefile-connect/internal/config"
	"github.com/onboardhq/sharefile-connect/server/authstaterepo"
	"github.com/onboardhq/sharefile-connect/sharefile"
	"github.com/onboardhq/sharefile-connect/sharefile/refresher"
)

const contentTypeJSON = "application/json; charset=utf-8"

// AdminGate answers whether the request comes from an administrator,
// and who that is. The surrounding application's session layer supplies
// the implementation; this service only consumes the answer.
type AdminGate func(r *http.Request) (userID string, ok bool)

type Server struct {
	env        string
	mux        *http.ServeMux
	routes     []string
	config     config.Config
	creds      credential.Repo
	client     *sharefile.Client
	gateway    *sharefile.Gateway
	scheduler  *refresher.Scheduler
	authStates authstaterepo.Repo
	isAdmin    AdminGate
}

func New(cfg config.Config, creds credential.Repo, client *sharefile.Client, gateway *sharefile.Gateway, scheduler *refresher.Scheduler, authStates authstaterepo.Repo, isAdmin AdminGate) (*Server, error) {
	if isAdmin == nil {
		return nil, fmt.Errorf("[Server New] admin gate is required")
	}

	s := &Server{
		mux:        http.NewServeMux(),
		config:     cfg,
		creds:      creds,
		client:     client,
		gateway:    gateway,
		scheduler:  scheduler,
		authStates: authStates,
		isAdmin:    isAdmin,
	}
	s.env = cfg.GetEnv()

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			log.Printf("[%-7s] %s\n", parts[0], parts[1])
		} else {
			log.Printf("[%-7s] %s\n", "", parts[0])
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"status": "error", "message": message})
}
