// Package web exposes the reporting service over HTTP. Handlers speak
// JSON and lean on cookie sessions; write access to a report is gated
// by the ownership rule in permission.go.
package web

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"github.com/rs/zerolog"

	"maintlog/config"
	"maintlog/store"
)

const sessionName = "session"

// Server wires the HTTP surface to the data layer.
type Server struct {
	store    *store.Store
	sessions *sessions.CookieStore
	cfg      config.Config
	log      zerolog.Logger
}

// New builds a Server with cookie sessions signed by the configured
// secret.
func New(st *store.Store, cfg config.Config, logger zerolog.Logger) *Server {
	cs := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	cs.Options.Path = "/"
	cs.Options.HttpOnly = true
	cs.Options.SameSite = http.SameSiteLaxMode
	cs.Options.Secure = cfg.SecureCookies

	return &Server{
		store:    st,
		sessions: cs,
		cfg:      cfg,
		log:      logger,
	}
}

// Router builds the full route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/login", s.loginHandler).Methods("POST")
	r.HandleFunc("/api/logout", s.logoutHandler).Methods("POST")
	r.HandleFunc("/api/check-auth", s.checkAuthHandler).Methods("GET")

	r.HandleFunc("/api/users", s.requireAdmin(s.searchUsersHandler)).Methods("GET")
	r.HandleFunc("/api/users", s.requireAdmin(s.createUserHandler)).Methods("POST")
	r.HandleFunc("/api/users/{username}", s.requireAdmin(s.updateUserHandler)).Methods("PUT")
	r.HandleFunc("/api/users/{username}", s.requireAdmin(s.deleteUserHandler)).Methods("DELETE")
	r.HandleFunc("/api/users/{username}/password", s.requireAuth(s.changePasswordHandler)).Methods("POST")
	r.HandleFunc("/api/users/{username}/stats", s.requireAuth(s.userStatsHandler)).Methods("GET")

	r.HandleFunc("/api/filter", s.requireAuth(s.getFilterHandler)).Methods("GET")
	r.HandleFunc("/api/filter", s.requireAuth(s.saveFilterHandler)).Methods("PUT")
	r.HandleFunc("/api/filter", s.requireAuth(s.clearFilterHandler)).Methods("DELETE")

	r.HandleFunc("/api/jobs/search", s.requireAuth(s.searchJobsHandler)).Methods("POST")
	r.HandleFunc("/api/jobs/export", s.requireAuth(s.exportJobsHandler)).Methods("POST")
	r.HandleFunc("/api/jobs/pm", s.requireAuth(s.pmJobsHandler)).Methods("GET")
	r.HandleFunc("/api/jobs", s.requireAuth(s.createJobHandler)).Methods("POST")
	r.HandleFunc("/api/jobs/{id:[0-9]+}", s.requireAuth(s.getJobHandler)).Methods("GET")
	r.HandleFunc("/api/jobs/{id:[0-9]+}", s.requireAuth(s.updateJobHandler)).Methods("PUT")
	r.HandleFunc("/api/jobs/{id:[0-9]+}", s.requireAuth(s.deleteJobHandler)).Methods("DELETE")

	r.HandleFunc("/api/objects", s.requireAuth(s.searchObjectsHandler)).Methods("GET")
	r.HandleFunc("/api/objects", s.requireAuth(s.createObjectHandler)).Methods("POST")
	r.HandleFunc("/api/objects/values/{column}", s.requireAuth(s.distinctValuesHandler)).Methods("GET")
	r.HandleFunc("/api/objects/{tag}", s.requireAuth(s.getObjectHandler)).Methods("GET")
	r.HandleFunc("/api/objects/{tag}", s.requireAdmin(s.updateObjectHandler)).Methods("PUT")
	r.HandleFunc("/api/objects/{tag}", s.requireAdmin(s.deleteObjectHandler)).Methods("DELETE")

	r.HandleFunc("/api/tags/{tag}/stats", s.requireAuth(s.tagStatsHandler)).Methods("GET")
	r.HandleFunc("/api/tags/{tag}/father", s.requireAuth(s.tagFatherHandler)).Methods("GET")
	r.HandleFunc("/api/tags/{tag}/standby", s.requireAuth(s.standbyHandler)).Methods("GET")
	r.HandleFunc("/api/tags/{tag}/family", s.requireAuth(s.familyHandler)).Methods("GET")
	r.HandleFunc("/api/tags/{tag}/active", s.requireAuth(s.activeJobsHandler)).Methods("GET")
	r.HandleFunc("/api/tags/{tag}/related", s.requireAuth(s.relatedJobsHandler)).Methods("GET")
	r.HandleFunc("/api/tags/{tag}/related/search", s.requireAuth(s.searchRelatedHandler)).Methods("GET")
	r.HandleFunc("/api/tags/{tag}/last", s.requireAuth(s.lastJobHandler)).Methods("GET")
	r.HandleFunc("/api/tags/{tag}/keywords", s.requireAuth(s.topKeywordsHandler)).Methods("GET")

	r.HandleFunc("/api/routes", s.requireAuth(s.searchRoutesHandler)).Methods("GET")
	r.HandleFunc("/api/routes/{code}", s.requireAuth(s.routeDetailsHandler)).Methods("GET")
	r.HandleFunc("/api/routes/{code}/tags", s.requireAdmin(s.addRouteTagHandler)).Methods("POST")
	r.HandleFunc("/api/routes/{code}/tags/{tag}", s.requireAdmin(s.updateRouteInfoHandler)).Methods("PUT")
	r.HandleFunc("/api/routes/{code}/tags/{tag}", s.requireAdmin(s.removeRouteTagHandler)).Methods("DELETE")
	r.HandleFunc("/api/routes/{code}/ppm", s.requireAuth(s.ppmJobsHandler)).Methods("GET")
	r.HandleFunc("/api/routes/{code}/ppm", s.requireAuth(s.reconcilePPMHandler)).Methods("POST")

	r.HandleFunc("/api/trends", s.requireAuth(s.trendsHandler)).Methods("GET")

	r.HandleFunc("/api/failure-modes/{objectType}", s.requireAuth(s.failureModesHandler)).Methods("GET")
	r.HandleFunc("/api/failure-modes/{objectType}", s.requireAuth(s.addFailureModeHandler)).Methods("POST")
	r.HandleFunc("/api/motor-specs/{tag}", s.requireAuth(s.motorSpecsHandler)).Methods("GET")

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
