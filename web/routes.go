package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"maintlog/store"
)

func (s *Server) searchRoutesHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	routes, err := s.store.SearchRoutes(q.Get("code"), q.Get("description"), q.Get("tag"), 300)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if routes == nil {
		routes = []store.RouteEntry{}
	}
	writeJSON(w, http.StatusOK, routes)
}

func (s *Server) routeDetailsHandler(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.RouteDetails(mux.Vars(r)["code"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if len(entries) == 0 {
		http.Error(w, "Route not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) addRouteTagHandler(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	var req struct {
		ObjectTag   string `json:"object_tag"`
		Description string `json:"route_desc"`
		StandardJob string `json:"standard_job"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.ObjectTag == "" {
		http.Error(w, "object_tag is required", http.StatusBadRequest)
		return
	}
	if err := s.store.AddRouteTag(code, req.Description, req.ObjectTag, req.StandardJob); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.log.Info().Str("route", code).Str("tag", req.ObjectTag).Msg("route tag added")
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) removeRouteTagHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	removed, err := s.store.RemoveRouteTag(vars["code"], vars["tag"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !removed {
		http.Error(w, "Tag not on route", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) updateRouteInfoHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var req struct {
		Description string `json:"route_desc"`
		StandardJob string `json:"standard_job"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if err := s.store.UpdateRouteInfo(vars["code"], vars["tag"], req.Description, req.StandardJob); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) ppmJobsHandler(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	wo := r.URL.Query().Get("wo")
	if wo == "" {
		http.Error(w, "wo is required", http.StatusBadRequest)
		return
	}

	entries, err := s.store.RouteDetails(code)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if len(entries) == 0 {
		http.Error(w, "Route not found", http.StatusNotFound)
		return
	}
	tags := make([]string, 0, len(entries))
	for _, e := range entries {
		tags = append(tags, e.ObjectTag)
	}

	jobs, err := s.store.PPMJobsForRoute(wo, tags)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"route": entries,
		"jobs":  jobs,
	})
}

func (s *Server) reconcilePPMHandler(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	var req struct {
		Header store.JobReport `json:"header"`
		Items  []store.PPMItem `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Header.WONumber == "" || req.Header.Date == "" {
		http.Error(w, "header wo_number and date are required", http.StatusBadRequest)
		return
	}

	id := identity(r.Context())
	registrant := store.Registrant(id.Username, id.Machine)
	req.Header.Route = code
	req.Header.RegisteredBy = registrant
	req.Header.RegisteredDate = time.Now().Format("2006-01-02")

	inserted, updated, deleted, err := s.store.ReconcilePPM(req.Header, req.Items, registrant, time.Now())
	if err != nil {
		s.log.Error().Err(err).Str("route", code).Msg("route submission failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.log.Info().Str("route", code).Str("user", id.Username).
		Int("inserted", inserted).Int("updated", updated).Int("deleted", deleted).
		Msg("route submission applied")
	writeJSON(w, http.StatusOK, map[string]int{
		"inserted": inserted,
		"updated":  updated,
		"deleted":  deleted,
	})
}
