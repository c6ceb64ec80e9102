package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"maintlog/store"
)

func (s *Server) searchUsersHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	users, err := s.store.SearchUsers(q.Get("username"), q.Get("name"),
		q.Get("personnel_number"), q.Get("department"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if users == nil {
		users = []store.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) createUserHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		store.User
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Password == "" {
		http.Error(w, "username and password are required", http.StatusBadRequest)
		return
	}

	if err := s.store.RegisterUser(req.User, req.Password); err != nil {
		if errors.Is(err, store.ErrUserExists) {
			http.Error(w, "Username already exists", http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.log.Info().Str("user", req.Username).Msg("user registered")
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) updateUserHandler(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	var upd store.UserUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if _, found, err := s.store.GetUser(username); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	} else if !found {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	if err := s.store.UpdateUser(username, upd); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) deleteUserHandler(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	deleted, err := s.store.DeleteUser(username)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !deleted {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}
	s.log.Info().Str("user", username).Msg("user deleted")
	w.WriteHeader(http.StatusOK)
}

func (s *Server) changePasswordHandler(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	id := identity(r.Context())
	if !id.IsAdmin && !strings.EqualFold(id.Username, username) {
		http.Error(w, "You can only change your own password", http.StatusForbidden)
		return
	}

	var req struct {
		NewPassword string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.NewPassword == "" {
		http.Error(w, "new_password is required", http.StatusBadRequest)
		return
	}

	if _, found, err := s.store.GetUser(username); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	} else if !found {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	if err := s.store.ChangePassword(username, req.NewPassword); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.log.Info().Str("user", username).Msg("password changed")
	w.WriteHeader(http.StatusOK)
}

func (s *Server) userStatsHandler(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	now := time.Now()

	activity, err := s.store.UserActivity(username, now)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	topTags, err := s.store.UserTopTags(username, 10)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	recent, err := s.store.UserRecentJobs(username, 10)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if topTags == nil {
		topTags = []store.TagActivity{}
	}
	if recent == nil {
		recent = []store.JobReport{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"activity": activity,
		"top_tags": topTags,
		"recent":   recent,
	})
}

func (s *Server) getFilterHandler(w http.ResponseWriter, r *http.Request) {
	id := identity(r.Context())
	saved, err := s.store.SavedFilter(id.Username)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if saved == "" {
		writeJSON(w, http.StatusOK, map[string]any{"filter": nil})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"filter":` + saved + `}`))
}

func (s *Server) saveFilterHandler(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	data, err := json.Marshal(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	id := identity(r.Context())
	if err := s.store.SaveFilter(id.Username, string(data)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) clearFilterHandler(w http.ResponseWriter, r *http.Request) {
	id := identity(r.Context())
	if err := s.store.SaveFilter(id.Username, ""); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}
