package web

import (
	"encoding/json"
	"net/http"
	"time"
)

// sessionIdentity is what the middleware extracts from a live session.
type sessionIdentity struct {
	Username string
	Machine  string
	IsAdmin  bool
}

func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	var credentials struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Machine  string `json:"machine"`
	}
	if err := json.NewDecoder(r.Body).Decode(&credentials); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	ok, err := s.store.VerifyUser(credentials.Username, credentials.Password)
	if err != nil {
		s.log.Error().Err(err).Msg("login: verify failed")
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	user, found, err := s.store.GetUser(credentials.Username)
	if err != nil || !found {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	machine := credentials.Machine
	if machine == "" {
		machine = r.RemoteAddr
	}

	session, _ := s.sessions.Get(r, sessionName)
	session.Values["username"] = user.Username
	session.Values["machine"] = machine
	session.Values["is_admin"] = user.IsAdmin
	session.Values["last_activity"] = time.Now().Unix()
	session.Save(r, w)

	s.log.Info().Str("user", user.Username).Str("machine", machine).Msg("login")
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) logoutHandler(w http.ResponseWriter, r *http.Request) {
	session, _ := s.sessions.Get(r, sessionName)
	session.Values["username"] = nil
	session.Options.MaxAge = -1
	session.Save(r, w)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) checkAuthHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := s.touchSession(w, r)
	if !ok {
		return
	}
	user, found, err := s.store.GetUser(id.Username)
	if err != nil || !found {
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// touchSession validates the session, enforces the inactivity timeout,
// and refreshes last_activity. On failure it has already written the
// response.
func (s *Server) touchSession(w http.ResponseWriter, r *http.Request) (sessionIdentity, bool) {
	session, _ := s.sessions.Get(r, sessionName)

	timeout := time.Duration(s.cfg.SessionTimeoutMinutes) * time.Minute
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	lastActivity, ok := session.Values["last_activity"].(int64)
	if !ok || time.Now().Unix()-lastActivity > int64(timeout.Seconds()) {
		session.Options.MaxAge = -1
		session.Save(r, w)
		http.Error(w, "Session expired", http.StatusUnauthorized)
		return sessionIdentity{}, false
	}

	username, ok := session.Values["username"].(string)
	if !ok || username == "" {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return sessionIdentity{}, false
	}

	session.Values["last_activity"] = time.Now().Unix()
	session.Save(r, w)

	machine, _ := session.Values["machine"].(string)
	isAdmin, _ := session.Values["is_admin"].(bool)
	return sessionIdentity{Username: username, Machine: machine, IsAdmin: isAdmin}, true
}

// identityKey carries the session identity through the request context.
type identityKey struct{}

func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.touchSession(w, r)
		if !ok {
			return
		}
		next(w, withIdentity(r, id))
	}
}

func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.touchSession(w, r)
		if !ok {
			return
		}
		if !id.IsAdmin {
			http.Error(w, "Admin access required", http.StatusForbidden)
			return
		}
		next(w, withIdentity(r, id))
	}
}

func withIdentity(r *http.Request, id sessionIdentity) *http.Request {
	return r.WithContext(contextWithIdentity(r.Context(), id))
}
