package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"maintlog/refdata"
)

func (s *Server) failureModesHandler(w http.ResponseWriter, r *http.Request) {
	objectType := mux.Vars(r)["objectType"]
	modes, err := refdata.FailureModes(s.cfg.FailureModesPath, objectType)
	if err != nil {
		if errors.Is(err, refdata.ErrUnknownType) {
			http.Error(w, "Unknown object type", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if modes == nil {
		modes = []string{}
	}
	writeJSON(w, http.StatusOK, modes)
}

func (s *Server) addFailureModeHandler(w http.ResponseWriter, r *http.Request) {
	objectType := mux.Vars(r)["objectType"]
	var req struct {
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Mode == "" {
		http.Error(w, "mode is required", http.StatusBadRequest)
		return
	}

	added, err := refdata.AddFailureMode(s.cfg.FailureModesPath, objectType, req.Mode)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !added {
		http.Error(w, "Mode already listed", http.StatusConflict)
		return
	}
	s.log.Info().Str("object_type", objectType).Str("mode", req.Mode).
		Msg("failure mode added")
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) motorSpecsHandler(w http.ResponseWriter, r *http.Request) {
	tag := mux.Vars(r)["tag"]
	specs, found, err := refdata.MotorSpecs(s.cfg.MotorSpecsPath, tag)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "No specification for tag", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, specs)
}
