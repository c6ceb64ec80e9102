package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"maintlog/store"
)

func (s *Server) searchObjectsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	objects, err := s.store.SearchObjects(q.Get("tag"), q.Get("father_tag"),
		q.Get("unit_code"), q.Get("train"), 1000)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if objects == nil {
		objects = []store.Object{}
	}
	writeJSON(w, http.StatusOK, objects)
}

func (s *Server) createObjectHandler(w http.ResponseWriter, r *http.Request) {
	var obj store.Object
	if err := json.NewDecoder(r.Body).Decode(&obj); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if obj.Tag == "" {
		http.Error(w, "object_tag is required", http.StatusBadRequest)
		return
	}

	id := identity(r.Context())
	obj.Registered = fmt.Sprintf("%s | %s",
		store.Registrant(id.Username, id.Machine), time.Now().Format("02-01-2006"))
	obj.Modified = ""

	if err := s.store.AddObject(obj); err != nil {
		if errors.Is(err, store.ErrTagExists) {
			http.Error(w, "Tag already exists", http.StatusConflict)
			return
		}
		s.log.Error().Err(err).Str("tag", obj.Tag).Msg("add object failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.log.Info().Str("tag", obj.Tag).Str("user", id.Username).Msg("object registered")
	writeJSON(w, http.StatusCreated, obj)
}

func (s *Server) getObjectHandler(w http.ResponseWriter, r *http.Request) {
	obj, found, err := s.store.GetObject(mux.Vars(r)["tag"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "Tag not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, obj)
}

func (s *Server) updateObjectHandler(w http.ResponseWriter, r *http.Request) {
	tag := mux.Vars(r)["tag"]
	var obj store.Object
	if err := json.NewDecoder(r.Body).Decode(&obj); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if obj.Tag == "" {
		http.Error(w, "object_tag is required", http.StatusBadRequest)
		return
	}

	if _, found, err := s.store.GetObject(tag); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	} else if !found {
		http.Error(w, "Tag not found", http.StatusNotFound)
		return
	}

	id := identity(r.Context())
	modEntry := fmt.Sprintf("%s | %s",
		store.Registrant(id.Username, id.Machine), time.Now().Format("02-01-2006"))

	result, err := s.store.UpdateObject(tag, obj, modEntry)
	if err != nil {
		if errors.Is(err, store.ErrTagExists) {
			http.Error(w, "Tag already exists", http.StatusConflict)
			return
		}
		s.log.Error().Err(err).Str("tag", tag).Msg("update object failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.log.Info().Str("tag", tag).Str("new_tag", obj.Tag).Str("user", id.Username).
		Int("jobs", result.Jobs).Int("fathers", result.Fathers).
		Int("lineage", result.Lineage).Msg("object updated")
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) deleteObjectHandler(w http.ResponseWriter, r *http.Request) {
	tag := mux.Vars(r)["tag"]
	deleted, err := s.store.DeleteObject(tag)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !deleted {
		http.Error(w, "Tag not found", http.StatusNotFound)
		return
	}
	s.log.Info().Str("tag", tag).Msg("object deleted")
	w.WriteHeader(http.StatusOK)
}

func (s *Server) distinctValuesHandler(w http.ResponseWriter, r *http.Request) {
	values, err := s.store.DistinctValues(mux.Vars(r)["column"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if values == nil {
		values = []string{}
	}
	writeJSON(w, http.StatusOK, values)
}

func (s *Server) tagStatsHandler(w http.ResponseWriter, r *http.Request) {
	tag := mux.Vars(r)["tag"]
	obj, found, err := s.store.GetObject(tag)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "Tag not found", http.StatusNotFound)
		return
	}
	stats, err := s.store.StatsForTag(obj, time.Now())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) tagFatherHandler(w http.ResponseWriter, r *http.Request) {
	tag := mux.Vars(r)["tag"]
	recordDate := r.URL.Query().Get("date")
	if recordDate == "" {
		recordDate = time.Now().Format("2006-01-02")
	}
	father, count, err := s.store.FatherAndRecentCount(tag, recordDate)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"father":       father,
		"recent_count": count,
	})
}

// standbyEntry is one sibling tag with its maintenance split.
type standbyEntry struct {
	Tag   string `json:"object_tag"`
	PM    int    `json:"pm"`
	CM    int    `json:"cm"`
	Total int    `json:"total"`
}

func (s *Server) standbyHandler(w http.ResponseWriter, r *http.Request) {
	tag := mux.Vars(r)["tag"]
	variants, err := s.store.StandbyVariants(tag)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	entries := []standbyEntry{}
	for _, t := range append([]string{tag}, variants...) {
		pm, cm, total, err := s.store.JobBreakdown(t)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		entries = append(entries, standbyEntry{Tag: t, PM: pm, CM: cm, Total: total})
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) familyHandler(w http.ResponseWriter, r *http.Request) {
	tag := mux.Vars(r)["tag"]
	family, err := s.store.TypicalFamily(tag)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	since := time.Now().AddDate(-1, 0, 0).Format("2006-01-02")
	monthly, err := s.store.MonthlyBreakdown(family, since)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if monthly == nil {
		monthly = []store.MonthlyCount{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"family":  family,
		"monthly": monthly,
	})
}

func (s *Server) activeJobsHandler(w http.ResponseWriter, r *http.Request) {
	summary, err := s.store.ActiveJobs(mux.Vars(r)["tag"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if summary.Jobs == nil {
		summary.Jobs = []store.JobReport{}
	}
	writeJSON(w, http.StatusOK, summary)
}
